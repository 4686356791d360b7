package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `CREATE TABLE IF NOT EXISTS session_kv (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (namespace, key)
)`

// Store keeps session keys in the session_kv table, one namespace per
// client profile so several clients can share a database.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
	owned     bool
}

// NewStore uses an existing pool. The table must already exist (see EnsureSchema).
func NewStore(pool *pgxpool.Pool, namespace string) *Store {
	return &Store{pool: pool, namespace: namespace}
}

// Open connects to dsn, creates the table if needed and returns a store
// that closes the pool on Close.
func Open(ctx context.Context, dsn, namespace string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect session db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping session db: %w", err)
	}
	s := NewStore(pool, namespace)
	s.owned = true
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates session_kv if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create session_kv: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM session_kv WHERE namespace = $1 AND key = ANY($2)`, s.namespace, keys)
	if err != nil {
		return nil, fmt.Errorf("select session keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan session key: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetMany upserts the batch in one transaction.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for k, v := range values {
			batch.Queue(`INSERT INTO session_kv (namespace, key, value) VALUES ($1, $2, $3)
				ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
				s.namespace, k, v)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert session keys: %w", err)
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM session_kv WHERE namespace = $1 AND key = ANY($2)`, s.namespace, keys); err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

// Close closes the pool only when Open created it.
func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}
