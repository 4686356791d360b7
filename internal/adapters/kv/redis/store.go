package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Store keeps one profile's session keys in a redis hash.
type Store struct {
	client *goredis.Client
	key    string
	owned  bool
}

// NewStore uses client and stores under hash "dokan:session:<profile>".
func NewStore(client *goredis.Client, profile string) *Store {
	return &Store{client: client, key: fmt.Sprintf("dokan:session:%s", profile)}
}

// Dial connects to addr and pings it before returning.
func Dial(ctx context.Context, addr, password string, db int, profile string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	s := NewStore(client, profile)
	s.owned = true
	return s, nil
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, s.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget %s: %w", s.key, err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

// SetMany writes the batch inside MULTI/EXEC.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.key, fields)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hset %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("hdel %s: %w", s.key, err)
	}
	return nil
}

// Close closes the client only when Dial created it.
func (s *Store) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
