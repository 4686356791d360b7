package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dokan/internal/domain/auth"

	"github.com/lib/pq"
)

const accountColumns = `id,name,email,mobile,password_hash,role,avatar,created_at,updated_at,last_login_at`

// codeUniqueViolation is the Postgres error code for a unique constraint failure
const codeUniqueViolation = "23505"

// AccountRepository is a Postgres implementation of auth.Repository
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository constructs an AccountRepository
func NewAccountRepository(db *sql.DB) *AccountRepository { return &AccountRepository{db: db} }

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*auth.Account, error) {
	var a auth.Account
	var email, mobile, avatar sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.Name, &email, &mobile, &a.PasswordHash, &a.Role, &avatar, &a.CreatedAt, &a.UpdatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	a.Email = email.String
	a.Mobile = mobile.String
	a.Avatar = avatar.String
	if lastLogin.Valid {
		a.LastLoginAt = lastLogin.Time
	}
	return &a, nil
}

func (r *AccountRepository) getOne(query string, arg interface{}) (*auth.Account, error) {
	a, err := scanAccount(r.db.QueryRow(query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) GetAccount(id string) (*auth.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
}

func (r *AccountRepository) GetAccountByEmail(email string) (*auth.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE email=$1`, email)
}

func (r *AccountRepository) GetAccountByMobile(mobile string) (*auth.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE mobile=$1`, mobile)
}

func (r *AccountRepository) CreateAccount(a *auth.Account) error {
	_, err := r.db.Exec(`INSERT INTO accounts (`+accountColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.Name, nullString(a.Email), nullString(a.Mobile), a.PasswordHash, a.Role, nullString(a.Avatar),
		a.CreatedAt, a.UpdatedAt, nullTimePtr(a.LastLoginAt))
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: %s", auth.ErrAccountExists, constraint)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdateAccount(a *auth.Account) error {
	res, err := r.db.Exec(`UPDATE accounts SET name=$2,email=$3,mobile=$4,password_hash=$5,role=$6,avatar=$7,updated_at=$8,last_login_at=$9 WHERE id=$1`,
		a.ID, a.Name, nullString(a.Email), nullString(a.Mobile), a.PasswordHash, a.Role, nullString(a.Avatar),
		a.UpdatedAt, nullTimePtr(a.LastLoginAt))
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: %s", auth.ErrAccountExists, constraint)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) ListAccounts() ([]*auth.Account, error) {
	rows, err := r.db.Query(`SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	out := make([]*auth.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) CreateSession(s *auth.RefreshSession) error {
	_, err := r.db.Exec(`INSERT INTO refresh_sessions (id,account_id,expires_at,created_at) VALUES ($1,$2,$3,$4)`,
		s.ID, s.AccountID, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetSession(id string) (*auth.RefreshSession, error) {
	var s auth.RefreshSession
	err := r.db.QueryRow(`SELECT id,account_id,expires_at,created_at FROM refresh_sessions WHERE id=$1`, id).
		Scan(&s.ID, &s.AccountID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// DeleteAccountSessions also drops expired rows of other accounts while it is at it
func (r *AccountRepository) DeleteAccountSessions(accountID string) error {
	if _, err := r.db.Exec(`DELETE FROM refresh_sessions WHERE account_id=$1 OR expires_at < $2`, accountID, time.Now()); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

// uniqueViolation returns the violated constraint name, if err is one
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// nullString maps "" to NULL so unique indexes ignore unset email or mobile
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullTimePtr returns interface{} nil if zero time
func nullTimePtr(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
