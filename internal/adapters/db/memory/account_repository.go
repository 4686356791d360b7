package memory

import (
	"fmt"
	"sort"
	"sync"

	"dokan/internal/domain/auth"
)

// AccountRepository is an in-memory implementation of the auth repository.
// It stores and hands out copies, so callers persist changes with UpdateAccount.
type AccountRepository struct {
	mu               sync.RWMutex
	accounts         map[string]*auth.Account // accountID -> Account
	accountsByEmail  map[string]string        // email -> accountID
	accountsByMobile map[string]string        // mobile -> accountID
	sessions         map[string]*auth.RefreshSession
}

// NewAccountRepository creates a new in-memory account repository
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:         make(map[string]*auth.Account),
		accountsByEmail:  make(map[string]string),
		accountsByMobile: make(map[string]string),
		sessions:         make(map[string]*auth.RefreshSession),
	}
}

func copyAccount(a *auth.Account) *auth.Account {
	c := *a
	return &c
}

// GetAccount retrieves an account by ID
func (r *AccountRepository) GetAccount(id string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, auth.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

// GetAccountByEmail retrieves an account by email
func (r *AccountRepository) GetAccountByEmail(email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.accountsByEmail[email]
	if !exists {
		return nil, auth.ErrAccountNotFound
	}
	return copyAccount(r.accounts[id]), nil
}

// GetAccountByMobile retrieves an account by mobile number
func (r *AccountRepository) GetAccountByMobile(mobile string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.accountsByMobile[mobile]
	if !exists {
		return nil, auth.ErrAccountNotFound
	}
	return copyAccount(r.accounts[id]), nil
}

// CreateAccount creates a new account
func (r *AccountRepository) CreateAccount(account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return fmt.Errorf("%w: id %s", auth.ErrAccountExists, account.ID)
	}
	if _, exists := r.accountsByEmail[account.Email]; exists && account.Email != "" {
		return fmt.Errorf("%w: email", auth.ErrAccountExists)
	}
	if _, exists := r.accountsByMobile[account.Mobile]; exists && account.Mobile != "" {
		return fmt.Errorf("%w: mobile", auth.ErrAccountExists)
	}

	r.accounts[account.ID] = copyAccount(account)
	r.index(account)
	return nil
}

func (r *AccountRepository) index(account *auth.Account) {
	if account.Email != "" {
		r.accountsByEmail[account.Email] = account.ID
	}
	if account.Mobile != "" {
		r.accountsByMobile[account.Mobile] = account.ID
	}
}

// UpdateAccount updates an existing account
func (r *AccountRepository) UpdateAccount(account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.accounts[account.ID]
	if !exists {
		return auth.ErrAccountNotFound
	}

	// Update indexes if email or mobile changed
	if old.Email != account.Email {
		delete(r.accountsByEmail, old.Email)
	}
	if old.Mobile != account.Mobile {
		delete(r.accountsByMobile, old.Mobile)
	}
	r.accounts[account.ID] = copyAccount(account)
	r.index(account)
	return nil
}

// ListAccounts retrieves all accounts, oldest first
func (r *AccountRepository) ListAccounts() ([]*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*auth.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		accounts = append(accounts, copyAccount(a))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

// CreateSession records an issued refresh token
func (r *AccountRepository) CreateSession(session *auth.RefreshSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *session
	r.sessions[session.ID] = &c
	return nil
}

// GetSession retrieves a refresh session by token ID
func (r *AccountRepository) GetSession(id string) (*auth.RefreshSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, auth.ErrSessionNotFound
	}
	c := *session
	return &c, nil
}

// DeleteAccountSessions revokes every refresh session of an account
func (r *AccountRepository) DeleteAccountSessions(accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.AccountID == accountID {
			delete(r.sessions, id)
		}
	}
	return nil
}
