package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dokan/internal/adapters/kv/memory"
	domain "dokan/internal/domain/session"
)

// mockIssuer implements ports.TokenIssuerPort for testing
type mockIssuer struct {
	mu           sync.Mutex
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	refreshFn    func(ctx context.Context, refreshToken string) (string, error)
	loginResult  *domain.AuthResult
	loginErr     error
	lastRefresh  string
	lastLogout   string
}

func (m *mockIssuer) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResult, nil
}

func (m *mockIssuer) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	return m.Login(ctx, domain.Credentials{Email: reg.Email, Password: reg.Password})
}

func (m *mockIssuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	m.refreshCalls.Add(1)
	m.mu.Lock()
	m.lastRefresh = refreshToken
	fn := m.refreshFn
	m.mu.Unlock()
	if fn == nil {
		return "", errors.New("refresh not configured")
	}
	return fn(ctx, refreshToken)
}

func (m *mockIssuer) Logout(ctx context.Context, accessToken string) error {
	m.logoutCalls.Add(1)
	m.mu.Lock()
	m.lastLogout = accessToken
	m.mu.Unlock()
	return nil
}

func refreshReturning(token string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return token, nil }
}

func refreshFailing(err error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return "", err }
}

// flakyKV wraps the memory store and can fail writes on demand
type flakyKV struct {
	*memory.Store
	failSet bool
}

func (f *flakyKV) SetMany(ctx context.Context, values map[string]string) error {
	if f.failSet {
		return errors.New("quota exceeded")
	}
	return f.Store.SetMany(ctx, values)
}

// mockNavigator counts login redirects
type mockNavigator struct {
	redirects atomic.Int32
}

func (n *mockNavigator) RedirectToLogin() { n.redirects.Add(1) }

var testUser = domain.User{ID: "1", Name: "A", Email: "a@example.com", Role: "User"}

// seed writes a complete session directly into kv with the given expiry.
func seed(kv *memory.Store, user domain.User, access, refresh string, expiresAt time.Time) {
	store := NewTokenStore(kv, time.Hour)
	store.now = func() time.Time { return expiresAt.Add(-time.Hour) }
	store.Save(context.Background(), user, access, refresh)
}
