package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	domain "dokan/internal/domain/session"
	"dokan/internal/ports"

	"github.com/rs/zerolog/log"
)

// Event is published whenever the session logs in or out.
type Event struct {
	State State
	User  *domain.User
}

// Manager is the session surface the rest of the application uses: who is
// logged in, login and logout, and the credential/refresh hooks the HTTP
// transport is built with.
type Manager struct {
	store     *TokenStore
	refresher *Refresher
	boot      *Bootstrapper
	issuer    ports.TokenIssuerPort
	navigator ports.NavigatorPort
	client    *http.Client

	startOnce sync.Once
	outcome   Outcome

	mu        sync.RWMutex
	listeners []func(Event)
}

// Options tunes lifetimes and timeouts. Zero values fall back to defaults.
type Options struct {
	AccessTokenTTL time.Duration
	RefreshMargin  time.Duration
	RefreshTimeout time.Duration

	// Transport is the base round tripper under the session transport,
	// http.DefaultTransport when nil.
	Transport http.RoundTripper
	// RequestTimeout bounds a whole request through Client, retry
	// included. Zero means no limit.
	RequestTimeout time.Duration
}

// New builds the store, refresher and bootstrapper over kv and returns the
// manager that owns them.
func New(kv ports.KeyValueStore, issuer ports.TokenIssuerPort, navigator ports.NavigatorPort, opts Options) *Manager {
	store := NewTokenStore(kv, opts.AccessTokenTTL)
	refresher := NewRefresher(store, issuer, opts.RefreshTimeout)
	boot := NewBootstrapper(store, refresher, opts.RefreshMargin)
	m := NewManager(store, refresher, boot, issuer, navigator)
	m.client = m.newClient(opts.Transport, opts.RequestTimeout)
	return m
}

// NewManager wires a manager whose client uses http.DefaultTransport and no
// timeout. navigator may be nil when no login screen exists.
func NewManager(store *TokenStore, refresher *Refresher, boot *Bootstrapper, issuer ports.TokenIssuerPort, navigator ports.NavigatorPort) *Manager {
	m := &Manager{
		store:     store,
		refresher: refresher,
		boot:      boot,
		issuer:    issuer,
		navigator: navigator,
	}
	m.client = m.newClient(nil, 0)
	return m
}

func (m *Manager) newClient(base http.RoundTripper, timeout time.Duration) *http.Client {
	return NewClient(NewTransport(base, m.AccessToken, m, m), timeout)
}

// Client returns the HTTP client every protected request should go
// through. It attaches the access token and recovers from a 401.
func (m *Manager) Client() *http.Client { return m.client }

// Subscribe registers fn for every subsequent login/logout event.
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) publish(ev Event) {
	m.mu.RLock()
	listeners := append([]func(Event){}, m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Start bootstraps the session. Only the first call does any work; every
// call returns the same outcome, and it is published exactly once.
func (m *Manager) Start(ctx context.Context) Outcome {
	m.startOnce.Do(func() {
		m.outcome = m.boot.Run(ctx)
		m.publish(Event{State: m.outcome.State, User: m.outcome.User})
	})
	return m.outcome
}

// CurrentUser returns the logged-in user as currently stored.
func (m *Manager) CurrentUser(ctx context.Context) (*domain.User, bool) {
	snap, err := m.store.Read(ctx)
	if err != nil || !snap.Complete() {
		return nil, false
	}
	return snap.User, true
}

// IsLoggedIn reports whether a complete session is stored.
func (m *Manager) IsLoggedIn(ctx context.Context) bool {
	_, ok := m.CurrentUser(ctx)
	return ok
}

// AccessToken is the per-request credential source for the HTTP transport.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	return m.store.AccessToken(ctx)
}

// Refresh exchanges the refresh token for a new access token.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	return m.refresher.Refresh(ctx)
}

// Login authenticates against the issuer and adopts the returned session.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	res, err := m.issuer.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	m.Adopt(ctx, res.User, res.AccessToken, res.RefreshToken)
	return &res.User, nil
}

// Register creates an account and adopts the returned session.
func (m *Manager) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	res, err := m.issuer.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	m.Adopt(ctx, res.User, res.AccessToken, res.RefreshToken)
	return &res.User, nil
}

// Adopt stores a session obtained elsewhere (login or registration response).
func (m *Manager) Adopt(ctx context.Context, user domain.User, accessToken, refreshToken string) {
	m.store.Save(ctx, user, accessToken, refreshToken)
	log.Info().Str("user_id", string(user.ID)).Msg("logged in")
	m.publish(Event{State: StateLoggedIn, User: &user})
}

// UpdateProfile replaces the stored user after a successful profile update.
func (m *Manager) UpdateProfile(ctx context.Context, user domain.User) error {
	if !m.IsLoggedIn(ctx) {
		return domain.ErrNoSession
	}
	return m.store.SaveUser(ctx, user)
}

// Logout tells the issuer and clears the local session. The local session is
// cleared even when the issuer call fails; that error is still returned.
func (m *Manager) Logout(ctx context.Context) error {
	token, ok := m.store.AccessToken(ctx)
	var err error
	if ok && m.issuer != nil {
		if err = m.issuer.Logout(ctx, token); err != nil {
			log.Warn().Err(err).Msg("issuer logout failed; clearing local session anyway")
		}
	}
	m.store.Clear(ctx)
	log.Info().Msg("logged out")
	m.publish(Event{State: StateLoggedOut})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ForceLogout clears the local session without contacting the issuer, for
// sessions already revoked server side.
func (m *Manager) ForceLogout(ctx context.Context, reason string) {
	m.store.Clear(ctx)
	log.Info().Str("reason", reason).Msg("session ended")
	m.publish(Event{State: StateLoggedOut})
}

// RedirectToLogin records the unrecoverable session loss and forwards to
// the configured navigator.
func (m *Manager) RedirectToLogin() {
	m.publish(Event{State: StateLoggedOut})
	if m.navigator != nil {
		m.navigator.RedirectToLogin()
	}
}
