package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"dokan/internal/adapters/db/memory"
	"dokan/internal/config"
	"dokan/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

// failingSessionRepository refuses to record refresh sessions
type failingSessionRepository struct {
	*memory.AccountRepository
}

func (f *failingSessionRepository) CreateSession(*auth.RefreshSession) error {
	return errors.New("disk full")
}

func testConfig() *config.IssuerConfig {
	return &config.IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:    4,
		AdminEmails:   []string{"Boss@Example.com"},
	}
}

func newTestService() (*Service, *memory.AccountRepository) {
	repo := memory.NewAccountRepository()
	return NewService(testConfig(), repo), repo
}

func register(t *testing.T, s *Service, email string) (*auth.Account, *TokenPair) {
	t.Helper()
	account, pair, err := s.Register(context.Background(), auth.RegisterRequest{
		Name: "A", Email: email, Password: "secret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return account, pair
}

func TestService_RegisterAndLogin(t *testing.T) {
	s, _ := newTestService()
	account, pair := register(t, s, "A@Example.com")

	if account.Email != "a@example.com" {
		t.Errorf("Expected normalized email, got %s", account.Email)
	}
	if account.Role != auth.RoleUser {
		t.Errorf("Expected role User, got %s", account.Role)
	}
	if account.PasswordHash == "secret" || account.PasswordHash == "" {
		t.Error("Expected password to be hashed")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("Expected both tokens, got %+v", pair)
	}

	_, loginPair, err := s.Login(context.Background(), auth.LoginRequest{Email: "a@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	got, err := s.Authenticate(context.Background(), loginPair.AccessToken)
	if err != nil || got.ID != account.ID {
		t.Errorf("Expected access token to resolve to %s, got %+v (%v)", account.ID, got, err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	s, _ := newTestService()
	register(t, s, "a@example.com")

	tests := []struct {
		name    string
		req     auth.RegisterRequest
		wantErr error
	}{
		{"missing name", auth.RegisterRequest{Email: "b@example.com", Password: "pw"}, auth.ErrInvalidAccount},
		{"missing password", auth.RegisterRequest{Name: "B", Email: "b@example.com"}, auth.ErrInvalidAccount},
		{"no identifier", auth.RegisterRequest{Name: "B", Password: "pw"}, auth.ErrInvalidAccount},
		{"malformed email", auth.RegisterRequest{Name: "B", Email: "b-at-example", Password: "pw"}, auth.ErrInvalidAccount},
		{"malformed mobile", auth.RegisterRequest{Name: "B", Mobile: "call me", Password: "pw"}, auth.ErrInvalidAccount},
		{"duplicate email", auth.RegisterRequest{Name: "B", Email: " A@example.com", Password: "pw"}, auth.ErrAccountExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Register(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestService_AdminEmailGetsAdminRole(t *testing.T) {
	s, _ := newTestService()
	account, _ := register(t, s, "boss@example.com")
	if account.Role != auth.RoleAdmin {
		t.Errorf("Expected role Admin, got %s", account.Role)
	}
}

func TestService_LoginFailures(t *testing.T) {
	s, _ := newTestService()
	register(t, s, "a@example.com")

	tests := []struct {
		name string
		req  auth.LoginRequest
	}{
		{"wrong password", auth.LoginRequest{Email: "a@example.com", Password: "nope"}},
		{"unknown email", auth.LoginRequest{Email: "x@example.com", Password: "secret"}},
		{"unknown mobile", auth.LoginRequest{Mobile: "0199", Password: "secret"}},
		{"no identifier", auth.LoginRequest{Password: "secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Login(context.Background(), tt.req); !errors.Is(err, auth.ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestService_RefreshKeepsRefreshToken(t *testing.T) {
	s, _ := newTestService()
	account, pair := register(t, s, "a@example.com")

	access, err := s.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got, err := s.Authenticate(context.Background(), access)
	if err != nil || got.ID != account.ID {
		t.Errorf("Expected refreshed token for %s, got %+v (%v)", account.ID, got, err)
	}

	// the same refresh token keeps working
	if _, err := s.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Errorf("Expected refresh token to be reusable, got %v", err)
	}
}

func TestService_RefreshRejections(t *testing.T) {
	s, _ := newTestService()
	_, pair := register(t, s, "a@example.com")

	if _, err := s.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected access token to be refused as refresh token, got %v", err)
	}
	if _, err := s.Refresh(context.Background(), "garbage"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}

	// refresh token signed with the access secret
	forged, _, _, _ := NewTokenProvider("access-secret", "", time.Hour, time.Hour).IssueRefresh("someone")
	if _, err := s.Refresh(context.Background(), forged); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected wrong-secret refresh token to be refused, got %v", err)
	}
}

func TestService_LogoutRevokesRefreshTokens(t *testing.T) {
	s, _ := newTestService()
	account, pair := register(t, s, "a@example.com")

	if err := s.Logout(context.Background(), account.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, auth.ErrSessionRevoked) {
		t.Errorf("Expected ErrSessionRevoked, got %v", err)
	}
}

func TestService_ExpiredAccessToken(t *testing.T) {
	s, _ := newTestService()
	_, pair := register(t, s, "a@example.com")

	s.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Authenticate(context.Background(), pair.AccessToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected expired token to be refused, got %v", err)
	}
}

func TestService_AccessTokenClaims(t *testing.T) {
	s, _ := newTestService()
	account, pair := register(t, s, "a@example.com")

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if claims.AccountID != account.ID || claims.Type != TokenTypeAccess {
		t.Errorf("Unexpected claims %+v", claims)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != time.Hour {
		t.Errorf("Expected 1h access lifetime, got %v", ttl)
	}
}

func TestService_UpdateProfile(t *testing.T) {
	s, repo := newTestService()
	account, _ := register(t, s, "a@example.com")
	_ = repo.CreateAccount(&auth.Account{ID: "other", Name: "O", Mobile: "0199"})

	updated, err := s.UpdateProfile(context.Background(), account.ID, auth.ProfileUpdateRequest{Name: "Renamed", Mobile: "0170"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Renamed" || updated.Mobile != "0170" || updated.Email != "a@example.com" {
		t.Errorf("Unexpected profile %+v", updated)
	}

	if _, err := s.UpdateProfile(context.Background(), account.ID, auth.ProfileUpdateRequest{Mobile: "0199"}); !errors.Is(err, auth.ErrAccountExists) {
		t.Errorf("Expected ErrAccountExists for taken mobile, got %v", err)
	}
}

func TestService_SessionRecordFailure(t *testing.T) {
	repo := &failingSessionRepository{memory.NewAccountRepository()}
	s := NewService(testConfig(), repo)

	_, _, err := s.Register(context.Background(), auth.RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw"})
	if err == nil {
		t.Error("Expected registration to fail when the session cannot be recorded")
	}
}
