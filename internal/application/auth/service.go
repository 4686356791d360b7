package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dokan/internal/config"
	"dokan/internal/domain/auth"
	"dokan/internal/infrastructure/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair is what login and registration hand back to the client
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service handles account registration, login and token refresh
type Service struct {
	repo       auth.Repository
	tokens     *TokenProvider
	bcryptCost int
	admins     map[string]bool
	now        func() time.Time
}

// NewService creates a new authentication service
func NewService(cfg *config.IssuerConfig, repo auth.Repository) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		admins[auth.NormalizeEmail(e)] = true
	}
	return &Service{
		repo:       repo,
		tokens:     NewTokenProvider(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
		bcryptCost: cost,
		admins:     admins,
		now:        time.Now,
	}
}

// Register creates an account and opens its first session
func (s *Service) Register(ctx context.Context, req auth.RegisterRequest) (*auth.Account, *TokenPair, error) {
	email := auth.NormalizeEmail(req.Email)
	mobile := validation.SanitizeMobile(req.Mobile)
	if strings.TrimSpace(req.Name) == "" || req.Password == "" || (email == "" && mobile == "") {
		return nil, nil, fmt.Errorf("%w: name, password and email or mobile are required", auth.ErrInvalidAccount)
	}
	if err := validateContact(req.Name, email, mobile); err != nil {
		return nil, nil, err
	}
	if email != "" {
		if _, err := s.repo.GetAccountByEmail(email); err == nil {
			return nil, nil, fmt.Errorf("%w: email in use", auth.ErrAccountExists)
		}
	}
	if mobile != "" {
		if _, err := s.repo.GetAccountByMobile(mobile); err == nil {
			return nil, nil, fmt.Errorf("%w: mobile in use", auth.ErrAccountExists)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account := &auth.Account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Mobile:       mobile,
		PasswordHash: string(hash),
		Role:         auth.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}
	if email != "" && s.admins[email] {
		account.Role = auth.RoleAdmin
	}
	if err := s.repo.CreateAccount(account); err != nil {
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}

	pair, err := s.openSession(account.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("account_id", account.ID).Str("role", string(account.Role)).Msg("account registered")
	return account, pair, nil
}

func validateContact(name, email, mobile string) error {
	if err := validation.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrInvalidAccount, err)
	}
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return fmt.Errorf("%w: %v", auth.ErrInvalidAccount, err)
		}
	}
	if mobile != "" {
		if err := validation.ValidateMobile(mobile); err != nil {
			return fmt.Errorf("%w: %v", auth.ErrInvalidAccount, err)
		}
	}
	return nil
}

// Login checks credentials and opens a new session
func (s *Service) Login(ctx context.Context, req auth.LoginRequest) (*auth.Account, *TokenPair, error) {
	var account *auth.Account
	var err error
	switch {
	case req.Email != "":
		account, err = s.repo.GetAccountByEmail(auth.NormalizeEmail(req.Email))
	case req.Mobile != "":
		account, err = s.repo.GetAccountByMobile(validation.SanitizeMobile(req.Mobile))
	default:
		return nil, nil, fmt.Errorf("%w: email or mobile is required", auth.ErrInvalidCredentials)
	}
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil, nil, auth.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return nil, nil, auth.ErrInvalidCredentials
	}

	account.LastLoginAt = s.now()
	_ = s.repo.UpdateAccount(account)

	pair, err := s.openSession(account.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("account_id", account.ID).Msg("account logged in")
	return account, pair, nil
}

func (s *Service) openSession(accountID string) (*TokenPair, error) {
	access, _, err := s.tokens.IssueAccess(accountID)
	if err != nil {
		return nil, err
	}
	refresh, jti, expiresAt, err := s.tokens.IssueRefresh(accountID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateSession(&auth.RefreshSession{
		ID:        jti,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh issues a new access token for a valid, unrevoked refresh token.
// The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	session, err := s.repo.GetSession(claims.ID)
	if err != nil {
		return "", auth.ErrSessionRevoked
	}
	if session.AccountID != claims.AccountID || session.IsExpired(s.now()) {
		return "", auth.ErrSessionRevoked
	}
	if _, err := s.repo.GetAccount(claims.AccountID); err != nil {
		return "", auth.ErrSessionRevoked
	}

	access, _, err := s.tokens.IssueAccess(claims.AccountID)
	if err != nil {
		return "", err
	}
	return access, nil
}

// Authenticate resolves the account behind an access token
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*auth.Account, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccount(claims.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: account gone", auth.ErrInvalidToken)
	}
	return account, nil
}

// UpdateProfile applies the non-empty fields of req
func (s *Service) UpdateProfile(ctx context.Context, accountID string, req auth.ProfileUpdateRequest) (*auth.Account, error) {
	account, err := s.repo.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		if err := validation.ValidateName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", auth.ErrInvalidAccount, err)
		}
		account.Name = name
	}
	if mobile := validation.SanitizeMobile(req.Mobile); mobile != "" && mobile != account.Mobile {
		if err := validation.ValidateMobile(mobile); err != nil {
			return nil, fmt.Errorf("%w: %v", auth.ErrInvalidAccount, err)
		}
		if other, err := s.repo.GetAccountByMobile(mobile); err == nil && other.ID != account.ID {
			return nil, fmt.Errorf("%w: mobile in use", auth.ErrAccountExists)
		}
		account.Mobile = mobile
	}
	if req.Avatar != "" {
		account.Avatar = req.Avatar
	}
	account.UpdatedAt = s.now()
	if err := s.repo.UpdateAccount(account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

// Logout revokes every refresh token of the account
func (s *Service) Logout(ctx context.Context, accountID string) error {
	if err := s.repo.DeleteAccountSessions(accountID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	log.Info().Str("account_id", accountID).Msg("account logged out")
	return nil
}

// ListAccounts returns every account, for the admin dashboard
func (s *Service) ListAccounts(ctx context.Context) ([]*auth.Account, error) {
	return s.repo.ListAccounts()
}
