package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "dokan/internal/domain/session"
	"dokan/internal/ports"

	"github.com/rs/zerolog/log"
)

// TokenStore persists the four session fields on top of a key-value backend.
type TokenStore struct {
	kv        ports.KeyValueStore
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenStore creates a token store. accessTTL is the access token
// lifetime used to derive the stored expiry.
func NewTokenStore(kv ports.KeyValueStore, accessTTL time.Duration) *TokenStore {
	if accessTTL <= 0 {
		accessTTL = domain.DefaultAccessTokenTTL
	}
	return &TokenStore{kv: kv, accessTTL: accessTTL, now: time.Now}
}

// Save writes all four fields in one batch. Persistence is best effort: a
// failed write is logged and followed by a clear so the next read sees no
// session rather than a partial one.
func (s *TokenStore) Save(ctx context.Context, user domain.User, accessToken, refreshToken string) {
	raw, err := json.Marshal(user)
	if err != nil {
		log.Warn().Err(err).Msg("encode session user")
		s.Clear(ctx)
		return
	}
	err = s.kv.SetMany(ctx, map[string]string{
		domain.KeyUser:                 string(raw),
		domain.KeyAccessToken:          accessToken,
		domain.KeyRefreshToken:         refreshToken,
		domain.KeyAccessTokenExpiresAt: domain.FormatExpiry(s.now().Add(s.accessTTL)),
	})
	if err != nil {
		log.Warn().Err(err).Msg("persist session failed; session treated as logged out")
		s.Clear(ctx)
	}
}

// SaveAccessToken replaces the access token and its derived expiry, leaving
// user and refresh token untouched.
func (s *TokenStore) SaveAccessToken(ctx context.Context, accessToken string) error {
	err := s.kv.SetMany(ctx, map[string]string{
		domain.KeyAccessToken:          accessToken,
		domain.KeyAccessTokenExpiresAt: domain.FormatExpiry(s.now().Add(s.accessTTL)),
	})
	if err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	return nil
}

// SaveUser replaces the stored profile.
func (s *TokenStore) SaveUser(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	if err := s.kv.SetMany(ctx, map[string]string{domain.KeyUser: string(raw)}); err != nil {
		return fmt.Errorf("persist session user: %w", err)
	}
	return nil
}

// Read returns whatever subset of the session is stored. An unreadable user
// yields ErrCorruptState; an unreadable expiry is reported as absent.
func (s *TokenStore) Read(ctx context.Context) (domain.Snapshot, error) {
	values, err := s.kv.Get(ctx, domain.Keys...)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read session: %w", err)
	}

	snap := domain.Snapshot{
		AccessToken:  values[domain.KeyAccessToken],
		RefreshToken: values[domain.KeyRefreshToken],
	}
	if raw, ok := values[domain.KeyAccessTokenExpiresAt]; ok {
		if at, ok := domain.ParseExpiry(raw); ok {
			snap.AccessTokenExpiresAt = at
		}
	}
	if raw, ok := values[domain.KeyUser]; ok && raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return snap, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
		}
		snap.User = &u
	}
	return snap, nil
}

// AccessToken returns the stored access token, if any.
func (s *TokenStore) AccessToken(ctx context.Context) (string, bool) {
	values, err := s.kv.Get(ctx, domain.KeyAccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("read access token")
		return "", false
	}
	token := values[domain.KeyAccessToken]
	return token, token != ""
}

// refreshToken returns the stored refresh token. Only the Refresher reads it.
func (s *TokenStore) refreshToken(ctx context.Context) (string, bool) {
	values, err := s.kv.Get(ctx, domain.KeyRefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("read refresh token")
		return "", false
	}
	token := values[domain.KeyRefreshToken]
	return token, token != ""
}

// Clear removes all four fields. Clearing an empty store is a no-op.
func (s *TokenStore) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, domain.Keys...); err != nil {
		log.Warn().Err(err).Msg("clear session")
	}
}
