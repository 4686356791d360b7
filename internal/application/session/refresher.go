package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "dokan/internal/domain/session"
	"dokan/internal/ports"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds a single call to the issuer's refresh endpoint.
const DefaultRefreshTimeout = 10 * time.Second

// Refresher exchanges the stored refresh token for a new access token.
// Concurrent callers holding the same refresh token share one issuer call.
type Refresher struct {
	store   *TokenStore
	issuer  ports.TokenIssuerPort
	timeout time.Duration
	group   singleflight.Group
}

// NewRefresher creates a refresher. A non-positive timeout falls back to
// DefaultRefreshTimeout.
func NewRefresher(store *TokenStore, issuer ports.TokenIssuerPort, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &Refresher{store: store, issuer: issuer, timeout: timeout}
}

// Refresh obtains and stores a new access token, returning it. Without a
// stored refresh token it fails with ErrNoRefreshToken and makes no network
// call. Any other failure clears the whole session and wraps
// ErrRefreshRejected.
func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	refreshToken, ok := r.store.refreshToken(ctx)
	if !ok {
		r.store.Clear(ctx)
		return "", domain.ErrNoRefreshToken
	}

	ch := r.group.DoChan(refreshToken, func() (interface{}, error) {
		return r.exchange(context.WithoutCancel(ctx), refreshToken)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Refresher) exchange(ctx context.Context, refreshToken string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	accessToken, err := r.issuer.Refresh(reqCtx, refreshToken)
	cancel()
	if err == nil && accessToken == "" {
		err = fmt.Errorf("%w: empty access token", domain.ErrIssuerResponse)
	}
	if err != nil {
		log.Error().Err(err).Msg("access token refresh failed; clearing session")
		r.store.Clear(ctx)
		if errors.Is(err, domain.ErrRefreshRejected) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrRefreshRejected, err)
	}

	// A logout or a new login during the exchange owns the store now.
	if current, ok := r.store.refreshToken(ctx); !ok || current != refreshToken {
		log.Info().Msg("session changed during refresh; discarding access token")
		return "", fmt.Errorf("%w: session ended during refresh", domain.ErrRefreshRejected)
	}
	if err := r.store.SaveAccessToken(ctx, accessToken); err != nil {
		log.Warn().Err(err).Msg("store refreshed access token; clearing session")
		r.store.Clear(ctx)
		return "", fmt.Errorf("%w: %v", domain.ErrRefreshRejected, err)
	}
	log.Info().Msg("access token refreshed")
	return accessToken, nil
}
