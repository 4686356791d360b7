package session

import (
	"context"
	"errors"
	"time"

	domain "dokan/internal/domain/session"

	"github.com/rs/zerolog/log"
)

// State is the authenticated state reported at startup and on transitions.
type State int

const (
	StateUnknown State = iota
	StateLoggedOut
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedIn:
		return "logged_in"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of bootstrapping a session.
type Outcome struct {
	State       State
	User        *domain.User
	AccessToken string
}

func loggedOut() Outcome { return Outcome{State: StateLoggedOut} }

// Bootstrapper decides the initial session state from the token store.
type Bootstrapper struct {
	store     *TokenStore
	refresher *Refresher
	margin    time.Duration
	now       func() time.Time
}

// NewBootstrapper creates a bootstrapper. margin is how close to expiry an
// access token may be before it is refreshed up front.
func NewBootstrapper(store *TokenStore, refresher *Refresher, margin time.Duration) *Bootstrapper {
	if margin <= 0 {
		margin = domain.DefaultRefreshMargin
	}
	return &Bootstrapper{store: store, refresher: refresher, margin: margin, now: time.Now}
}

// Run reads the store and restores, refreshes, or clears the session.
func (b *Bootstrapper) Run(ctx context.Context) Outcome {
	snap, err := b.store.Read(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptState) {
			log.Warn().Err(err).Msg("stored session unreadable; clearing")
			b.store.Clear(ctx)
		} else {
			log.Error().Err(err).Msg("read stored session")
		}
		return loggedOut()
	}
	if !snap.Complete() {
		log.Info().Msg("no stored session")
		return loggedOut()
	}

	if !domain.IsExpiringSoon(snap.AccessTokenExpiresAt, b.now(), b.margin) {
		log.Info().Str("user_id", string(snap.User.ID)).Msg("session restored")
		return Outcome{State: StateLoggedIn, User: snap.User, AccessToken: snap.AccessToken}
	}

	log.Info().Str("user_id", string(snap.User.ID)).Msg("access token expiring soon; refreshing")
	token, err := b.refresher.Refresh(ctx)
	if err != nil {
		log.Info().Err(err).Msg("session could not be refreshed; logged out")
		return loggedOut()
	}
	return Outcome{State: StateLoggedIn, User: snap.User, AccessToken: token}
}
