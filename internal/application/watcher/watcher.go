// Package watcher follows the issuer's session event stream and ends the
// local session when the account is logged out elsewhere.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domain "dokan/internal/domain/session"
	"dokan/internal/ports"

	"github.com/rs/zerolog/log"
)

// EventLogout is the event type pushed when the account's tokens are revoked.
const EventLogout = "logout"

// Event is the message shape of the event stream.
type Event struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// Session is the part of the session manager the watcher drives.
type Session interface {
	AccessToken(ctx context.Context) (string, bool)
	Refresh(ctx context.Context) (string, error)
	ForceLogout(ctx context.Context, reason string)
}

// Watcher holds one event stream connection per Run and reconnects with
// exponential backoff.
type Watcher struct {
	ws          ports.WebSocketClientPort
	session     Session
	eventsURL   string
	backoffBase time.Duration
	backoffMax  time.Duration
}

// New creates a watcher for eventsURL, usually built with EventsURL. The
// access token is appended per connection attempt.
func New(ws ports.WebSocketClientPort, session Session, eventsURL string) *Watcher {
	return &Watcher{ws: ws, session: session, eventsURL: eventsURL, backoffBase: time.Second, backoffMax: 30 * time.Second}
}

// EventsURL derives the websocket endpoint from the issuer API base URL.
func EventsURL(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path += "/auth/events"
	return u.String(), nil
}

func (w *Watcher) streamURL(token string) string {
	return w.eventsURL + "?token=" + url.QueryEscape(token)
}

// Run connects and listens until ctx is done, the session ends, or a
// logout event arrives. Connection failures are retried with exponential
// backoff; a rejected handshake triggers one refresh before giving up.
func (w *Watcher) Run(ctx context.Context) error {
	backoff := w.backoffBase
	refreshed := false
	for {
		if ctx.Err() != nil {
			log.Info().Msg("session watcher stopping")
			return nil
		}
		token, ok := w.session.AccessToken(ctx)
		if !ok {
			return domain.ErrNoSession
		}

		err := w.ws.Connect(w.streamURL(token))
		if errors.Is(err, domain.ErrNoSession) {
			if refreshed {
				w.session.ForceLogout(ctx, "event stream rejected the session")
				return domain.ErrNoSession
			}
			refreshed = true
			if _, err := w.session.Refresh(ctx); err != nil {
				return fmt.Errorf("event stream: %w", err)
			}
			continue
		}
		if err != nil {
			log.Error().Err(err).Dur("retry", backoff).Msg("event stream connect failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > w.backoffMax {
				backoff = w.backoffMax
			}
			continue
		}
		backoff = w.backoffBase
		refreshed = false
		log.Info().Str("url", w.eventsURL).Msg("event stream connected")

		if done := w.listen(ctx); done {
			return nil
		}
	}
}

// listen reads until the connection drops. It reports true when the
// watcher should stop.
func (w *Watcher) listen(ctx context.Context) bool {
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.ws.Close()
		case <-finished:
		}
	}()

	for {
		msg, err := w.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			log.Error().Err(err).Msg("event stream read error; reconnecting")
			_ = w.ws.Close()
			return false
		}
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Warn().Err(err).Msg("invalid session event")
			continue
		}
		if ev.Type == EventLogout {
			_ = w.ws.Close()
			w.session.ForceLogout(ctx, "logged out on another device")
			return true
		}
		log.Debug().Str("type", ev.Type).Msg("session event ignored")
	}
}
