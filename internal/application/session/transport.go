package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"dokan/internal/ports"

	"github.com/rs/zerolog/log"
)

// CredentialFunc yields the bearer token for the next outgoing request.
type CredentialFunc func(ctx context.Context) (string, bool)

// TokenRefresher obtains a fresh access token after a 401. *Manager and
// *Refresher both satisfy it.
type TokenRefresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Transport attaches the session's access token to every request and, on a
// 401, refreshes once and replays the request.
type Transport struct {
	base      http.RoundTripper
	creds     CredentialFunc
	refresher TokenRefresher
	navigator ports.NavigatorPort
}

// NewTransport wraps base (http.DefaultTransport when nil). navigator may be
// nil.
func NewTransport(base http.RoundTripper, creds CredentialFunc, refresher TokenRefresher, navigator ports.NavigatorPort) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, creds: creds, refresher: refresher, navigator: navigator}
}

// NewClient returns the client application code should use. timeout covers
// the whole exchange including a retry; zero means no limit.
func NewClient(t *Transport, timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	replay, err := bodyReplayer(req)
	if err != nil {
		return nil, err
	}

	ctx := req.Context()
	token, _ := t.creds(ctx)
	resp, err := t.send(req, replay, token, 0)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	fresh, err := t.refresher.Refresh(ctx)
	if err != nil && ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// The caller gave up; the refresh carries on without it and the
		// session is still intact.
		drain(resp)
		return nil, ctx.Err()
	}
	if err != nil {
		log.Info().Err(err).Str("path", req.URL.Path).Msg("request unauthorized and session could not be refreshed")
		if t.navigator != nil {
			t.navigator.RedirectToLogin()
		}
		return resp, nil
	}

	drain(resp)
	return t.send(req, replay, fresh, 1)
}

// send issues attempt n of req. Only attempt 0 may lead to a refresh.
func (t *Transport) send(req *http.Request, replay func() (io.ReadCloser, error), token string, attempt int) (*http.Response, error) {
	out := req.Clone(req.Context())
	if replay != nil {
		body, err := replay()
		if err != nil {
			return nil, fmt.Errorf("request body for attempt %d: %w", attempt, err)
		}
		out.Body = body
	}

	out.Header.Del("Authorization")
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base.RoundTrip(out)
}

// bodyReplayer returns a function producing a fresh copy of the request
// body for each attempt, or nil when the request has no body.
func bodyReplayer(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}

	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
