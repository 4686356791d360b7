package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	domain "dokan/internal/domain/session"
)

// API calls protected issuer endpoints through the session manager's
// client, so every call carries the current access token.
type API struct {
	baseURL string
	client  *http.Client
}

// NewAPI creates an API rooted at baseURL, for example
// http://localhost:8080/api/v1. client should be the session manager's
// client.
func NewAPI(baseURL string, client *http.Client) *API {
	return &API{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Me fetches the caller's profile.
func (a *API) Me(ctx context.Context) (*domain.User, error) {
	return a.profile(ctx, http.MethodGet, "/auth/me", nil)
}

// UpdateProfile sends the editable profile fields and returns the stored result.
func (a *API) UpdateProfile(ctx context.Context, user domain.User) (*domain.User, error) {
	return a.profile(ctx, http.MethodPut, "/auth/profile/update", user)
}

func (a *API) profile(ctx context.Context, method, path string, payload interface{}) (*domain.User, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrNoSession
	}
	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrIssuerResponse, path, err)
	}
	if resp.StatusCode/100 != 2 || !out.Success || out.User == nil {
		return nil, fmt.Errorf("%w: %s %d %s", domain.ErrIssuerResponse, path, resp.StatusCode, out.Message)
	}
	return out.User, nil
}
