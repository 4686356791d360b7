package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "dokan/internal/domain/session"
)

// authResponse is the envelope every issuer auth endpoint answers with.
type authResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// IssuerClient implements ports.TokenIssuerPort against the issuer's
// /auth endpoints. It uses a plain client: refresh calls must never go
// through the session Transport.
type IssuerClient struct {
	baseURL string
	client  *http.Client
}

// NewIssuerClient creates a client for baseURL (e.g. http://localhost:8080/api/v1).
func NewIssuerClient(baseURL string, client *http.Client) *IssuerClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &IssuerClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Login authenticates by email or mobile and password.
func (c *IssuerClient) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register creates an account and returns its first session.
func (c *IssuerClient) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

func (c *IssuerClient) authenticate(ctx context.Context, path string, payload interface{}) (*domain.AuthResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, "", payload)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusBadRequest && !body.Success:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, body.Message)
	case status/100 != 2 || !body.Success:
		return nil, fmt.Errorf("%w: %s %d %s", domain.ErrIssuerResponse, path, status, body.Message)
	case body.User == nil || body.AccessToken == "" || body.RefreshToken == "":
		return nil, fmt.Errorf("%w: %s returned an incomplete session", domain.ErrIssuerResponse, path)
	}
	return &domain.AuthResult{User: *body.User, AccessToken: body.AccessToken, RefreshToken: body.RefreshToken}, nil
}

// Refresh exchanges refreshToken for a new access token. Any answer other
// than a successful envelope carrying a token wraps ErrRefreshRejected.
func (c *IssuerClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", err
	}
	if status/100 != 2 || !body.Success || body.AccessToken == "" {
		return "", fmt.Errorf("%w: status %d %s", domain.ErrRefreshRejected, status, body.Message)
	}
	return body.AccessToken, nil
}

// Logout revokes the account's refresh tokens on the issuer.
func (c *IssuerClient) Logout(ctx context.Context, accessToken string) error {
	status, body, err := c.do(ctx, http.MethodGet, "/auth/logout", accessToken, nil)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%w: logout %d %s", domain.ErrIssuerResponse, status, body.Message)
	}
	return nil
}

func (c *IssuerClient) do(ctx context.Context, method, path, bearer string, payload interface{}) (int, authResponse, error) {
	var out authResponse

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, out, fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, out, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, out, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, out, fmt.Errorf("read %s response: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode/100 == 2 {
			return resp.StatusCode, out, fmt.Errorf("%w: decode %s: %v", domain.ErrIssuerResponse, path, err)
		}
	}
	return resp.StatusCode, out, nil
}
