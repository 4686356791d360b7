package ports

import (
	"context"

	"dokan/internal/domain/session"
)

// KeyValueStore is durable string storage for session keys. SetMany writes
// its batch atomically; Get omits keys that are not present.
type KeyValueStore interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// TokenIssuerPort defines the backend auth endpoints the session core consumes.
type TokenIssuerPort interface {
	Login(ctx context.Context, creds session.Credentials) (*session.AuthResult, error)
	Register(ctx context.Context, reg session.Registration) (*session.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, accessToken string) error
}

// NavigatorPort sends the user back to the login entry point.
type NavigatorPort interface {
	RedirectToLogin()
}

// WebSocketClientPort defines capability to connect and receive messages.
type WebSocketClientPort interface {
	Connect(url string) error
	ReadMessage() ([]byte, error)
	Close() error
}
