package auth

import "time"

// RefreshSession records an issued refresh token. Deleting it revokes the token.
type RefreshSession struct {
	ID        string    `json:"id"` // refresh token jti
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired checks if the refresh token has expired
func (s *RefreshSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
