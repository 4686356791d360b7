package session

import "time"

// IsExpiringSoon reports whether an access token expiring at expiresAt must be
// refreshed at now. A zero expiresAt means the expiry was never recorded and
// counts as expiring. A token already past expiry takes the same branch.
func IsExpiringSoon(expiresAt, now time.Time, margin time.Duration) bool {
	if expiresAt.IsZero() {
		return true
	}
	return expiresAt.Sub(now) < margin
}
