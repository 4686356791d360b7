package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Persisted key names. All four are written together and cleared together.
const (
	KeyUser                 = "user"
	KeyAccessToken          = "accessToken"
	KeyRefreshToken         = "refreshToken"
	KeyAccessTokenExpiresAt = "accessTokenExpiresAt"
)

// Keys lists every persisted session key.
var Keys = []string{KeyUser, KeyAccessToken, KeyRefreshToken, KeyAccessTokenExpiresAt}

// Default lifetimes and margin used when configuration leaves them unset.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultRefreshMargin   = 5 * time.Minute
)

// UserID is the profile identifier. The issuer hands out UUID strings but
// older payloads carry numeric ids, so both JSON forms decode.
type UserID string

// UnmarshalJSON accepts a JSON string or a JSON number.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// User is the profile record owned by a session. It is replaced wholesale on
// login and profile update and removed on logout.
type User struct {
	ID     UserID `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`
	Role   string `json:"role,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// IsAdmin reports whether the profile carries the dashboard role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "Admin"
}

// Snapshot is whatever subset of the session the store currently holds.
type Snapshot struct {
	User                 *User
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time // zero when absent or unreadable
}

// Complete reports whether user, access token and refresh token are all present.
func (s Snapshot) Complete() bool {
	return s.User != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// Empty reports whether nothing at all is stored.
func (s Snapshot) Empty() bool {
	return s.User == nil && s.AccessToken == "" && s.RefreshToken == "" && s.AccessTokenExpiresAt.IsZero()
}

// Credentials is a login request. Either Email or Mobile identifies the account.
type Credentials struct {
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
	Password string `json:"password"`
}

// Registration is a sign-up request.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile,omitempty"`
	Password string `json:"password"`
}

// AuthResult is what the issuer returns on login or registration.
type AuthResult struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// FormatExpiry serializes an expiry as decimal milliseconds since epoch.
func FormatExpiry(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseExpiry parses the stored expiry. It returns false for anything that is
// not a positive millisecond count.
func ParseExpiry(s string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
