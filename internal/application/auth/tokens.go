package auth

import (
	"fmt"
	"time"

	"dokan/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the typ claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims of both token types. The refresh token's ID
// (jti) names its RefreshSession.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"id"`
	Type      string `json:"typ"`
}

// TokenProvider signs and validates HS256 access and refresh tokens.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenProvider creates a provider. An empty refreshSecret reuses accessSecret.
func NewTokenProvider(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	return &TokenProvider{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccess returns a signed access token for accountID.
func (p *TokenProvider) IssueAccess(accountID string) (string, time.Time, error) {
	return p.issue(accountID, TokenTypeAccess, uuid.NewString(), p.accessTTL, p.accessSecret)
}

// IssueRefresh returns a signed refresh token and its jti.
func (p *TokenProvider) IssueRefresh(accountID string) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.NewString()
	token, expiresAt, err = p.issue(accountID, TokenTypeRefresh, jti, p.refreshTTL, p.refreshSecret)
	return token, jti, expiresAt, err
}

func (p *TokenProvider) issue(accountID, typ, jti string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := p.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: accountID,
		Type:      typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

// ValidateAccess parses an access token, checking signature, expiry and type.
func (p *TokenProvider) ValidateAccess(token string) (*Claims, error) {
	return p.validate(token, TokenTypeAccess, p.accessSecret)
}

// ValidateRefresh parses a refresh token, checking signature, expiry and type.
func (p *TokenProvider) ValidateRefresh(token string) (*Claims, error) {
	return p.validate(token, TokenTypeRefresh, p.refreshSecret)
}

func (p *TokenProvider) validate(token, typ string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Type != typ || claims.AccountID == "" {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}
