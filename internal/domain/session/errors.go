package session

import "errors"

// Session errors
var (
	ErrNoSession       = errors.New("no session")
	ErrNoRefreshToken  = errors.New("no refresh token available")
	ErrRefreshRejected = errors.New("refresh rejected")
	ErrCorruptState    = errors.New("stored session is corrupt")
)

// Issuer errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIssuerResponse     = errors.New("unexpected issuer response")
)
