package auth

import (
	"strings"
	"time"

	"dokan/internal/domain/session"
)

// Role represents account roles on the issuer
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// Account is a shop account as stored by the issuer
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Mobile       string    `json:"mobile,omitempty"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// RegisterRequest represents a request to create a new account
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest identifies an account by email or mobile
type LoginRequest struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password" binding:"required"`
}

// ProfileUpdateRequest carries the editable profile fields
type ProfileUpdateRequest struct {
	Name   string `json:"name,omitempty"`
	Mobile string `json:"mobile,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// IsAdmin checks if the account has the dashboard role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Profile is the public view of the account handed to clients
func (a *Account) Profile() session.User {
	return session.User{
		ID:     session.UserID(a.ID),
		Name:   a.Name,
		Email:  a.Email,
		Mobile: a.Mobile,
		Role:   string(a.Role),
		Avatar: a.Avatar,
	}
}

// NormalizeEmail lowercases and trims an email for lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
