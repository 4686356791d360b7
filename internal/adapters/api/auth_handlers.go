package api

import (
	"errors"
	"net/http"

	"dokan/internal/adapters/api/middleware"
	"dokan/internal/domain/auth"
	"dokan/internal/domain/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuthResponse is the envelope of every auth endpoint
type AuthResponse struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message,omitempty"`
	User         *session.User `json:"user,omitempty"`
	AccessToken  string        `json:"accessToken,omitempty"`
	RefreshToken string        `json:"refreshToken,omitempty"`
}

// RefreshTokenRequest carries the refresh token in the body, never in a header
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, AuthResponse{Success: false, Message: message})
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Authenticate by email or mobile and password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		auth.LoginRequest	true	"Credentials"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	AuthResponse
//	@Failure		401		{object}	AuthResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	account, pair, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("login failed")
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	profile := account.Profile()
	c.JSON(http.StatusOK, AuthResponse{
		Success:      true,
		Message:      "Login successful",
		User:         &profile,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Register godoc
//
//	@Summary		Register
//	@Description	Create an account and open its first session
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		auth.RegisterRequest	true	"Registration"
//	@Success		201		{object}	AuthResponse
//	@Failure		400		{object}	AuthResponse
//	@Failure		409		{object}	AuthResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	account, pair, err := h.authService.Register(c.Request.Context(), req)
	switch {
	case errors.Is(err, auth.ErrInvalidAccount):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrAccountExists):
		fail(c, http.StatusConflict, "User already exists")
		return
	case err != nil:
		log.Error().Err(err).Msg("registration failed")
		fail(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	profile := account.Profile()
	c.JSON(http.StatusCreated, AuthResponse{
		Success:      true,
		Message:      "User registered successfully",
		User:         &profile,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// RefreshToken godoc
//
//	@Summary		Refresh access token
//	@Description	Exchange a refresh token for a new access token. The refresh token is not rotated.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshTokenRequest	true	"Refresh token"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	AuthResponse
//	@Failure		401		{object}	AuthResponse
//	@Router			/auth/refresh-token [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Refresh token required")
		return
	}

	access, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Success: true, AccessToken: access})
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Revoke every refresh token of the caller and notify their other clients
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	AuthResponse
//	@Failure		401	{object}	AuthResponse
//	@Router			/auth/logout [get]
func (h *Handler) Logout(c *gin.Context) {
	account := middleware.GetAccountFromContext(c)
	if err := h.authService.Logout(c.Request.Context(), account.ID); err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("logout failed")
		fail(c, http.StatusInternalServerError, "Logout failed")
		return
	}
	h.events.Publish(SessionEvent{Type: EventLogout, UserID: account.ID})
	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "Logged out successfully"})
}
