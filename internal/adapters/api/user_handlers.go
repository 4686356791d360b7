package api

import (
	"errors"
	"net/http"

	"dokan/internal/adapters/api/middleware"
	"dokan/internal/domain/auth"
	"dokan/internal/domain/session"

	"github.com/gin-gonic/gin"
)

// UsersResponse lists accounts for the admin dashboard
type UsersResponse struct {
	Success bool           `json:"success"`
	Users   []session.User `json:"users"`
}

// Me godoc
//
//	@Summary		Current user
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	AuthResponse
//	@Failure		401	{object}	AuthResponse
//	@Router			/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	profile := middleware.GetAccountFromContext(c).Profile()
	c.JSON(http.StatusOK, AuthResponse{Success: true, User: &profile})
}

// UpdateProfile godoc
//
//	@Summary		Update profile
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		auth.ProfileUpdateRequest	true	"Profile fields"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	AuthResponse
//	@Failure		409		{object}	AuthResponse
//	@Router			/auth/profile/update [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req auth.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	account := middleware.GetAccountFromContext(c)
	updated, err := h.authService.UpdateProfile(c.Request.Context(), account.ID, req)
	switch {
	case errors.Is(err, auth.ErrInvalidAccount):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrAccountExists):
		fail(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, "Profile update failed")
		return
	}

	profile := updated.Profile()
	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "Profile updated", User: &profile})
}

// ListUsers godoc
//
//	@Summary		List users
//	@Description	All accounts, for the admin dashboard
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	UsersResponse
//	@Failure		401	{object}	AuthResponse
//	@Failure		403	{object}	AuthResponse
//	@Router			/admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	accounts, err := h.authService.ListAccounts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	users := make([]session.User, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, a.Profile())
	}
	c.JSON(http.StatusOK, UsersResponse{Success: true, Users: users})
}
