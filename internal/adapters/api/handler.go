package api

import (
	"net/http"

	"dokan/internal/adapters/api/middleware"
	"dokan/internal/application/auth"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware

	_ "dokan/docs" // swagger docs
)

// Handler handles HTTP requests for the token issuer API
type Handler struct {
	authService *auth.Service
	events      *EventHub
}

// NewHandler creates a new API handler
func NewHandler(authService *auth.Service) *Handler {
	return &Handler{
		authService: authService,
		events:      NewEventHub(),
	}
}

// Events returns the hub broadcasting session events
func (h *Handler) Events() *EventHub { return h.events }

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.Login)
			authGroup.POST("/register", h.Register)
			authGroup.POST("/refresh-token", h.RefreshToken)
			authGroup.GET("/events", h.HandleEvents) // ?token=<access token>

			protected := authGroup.Group("", middleware.AuthMiddleware(h.authService))
			{
				protected.GET("/me", h.Me)
				protected.PUT("/profile/update", h.UpdateProfile)
				protected.GET("/logout", h.Logout)
			}
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(h.authService), middleware.RequireAdmin())
		{
			admin.GET("/users", h.ListUsers)
		}

		api.GET("/health", h.Health)
	}
	r.GET("/health", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Health godoc
//
//	@Summary		Health check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
