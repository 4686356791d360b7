package middleware

import (
	"net/http"
	"strings"

	"dokan/internal/application/auth"
	domainAuth "dokan/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

const (
	// AccountContextKey is the key used to store the account in gin context
	AccountContextKey = "account"
)

// AuthMiddleware requires a valid "Authorization: Bearer <access token>".
// Every failure is a 401 so clients know to refresh.
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Unauthorized request")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		account, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			unauthorized(c, "Invalid or expired access token")
			return
		}

		c.Set(AccountContextKey, account)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
	c.Abort()
}

// RequireAdmin is a middleware that requires the Admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := GetAccountFromContext(c)
		if account == nil {
			unauthorized(c, "account not found in context")
			return
		}

		if !account.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Admin role required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetAccountFromContext retrieves the account from the gin context
func GetAccountFromContext(c *gin.Context) *domainAuth.Account {
	if account, exists := c.Get(AccountContextKey); exists {
		if a, ok := account.(*domainAuth.Account); ok {
			return a
		}
	}
	return nil
}
