// Package middleware provides Gin HTTP middleware for authentication,
// authorization, rate limiting, security headers, and tenant resolution.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Team → Role → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB
// work. Auth populates the user identity; Team resolves the tenant from it;
// Role checks read the membership that Team resolution guarantees exists.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/auth"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

const (
	// UserContextKey is the gin.Context key holding the *models.User.
	UserContextKey = "user"
	// UserIDContextKey is the gin.Context key holding the user id string.
	UserIDContextKey = "user_id"
)

// AuthMiddleware validates the session JWT from the Authorization header and
// loads the user row into the request context. Sessions are the only
// credential type; there are no API keys.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session",
			})
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil {
			// Token signed for a user that no longer exists.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
			})
			return
		}

		c.Set(UserContextKey, user)
		c.Set(UserIDContextKey, user.ID)

		c.Next()
	}
}
