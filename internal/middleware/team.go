// team.go resolves the tenant (team) for every authenticated request. It runs
// after AuthMiddleware and before any handler that touches team-scoped data,
// so handlers can assume a team id is always present in the context.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/identity"
)

// TeamIDContextKey is the gin.Context key holding the resolved team id string.
const TeamIDContextKey = "team_id"

// TeamMiddleware resolves the authenticated user's team via the identity
// resolver (cache → membership lookup → lazy provisioning) and stores the team
// id in the request context. There is no fallback team: if resolution fails,
// the request fails.
func TeamMiddleware(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDContextKey)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Not authenticated",
			})
			return
		}

		teamID, err := resolver.ResolveTeam(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, identity.ErrUnknownUser) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "User not found",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Could not determine team",
			})
			return
		}

		c.Set(TeamIDContextKey, teamID)
		c.Next()
	}
}

// TeamID returns the resolved team id from the request context.
func TeamID(c *gin.Context) string {
	return c.GetString(TeamIDContextKey)
}
