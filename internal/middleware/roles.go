// roles.go implements membership-role authorization middleware.
//
// Roles are checked at request time against the team_members table rather than
// being embedded in the JWT. This is deliberate: when a member's role changes,
// the change takes effect on their next request without invalidating or
// reissuing their session token.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

// TeamRoleContextKey is the gin.Context key holding the caller's role within
// the resolved team.
const TeamRoleContextKey = "team_role"

// RequireTeamRole checks that the authenticated user holds one of the given
// roles in the resolved team. Must run after AuthMiddleware and TeamMiddleware.
func RequireTeamRole(teamRepo *repositories.TeamRepository, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDContextKey)
		teamID := c.GetString(TeamIDContextKey)
		if userID == "" || teamID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		member, err := teamRepo.GetMembership(c.Request.Context(), teamID, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check team membership",
			})
			return
		}
		if member == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Not a member of this team",
			})
			return
		}

		for _, role := range roles {
			if member.Role == role {
				c.Set(TeamRoleContextKey, member.Role)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Missing required role",
		})
	}
}

// RequireAdmin restricts the route to team admins.
func RequireAdmin(teamRepo *repositories.TeamRepository) gin.HandlerFunc {
	return RequireTeamRole(teamRepo, models.RoleAdmin)
}
