// team.go implements HTTP handlers for team settings and member management.
package accounts

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/middleware"
)

// TeamHandlers handles team and membership endpoints
type TeamHandlers struct {
	teamRepo *repositories.TeamRepository
	recorder *activity.Recorder
}

// NewTeamHandlers creates a new TeamHandlers instance
func NewTeamHandlers(teamRepo *repositories.TeamRepository, recorder *activity.Recorder) *TeamHandlers {
	return &TeamHandlers{teamRepo: teamRepo, recorder: recorder}
}

// requestTeamID reads the team id resolved by the team middleware.
func requestTeamID(c *gin.Context) string {
	return middleware.TeamID(c)
}

// actorID returns the authenticated user id as a pointer for activity records.
func actorID(c *gin.Context) *string {
	if id, ok := currentUserID(c); ok {
		return &id
	}
	return nil
}

// GetTeam returns the team owning the current request
// GET /api/v1/team
func (h *TeamHandlers) GetTeam(c *gin.Context) {
	team, err := h.teamRepo.GetByID(c.Request.Context(), requestTeamID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load team"})
		return
	}
	if team == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}
	c.JSON(http.StatusOK, team)
}

// UpdateTeam renames the team (admin only)
// PUT /api/v1/team
func (h *TeamHandlers) UpdateTeam(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be blank"})
		return
	}

	teamID := requestTeamID(c)
	team, err := h.teamRepo.UpdateName(c.Request.Context(), teamID, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rename team"})
		return
	}
	if team == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "team.renamed", "team", teamID,
		map[string]any{"name": name})
	c.JSON(http.StatusOK, team)
}

// ListMembers returns all members of the team with user details
// GET /api/v1/team/members
func (h *TeamHandlers) ListMembers(c *gin.Context) {
	members, err := h.teamRepo.ListMembers(c.Request.Context(), requestTeamID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
		return
	}
	if members == nil {
		members = []*models.TeamMemberWithUser{}
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// UpdateMemberRole changes a member's role (admin only). Demoting the last
// admin is refused so the team never ends up unmanageable.
// PUT /api/v1/team/members/:user_id
func (h *TeamHandlers) UpdateMemberRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role is required"})
		return
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleMember {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin or member"})
		return
	}

	ctx := c.Request.Context()
	teamID := requestTeamID(c)
	targetID := c.Param("user_id")

	membership, err := h.teamRepo.GetMembership(ctx, teamID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load membership"})
		return
	}
	if membership == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	if membership.Role == models.RoleAdmin && req.Role != models.RoleAdmin {
		admins, err := h.teamRepo.CountAdmins(ctx, teamID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count admins"})
			return
		}
		if admins <= 1 {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot demote the last admin"})
			return
		}
	}

	if err := h.teamRepo.UpdateMemberRole(ctx, teamID, targetID, req.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update member role"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "member.role_changed", "member", targetID,
		map[string]any{"role": req.Role})
	c.JSON(http.StatusOK, gin.H{"team_id": teamID, "user_id": targetID, "role": req.Role})
}

// RemoveMember removes a member from the team (admin only). Removing the last
// admin is refused; a member may remove themselves only if another admin
// remains to run the team.
// DELETE /api/v1/team/members/:user_id
func (h *TeamHandlers) RemoveMember(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := requestTeamID(c)
	targetID := c.Param("user_id")

	membership, err := h.teamRepo.GetMembership(ctx, teamID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load membership"})
		return
	}
	if membership == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	if membership.Role == models.RoleAdmin {
		admins, err := h.teamRepo.CountAdmins(ctx, teamID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count admins"})
			return
		}
		if admins <= 1 {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot remove the last admin"})
			return
		}
	}

	removed, err := h.teamRepo.RemoveMember(ctx, teamID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "member.removed", "member", targetID, nil)
	c.Status(http.StatusNoContent)
}
