// invites.go implements HTTP handlers for team invitations. The raw invite
// token is returned exactly once, at creation time; the database only holds
// its bcrypt hash, so a leaked invites table cannot be replayed.
package accounts

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

// defaultInviteTTL is how long an invite stays valid when the request does not
// specify an expiry.
const defaultInviteTTL = 7 * 24 * time.Hour

// InviteHandlers handles team invitation endpoints
type InviteHandlers struct {
	teamRepo *repositories.TeamRepository
	userRepo *repositories.UserRepository
	recorder *activity.Recorder
}

// NewInviteHandlers creates a new InviteHandlers instance
func NewInviteHandlers(
	teamRepo *repositories.TeamRepository,
	userRepo *repositories.UserRepository,
	recorder *activity.Recorder,
) *InviteHandlers {
	return &InviteHandlers{
		teamRepo: teamRepo,
		userRepo: userRepo,
		recorder: recorder,
	}
}

// generateInviteToken returns a URL-safe random token and its bcrypt hash.
func generateInviteToken() (token, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b)

	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return token, string(hashed), nil
}

// CreateInvite creates a pending invitation (admin only). The response carries
// the raw token; it is never retrievable again.
// POST /api/v1/team/invites
func (h *InviteHandlers) CreateInvite(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		Role         string `json:"role"`
		ExpiresHours int    `json:"expires_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email is required"})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin or member"})
		return
	}

	ttl := defaultInviteTTL
	if req.ExpiresHours > 0 {
		ttl = time.Duration(req.ExpiresHours) * time.Hour
	}

	teamID := requestTeamID(c)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Reject up front when the invitee is already on the team; otherwise the
	// invite would only fail at acceptance time.
	existing, err := h.userRepo.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up invitee"})
		return
	}
	if existing != nil {
		member, err := h.teamRepo.GetMembership(c.Request.Context(), teamID, existing.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
			return
		}
		if member != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Already a member of this team"})
			return
		}
	}

	token, hash, err := generateInviteToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate invite token"})
		return
	}

	invite := &models.Invite{
		TeamID:    teamID,
		Email:     email,
		Role:      role,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := h.teamRepo.CreateInvite(c.Request.Context(), invite); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invite"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "invite.created", "invite", invite.ID,
		map[string]any{"email": invite.Email, "role": role})

	c.JSON(http.StatusCreated, gin.H{
		"invite": invite,
		"token":  token,
	})
}

// ListInvites returns pending, unexpired invites for the team (admin only)
// GET /api/v1/team/invites
func (h *InviteHandlers) ListInvites(c *gin.Context) {
	invites, err := h.teamRepo.ListPendingInvites(c.Request.Context(), requestTeamID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invites"})
		return
	}
	if invites == nil {
		invites = []*models.Invite{}
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// RevokeInvite deletes a pending invite (admin only)
// DELETE /api/v1/team/invites/:id
func (h *InviteHandlers) RevokeInvite(c *gin.Context) {
	teamID := requestTeamID(c)
	inviteID := c.Param("id")

	deleted, err := h.teamRepo.DeleteInvite(c.Request.Context(), teamID, inviteID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke invite"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "invite.revoked", "invite", inviteID, nil)
	c.Status(http.StatusNoContent)
}

// AcceptInvite redeems an invitation for the authenticated user. It runs
// outside the team middleware: the caller may not have a team yet, and the
// membership created here belongs to the inviting team, not the caller's own.
// POST /api/v1/invites/:id/accept
func (h *InviteHandlers) AcceptInvite(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx := c.Request.Context()
	invite, err := h.teamRepo.GetInviteByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invite"})
		return
	}
	if invite == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(invite.TokenHash), []byte(req.Token)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid invite token"})
		return
	}

	user, err := h.userRepo.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invite was issued for a different email address"})
		return
	}

	existing, err := h.teamRepo.GetMembership(ctx, invite.TeamID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already a member of this team"})
		return
	}

	// Stamp the invite first: MarkInviteAccepted is the atomic gate against
	// double redemption and expiry.
	accepted, err := h.teamRepo.MarkInviteAccepted(ctx, invite.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invite"})
		return
	}
	if !accepted {
		c.JSON(http.StatusConflict, gin.H{"error": "Invite already used or expired"})
		return
	}

	if err := h.teamRepo.AddMember(ctx, invite.TeamID, userID, invite.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join team"})
		return
	}

	h.recorder.Record(invite.TeamID, &userID, "invite.accepted", "invite", invite.ID,
		map[string]any{"role": invite.Role})

	c.JSON(http.StatusOK, gin.H{
		"team_id": invite.TeamID,
		"role":    invite.Role,
	})
}
