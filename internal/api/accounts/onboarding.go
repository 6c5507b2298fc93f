// onboarding.go implements HTTP handlers for the team onboarding wizard. The
// wizard itself is a pure state machine; these handlers only translate between
// HTTP, the persisted step on the team row, and wizard transitions.
package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/wizard"
)

// OnboardingHandlers handles onboarding wizard endpoints
type OnboardingHandlers struct {
	teamRepo *repositories.TeamRepository
}

// NewOnboardingHandlers creates a new OnboardingHandlers instance
func NewOnboardingHandlers(teamRepo *repositories.TeamRepository) *OnboardingHandlers {
	return &OnboardingHandlers{teamRepo: teamRepo}
}

// loadState reads the team's persisted wizard position. Out-of-range persisted
// values are clamped rather than rejected so a bad row never bricks onboarding.
func (h *OnboardingHandlers) loadState(c *gin.Context) (wizard.State, bool) {
	team, err := h.teamRepo.GetByID(c.Request.Context(), requestTeamID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load team"})
		return wizard.State{}, false
	}
	if team == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return wizard.State{}, false
	}
	return wizard.FromStep(team.OnboardingStep), true
}

// saveState persists the new wizard position and responds with it.
func (h *OnboardingHandlers) saveState(c *gin.Context, state wizard.State) {
	if err := h.teamRepo.SetOnboardingStep(c.Request.Context(), requestTeamID(c), state.CurrentStep); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save onboarding step"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "done": state.Done()})
}

// GetState returns the team's current wizard position
// GET /api/v1/onboarding
func (h *OnboardingHandlers) GetState(c *gin.Context) {
	state, ok := h.loadState(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "done": state.Done()})
}

// Advance commits the current step and moves forward
// POST /api/v1/onboarding/advance
func (h *OnboardingHandlers) Advance(c *gin.Context) {
	state, ok := h.loadState(c)
	if !ok {
		return
	}
	h.saveState(c, state.Advance())
}

// Back moves to the previous step, keeping unsaved edits
// POST /api/v1/onboarding/back
func (h *OnboardingHandlers) Back(c *gin.Context) {
	state, ok := h.loadState(c)
	if !ok {
		return
	}
	h.saveState(c, state.Back())
}

// Jump moves directly to a step; out-of-range steps are a client error
// POST /api/v1/onboarding/jump
func (h *OnboardingHandlers) Jump(c *gin.Context) {
	var req struct {
		Step *int `json:"step" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step is required"})
		return
	}

	state, ok := h.loadState(c)
	if !ok {
		return
	}

	next, err := state.Jump(*req.Step)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.saveState(c, next)
}
