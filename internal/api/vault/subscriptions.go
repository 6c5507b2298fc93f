// subscriptions.go implements HTTP handlers for recurring family expenses.
// The optional renews_at date drives the background renewal reminder job.
package vault

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

// SubscriptionHandlers handles subscription endpoints
type SubscriptionHandlers struct {
	subRepo  *repositories.SubscriptionRepository
	recorder *activity.Recorder
}

// NewSubscriptionHandlers creates a new SubscriptionHandlers instance
func NewSubscriptionHandlers(subRepo *repositories.SubscriptionRepository, recorder *activity.Recorder) *SubscriptionHandlers {
	return &SubscriptionHandlers{subRepo: subRepo, recorder: recorder}
}

type subscriptionRequest struct {
	Name         string     `json:"name" binding:"required"`
	AmountCents  int64      `json:"amount_cents"`
	Currency     string     `json:"currency"`
	BillingCycle string     `json:"billing_cycle" binding:"required"`
	RenewsAt     *time.Time `json:"renews_at"`
	Notes        string     `json:"notes"`
}

func (r *subscriptionRequest) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "name must not be blank"
	}
	switch r.BillingCycle {
	case models.CycleMonthly, models.CycleYearly, models.CycleWeekly:
	default:
		return "billing_cycle must be monthly, yearly, or weekly"
	}
	if r.AmountCents < 0 {
		return "amount_cents must not be negative"
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	return ""
}

// Create adds a new subscription
// POST /api/v1/subscriptions
func (h *SubscriptionHandlers) Create(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and billing_cycle are required"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	teamID := requestTeamID(c)
	sub := &models.Subscription{
		TeamID:       teamID,
		Name:         req.Name,
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		BillingCycle: req.BillingCycle,
		RenewsAt:     req.RenewsAt,
		Notes:        req.Notes,
	}
	if err := h.subRepo.Create(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "subscription.created", "subscription", sub.ID,
		map[string]any{"name": sub.Name, "billing_cycle": sub.BillingCycle})
	c.JSON(http.StatusCreated, sub)
}

// List returns a page of non-archived subscriptions
// GET /api/v1/subscriptions?limit=...&offset=...
func (h *SubscriptionHandlers) List(c *gin.Context) {
	page, ok := pageParams(c)
	if !ok {
		return
	}
	subs, err := h.subRepo.ListActive(c.Request.Context(), requestTeamID(c), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list subscriptions"})
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// Get returns a single subscription, archived or not
// GET /api/v1/subscriptions/:id
func (h *SubscriptionHandlers) Get(c *gin.Context) {
	sub, err := h.subRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Update changes the mutable subscription fields
// PUT /api/v1/subscriptions/:id
func (h *SubscriptionHandlers) Update(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and billing_cycle are required"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	teamID := requestTeamID(c)
	sub := &models.Subscription{
		ID:           c.Param("id"),
		TeamID:       teamID,
		Name:         req.Name,
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		BillingCycle: req.BillingCycle,
		RenewsAt:     req.RenewsAt,
		Notes:        req.Notes,
	}
	updated, err := h.subRepo.Update(c.Request.Context(), sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "subscription.updated", "subscription", updated.ID, nil)
	c.JSON(http.StatusOK, updated)
}

// Archive soft-deletes the subscription; archiving twice is a no-op
// POST /api/v1/subscriptions/:id/archive
func (h *SubscriptionHandlers) Archive(c *gin.Context) {
	teamID := requestTeamID(c)
	sub, err := h.subRepo.Archive(c.Request.Context(), teamID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive subscription"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "subscription.archived", "subscription", sub.ID,
		map[string]any{"name": sub.Name})
	c.JSON(http.StatusOK, sub)
}
