// events.go implements HTTP handlers for the family calendar. Listings accept
// an optional [from, to] window and are ordered by start time.
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

// EventHandlers handles calendar event endpoints
type EventHandlers struct {
	eventRepo *repositories.EventRepository
	recorder  *activity.Recorder
}

// NewEventHandlers creates a new EventHandlers instance
func NewEventHandlers(eventRepo *repositories.EventRepository, recorder *activity.Recorder) *EventHandlers {
	return &EventHandlers{eventRepo: eventRepo, recorder: recorder}
}

type eventRequest struct {
	Title    string     `json:"title" binding:"required"`
	StartsAt time.Time  `json:"starts_at" binding:"required"`
	EndsAt   *time.Time `json:"ends_at"`
	Location string     `json:"location"`
	Notes    string     `json:"notes"`
}

func (r *eventRequest) validate() string {
	if strings.TrimSpace(r.Title) == "" {
		return "title must not be blank"
	}
	if r.EndsAt != nil && !r.EndsAt.After(r.StartsAt) {
		return "ends_at must be after starts_at"
	}
	return ""
}

// Create adds a new calendar event
// POST /api/v1/events
func (h *EventHandlers) Create(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and starts_at are required"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	teamID := requestTeamID(c)
	event := &models.Event{
		TeamID:   teamID,
		Title:    req.Title,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Location: req.Location,
		Notes:    req.Notes,
	}
	if err := h.eventRepo.Create(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "event.created", "event", event.ID,
		map[string]any{"title": event.Title})
	c.JSON(http.StatusCreated, event)
}

// List returns a page of non-archived events, optionally within a time window,
// ordered by start time
// GET /api/v1/events?from=RFC3339&to=RFC3339&limit=...&offset=...
func (h *EventHandlers) List(c *gin.Context) {
	page, ok := pageParams(c)
	if !ok {
		return
	}

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be an RFC3339 timestamp"})
			return
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an RFC3339 timestamp"})
			return
		}
		to = &t
	}

	events, err := h.eventRepo.ListActive(c.Request.Context(), requestTeamID(c), from, to, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Get returns a single event, archived or not
// GET /api/v1/events/:id
func (h *EventHandlers) Get(c *gin.Context) {
	event, err := h.eventRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, event)
}

// Update changes the mutable event fields
// PUT /api/v1/events/:id
func (h *EventHandlers) Update(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and starts_at are required"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	teamID := requestTeamID(c)
	event := &models.Event{
		ID:       c.Param("id"),
		TeamID:   teamID,
		Title:    req.Title,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Location: req.Location,
		Notes:    req.Notes,
	}
	updated, err := h.eventRepo.Update(c.Request.Context(), event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "event.updated", "event", updated.ID, nil)
	c.JSON(http.StatusOK, updated)
}

// Archive soft-deletes the event; archiving twice is a no-op
// POST /api/v1/events/:id/archive
func (h *EventHandlers) Archive(c *gin.Context) {
	teamID := requestTeamID(c)
	event, err := h.eventRepo.Archive(c.Request.Context(), teamID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive event"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "event.archived", "event", event.ID,
		map[string]any{"title": event.Title})
	c.JSON(http.StatusOK, event)
}
