// contacts.go implements HTTP handlers for the family address book. Contacts
// are the one resource type that supports unarchiving.
package vault

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

// ContactHandlers handles contact endpoints
type ContactHandlers struct {
	contactRepo *repositories.ContactRepository
	recorder    *activity.Recorder
}

// NewContactHandlers creates a new ContactHandlers instance
func NewContactHandlers(contactRepo *repositories.ContactRepository, recorder *activity.Recorder) *ContactHandlers {
	return &ContactHandlers{contactRepo: contactRepo, recorder: recorder}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Notes   string `json:"notes"`
}

// Create adds a new contact
// POST /api/v1/contacts
func (h *ContactHandlers) Create(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	teamID := requestTeamID(c)
	contact := &models.Contact{
		TeamID:  teamID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Notes:   req.Notes,
	}
	if err := h.contactRepo.Create(c.Request.Context(), contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "contact.created", "contact", contact.ID,
		map[string]any{"name": contact.Name})
	c.JSON(http.StatusCreated, contact)
}

// List returns a page of non-archived contacts
// GET /api/v1/contacts?limit=...&offset=...
func (h *ContactHandlers) List(c *gin.Context) {
	page, ok := pageParams(c)
	if !ok {
		return
	}
	contacts, err := h.contactRepo.ListActive(c.Request.Context(), requestTeamID(c), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contacts"})
		return
	}
	if contacts == nil {
		contacts = []*models.Contact{}
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// Get returns a single contact, archived or not
// GET /api/v1/contacts/:id
func (h *ContactHandlers) Get(c *gin.Context) {
	contact, err := h.contactRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contact"})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	c.JSON(http.StatusOK, contact)
}

// Update changes the mutable contact fields
// PUT /api/v1/contacts/:id
func (h *ContactHandlers) Update(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	teamID := requestTeamID(c)
	contact := &models.Contact{
		ID:      c.Param("id"),
		TeamID:  teamID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Notes:   req.Notes,
	}
	updated, err := h.contactRepo.Update(c.Request.Context(), contact)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "contact.updated", "contact", updated.ID, nil)
	c.JSON(http.StatusOK, updated)
}

// Archive soft-deletes the contact; archiving twice is a no-op
// POST /api/v1/contacts/:id/archive
func (h *ContactHandlers) Archive(c *gin.Context) {
	teamID := requestTeamID(c)
	contact, err := h.contactRepo.Archive(c.Request.Context(), teamID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive contact"})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "contact.archived", "contact", contact.ID,
		map[string]any{"name": contact.Name})
	c.JSON(http.StatusOK, contact)
}

// Unarchive restores an archived contact to active listings
// POST /api/v1/contacts/:id/unarchive
func (h *ContactHandlers) Unarchive(c *gin.Context) {
	teamID := requestTeamID(c)
	contact, err := h.contactRepo.Unarchive(c.Request.Context(), teamID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unarchive contact"})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "contact.unarchived", "contact", contact.ID,
		map[string]any{"name": contact.Name})
	c.JSON(http.StatusOK, contact)
}
