// assets.go implements HTTP handlers for tracked family assets, including the
// per-currency value summary that feeds the dashboard.
package vault

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

// AssetHandlers handles asset endpoints
type AssetHandlers struct {
	assetRepo *repositories.AssetRepository
	recorder  *activity.Recorder
}

// NewAssetHandlers creates a new AssetHandlers instance
func NewAssetHandlers(assetRepo *repositories.AssetRepository, recorder *activity.Recorder) *AssetHandlers {
	return &AssetHandlers{assetRepo: assetRepo, recorder: recorder}
}

type assetRequest struct {
	Name       string `json:"name" binding:"required"`
	AssetType  string `json:"asset_type" binding:"required"`
	ValueCents int64  `json:"value_cents"`
	Currency   string `json:"currency"`
	Notes      string `json:"notes"`
}

func (r *assetRequest) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "name must not be blank"
	}
	if r.ValueCents < 0 {
		return "value_cents must not be negative"
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	return ""
}

// Create adds a new asset
// POST /api/v1/assets
func (h *AssetHandlers) Create(c *gin.Context) {
	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and asset_type are required"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	teamID := requestTeamID(c)
	asset := &models.Asset{
		TeamID:     teamID,
		Name:       req.Name,
		AssetType:  req.AssetType,
		ValueCents: req.ValueCents,
		Currency:   req.Currency,
		Notes:      req.Notes,
	}
	if err := h.assetRepo.Create(c.Request.Context(), asset); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create asset"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "asset.created", "asset", asset.ID,
		map[string]any{"name": asset.Name, "asset_type": asset.AssetType})
	c.JSON(http.StatusCreated, asset)
}

// List returns a page of non-archived assets, optionally filtered by type
// GET /api/v1/assets?type=...&limit=...&offset=...
func (h *AssetHandlers) List(c *gin.Context) {
	page, ok := pageParams(c)
	if !ok {
		return
	}
	assets, err := h.assetRepo.ListActive(c.Request.Context(), requestTeamID(c), c.Query("type"), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list assets"})
		return
	}
	if assets == nil {
		assets = []*models.Asset{}
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// Get returns a single asset, archived or not
// GET /api/v1/assets/:id
func (h *AssetHandlers) Get(c *gin.Context) {
	asset, err := h.assetRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load asset"})
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	c.JSON(http.StatusOK, asset)
}

// Update changes the mutable asset fields
// PUT /api/v1/assets/:id
func (h *AssetHandlers) Update(c *gin.Context) {
	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and asset_type are required"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	teamID := requestTeamID(c)
	asset := &models.Asset{
		ID:         c.Param("id"),
		TeamID:     teamID,
		Name:       req.Name,
		AssetType:  req.AssetType,
		ValueCents: req.ValueCents,
		Currency:   req.Currency,
		Notes:      req.Notes,
	}
	updated, err := h.assetRepo.Update(c.Request.Context(), asset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update asset"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "asset.updated", "asset", updated.ID, nil)
	c.JSON(http.StatusOK, updated)
}

// Archive soft-deletes the asset; archiving twice is a no-op
// POST /api/v1/assets/:id/archive
func (h *AssetHandlers) Archive(c *gin.Context) {
	teamID := requestTeamID(c)
	asset, err := h.assetRepo.Archive(c.Request.Context(), teamID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive asset"})
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "asset.archived", "asset", asset.ID,
		map[string]any{"name": asset.Name})
	c.JSON(http.StatusOK, asset)
}

// Summary returns the total value of non-archived assets grouped by currency
// GET /api/v1/assets/summary
func (h *AssetHandlers) Summary(c *gin.Context) {
	totals, err := h.assetRepo.TotalActiveValue(c.Request.Context(), requestTeamID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize assets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_value_cents": totals})
}
