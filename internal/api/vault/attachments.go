// attachments.go implements HTTP handlers for files attached to assets.
// Attachments are child records: every route verifies the parent asset exists
// in the team before touching the attachment rows.
package vault

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/config"
	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/storage"
)

// AttachmentHandlers handles asset attachment endpoints
type AttachmentHandlers struct {
	attRepo   *repositories.AttachmentRepository
	assetRepo *repositories.AssetRepository
	store     storage.Storage
	recorder  *activity.Recorder
	cfg       *config.Config
}

// NewAttachmentHandlers creates a new AttachmentHandlers instance
func NewAttachmentHandlers(
	attRepo *repositories.AttachmentRepository,
	assetRepo *repositories.AssetRepository,
	store storage.Storage,
	recorder *activity.Recorder,
	cfg *config.Config,
) *AttachmentHandlers {
	return &AttachmentHandlers{
		attRepo:   attRepo,
		assetRepo: assetRepo,
		store:     store,
		recorder:  recorder,
		cfg:       cfg,
	}
}

// parentAsset loads the parent asset, writing the error response when it is
// missing or the lookup fails.
func (h *AttachmentHandlers) parentAsset(c *gin.Context) (*models.Asset, bool) {
	asset, err := h.assetRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load asset"})
		return nil, false
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return nil, false
	}
	return asset, true
}

// List returns the asset's attachments
// GET /api/v1/assets/:id/attachments
func (h *AttachmentHandlers) List(c *gin.Context) {
	asset, ok := h.parentAsset(c)
	if !ok {
		return
	}

	attachments, err := h.attRepo.ListByAsset(c.Request.Context(), requestTeamID(c), asset.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list attachments"})
		return
	}
	if attachments == nil {
		attachments = []*models.Attachment{}
	}
	c.JSON(http.StatusOK, gin.H{"attachments": attachments})
}

// Upload stores a new attachment file for the asset
// POST /api/v1/assets/:id/attachments (multipart: file)
func (h *AttachmentHandlers) Upload(c *gin.Context) {
	asset, ok := h.parentAsset(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the upload size limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	teamID := requestTeamID(c)
	storagePath := fmt.Sprintf("teams/%s/assets/%s/attachments/%s/%s",
		teamID, asset.ID, uuid.New().String(), path.Base(fileHeader.Filename))

	result, err := h.store.Upload(c.Request.Context(), storagePath, file, fileHeader.Size)
	if err != nil {
		slog.Error("attachment upload failed", "team_id", teamID, "asset_id", asset.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	att := &models.Attachment{
		TeamID:      teamID,
		AssetID:     asset.ID,
		FileName:    path.Base(fileHeader.Filename),
		StoragePath: result.Path,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   result.Size,
		Checksum:    result.Checksum,
		UploadedBy:  actorID(c),
	}
	if err := h.attRepo.Create(c.Request.Context(), att); err != nil {
		if delErr := h.store.Delete(c.Request.Context(), result.Path); delErr != nil {
			slog.Error("failed to clean up orphaned blob", "path", result.Path, "error", delErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save attachment"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "attachment.uploaded", "attachment", att.ID,
		map[string]any{"asset_id": asset.ID, "file_name": att.FileName})
	c.JSON(http.StatusCreated, att)
}

// Download serves the attachment file via signed URL or streaming fallback
// GET /api/v1/assets/:id/attachments/:attachment_id/download
func (h *AttachmentHandlers) Download(c *gin.Context) {
	if _, ok := h.parentAsset(c); !ok {
		return
	}

	att, err := h.attRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("attachment_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attachment"})
		return
	}
	if att == nil || att.AssetID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}

	serveBlob(c, h.store, att.StoragePath, att.FileName, att.ContentType, att.SizeBytes, h.cfg.Storage.SignedURLTTL)
}

// Delete removes the attachment row and then the backing blob, best-effort
// DELETE /api/v1/assets/:id/attachments/:attachment_id
func (h *AttachmentHandlers) Delete(c *gin.Context) {
	if _, ok := h.parentAsset(c); !ok {
		return
	}

	teamID := requestTeamID(c)
	att, err := h.attRepo.GetByID(c.Request.Context(), teamID, c.Param("attachment_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attachment"})
		return
	}
	if att == nil || att.AssetID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}

	deleted, err := h.attRepo.Delete(c.Request.Context(), teamID, att.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete attachment"})
		return
	}
	if deleted == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), deleted.StoragePath); err != nil {
		slog.Error("failed to delete attachment blob", "path", deleted.StoragePath, "error", err)
	}

	h.recorder.Record(teamID, actorID(c), "attachment.deleted", "attachment", deleted.ID,
		map[string]any{"asset_id": deleted.AssetID, "file_name": deleted.FileName})
	c.Status(http.StatusNoContent)
}
