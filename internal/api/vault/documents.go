// documents.go implements HTTP handlers for document upload, listing,
// metadata, download, and deletion. Documents are the one resource type with a
// hard-delete path: the row is removed and the backing blob cleaned up
// best-effort afterwards.
package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/config"
	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/storage"
)

// maxUploadBytes caps document and attachment uploads at 100 MiB.
const maxUploadBytes = 100 << 20

// DocumentHandlers handles document endpoints
type DocumentHandlers struct {
	docRepo  *repositories.DocumentRepository
	store    storage.Storage
	recorder *activity.Recorder
	cfg      *config.Config
}

// NewDocumentHandlers creates a new DocumentHandlers instance
func NewDocumentHandlers(
	docRepo *repositories.DocumentRepository,
	store storage.Storage,
	recorder *activity.Recorder,
	cfg *config.Config,
) *DocumentHandlers {
	return &DocumentHandlers{docRepo: docRepo, store: store, recorder: recorder, cfg: cfg}
}

// Upload stores a new document file and its metadata row
// POST /api/v1/documents (multipart: file, title, category)
func (h *DocumentHandlers) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the upload size limit"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}
	category := c.PostForm("category")

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	teamID := requestTeamID(c)
	storagePath := fmt.Sprintf("teams/%s/documents/%s/%s",
		teamID, uuid.New().String(), path.Base(fileHeader.Filename))

	result, err := h.store.Upload(c.Request.Context(), storagePath, file, fileHeader.Size)
	if err != nil {
		slog.Error("document upload failed", "team_id", teamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	doc := &models.Document{
		TeamID:      teamID,
		Title:       title,
		Category:    category,
		StoragePath: result.Path,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   result.Size,
		Checksum:    result.Checksum,
		UploadedBy:  actorID(c),
	}
	if err := h.docRepo.Create(c.Request.Context(), doc); err != nil {
		// Row creation failed after the blob was written; remove the orphan.
		if delErr := h.store.Delete(c.Request.Context(), result.Path); delErr != nil {
			slog.Error("failed to clean up orphaned blob", "path", result.Path, "error", delErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save document"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "document.uploaded", "document", doc.ID,
		map[string]any{"title": doc.Title, "size_bytes": doc.SizeBytes})
	c.JSON(http.StatusCreated, doc)
}

// List returns a page of the team's documents, optionally filtered by category
// GET /api/v1/documents?category=...&limit=...&offset=...
func (h *DocumentHandlers) List(c *gin.Context) {
	page, ok := pageParams(c)
	if !ok {
		return
	}
	docs, err := h.docRepo.List(c.Request.Context(), requestTeamID(c), c.Query("category"), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Get returns a single document's metadata
// GET /api/v1/documents/:id
func (h *DocumentHandlers) Get(c *gin.Context) {
	doc, err := h.docRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Update changes a document's title and category
// PUT /api/v1/documents/:id
func (h *DocumentHandlers) Update(c *gin.Context) {
	var req struct {
		Title    string `json:"title" binding:"required"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	teamID := requestTeamID(c)
	doc, err := h.docRepo.Update(c.Request.Context(), teamID, c.Param("id"), req.Title, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update document"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	h.recorder.Record(teamID, actorID(c), "document.updated", "document", doc.ID, nil)
	c.JSON(http.StatusOK, doc)
}

// Download redirects to a signed URL when the backend supports one, and
// otherwise streams the file through the API.
// GET /api/v1/documents/:id/download
func (h *DocumentHandlers) Download(c *gin.Context) {
	doc, err := h.docRepo.GetByID(c.Request.Context(), requestTeamID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	serveBlob(c, h.store, doc.StoragePath, doc.Title, doc.ContentType, doc.SizeBytes, h.cfg.Storage.SignedURLTTL)
}

// Delete removes the document row and then the backing blob, best-effort
// DELETE /api/v1/documents/:id
func (h *DocumentHandlers) Delete(c *gin.Context) {
	teamID := requestTeamID(c)
	doc, err := h.docRepo.Delete(c.Request.Context(), teamID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	// The row is authoritative; a leaked blob is an acceptable cost of not
	// failing the delete.
	if err := h.store.Delete(c.Request.Context(), doc.StoragePath); err != nil {
		slog.Error("failed to delete document blob", "path", doc.StoragePath, "error", err)
	}

	h.recorder.Record(teamID, actorID(c), "document.deleted", "document", doc.ID,
		map[string]any{"title": doc.Title})
	c.Status(http.StatusNoContent)
}

// serveBlob answers a download request for a stored file: redirect to a signed
// URL when the backend can mint one, stream the bytes otherwise.
func serveBlob(c *gin.Context, store storage.Storage, storagePath, filename, contentType string, size int64, ttl time.Duration) {
	ctx := c.Request.Context()

	url, err := store.GetURL(ctx, storagePath, ttl)
	if err == nil {
		c.Redirect(http.StatusFound, url)
		return
	}
	if !errors.Is(err, storage.ErrSignedURLUnsupported) {
		slog.Error("failed to sign download url", "path", storagePath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare download"})
		return
	}

	reader, err := store.Download(ctx, storagePath)
	if err != nil {
		slog.Error("failed to open blob for streaming", "path", storagePath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download file"})
		return
	}
	defer reader.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}
