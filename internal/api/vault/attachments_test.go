package vault

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyvault/familyvault/internal/config"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/storage/local"
)

var attachmentCols = []string{
	"id", "team_id", "asset_id", "file_name", "storage_path", "content_type",
	"size_bytes", "checksum", "uploaded_by", "created_at",
}

func newAttachmentRouter(t *testing.T) (sqlmock.Sqlmock, *local.LocalStorage, *gin.Engine) {
	t.Helper()
	db, mock := newMockDB(t)

	store, err := local.New(&config.LocalStorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Storage.SignedURLTTL = 15 * time.Minute

	h := NewAttachmentHandlers(
		repositories.NewAttachmentRepository(db),
		repositories.NewAssetRepository(db),
		store, newTestRecorder(t), cfg)

	r := gin.New()
	r.Use(withIdentity("user-1", "team-1"))
	r.GET("/assets/:id/attachments", h.List)
	r.POST("/assets/:id/attachments", h.Upload)
	r.GET("/assets/:id/attachments/:attachment_id/download", h.Download)
	r.DELETE("/assets/:id/attachments/:attachment_id", h.Delete)
	return mock, store, r
}

func TestListAttachments_ParentAssetMissing(t *testing.T) {
	mock, _, r := newAttachmentRouter(t)

	mock.ExpectQuery("SELECT.*FROM assets WHERE id").
		WillReturnRows(sqlmock.NewRows(assetCols))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/assets/asset-9/attachments", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAttachments_Success(t *testing.T) {
	mock, _, r := newAttachmentRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT.*FROM assets WHERE id").
		WillReturnRows(sampleAssetRow(nil))
	mock.ExpectQuery("SELECT.*FROM attachments").
		WillReturnRows(sqlmock.NewRows(attachmentCols).
			AddRow("att-1", "team-1", "asset-1", "deed.pdf",
				"teams/team-1/assets/asset-1/attachments/u/deed.pdf",
				"application/pdf", int64(42), strings.Repeat("a", 64), nil, now))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/assets/asset-1/attachments", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := getJSON(w)
	attachments, ok := resp["attachments"].([]interface{})
	require.True(t, ok, "response missing attachments array")
	assert.Len(t, attachments, 1)
}

func TestUploadAttachment_Success(t *testing.T) {
	mock, store, r := newAttachmentRouter(t)

	mock.ExpectQuery("SELECT.*FROM assets WHERE id").
		WillReturnRows(sampleAssetRow(nil))
	mock.ExpectQuery("INSERT INTO attachments").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	body, contentType := multipartUpload(t, "deed.pdf", "deed bytes", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/assets/asset-1/attachments", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := getJSON(w)
	assert.Equal(t, "deed.pdf", resp["file_name"])
	assert.Equal(t, "asset-1", resp["asset_id"])
	checksum, _ := resp["checksum"].(string)
	assert.Len(t, checksum, 64, "checksum should be SHA256 hex")
	// The blob lands under the parent asset's prefix.
	exists, err := store.Exists(req.Context(), "teams/team-1/assets/asset-1/attachments")
	require.NoError(t, err)
	assert.True(t, exists, "uploaded blob not found under the asset prefix")
}

func TestUploadAttachment_MissingFile(t *testing.T) {
	mock, _, r := newAttachmentRouter(t)

	mock.ExpectQuery("SELECT.*FROM assets WHERE id").
		WillReturnRows(sampleAssetRow(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/assets/asset-1/attachments", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadAttachment_WrongParent(t *testing.T) {
	mock, _, r := newAttachmentRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT.*FROM assets WHERE id").
		WillReturnRows(sampleAssetRow(nil))
	// Attachment exists in the team but belongs to a different asset: the
	// nested route must not leak it.
	mock.ExpectQuery("SELECT.*FROM attachments WHERE id").
		WillReturnRows(sqlmock.NewRows(attachmentCols).
			AddRow("att-1", "team-1", "asset-OTHER", "deed.pdf",
				"teams/team-1/assets/asset-OTHER/attachments/u/deed.pdf",
				"application/pdf", int64(42), strings.Repeat("a", 64), nil, now))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/assets/asset-1/attachments/att-1/download", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAttachment_RemovesRowAndBlob(t *testing.T) {
	mock, store, r := newAttachmentRouter(t)

	ctx := httptest.NewRequest("GET", "/", nil).Context()
	storagePath := "teams/team-1/assets/asset-1/attachments/u/deed.pdf"
	_, err := store.Upload(ctx, storagePath, strings.NewReader("x"), 1)
	require.NoError(t, err)

	now := time.Now()
	attRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(attachmentCols).
			AddRow("att-1", "team-1", "asset-1", "deed.pdf", storagePath,
				"application/pdf", int64(1), strings.Repeat("a", 64), nil, now)
	}
	mock.ExpectQuery("SELECT.*FROM assets WHERE id").
		WillReturnRows(sampleAssetRow(nil))
	mock.ExpectQuery("SELECT.*FROM attachments WHERE id").
		WillReturnRows(attRow())
	mock.ExpectQuery("DELETE FROM attachments WHERE id.*RETURNING").
		WillReturnRows(attRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/assets/asset-1/attachments/att-1", nil))

	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	exists, err := store.Exists(ctx, storagePath)
	require.NoError(t, err)
	assert.False(t, exists, "blob should be deleted along with the row")
}
