package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var errDocDB = errors.New("document db error")

func newDocumentRepo(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDocumentRepository(db), mock
}

var documentCols = []string{"id", "team_id", "title", "category", "storage_path", "content_type", "size_bytes", "checksum", "uploaded_by", "created_at", "updated_at"}

func documentRow(id, teamID, title, storagePath string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(documentCols).
		AddRow(id, teamID, title, "legal", storagePath, "application/pdf", int64(2048), "sha256:abc", nil, now, now)
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestDocumentList_ScopedToTeam(t *testing.T) {
	repo, mock := newDocumentRepo(t)
	mock.ExpectQuery("FROM documents WHERE team_id").
		WithArgs("team-1", 50, 0).
		WillReturnRows(documentRow("doc-1", "team-1", "Will", "team-1/doc-1.pdf"))

	docs, err := repo.List(context.Background(), "team-1", "", Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Title != "Will" {
		t.Errorf("expected Will, got %s", docs[0].Title)
	}
}

func TestDocumentList_AppliesPageWindow(t *testing.T) {
	repo, mock := newDocumentRepo(t)
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("team-1", 10, 30).
		WillReturnRows(documentRow("doc-31", "team-1", "Passport scan", "team-1/doc-31.pdf"))

	docs, err := repo.List(context.Background(), "team-1", "", Page{Limit: 10, Offset: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

func TestDocumentList_ClampsOversizedLimit(t *testing.T) {
	repo, mock := newDocumentRepo(t)
	mock.ExpectQuery(`LIMIT \$2 OFFSET \$3`).
		WithArgs("team-1", 50, 0).
		WillReturnRows(sqlmock.NewRows(documentCols))

	if _, err := repo.List(context.Background(), "team-1", "", Page{Limit: 100000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDocumentList_CategoryFilter(t *testing.T) {
	repo, mock := newDocumentRepo(t)
	mock.ExpectQuery("AND category").
		WithArgs("team-1", "legal", 50, 0).
		WillReturnRows(documentRow("doc-1", "team-1", "Will", "team-1/doc-1.pdf"))

	docs, err := repo.List(context.Background(), "team-1", "legal", Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDocumentDelete_ReturnsRowForBlobCleanup(t *testing.T) {
	repo, mock := newDocumentRepo(t)
	mock.ExpectQuery("DELETE FROM documents WHERE id").
		WithArgs("doc-1", "team-1").
		WillReturnRows(documentRow("doc-1", "team-1", "Will", "team-1/doc-1.pdf"))

	doc, err := repo.Delete(context.Background(), "team-1", "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc == nil {
		t.Fatal("expected deleted document, got nil")
	}
	if doc.StoragePath != "team-1/doc-1.pdf" {
		t.Errorf("expected storage path for cleanup, got %s", doc.StoragePath)
	}
}

func TestDocumentDelete_WrongTeam(t *testing.T) {
	repo, mock := newDocumentRepo(t)
	mock.ExpectQuery("DELETE FROM documents WHERE id").
		WithArgs("doc-1", "team-other").
		WillReturnRows(sqlmock.NewRows(documentCols))

	doc, err := repo.Delete(context.Background(), "team-other", "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc != nil {
		t.Error("expected nil when deleting across teams")
	}
}

func TestDocumentDelete_Error(t *testing.T) {
	repo, mock := newDocumentRepo(t)
	mock.ExpectQuery("DELETE FROM documents WHERE id").WillReturnError(errDocDB)

	if _, err := repo.Delete(context.Background(), "team-1", "doc-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
