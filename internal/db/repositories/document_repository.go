package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/familyvault/familyvault/internal/db/models"
)

// DocumentRepository handles document database operations. Documents have no
// archive path: Delete removes the row outright and the caller cleans up the
// backing blob.
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, team_id, title, category, storage_path, content_type, size_bytes, checksum, uploaded_by, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	doc := &models.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.TeamID,
		&doc.Title,
		&doc.Category,
		&doc.StoragePath,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.Checksum,
		&doc.UploadedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Create inserts a new document row
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	doc.ID = uuid.New().String()
	query := `
		INSERT INTO documents (id, team_id, title, category, storage_path, content_type, size_bytes, checksum, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		doc.ID, doc.TeamID, doc.Title, doc.Category, doc.StoragePath,
		doc.ContentType, doc.SizeBytes, doc.Checksum, doc.UploadedBy,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// List returns a page of the team's documents, newest first, optionally
// filtered by category.
func (r *DocumentRepository) List(ctx context.Context, teamID, category string, page Page) ([]*models.Document, error) {
	page = page.normalize()
	query := `SELECT ` + documentColumns + ` FROM documents WHERE team_id = $1`
	args := []any{teamID}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetByID retrieves a document scoped to the team, or nil when it does not
// exist or belongs to another team.
func (r *DocumentRepository) GetByID(ctx context.Context, teamID, docID string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND team_id = $2`
	return scanDocument(r.db.QueryRowContext(ctx, query, docID, teamID))
}

// Update changes title and category
func (r *DocumentRepository) Update(ctx context.Context, teamID, docID, title, category string) (*models.Document, error) {
	query := `
		UPDATE documents SET title = $3, category = $4, updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + documentColumns
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, docID, teamID, title, category))
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return doc, nil
}

// Delete removes the row and returns the deleted document so the caller can
// remove the backing file. Returns nil when nothing matched.
func (r *DocumentRepository) Delete(ctx context.Context, teamID, docID string) (*models.Document, error) {
	query := `DELETE FROM documents WHERE id = $1 AND team_id = $2 RETURNING ` + documentColumns
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, docID, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	return doc, nil
}
