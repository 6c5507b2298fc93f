package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/familyvault/familyvault/internal/db/models"
)

// AttachmentRepository handles attachment database operations. Attachments are
// child records of assets and are hard-deleted like documents.
type AttachmentRepository struct {
	db *sql.DB
}

// NewAttachmentRepository creates a new AttachmentRepository
func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

const attachmentColumns = `id, team_id, asset_id, file_name, storage_path, content_type, size_bytes, checksum, uploaded_by, created_at`

func scanAttachment(row interface{ Scan(...any) error }) (*models.Attachment, error) {
	att := &models.Attachment{}
	err := row.Scan(
		&att.ID,
		&att.TeamID,
		&att.AssetID,
		&att.FileName,
		&att.StoragePath,
		&att.ContentType,
		&att.SizeBytes,
		&att.Checksum,
		&att.UploadedBy,
		&att.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return att, nil
}

// Create inserts a new attachment row
func (r *AttachmentRepository) Create(ctx context.Context, att *models.Attachment) error {
	att.ID = uuid.New().String()
	query := `
		INSERT INTO attachments (id, team_id, asset_id, file_name, storage_path, content_type, size_bytes, checksum, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		att.ID, att.TeamID, att.AssetID, att.FileName, att.StoragePath,
		att.ContentType, att.SizeBytes, att.Checksum, att.UploadedBy,
	).Scan(&att.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// ListByAsset returns all attachments of an asset, newest first.
func (r *AttachmentRepository) ListByAsset(ctx context.Context, teamID, assetID string) ([]*models.Attachment, error) {
	query := `
		SELECT ` + attachmentColumns + `
		FROM attachments
		WHERE team_id = $1 AND asset_id = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, teamID, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var atts []*models.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// GetByID retrieves an attachment scoped to the team
func (r *AttachmentRepository) GetByID(ctx context.Context, teamID, attID string) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1 AND team_id = $2`
	return scanAttachment(r.db.QueryRowContext(ctx, query, attID, teamID))
}

// Delete removes the row and returns the deleted attachment so the caller can
// remove the backing file. Returns nil when nothing matched.
func (r *AttachmentRepository) Delete(ctx context.Context, teamID, attID string) (*models.Attachment, error) {
	query := `DELETE FROM attachments WHERE id = $1 AND team_id = $2 RETURNING ` + attachmentColumns
	att, err := scanAttachment(r.db.QueryRowContext(ctx, query, attID, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to delete attachment: %w", err)
	}
	return att, nil
}
