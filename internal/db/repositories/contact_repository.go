package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/familyvault/familyvault/internal/db/models"
)

// ContactRepository handles contact database operations. Contacts are the one
// resource type with an unarchive path.
type ContactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, team_id, name, email, phone, company, notes, created_at, updated_at, deleted_at`

func scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	c := &models.Contact{}
	err := row.Scan(
		&c.ID,
		&c.TeamID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Company,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new contact row
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	contact.ID = uuid.New().String()
	query := `
		INSERT INTO contacts (id, team_id, name, email, phone, company, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		contact.ID, contact.TeamID, contact.Name, contact.Email,
		contact.Phone, contact.Company, contact.Notes,
	).Scan(&contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// ListActive returns a page of the team's non-archived contacts, newest first.
func (r *ContactRepository) ListActive(ctx context.Context, teamID string, page Page) ([]*models.Contact, error) {
	page = page.normalize()
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE team_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, teamID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// GetByID retrieves a contact scoped to the team, archived or not.
func (r *ContactRepository) GetByID(ctx context.Context, teamID, contactID string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND team_id = $2`
	return scanContact(r.db.QueryRowContext(ctx, query, contactID, teamID))
}

// Update changes the mutable contact fields
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query := `
		UPDATE contacts SET name = $3, email = $4, phone = $5, company = $6, notes = $7, updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + contactColumns
	updated, err := scanContact(r.db.QueryRowContext(ctx, query,
		contact.ID, contact.TeamID, contact.Name, contact.Email,
		contact.Phone, contact.Company, contact.Notes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return updated, nil
}

// Archive soft-deletes the contact; idempotent on repeat calls.
func (r *ContactRepository) Archive(ctx context.Context, teamID, contactID string) (*models.Contact, error) {
	query := `
		UPDATE contacts SET deleted_at = COALESCE(deleted_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + contactColumns
	c, err := scanContact(r.db.QueryRowContext(ctx, query, contactID, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to archive contact: %w", err)
	}
	return c, nil
}

// Unarchive restores an archived contact to listings; a no-op on contacts that
// were never archived.
func (r *ContactRepository) Unarchive(ctx context.Context, teamID, contactID string) (*models.Contact, error) {
	query := `
		UPDATE contacts SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + contactColumns
	c, err := scanContact(r.db.QueryRowContext(ctx, query, contactID, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to unarchive contact: %w", err)
	}
	return c, nil
}
