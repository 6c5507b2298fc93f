// event_repository.go implements EventRepository on sqlx. Events follow the
// same tenant-scoped soft-delete contract as assets and contacts, but listings
// are ordered by start time so the calendar reads chronologically.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/familyvault/familyvault/internal/db/models"
)

// EventRepository handles calendar event database operations
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, team_id, title, starts_at, ends_at, location, notes, created_at, updated_at, deleted_at`

// Create inserts a new event row
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	event.ID = uuid.New().String()
	query := `
		INSERT INTO events (id, team_id, title, starts_at, ends_at, location, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		event.ID, event.TeamID, event.Title, event.StartsAt, event.EndsAt,
		event.Location, event.Notes,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// ListActive returns a page of the team's non-archived events in chronological
// order, optionally windowed to [from, to).
func (r *EventRepository) ListActive(ctx context.Context, teamID string, from, to *time.Time, page Page) ([]*models.Event, error) {
	page = page.normalize()
	query := `SELECT ` + eventColumns + ` FROM events WHERE team_id = $1 AND deleted_at IS NULL`
	args := []any{teamID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND starts_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND starts_at < $%d", len(args))
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY starts_at ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var events []*models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// GetByID retrieves an event scoped to the team, archived or not.
func (r *EventRepository) GetByID(ctx context.Context, teamID, eventID string) (*models.Event, error) {
	var event models.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND team_id = $2`
	err := r.db.GetContext(ctx, &event, query, eventID, teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Update changes the mutable event fields
func (r *EventRepository) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	var updated models.Event
	query := `
		UPDATE events SET title = $3, starts_at = $4, ends_at = $5, location = $6, notes = $7, updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + eventColumns
	err := r.db.GetContext(ctx, &updated, query,
		event.ID, event.TeamID, event.Title, event.StartsAt, event.EndsAt,
		event.Location, event.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return &updated, nil
}

// Archive soft-deletes the event; idempotent on repeat calls.
func (r *EventRepository) Archive(ctx context.Context, teamID, eventID string) (*models.Event, error) {
	var event models.Event
	query := `
		UPDATE events SET deleted_at = COALESCE(deleted_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + eventColumns
	err := r.db.GetContext(ctx, &event, query, eventID, teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to archive event: %w", err)
	}
	return &event, nil
}
