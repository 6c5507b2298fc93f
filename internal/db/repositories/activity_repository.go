// activity_repository.go implements ActivityRepository on sqlx. The activity
// log is append-only; entries are written by the activity recorder off the
// request path and read back for the team's activity feed.
package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/familyvault/familyvault/internal/db/models"
)

// ActivityRepository handles activity log database operations
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert appends an activity entry
func (r *ActivityRepository) Insert(ctx context.Context, entry *models.ActivityEntry) error {
	entry.ID = uuid.New().String()
	metadata := entry.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	query := `
		INSERT INTO activity_log (id, team_id, user_id, action, resource_type, resource_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.TeamID, entry.UserID, entry.Action,
		entry.ResourceType, entry.ResourceID, metadata,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", err)
	}
	return nil
}

// ListByTeam returns the team's newest activity entries
func (r *ActivityRepository) ListByTeam(ctx context.Context, teamID string, limit int) ([]*models.ActivityEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, team_id, user_id, action, resource_type, resource_id, metadata, created_at
		FROM activity_log
		WHERE team_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var entries []*models.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, teamID, limit); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}
