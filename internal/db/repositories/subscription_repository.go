// subscription_repository.go implements SubscriptionRepository on sqlx.
// Listings are ordered by next renewal so the soonest-due subscription is
// first; the renewal reminder job scans across teams with ListRenewingBefore.
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

// SubscriptionRepository handles subscription database operations
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, team_id, name, amount_cents, currency, billing_cycle, renews_at, notes, created_at, updated_at, deleted_at`

// Create inserts a new subscription row
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	sub.ID = uuid.New().String()
	query := `
		INSERT INTO subscriptions (id, team_id, name, amount_cents, currency, billing_cycle, renews_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		sub.ID, sub.TeamID, sub.Name, sub.AmountCents, sub.Currency,
		sub.BillingCycle, sub.RenewsAt, sub.Notes,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// ListActive returns a page of the team's non-archived subscriptions ordered by
// next renewal, soonest first; subscriptions without a renewal date sort last.
func (r *SubscriptionRepository) ListActive(ctx context.Context, teamID string, page Page) ([]*models.Subscription, error) {
	page = page.normalize()
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE team_id = $1 AND deleted_at IS NULL
		ORDER BY renews_at ASC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3
	`
	var subs []*models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, teamID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// GetByID retrieves a subscription scoped to the team, archived or not.
func (r *SubscriptionRepository) GetByID(ctx context.Context, teamID, subID string) (*models.Subscription, error) {
	var sub models.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND team_id = $2`
	err := r.db.GetContext(ctx, &sub, query, subID, teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Update changes the mutable subscription fields
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	var updated models.Subscription
	query := `
		UPDATE subscriptions SET name = $3, amount_cents = $4, currency = $5, billing_cycle = $6, renews_at = $7, notes = $8, updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + subscriptionColumns
	err := r.db.GetContext(ctx, &updated, query,
		sub.ID, sub.TeamID, sub.Name, sub.AmountCents, sub.Currency,
		sub.BillingCycle, sub.RenewsAt, sub.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	return &updated, nil
}

// Archive soft-deletes the subscription; idempotent on repeat calls.
func (r *SubscriptionRepository) Archive(ctx context.Context, teamID, subID string) (*models.Subscription, error) {
	var sub models.Subscription
	query := `
		UPDATE subscriptions SET deleted_at = COALESCE(deleted_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + subscriptionColumns
	err := r.db.GetContext(ctx, &sub, query, subID, teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to archive subscription: %w", err)
	}
	return &sub, nil
}

// ListRenewingBefore returns active subscriptions across all teams whose next
// renewal falls before the cutoff. Used by the renewal reminder job.
func (r *SubscriptionRepository) ListRenewingBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE deleted_at IS NULL AND renews_at IS NOT NULL AND renews_at < $1
		ORDER BY renews_at ASC
	`
	var subs []*models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list renewing subscriptions: %w", err)
	}
	return subs, nil
}
