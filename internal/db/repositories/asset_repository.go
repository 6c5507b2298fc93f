package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/familyvault/familyvault/internal/db/models"
)

// AssetRepository handles asset database operations
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new AssetRepository
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `id, team_id, name, asset_type, value_cents, currency, notes, created_at, updated_at, deleted_at`

func scanAsset(row interface{ Scan(...any) error }) (*models.Asset, error) {
	a := &models.Asset{}
	err := row.Scan(
		&a.ID,
		&a.TeamID,
		&a.Name,
		&a.AssetType,
		&a.ValueCents,
		&a.Currency,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new asset row
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	asset.ID = uuid.New().String()
	query := `
		INSERT INTO assets (id, team_id, name, asset_type, value_cents, currency, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		asset.ID, asset.TeamID, asset.Name, asset.AssetType,
		asset.ValueCents, asset.Currency, asset.Notes,
	).Scan(&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

// ListActive returns a page of the team's non-archived assets, newest first,
// optionally filtered by asset type.
func (r *AssetRepository) ListActive(ctx context.Context, teamID, assetType string, page Page) ([]*models.Asset, error) {
	page = page.normalize()
	query := `SELECT ` + assetColumns + ` FROM assets WHERE team_id = $1 AND deleted_at IS NULL`
	args := []any{teamID}
	if assetType != "" {
		query += ` AND asset_type = $2`
		args = append(args, assetType)
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// GetByID retrieves an asset scoped to the team, archived or not. Returns nil
// when it does not exist or belongs to another team.
func (r *AssetRepository) GetByID(ctx context.Context, teamID, assetID string) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1 AND team_id = $2`
	return scanAsset(r.db.QueryRowContext(ctx, query, assetID, teamID))
}

// Update changes the mutable asset fields. Archived assets stay editable so a
// family can fix a record before unarchiving support exists for this type.
func (r *AssetRepository) Update(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	query := `
		UPDATE assets SET name = $3, asset_type = $4, value_cents = $5, currency = $6, notes = $7, updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + assetColumns
	updated, err := scanAsset(r.db.QueryRowContext(ctx, query,
		asset.ID, asset.TeamID, asset.Name, asset.AssetType,
		asset.ValueCents, asset.Currency, asset.Notes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}
	return updated, nil
}

// Archive soft-deletes the asset. Archiving an already archived asset is a
// no-op that keeps the original deleted_at. Returns nil when the asset does
// not exist in the team.
func (r *AssetRepository) Archive(ctx context.Context, teamID, assetID string) (*models.Asset, error) {
	query := `
		UPDATE assets SET deleted_at = COALESCE(deleted_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND team_id = $2
		RETURNING ` + assetColumns
	a, err := scanAsset(r.db.QueryRowContext(ctx, query, assetID, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to archive asset: %w", err)
	}
	return a, nil
}

// TotalActiveValue sums value_cents of non-archived assets, grouped by
// currency. Feeds the onboarding summary and the team dashboard.
func (r *AssetRepository) TotalActiveValue(ctx context.Context, teamID string) (map[string]int64, error) {
	query := `
		SELECT currency, COALESCE(SUM(value_cents), 0)
		FROM assets
		WHERE team_id = $1 AND deleted_at IS NULL
		GROUP BY currency
	`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to total asset value: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var currency string
		var total int64
		if err := rows.Scan(&currency, &total); err != nil {
			return nil, err
		}
		totals[currency] = total
	}
	return totals, rows.Err()
}
