// Package repositories implements the data access layer (repository pattern) for FamilyVault.
// Each repository type encapsulates all database queries for a domain entity.
// Handlers never issue SQL directly — all database access goes through this layer, which makes query logic testable in isolation and prevents accidental cross-tenant data access.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/familyvault/familyvault/internal/db/models"
)

// ErrEmailConflict is returned when an OIDC login carries an email that already
// belongs to a user with a different subject identifier.
var ErrEmailConflict = errors.New("email already registered under another identity")

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, oidc_sub, default_team_id, refresh_token_enc, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.OIDCSub,
		&user.DefaultTeamID,
		&user.RefreshTokenEnc,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// UpsertFromOIDC creates or updates the user row for an OIDC login, matching on
// the subject identifier. Name and email are refreshed from the provider claims
// on every login. When the email already belongs to a user with a different
// subject — the conflict target does not cover the email unique constraint —
// the insert fails and ErrEmailConflict is returned so the caller can surface
// it instead of a generic failure.
func (r *UserRepository) UpsertFromOIDC(ctx context.Context, oidcSub, email, name string) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, name, oidc_sub, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (oidc_sub) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, uuid.New().String(), email, name, oidcSub))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrEmailConflict
		}
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// SetDefaultTeam writes the cached team id on the user row. Pass nil to clear
// the cache, e.g. when the membership it pointed at is removed.
func (r *UserRepository) SetDefaultTeam(ctx context.Context, userID string, teamID *string) error {
	query := `UPDATE users SET default_team_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, teamID); err != nil {
		return fmt.Errorf("failed to set default team: %w", err)
	}
	return nil
}

// SetRefreshToken stores the encrypted OIDC refresh token for the user.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID string, tokenEnc *string) error {
	query := `UPDATE users SET refresh_token_enc = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, tokenEnc); err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	return nil
}

// UpdateName changes the user's display name. Email stays owned by the
// identity provider and is only refreshed on login. Returns nil when the user
// does not exist.
func (r *UserRepository) UpdateName(ctx context.Context, userID, name string) (*models.User, error) {
	query := `UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, userID, name))
}
