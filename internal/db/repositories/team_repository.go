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

// ErrDefaultMembershipExists is returned by ProvisionDefaultTeam when a
// concurrent resolution inserted the user's default membership first. Callers
// should re-read the membership instead of treating this as a failure.
var ErrDefaultMembershipExists = errors.New("default membership already exists")

// TeamRepository handles team, membership, and invite database operations
type TeamRepository struct {
	db *sql.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, name, plan, onboarding_step, created_at, updated_at`

func scanTeam(row interface{ Scan(...any) error }) (*models.Team, error) {
	team := &models.Team{}
	err := row.Scan(
		&team.ID,
		&team.Name,
		&team.Plan,
		&team.OnboardingStep,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

// GetByID retrieves a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return scanTeam(r.db.QueryRowContext(ctx, query, teamID))
}

// UpdateName renames the team
func (r *TeamRepository) UpdateName(ctx context.Context, teamID, name string) (*models.Team, error) {
	query := `UPDATE teams SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + teamColumns
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, teamID, name))
	if err != nil {
		return nil, fmt.Errorf("failed to rename team: %w", err)
	}
	return team, nil
}

// SetOnboardingStep persists the wizard position for the team
func (r *TeamRepository) SetOnboardingStep(ctx context.Context, teamID string, step int) error {
	query := `UPDATE teams SET onboarding_step = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, teamID, step)
	if err != nil {
		return fmt.Errorf("failed to set onboarding step: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("team not found: %s", teamID)
	}
	return nil
}

// ProvisionDefaultTeam creates a team and the user's default admin membership
// in a single transaction, and writes the team id back to the user row. The
// partial unique index on team_members (user_id) WHERE is_default serializes
// concurrent calls: the losing transaction returns ErrDefaultMembershipExists
// and the caller re-reads the winner's membership.
func (r *TeamRepository) ProvisionDefaultTeam(ctx context.Context, userID, teamName string) (*models.Team, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	teamQuery := `
		INSERT INTO teams (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + teamColumns
	team, err := scanTeam(tx.QueryRowContext(ctx, teamQuery, uuid.New().String(), teamName))
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	memberQuery := `
		INSERT INTO team_members (team_id, user_id, role, is_default, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
	`
	if _, err := tx.ExecContext(ctx, memberQuery, team.ID, userID, models.RoleAdmin); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrDefaultMembershipExists
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	cacheQuery := `UPDATE users SET default_team_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, cacheQuery, userID, team.ID); err != nil {
		return nil, fmt.Errorf("failed to cache team id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit provisioning: %w", err)
	}
	return team, nil
}

// -----------------------------------------------------------------------------
// Memberships
// -----------------------------------------------------------------------------

// GetMembership retrieves a single membership, or nil when the user does not
// belong to the team.
func (r *TeamRepository) GetMembership(ctx context.Context, teamID, userID string) (*models.TeamMember, error) {
	query := `
		SELECT team_id, user_id, role, is_default, created_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2
	`
	m := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&m.TeamID, &m.UserID, &m.Role, &m.IsDefault, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FirstMembership returns the user's oldest membership, or nil when the user
// belongs to no team. Ordering by creation time keeps resolution deterministic
// when a user belongs to several teams.
func (r *TeamRepository) FirstMembership(ctx context.Context, userID string) (*models.TeamMember, error) {
	query := `
		SELECT team_id, user_id, role, is_default, created_at
		FROM team_members
		WHERE user_id = $1
		ORDER BY created_at ASC, team_id ASC
		LIMIT 1
	`
	m := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&m.TeamID, &m.UserID, &m.Role, &m.IsDefault, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMembers returns all memberships of a team with user details, admins
// first then by join time.
func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]*models.TeamMemberWithUser, error) {
	query := `
		SELECT tm.team_id, tm.user_id, tm.role, tm.is_default, tm.created_at, u.name, u.email
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.role ASC, tm.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.TeamMemberWithUser
	for rows.Next() {
		m := &models.TeamMemberWithUser{}
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.IsDefault, &m.CreatedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember inserts a non-default membership, e.g. when an invite is accepted.
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID, role string) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role, is_default, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
	`
	if _, err := r.db.ExecContext(ctx, query, teamID, userID, role); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// UpdateMemberRole changes a member's role within the team
func (r *TeamRepository) UpdateMemberRole(ctx context.Context, teamID, userID, role string) error {
	query := `UPDATE team_members SET role = $3 WHERE team_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, teamID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("membership not found: %s/%s", teamID, userID)
	}
	return nil
}

// RemoveMember deletes a membership and clears the user's cached team id if it
// pointed at this team. Returns false when the membership did not exist.
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET default_team_id = NULL, updated_at = NOW() WHERE id = $1 AND default_team_id = $2`,
		userID, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to clear cached team id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit removal: %w", err)
	}
	return true, nil
}

// CountAdmins returns the number of admin members in a team. Used to refuse
// removing the last admin.
func (r *TeamRepository) CountAdmins(ctx context.Context, teamID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND role = $2`
	if err := r.db.QueryRowContext(ctx, query, teamID, models.RoleAdmin).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Invites
// -----------------------------------------------------------------------------

const inviteColumns = `id, team_id, email, role, token_hash, expires_at, accepted_at, created_at`

func scanInvite(row interface{ Scan(...any) error }) (*models.Invite, error) {
	inv := &models.Invite{}
	err := row.Scan(
		&inv.ID,
		&inv.TeamID,
		&inv.Email,
		&inv.Role,
		&inv.TokenHash,
		&inv.ExpiresAt,
		&inv.AcceptedAt,
		&inv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvite stores a pending invitation. The caller hashes the token.
func (r *TeamRepository) CreateInvite(ctx context.Context, invite *models.Invite) error {
	invite.ID = uuid.New().String()
	query := `
		INSERT INTO invites (id, team_id, email, role, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		invite.ID, invite.TeamID, invite.Email, invite.Role, invite.TokenHash, invite.ExpiresAt,
	).Scan(&invite.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetInviteByID retrieves an invite by ID
func (r *TeamRepository) GetInviteByID(ctx context.Context, inviteID string) (*models.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE id = $1`
	return scanInvite(r.db.QueryRowContext(ctx, query, inviteID))
}

// ListPendingInvites returns invites for a team that have not been accepted
// and have not expired.
func (r *TeamRepository) ListPendingInvites(ctx context.Context, teamID string) ([]*models.Invite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE team_id = $1 AND accepted_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []*models.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// MarkInviteAccepted stamps the invite as used. Returns false when the invite
// was already accepted or has expired.
func (r *TeamRepository) MarkInviteAccepted(ctx context.Context, inviteID string) (bool, error) {
	query := `
		UPDATE invites SET accepted_at = NOW()
		WHERE id = $1 AND accepted_at IS NULL AND expires_at > NOW()
	`
	result, err := r.db.ExecContext(ctx, query, inviteID)
	if err != nil {
		return false, fmt.Errorf("failed to accept invite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeleteInvite revokes a pending invite
func (r *TeamRepository) DeleteInvite(ctx context.Context, teamID, inviteID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE id = $1 AND team_id = $2`, inviteID, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to delete invite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
