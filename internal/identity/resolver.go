// Package identity implements team resolution: mapping an authenticated user
// to the team whose data their requests operate on.
//
// Resolution order:
//
//  1. cached team id on the user row (fast path, no extra queries)
//  2. oldest existing membership, cached on the way out
//  3. auto-provision "{displayName}'s Team" with an admin membership
//
// There is no fallback team: a request that cannot be resolved to a team
// fails, it never reads or writes another tenant's data.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/telemetry"
)

// ErrUnknownUser is returned when the user id has no row. Callers treat it as
// an authentication failure, not a provisioning trigger.
var ErrUnknownUser = errors.New("unknown user")

// UserStore is the slice of UserRepository the resolver needs.
type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	SetDefaultTeam(ctx context.Context, userID string, teamID *string) error
}

// TeamStore is the slice of TeamRepository the resolver needs.
type TeamStore interface {
	FirstMembership(ctx context.Context, userID string) (*models.TeamMember, error)
	ProvisionDefaultTeam(ctx context.Context, userID, teamName string) (*models.Team, error)
}

// Resolver resolves users to teams, provisioning on first touch.
type Resolver struct {
	users UserStore
	teams TeamStore
}

// NewResolver creates a Resolver over the user and team stores.
func NewResolver(users UserStore, teams TeamStore) *Resolver {
	return &Resolver{users: users, teams: teams}
}

// ResolveTeam returns the team id owning the user's data, provisioning a team
// on first touch. The id is cached on the user row so subsequent calls take
// the fast path.
func (r *Resolver) ResolveTeam(ctx context.Context, userID string) (string, error) {
	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return "", ErrUnknownUser
	}

	if user.DefaultTeamID != nil && *user.DefaultTeamID != "" {
		telemetry.IdentityResolutionsTotal.WithLabelValues("cached").Inc()
		return *user.DefaultTeamID, nil
	}

	// Cache miss: the user may still have a membership, e.g. after joining
	// through an invite on another device, or after the cache was cleared.
	membership, err := r.teams.FirstMembership(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to look up membership: %w", err)
	}
	if membership != nil {
		r.cacheTeamID(ctx, userID, membership.TeamID)
		telemetry.IdentityResolutionsTotal.WithLabelValues("membership").Inc()
		return membership.TeamID, nil
	}

	team, err := r.teams.ProvisionDefaultTeam(ctx, userID, user.DisplayName()+"'s Team")
	if err == nil {
		telemetry.IdentityResolutionsTotal.WithLabelValues("provisioned").Inc()
		slog.Info("provisioned team for first-time user",
			"user_id", userID, "team_id", team.ID)
		return team.ID, nil
	}
	if !errors.Is(err, repositories.ErrDefaultMembershipExists) {
		return "", fmt.Errorf("failed to provision team: %w", err)
	}

	// Lost the provisioning race: a concurrent request created the membership
	// between our lookup and insert. Adopt the winner's team.
	membership, err = r.teams.FirstMembership(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to re-read membership after race: %w", err)
	}
	if membership == nil {
		// The winner's transaction must be visible once ours failed on its
		// unique index entry, so this indicates a bug or manual row deletion.
		return "", fmt.Errorf("membership vanished after provisioning conflict for user %s", userID)
	}
	r.cacheTeamID(ctx, userID, membership.TeamID)
	telemetry.IdentityResolutionsTotal.WithLabelValues("recovered").Inc()
	return membership.TeamID, nil
}

// Invalidate clears the cached team id so the next resolution re-derives it
// from memberships. Called when a membership is removed outside
// TeamRepository.RemoveMember.
func (r *Resolver) Invalidate(ctx context.Context, userID string) error {
	return r.users.SetDefaultTeam(ctx, userID, nil)
}

// cacheTeamID writes the resolved id back to the user row. Failures are logged
// and swallowed: the resolution result is still correct, the next request just
// pays the lookup again.
func (r *Resolver) cacheTeamID(ctx context.Context, userID, teamID string) {
	if err := r.users.SetDefaultTeam(ctx, userID, &teamID); err != nil {
		slog.Warn("failed to cache resolved team id", "user_id", userID, "error", err)
	}
}
