package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeUserStore struct {
	user       *models.User
	getErr     error
	setErr     error
	cachedTeam *string
	setCalls   int
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return f.user, f.getErr
}

func (f *fakeUserStore) SetDefaultTeam(ctx context.Context, userID string, teamID *string) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.cachedTeam = teamID
	return nil
}

type fakeTeamStore struct {
	memberships     []*models.TeamMember // popped per FirstMembership call
	membershipErr   error
	provisioned     *models.Team
	provisionErr    error
	provisionedName string
	membershipCalls int
	provisionCalls  int
}

func (f *fakeTeamStore) FirstMembership(ctx context.Context, userID string) (*models.TeamMember, error) {
	f.membershipCalls++
	if f.membershipErr != nil {
		return nil, f.membershipErr
	}
	if len(f.memberships) == 0 {
		return nil, nil
	}
	m := f.memberships[0]
	f.memberships = f.memberships[1:]
	return m, nil
}

func (f *fakeTeamStore) ProvisionDefaultTeam(ctx context.Context, userID, teamName string) (*models.Team, error) {
	f.provisionCalls++
	f.provisionedName = teamName
	if f.provisionErr != nil {
		return nil, f.provisionErr
	}
	return f.provisioned, nil
}

func userWithCache(teamID string) *models.User {
	return &models.User{ID: "user-1", Email: "ada@example.com", Name: "Ada", DefaultTeamID: &teamID}
}

// ---------------------------------------------------------------------------
// ResolveTeam
// ---------------------------------------------------------------------------

func TestResolveTeam_CacheFastPath(t *testing.T) {
	users := &fakeUserStore{user: userWithCache("team-cached")}
	teams := &fakeTeamStore{}
	resolver := NewResolver(users, teams)

	teamID, err := resolver.ResolveTeam(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teamID != "team-cached" {
		t.Errorf("expected team-cached, got %s", teamID)
	}
	if teams.membershipCalls != 0 || teams.provisionCalls != 0 {
		t.Error("cache hit must not touch membership or provisioning")
	}
}

func TestResolveTeam_ExistingMembershipIsCached(t *testing.T) {
	users := &fakeUserStore{user: &models.User{ID: "user-1", Email: "ada@example.com"}}
	teams := &fakeTeamStore{memberships: []*models.TeamMember{
		{TeamID: "team-old", UserID: "user-1", Role: models.RoleMember, CreatedAt: time.Now()},
	}}
	resolver := NewResolver(users, teams)

	teamID, err := resolver.ResolveTeam(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teamID != "team-old" {
		t.Errorf("expected team-old, got %s", teamID)
	}
	if users.cachedTeam == nil || *users.cachedTeam != "team-old" {
		t.Error("expected resolved team id to be written back to the user row")
	}
	if teams.provisionCalls != 0 {
		t.Error("must not provision when a membership exists")
	}
}

func TestResolveTeam_ProvisionsOnFirstTouch(t *testing.T) {
	users := &fakeUserStore{user: &models.User{ID: "user-1", Email: "ada@example.com", Name: "Ada"}}
	teams := &fakeTeamStore{provisioned: &models.Team{ID: "team-new", Name: "Ada's Team"}}
	resolver := NewResolver(users, teams)

	teamID, err := resolver.ResolveTeam(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teamID != "team-new" {
		t.Errorf("expected team-new, got %s", teamID)
	}
	if teams.provisionedName != "Ada's Team" {
		t.Errorf("expected team named after display name, got %q", teams.provisionedName)
	}
}

func TestResolveTeam_TeamNameFallsBackToEmailLocalPart(t *testing.T) {
	users := &fakeUserStore{user: &models.User{ID: "user-1", Email: "ada@example.com"}}
	teams := &fakeTeamStore{provisioned: &models.Team{ID: "team-new"}}
	resolver := NewResolver(users, teams)

	if _, err := resolver.ResolveTeam(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teams.provisionedName != "ada's Team" {
		t.Errorf("expected ada's Team, got %q", teams.provisionedName)
	}
}

func TestResolveTeam_RaceLoserAdoptsWinnersTeam(t *testing.T) {
	users := &fakeUserStore{user: &models.User{ID: "user-1", Email: "ada@example.com"}}
	teams := &fakeTeamStore{
		provisionErr: repositories.ErrDefaultMembershipExists,
		// First lookup sees nothing (before the race), second sees the
		// winner's membership.
		memberships: []*models.TeamMember{
			nil,
			{TeamID: "team-winner", UserID: "user-1", Role: models.RoleAdmin, IsDefault: true},
		},
	}
	resolver := NewResolver(users, teams)

	teamID, err := resolver.ResolveTeam(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teamID != "team-winner" {
		t.Errorf("expected team-winner, got %s", teamID)
	}
	if teams.provisionCalls != 1 {
		t.Errorf("expected exactly one provisioning attempt, got %d", teams.provisionCalls)
	}
	if users.cachedTeam == nil || *users.cachedTeam != "team-winner" {
		t.Error("expected winner's team id cached on the user row")
	}
}

func TestResolveTeam_UnknownUserFailsClosed(t *testing.T) {
	users := &fakeUserStore{user: nil}
	teams := &fakeTeamStore{}
	resolver := NewResolver(users, teams)

	_, err := resolver.ResolveTeam(context.Background(), "ghost")
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if teams.membershipCalls != 0 || teams.provisionCalls != 0 {
		t.Error("unknown user must not trigger lookups or provisioning")
	}
}

func TestResolveTeam_CacheWriteFailureDoesNotFailResolution(t *testing.T) {
	users := &fakeUserStore{
		user:   &models.User{ID: "user-1", Email: "ada@example.com"},
		setErr: errors.New("users table busy"),
	}
	teams := &fakeTeamStore{memberships: []*models.TeamMember{
		{TeamID: "team-old", UserID: "user-1", Role: models.RoleMember},
	}}
	resolver := NewResolver(users, teams)

	teamID, err := resolver.ResolveTeam(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("resolution must survive a cache write failure, got %v", err)
	}
	if teamID != "team-old" {
		t.Errorf("expected team-old, got %s", teamID)
	}
}

func TestResolveTeam_ProvisionErrorPropagates(t *testing.T) {
	users := &fakeUserStore{user: &models.User{ID: "user-1", Email: "ada@example.com"}}
	teams := &fakeTeamStore{provisionErr: errors.New("teams table busy")}
	resolver := NewResolver(users, teams)

	if _, err := resolver.ResolveTeam(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// Invalidate
// ---------------------------------------------------------------------------

func TestInvalidate_ClearsCache(t *testing.T) {
	teamID := "team-1"
	users := &fakeUserStore{user: userWithCache(teamID), cachedTeam: &teamID}
	resolver := NewResolver(users, &fakeTeamStore{})

	if err := resolver.Invalidate(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.cachedTeam != nil {
		t.Error("expected cached team id cleared")
	}
}
