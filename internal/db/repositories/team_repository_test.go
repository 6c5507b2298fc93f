package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/familyvault/familyvault/internal/db/models"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var errTeamDB = errors.New("team db error")

func newTeamRepo(t *testing.T) (*TeamRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTeamRepository(db), mock
}

var teamCols = []string{"id", "name", "plan", "onboarding_step", "created_at", "updated_at"}

func teamRow(id, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(teamCols).AddRow(id, name, "free", 0, now, now)
}

var memberCols = []string{"team_id", "user_id", "role", "is_default", "created_at"}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestTeamGetByID_Found(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectQuery("SELECT id, name, plan, onboarding_step").
		WithArgs("team-1").
		WillReturnRows(teamRow("team-1", "Ada's Team"))

	team, err := repo.GetByID(context.Background(), "team-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team == nil {
		t.Fatal("expected team, got nil")
	}
	if team.Name != "Ada's Team" {
		t.Errorf("expected name Ada's Team, got %s", team.Name)
	}
}

func TestTeamGetByID_NotFound(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectQuery("SELECT id, name, plan, onboarding_step").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(teamCols))

	team, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team != nil {
		t.Errorf("expected nil team, got %+v", team)
	}
}

// ---------------------------------------------------------------------------
// ProvisionDefaultTeam
// ---------------------------------------------------------------------------

func TestProvisionDefaultTeam_CreatesTeamMembershipAndCache(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO teams").
		WillReturnRows(teamRow("team-1", "Ada's Team"))
	mock.ExpectExec("INSERT INTO team_members").
		WithArgs("team-1", "user-1", models.RoleAdmin).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET default_team_id").
		WithArgs("user-1", "team-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	team, err := repo.ProvisionDefaultTeam(context.Background(), "user-1", "Ada's Team")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != "team-1" {
		t.Errorf("expected team id team-1, got %s", team.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProvisionDefaultTeam_ConcurrentLoserGetsSentinel(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO teams").
		WillReturnRows(teamRow("team-2", "Ada's Team"))
	mock.ExpectExec("INSERT INTO team_members").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "team_members_user_default_uq"})
	mock.ExpectRollback()

	_, err := repo.ProvisionDefaultTeam(context.Background(), "user-1", "Ada's Team")
	if !errors.Is(err, ErrDefaultMembershipExists) {
		t.Fatalf("expected ErrDefaultMembershipExists, got %v", err)
	}
}

func TestProvisionDefaultTeam_OtherInsertErrorPropagates(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO teams").
		WillReturnRows(teamRow("team-3", "Ada's Team"))
	mock.ExpectExec("INSERT INTO team_members").WillReturnError(errTeamDB)
	mock.ExpectRollback()

	_, err := repo.ProvisionDefaultTeam(context.Background(), "user-1", "Ada's Team")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrDefaultMembershipExists) {
		t.Fatal("plain db error must not map to the sentinel")
	}
}

// ---------------------------------------------------------------------------
// Memberships
// ---------------------------------------------------------------------------

func TestGetMembership_NotFound(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectQuery("SELECT team_id, user_id, role, is_default").
		WithArgs("team-1", "stranger").
		WillReturnRows(sqlmock.NewRows(memberCols))

	m, err := repo.GetMembership(context.Background(), "team-1", "stranger")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil membership, got %+v", m)
	}
}

func TestFirstMembership_PicksOldest(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectQuery("ORDER BY created_at ASC").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(memberCols).
			AddRow("team-old", "user-1", models.RoleMember, false, time.Now()))

	m, err := repo.FirstMembership(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || m.TeamID != "team-old" {
		t.Fatalf("expected membership in team-old, got %+v", m)
	}
}

func TestRemoveMember_ClearsCachedTeamID(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM team_members").
		WithArgs("team-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET default_team_id = NULL").
		WithArgs("user-1", "team-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.RemoveMember(context.Background(), "team-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Error("expected removed = true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRemoveMember_NotAMember(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM team_members").
		WithArgs("team-1", "stranger").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	removed, err := repo.RemoveMember(context.Background(), "team-1", "stranger")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Error("expected removed = false")
	}
}

// ---------------------------------------------------------------------------
// Invites
// ---------------------------------------------------------------------------

func TestMarkInviteAccepted_Pending(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectExec("UPDATE invites SET accepted_at").
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkInviteAccepted(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected accepted = true")
	}
}

func TestMarkInviteAccepted_ExpiredOrUsed(t *testing.T) {
	repo, mock := newTeamRepo(t)
	mock.ExpectExec("UPDATE invites SET accepted_at").
		WithArgs("inv-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkInviteAccepted(context.Background(), "inv-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected accepted = false for expired or used invite")
	}
}
