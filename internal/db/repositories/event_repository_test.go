package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newEventRepo(t *testing.T) (*EventRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEventRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var eventCols = []string{"id", "team_id", "title", "starts_at", "ends_at", "location", "notes", "created_at", "updated_at", "deleted_at"}

func eventRow(id, teamID, title string, startsAt time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(eventCols).
		AddRow(id, teamID, title, startsAt, nil, "", "", now, now, nil)
}

// ---------------------------------------------------------------------------
// ListActive
// ---------------------------------------------------------------------------

func TestEventListActive_NoWindow(t *testing.T) {
	repo, mock := newEventRepo(t)
	mock.ExpectQuery(`ORDER BY starts_at ASC LIMIT \$2 OFFSET \$3`).
		WithArgs("team-1", 50, 0).
		WillReturnRows(eventRow("event-1", "team-1", "Dentist", time.Now().Add(24*time.Hour)))

	events, err := repo.ListActive(context.Background(), "team-1", nil, nil, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestEventListActive_Window(t *testing.T) {
	repo, mock := newEventRepo(t)
	from := time.Now()
	to := from.Add(7 * 24 * time.Hour)
	mock.ExpectQuery(`AND starts_at.*LIMIT \$4 OFFSET \$5`).
		WithArgs("team-1", from, to, 50, 0).
		WillReturnRows(eventRow("event-1", "team-1", "Dentist", from.Add(time.Hour)))

	events, err := repo.ListActive(context.Background(), "team-1", &from, &to, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestEventListActive_SecondPage(t *testing.T) {
	repo, mock := newEventRepo(t)
	mock.ExpectQuery(`LIMIT \$2 OFFSET \$3`).
		WithArgs("team-1", 25, 25).
		WillReturnRows(eventRow("event-26", "team-1", "School recital", time.Now()))

	events, err := repo.ListActive(context.Background(), "team-1", nil, nil, Page{Limit: 25, Offset: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

// ---------------------------------------------------------------------------
// GetByID / Archive
// ---------------------------------------------------------------------------

func TestEventGetByID_NotFound(t *testing.T) {
	repo, mock := newEventRepo(t)
	mock.ExpectQuery("FROM events WHERE id").
		WithArgs("missing", "team-1").
		WillReturnRows(sqlmock.NewRows(eventCols))

	event, err := repo.GetByID(context.Background(), "team-1", "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Errorf("expected nil event, got %+v", event)
	}
}

func TestEventArchive_Idempotent(t *testing.T) {
	repo, mock := newEventRepo(t)
	deleted := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows(eventCols).
		AddRow("event-1", "team-1", "Dentist", time.Now(), nil, "", "", time.Now(), time.Now(), &deleted)
	mock.ExpectQuery("UPDATE events SET deleted_at").
		WithArgs("event-1", "team-1").
		WillReturnRows(rows)

	event, err := repo.Archive(context.Background(), "team-1", "event-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil || event.DeletedAt == nil {
		t.Fatal("expected archived event with DeletedAt preserved")
	}
	if !event.DeletedAt.Equal(deleted) {
		t.Error("repeat archive must keep the original deleted_at")
	}
}
