package accounts

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/middleware"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	// Set JWT secret for tests that exercise GenerateJWT (e.g. RefreshHandler)
	os.Setenv("FV_JWT_SECRET", "test-accounts-jwt-secret-32chars!!!!")
	os.Exit(m.Run())
}

// newMockDB returns a sqlmock-backed database closed at test cleanup.
func newMockDB(t *testing.T) (sqlmock.Sqlmock, *repositories.TeamRepository, *repositories.UserRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, repositories.NewTeamRepository(db), repositories.NewUserRepository(db)
}

// newTestRecorder returns a recorder over its own throwaway mock database.
// Activity writes are best-effort, so the unexpected-query errors the mock
// produces are swallowed by the recorder.
func newTestRecorder(t *testing.T) *activity.Recorder {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	recorder := activity.NewRecorder(
		repositories.NewActivityRepository(sqlx.NewDb(db, "postgres")), nil)
	t.Cleanup(func() {
		recorder.Close()
		db.Close()
	})
	return recorder
}

// withIdentity simulates the auth and team middleware for handler tests.
func withIdentity(userID, teamID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, userID)
		c.Set(middleware.TeamIDContextKey, teamID)
		c.Next()
	}
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

// errDB is a sentinel error for DB failures in tests.
var errDB = &dbError{"database error"}

type dbError struct{ msg string }

func (e *dbError) Error() string { return e.msg }
