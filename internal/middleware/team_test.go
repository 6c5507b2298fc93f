package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/identity"
)

type stubUserStore struct {
	user *models.User
}

func (s *stubUserStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.user, nil
}

func (s *stubUserStore) SetDefaultTeam(ctx context.Context, userID string, teamID *string) error {
	return nil
}

type stubTeamStore struct {
	membership   *models.TeamMember
	provisionErr error
}

func (s *stubTeamStore) FirstMembership(ctx context.Context, userID string) (*models.TeamMember, error) {
	return s.membership, nil
}

func (s *stubTeamStore) ProvisionDefaultTeam(ctx context.Context, userID, teamName string) (*models.Team, error) {
	if s.provisionErr != nil {
		return nil, s.provisionErr
	}
	return &models.Team{ID: "team-provisioned", Name: teamName}, nil
}

func newTeamRouter(resolver *identity.Resolver, userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(UserIDContextKey, userID)
		}
	})
	r.Use(TeamMiddleware(resolver))
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"team_id": TeamID(c)})
	})
	return r
}

func TestTeamMiddleware_SetsResolvedTeam(t *testing.T) {
	teamID := "team-1"
	resolver := identity.NewResolver(
		&stubUserStore{user: &models.User{ID: "user-1", Email: "ada@example.com", DefaultTeamID: &teamID}},
		&stubTeamStore{},
	)
	r := newTeamRouter(resolver, "user-1")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"team_id":"team-1"}` {
		t.Errorf("body = %s, want team-1", body)
	}
}

func TestTeamMiddleware_NoUserInContext(t *testing.T) {
	resolver := identity.NewResolver(&stubUserStore{}, &stubTeamStore{})
	r := newTeamRouter(resolver, "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestTeamMiddleware_UnknownUser(t *testing.T) {
	resolver := identity.NewResolver(&stubUserStore{user: nil}, &stubTeamStore{})
	r := newTeamRouter(resolver, "ghost")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestTeamMiddleware_ResolutionFailureFailsClosed(t *testing.T) {
	resolver := identity.NewResolver(
		&stubUserStore{user: &models.User{ID: "user-1", Email: "ada@example.com"}},
		&stubTeamStore{provisionErr: errors.New("teams table busy")},
	)
	r := newTeamRouter(resolver, "user-1")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 (no fallback team)", w.Code)
	}
}
