package accounts

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func newOnboardingRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	mock, teamRepo, _ := newMockDB(t)

	h := NewOnboardingHandlers(teamRepo)

	r := gin.New()
	r.Use(withIdentity("user-1", "team-1"))
	r.GET("/onboarding", h.GetState)
	r.POST("/onboarding/advance", h.Advance)
	r.POST("/onboarding/back", h.Back)
	r.POST("/onboarding/jump", h.Jump)
	return mock, r
}

func teamRowAtStep(step int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(teamCols).
		AddRow("team-1", "The Martins", "free", step, now, now)
}

func stateFrom(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	state, ok := resp["state"].(map[string]interface{})
	if !ok {
		t.Fatalf("response missing state object: %v", resp)
	}
	return state
}

func TestGetState_MidFlow(t *testing.T) {
	mock, r := newOnboardingRouter(t)

	mock.ExpectQuery("SELECT.*FROM teams WHERE id").
		WillReturnRows(teamRowAtStep(2))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/onboarding", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if state := stateFrom(t, resp); state["current_step"] != float64(2) {
		t.Errorf("current_step = %v, want 2", state["current_step"])
	}
	if resp["done"] != false {
		t.Errorf("done = %v, want false", resp["done"])
	}
}

func TestGetState_ClampsCorruptStep(t *testing.T) {
	mock, r := newOnboardingRouter(t)

	// A persisted step beyond the flow is clamped, never an error.
	mock.ExpectQuery("SELECT.*FROM teams WHERE id").
		WillReturnRows(teamRowAtStep(99))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/onboarding", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := getJSON(w)
	if state := stateFrom(t, resp); state["current_step"] != float64(4) {
		t.Errorf("current_step = %v, want clamped to 4", state["current_step"])
	}
	if resp["done"] != true {
		t.Errorf("done = %v, want true", resp["done"])
	}
}

func TestAdvance_PersistsNextStep(t *testing.T) {
	mock, r := newOnboardingRouter(t)

	mock.ExpectQuery("SELECT.*FROM teams WHERE id").
		WillReturnRows(teamRowAtStep(1))
	mock.ExpectExec("UPDATE teams SET onboarding_step").
		WithArgs("team-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/onboarding/advance", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	if state := stateFrom(t, getJSON(w)); state["current_step"] != float64(2) {
		t.Errorf("current_step = %v, want 2", state["current_step"])
	}
}

func TestAdvance_StaysOnFinalStep(t *testing.T) {
	mock, r := newOnboardingRouter(t)

	mock.ExpectQuery("SELECT.*FROM teams WHERE id").
		WillReturnRows(teamRowAtStep(4))
	mock.ExpectExec("UPDATE teams SET onboarding_step").
		WithArgs("team-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/onboarding/advance", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp := getJSON(w); resp["done"] != true {
		t.Errorf("done = %v, want true", resp["done"])
	}
}

func TestBack_StaysOnFirstStep(t *testing.T) {
	mock, r := newOnboardingRouter(t)

	mock.ExpectQuery("SELECT.*FROM teams WHERE id").
		WillReturnRows(teamRowAtStep(0))
	mock.ExpectExec("UPDATE teams SET onboarding_step").
		WithArgs("team-1", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/onboarding/back", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if state := stateFrom(t, getJSON(w)); state["current_step"] != float64(0) {
		t.Errorf("current_step = %v, want 0", state["current_step"])
	}
}

func TestJump_OutOfRange(t *testing.T) {
	mock, r := newOnboardingRouter(t)

	mock.ExpectQuery("SELECT.*FROM teams WHERE id").
		WillReturnRows(teamRowAtStep(0))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/onboarding/jump", jsonBody(map[string]int{"step": 42}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: body=%s", w.Code, w.Body.String())
	}
}

func TestJump_MissingStep(t *testing.T) {
	_, r := newOnboardingRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/onboarding/jump", jsonBody(map[string]string{}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestJump_ToValidStep(t *testing.T) {
	mock, r := newOnboardingRouter(t)

	mock.ExpectQuery("SELECT.*FROM teams WHERE id").
		WillReturnRows(teamRowAtStep(0))
	mock.ExpectExec("UPDATE teams SET onboarding_step").
		WithArgs("team-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/onboarding/jump", jsonBody(map[string]int{"step": 3}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	if state := stateFrom(t, getJSON(w)); state["current_step"] != float64(3) {
		t.Errorf("current_step = %v, want 3", state["current_step"])
	}
}
