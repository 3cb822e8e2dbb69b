package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/reefacademy/progression-hub/internal/application/command"
	"github.com/reefacademy/progression-hub/internal/application/query"
	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
)

const (
	testUser  = "aa111111-1111-4111-8111-111111111111"
	testAdmin = "swim-master-token"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo := memory.NewProgressionRepo()
	board := memory.NewLeaderboardStore()
	catalog := progression.DefaultCatalog()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdmin), bcrypt.MinCost)
	assert.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.AdminTokenHash = string(hash)

	return NewServer(cfg, Dependencies{
		RecordEventHandler:     command.NewRecordEventHandler(repo, board, catalog, nil),
		RegisterUserHandler:    command.NewRegisterUserHandler(repo, nil),
		AdjustPointsHandler:    command.NewAdjustPointsHandler(repo, board, catalog, nil),
		GetProgressionHandler:  query.NewGetProgressionHandler(repo, board, catalog),
		GetPointHistoryHandler: query.NewGetPointHistoryHandler(repo),
		GetLeaderboardHandler:  query.NewGetLeaderboardHandler(board),
	})
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, JSONResponse) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp JSONResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestServer_RegisterUserIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	body := `{"user_id":"` + testUser + `"}`

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/users", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = doJSON(t, s, http.MethodPost, "/api/v1/users", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["already_registered"])
}

func TestServer_RecordEventAwardsPoints(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/users", `{"user_id":"`+testUser+`"}`, nil)

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/events",
		`{"user_id":"`+testUser+`","type":"lesson_completed"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	// 50 for the lesson plus the 10-point first-activity achievement.
	assert.Equal(t, float64(60), data["points_awarded"])
	assert.Equal(t, float64(60), data["total_points"])
	assert.Equal(t, float64(1), data["streak"])
}

func TestServer_RecordEventValidation(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/events", `{"user_id":"`+testUser+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "validation_error", resp.Error.Code)

	rec, resp = doJSON(t, s, http.MethodPost, "/api/v1/events", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", resp.Error.Code)
}

func TestServer_GetProgressionUnknownUser(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodGet,
		"/api/v1/users/bb222222-2222-4222-8222-222222222222/progression", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestServer_GetProgressionSnapshot(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/users", `{"user_id":"`+testUser+`"}`, nil)
	doJSON(t, s, http.MethodPost, "/api/v1/events",
		`{"user_id":"`+testUser+`","type":"lesson_completed"}`, nil)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/v1/users/"+testUser+"/progression", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(60), data["total_points"])
	assert.Equal(t, float64(1), data["level"])
}

func TestServer_LeaderboardBadKey(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/v1/leaderboard?key=charisma", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestServer_LeaderboardRanksUsers(t *testing.T) {
	s := newTestServer(t)
	second := "bb222222-2222-4222-8222-222222222222"

	for _, id := range []string{testUser, second} {
		doJSON(t, s, http.MethodPost, "/api/v1/users", `{"user_id":"`+id+`"}`, nil)
		doJSON(t, s, http.MethodPost, "/api/v1/events",
			`{"user_id":"`+id+`","type":"lesson_completed"}`, nil)
	}
	// Push the second user ahead.
	doJSON(t, s, http.MethodPost, "/api/v1/events",
		`{"user_id":"`+second+`","type":"quiz_scored","quiz_score":90}`, nil)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/v1/leaderboard", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	entries := data["entries"].([]interface{})
	assert.Len(t, entries, 2)

	top := entries[0].(map[string]interface{})
	assert.Equal(t, second, top["user_id"])
	assert.Equal(t, float64(1), top["rank"])
}

func TestServer_AdminAdjustmentRequiresToken(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/users", `{"user_id":"`+testUser+`"}`, nil)

	body := `{"user_id":"` + testUser + `","delta":25,"reason":"manual review","adjusted_by":"ops"}`

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/admin/adjustments", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, resp = doJSON(t, s, http.MethodPost, "/api/v1/admin/adjustments", body,
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = doJSON(t, s, http.MethodPost, "/api/v1/admin/adjustments", body,
		map[string]string{"X-Admin-Token": testAdmin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(25), data["total_points"])
}

func TestServer_HealthAndRoot(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, _ = doJSON(t, s, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, s, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
