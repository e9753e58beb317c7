package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/auth"
	"github.com/puttworks/putt-server-go/internal/config"
	"github.com/puttworks/putt-server-go/internal/game"
	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/repository"
	"github.com/puttworks/putt-server-go/internal/round"
	"github.com/puttworks/putt-server-go/internal/session"
)

type memPlayers struct {
	byName map[string]*repository.Player
}

func newMemPlayers() *memPlayers {
	return &memPlayers{byName: make(map[string]*repository.Player)}
}

func (m *memPlayers) Create(_ context.Context, name, hash string) (*repository.Player, error) {
	if _, ok := m.byName[name]; ok {
		return nil, repository.ErrAlreadyExists
	}
	p := &repository.Player{ID: "id-" + name, Name: name, PasswordHash: hash, CreatedAt: time.Now()}
	m.byName[name] = p
	return p, nil
}

func (m *memPlayers) GetByName(_ context.Context, name string) (*repository.Player, error) {
	p, ok := m.byName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

type memHistory struct {
	rounds  []repository.RoundRecord
	entries []repository.LeaderboardEntry
}

func (m *memHistory) ListByPlayer(_ context.Context, playerID string, _ int) ([]repository.RoundRecord, error) {
	var out []repository.RoundRecord
	for _, r := range m.rounds {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memHistory) Scorecard(_ context.Context, _ string) ([]game.HoleScore, error) {
	return nil, nil
}

func (m *memHistory) Leaderboard(_ context.Context, _ string, _ int) ([]repository.LeaderboardEntry, error) {
	return m.entries, nil
}

type testAPI struct {
	router   *gin.Engine
	players  *memPlayers
	history  *memHistory
	rounds   *round.Manager
	issuer   *auth.TokenIssuer
	sessions *session.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		Game: config.GameConfig{
			TickRate: 120, SnapshotRate: 60,
			MaxStrikePower: 8, HazardResetDelay: 0.8,
			IdleTimeout: time.Minute, PersistWorkers: 2,
		},
	}
	issuer, err := auth.NewTokenIssuer("test-secret", "putt-test", time.Hour)
	require.NoError(t, err)
	rounds, err := round.NewManager(cfg.Game, nil, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(rounds.Shutdown)

	players := newMemPlayers()
	history := &memHistory{}
	sessions := session.NewManager(time.Minute, zap.NewNop())
	srv := NewServer(cfg, players, history, nil, rounds, sessions, issuer,
		[]*course.Course{course.Default()}, nil, zap.NewNop())

	return &testAPI{
		router:   srv.Router(),
		players:  players,
		history:  history,
		rounds:   rounds,
		issuer:   issuer,
		sessions: sessions,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "alice", "password": "hunter2hunter2"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "alice", body["name"])

	w = a.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "alice", "password": "hunter2hunter2"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"name": "alice", "password": "hunter2hunter2"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"name": "alice", "password": "wrongwrongwrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "x", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCourses(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/api/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Courses []courseSummary `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Courses, 1)
	assert.Equal(t, "classic-nine", body.Courses[0].ID)
	assert.Equal(t, 9, body.Courses[0].Holes)
	assert.Greater(t, body.Courses[0].Par, 0)
}

func TestGetCourse(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/api/v1/courses/classic-nine", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/courses/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (a *testAPI) register(t *testing.T, name string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": name, "password": "hunter2hunter2"})
	require.Equal(t, http.StatusCreated, w.Code)
	return decode(t, w)["token"].(string)
}

func TestCreateRoundRequiresAuth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodPost, "/api/v1/rounds", "",
		map[string]string{"courseId": "classic-nine"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRoundLifecycle(t *testing.T) {
	a := newTestAPI(t)
	token := a.register(t, "alice")

	w := a.do(t, http.MethodPost, "/api/v1/rounds", token,
		map[string]string{"courseId": "classic-nine"})
	require.Equal(t, http.StatusCreated, w.Code)
	roundID := decode(t, w)["roundId"].(string)
	require.NotEmpty(t, roundID)

	// One live round per player.
	w = a.do(t, http.MethodPost, "/api/v1/rounds", token,
		map[string]string{"courseId": "classic-nine"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Live round visible to its owner.
	w = a.do(t, http.MethodGet, "/api/v1/rounds/"+roundID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Invisible to anyone else.
	other := a.register(t, "bob")
	w = a.do(t, http.MethodGet, "/api/v1/rounds/"+roundID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Close and recreate.
	w = a.do(t, http.MethodDelete, "/api/v1/rounds/"+roundID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodPost, "/api/v1/rounds", token,
		map[string]string{"courseId": "classic-nine"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateRoundUnknownCourse(t *testing.T) {
	a := newTestAPI(t)
	token := a.register(t, "alice")
	w := a.do(t, http.MethodPost, "/api/v1/rounds", token,
		map[string]string{"courseId": "the-moon"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaderboard(t *testing.T) {
	a := newTestAPI(t)
	a.history.entries = []repository.LeaderboardEntry{
		{PlayerID: "id-alice", PlayerName: "alice", TotalStrokes: 21},
	}

	w := a.do(t, http.MethodGet, "/api/v1/leaderboard/classic-nine", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Entries []repository.LeaderboardEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "alice", body.Entries[0].PlayerName)

	w = a.do(t, http.MethodGet, "/api/v1/leaderboard/the-moon", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoundHistory(t *testing.T) {
	a := newTestAPI(t)
	token := a.register(t, "alice")
	a.history.rounds = []repository.RoundRecord{
		{ID: "r1", PlayerID: "id-alice", CourseID: "classic-nine", TotalStrokes: 25},
		{ID: "r2", PlayerID: "id-bob", CourseID: "classic-nine", TotalStrokes: 30},
	}

	w := a.do(t, http.MethodGet, "/api/v1/rounds/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Rounds []repository.RoundRecord `json:"rounds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Rounds, 1)
	assert.Equal(t, "r1", body.Rounds[0].ID)
}
