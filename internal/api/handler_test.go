//nolint:noctx // Test file uses http.NewRequest for simplicity
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intinc/interact-engine/internal/auth"
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/service/badges"
	"github.com/intinc/interact-engine/internal/service/leaderboard"
	"github.com/intinc/interact-engine/internal/service/points"
	"github.com/intinc/interact-engine/internal/service/rules"
	"github.com/intinc/interact-engine/pkg/logger"
)

type mockEngine struct {
	triggers []rules.Trigger
	result   *rules.Result
}

func (m *mockEngine) Execute(_ context.Context, trigger *rules.Trigger) (*rules.Result, error) {
	m.triggers = append(m.triggers, *trigger)
	if m.result != nil {
		return m.result, nil
	}
	return &rules.Result{}, nil
}

type mockPointsService struct {
	adjusted map[string]int
	err      error
}

func (m *mockPointsService) Adjust(_ context.Context, email string, amount int, _ string) (*points.ApplyResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.adjusted == nil {
		m.adjusted = make(map[string]int)
	}
	m.adjusted[email] += amount
	return &points.ApplyResult{Points: &models.UserPoints{UserEmail: email, TotalPoints: m.adjusted[email]}}, nil
}

func (m *mockPointsService) AwardForParticipation(_ context.Context, id uint, awardType string) (*points.ApplyResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &points.ApplyResult{Points: &models.UserPoints{UserEmail: "alice@corp.test", TotalPoints: 10}}, nil
}

type mockBadgeService struct {
	evaluated []string
	awardErr  error
	catalog   []badges.CatalogEntry
	userAward map[string][]models.BadgeAward
}

func (m *mockBadgeService) EvaluateUser(_ context.Context, email string) (int, error) {
	m.evaluated = append(m.evaluated, email)
	return 0, nil
}

func (m *mockBadgeService) AwardManual(_ context.Context, email string, badgeID uint) error {
	return m.awardErr
}

func (m *mockBadgeService) ListCatalog() ([]badges.CatalogEntry, error) {
	return m.catalog, nil
}

func (m *mockBadgeService) UserBadges(email string) ([]models.BadgeAward, error) {
	return m.userAward[email], nil
}

type mockLeaderboardService struct {
	entries []leaderboard.Entry
	stats   map[string]*leaderboard.UserStats
}

func (m *mockLeaderboardService) GetLeaderboard(period string, limit int) ([]leaderboard.Entry, error) {
	return m.entries, nil
}

func (m *mockLeaderboardService) GetUserStats(email string) (*leaderboard.UserStats, error) {
	if s, ok := m.stats[email]; ok {
		return s, nil
	}
	return &leaderboard.UserStats{UserEmail: email, Level: 1}, nil
}

type mockRuleAdmin struct {
	rules []models.GamificationRule
}

func (m *mockRuleAdmin) List() ([]models.GamificationRule, error) {
	return m.rules, nil
}

type mockBadgeLookup struct {
	badges  map[uint]*models.Badge
	holders map[uint][]string
}

func (m *mockBadgeLookup) GetByID(id uint) (*models.Badge, error) {
	return m.badges[id], nil
}

func (m *mockBadgeLookup) GetHolders(id uint) ([]string, error) {
	return m.holders[id], nil
}

type mockUserStore struct {
	users map[string]*models.User
}

func (m *mockUserStore) GetByEmail(email string) (*models.User, error) {
	return m.users[email], nil
}

type testEnv struct {
	router *gin.Engine
	engine *mockEngine
	points *mockPointsService
	badges *mockBadgeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("error", "console", "")
	users := &mockUserStore{users: map[string]*models.User{
		"admin@corp.test":    {Email: "admin@corp.test", Role: "admin"},
		"employee@corp.test": {Email: "employee@corp.test", Role: "employee"},
	}}
	guard := auth.NewGuard(users, []string{"owner@corp.test"}, log)

	env := &testEnv{
		engine: &mockEngine{},
		points: &mockPointsService{},
		badges: &mockBadgeService{},
	}

	handler := NewHandler(
		env.engine,
		env.points,
		env.badges,
		&mockLeaderboardService{entries: []leaderboard.Entry{{Rank: 1, UserEmail: "alice@corp.test", Points: 100}}},
		&mockRuleAdmin{rules: []models.GamificationRule{{ID: 1, Name: "welcome"}}},
		&mockBadgeLookup{
			badges:  map[uint]*models.Badge{1: {ID: 1, Name: "Event Regular"}},
			holders: map[uint][]string{1: {"alice@corp.test"}},
		},
		nil,
		guard,
		nil,
		log,
	)

	env.router = gin.New()
	handler.RegisterRoutes(env.router)
	return env
}

func doRequest(router *gin.Engine, method, path, callerEmail string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if callerEmail != "" {
		req.Header.Set(headerAuthEmail, callerEmail)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExecuteRules(t *testing.T) {
	t.Run("admin can execute", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/rules/execute", "admin@corp.test", gin.H{
			"entity":     "participation",
			"entity_id":  "7",
			"user_email": "alice@corp.test",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, env.engine.triggers, 1)
		assert.Equal(t, "participation", env.engine.triggers[0].Entity)
		assert.Equal(t, "alice@corp.test", env.engine.triggers[0].UserEmail)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(0), body["executed_rules"])
	})

	t.Run("employee is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/rules/execute", "employee@corp.test", gin.H{
			"entity":     "participation",
			"user_email": "alice@corp.test",
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, env.engine.triggers)
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/rules/execute", "", gin.H{
			"entity":     "participation",
			"user_email": "alice@corp.test",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("entity is optional for user-level triggers", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/rules/execute", "admin@corp.test", gin.H{
			"user_email": "alice@corp.test",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, env.engine.triggers, 1)
		assert.Equal(t, "", env.engine.triggers[0].Entity)
		assert.Equal(t, "alice@corp.test", env.engine.triggers[0].UserEmail)
	})

	t.Run("unknown entity is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/rules/execute", "admin@corp.test", gin.H{
			"entity":     "payroll",
			"user_email": "alice@corp.test",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing user email is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/rules/execute", "admin@corp.test", gin.H{
			"entity": "participation",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdjustPoints(t *testing.T) {
	t.Run("owner can adjust and badges are re-evaluated", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/points/adjust", "owner@corp.test", gin.H{
			"user_email": "alice@corp.test",
			"amount":     50,
			"reason":     "hackathon prize",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 50, env.points.adjusted["alice@corp.test"])
		assert.Equal(t, []string{"alice@corp.test"}, env.badges.evaluated)
	})

	t.Run("invalid amount maps to 400", func(t *testing.T) {
		env := newTestEnv(t)
		env.points.err = points.ErrInvalidAmount
		w := doRequest(env.router, http.MethodPost, "/api/v1/points/adjust", "admin@corp.test", gin.H{
			"user_email": "alice@corp.test",
			"amount":     -5,
			"reason":     "oops",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("employee is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/points/adjust", "employee@corp.test", gin.H{
			"user_email": "alice@corp.test",
			"amount":     50,
			"reason":     "nice try",
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAwardParticipation(t *testing.T) {
	t.Run("already awarded maps to 409", func(t *testing.T) {
		env := newTestEnv(t)
		env.points.err = points.ErrAlreadyAwarded
		w := doRequest(env.router, http.MethodPost, "/api/v1/participations/7/award", "admin@corp.test", gin.H{
			"award_type": "attendance",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("successful award evaluates badges", func(t *testing.T) {
		env := newTestEnv(t)
		w := doRequest(env.router, http.MethodPost, "/api/v1/participations/7/award", "admin@corp.test", gin.H{
			"award_type": "attendance",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"alice@corp.test"}, env.badges.evaluated)
	})
}

func TestAwardBadgeConflict(t *testing.T) {
	env := newTestEnv(t)
	env.badges.awardErr = badges.ErrAlreadyHolding
	w := doRequest(env.router, http.MethodPost, "/api/v1/badges/1/award", "admin@corp.test", gin.H{
		"user_email": "alice@corp.test",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReadEndpointsAreOpen(t *testing.T) {
	env := newTestEnv(t)

	w := doRequest(env.router, http.MethodGet, "/api/v1/leaderboard", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(env.router, http.MethodGet, "/api/v1/users/alice@corp.test/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(env.router, http.MethodGet, "/api/v1/badges", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(env.router, http.MethodGet, "/api/v1/badges/1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(env.router, http.MethodGet, "/api/v1/badges/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRulesRequiresManagePermission(t *testing.T) {
	env := newTestEnv(t)

	w := doRequest(env.router, http.MethodGet, "/api/v1/rules", "admin@corp.test", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["total"])

	w = doRequest(env.router, http.MethodGet, "/api/v1/rules", "employee@corp.test", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := doRequest(env.router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
