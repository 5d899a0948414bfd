package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/modules/agents"
	"github.com/aristath/paperdesk/internal/session"
)

type stubAgents struct {
	activeFilter []bool
	links        [][2]int64
}

func (s *stubAgents) ListAgents(_ context.Context, activeOnly bool) ([]domain.Agent, error) {
	s.activeFilter = append(s.activeFilter, activeOnly)
	return []domain.Agent{{ID: 3, FirstName: "Ana", Active: true}}, nil
}

func (s *stubAgents) GetAgent(_ context.Context, agentID int64) (*domain.Agent, error) {
	if agentID == 404 {
		return nil, &domain.BackendError{Op: "get_agent", Status: http.StatusNotFound}
	}
	return &domain.Agent{ID: agentID, Active: agentID != 9}, nil
}

func (s *stubAgents) LinkTrader(_ context.Context, traderID, agentID int64) (string, error) {
	s.links = append(s.links, [2]int64{traderID, agentID})
	return "Vinculado", nil
}

func (s *stubAgents) AssociatedTraders(context.Context, int64) ([]domain.AssociatedTrader, error) {
	return []domain.AssociatedTrader{{ID: 7, Active: true}}, nil
}

func setupRouter(backend *stubAgents) http.Handler {
	router := chi.NewRouter()
	router.Use(session.Middleware)
	NewHandler(agents.NewService(backend, nil, zerolog.Nop()), zerolog.Nop()).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path string, role domain.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(session.HeaderUserID, "7")
	req.Header.Set(session.HeaderUserRole, string(role))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleListAgents_ActiveQuery(t *testing.T) {
	backend := &stubAgents{}
	rec := do(setupRouter(backend), http.MethodGet, "/agents?active=true", domain.RoleTrader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []bool{true}, backend.activeFilter)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])
}

func TestHandleLink(t *testing.T) {
	backend := &stubAgents{}
	router := setupRouter(backend)

	rec := do(router, http.MethodPost, "/agents/3/link", domain.RoleTrader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][2]int64{{7, 3}}, backend.links)

	tests := []struct {
		name   string
		path   string
		role   domain.Role
		status int
	}{
		{"inactive agent", "/agents/9/link", domain.RoleTrader, http.StatusBadRequest},
		{"unknown agent", "/agents/404/link", domain.RoleTrader, http.StatusNotFound},
		{"bad id", "/agents/abc/link", domain.RoleTrader, http.StatusBadRequest},
		{"agent role", "/agents/3/link", domain.RoleAgent, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, tt.path, tt.role)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Len(t, backend.links, 1)
}

func TestHandleListTraders(t *testing.T) {
	router := setupRouter(&stubAgents{})

	rec := do(router, http.MethodGet, "/agents/traders", domain.RoleAgent)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/agents/traders", domain.RoleTrader)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoutesRegistered(t *testing.T) {
	router := setupRouter(&stubAgents{})
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/agents"},
		{http.MethodGet, "/agents/3"},
		{http.MethodGet, "/agents/traders"},
		{http.MethodPost, "/agents/3/link"},
	}
	for _, route := range routes {
		rec := do(router, route.method, route.path, domain.RoleAgent)
		assert.NotEqual(t, http.StatusNotFound, rec.Code, route.path)
		assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, route.path)
	}
}
