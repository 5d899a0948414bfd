package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/modules/profile"
	"github.com/aristath/paperdesk/internal/session"
)

type stubProfiles struct {
	taken string
}

func (s *stubProfiles) GetProfile(_ context.Context, userID int64) (*domain.Profile, error) {
	return &domain.Profile{ID: userID, FirstName: "Ana", Email: "ana@example.com", Active: true}, nil
}

func (s *stubProfiles) UpdateProfile(_ context.Context, userID int64, u domain.ProfileUpdate) (*domain.Profile, error) {
	if u.Email == s.taken {
		return nil, &domain.BackendError{Op: "update_profile", Status: http.StatusConflict}
	}
	return &domain.Profile{ID: userID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Phone: u.Phone}, nil
}

func setupRouter() http.Handler {
	router := chi.NewRouter()
	router.Use(session.Middleware)
	service := profile.NewService(&stubProfiles{taken: "taken@example.com"}, nil, zerolog.Nop())
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, body string, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/profile", strings.NewReader(body))
	if authenticated {
		req.Header.Set(session.HeaderUserID, "7")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleGetProfile(t *testing.T) {
	router := setupRouter()

	rec := do(router, http.MethodGet, "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var p domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, int64(7), p.ID)

	rec = do(router, http.MethodGet, "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleUpdateProfile(t *testing.T) {
	router := setupRouter()

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{
			name:   "valid",
			body:   `{"first_name":"Ana","last_name":"Rojas","email":"ana@example.com","phone":"3001234567"}`,
			status: http.StatusOK,
		},
		{
			name:    "invalid phone",
			body:    `{"first_name":"Ana","last_name":"Rojas","email":"ana@example.com","phone":"12"}`,
			status:  http.StatusBadRequest,
			message: "phone: must have exactly 10 digits",
		},
		{
			name:    "email in use",
			body:    `{"first_name":"Ana","last_name":"Rojas","email":"taken@example.com","phone":"3001234567"}`,
			status:  http.StatusConflict,
			message: domain.MsgEmailAlreadyInUse,
		},
		{
			name:    "malformed body",
			body:    `{`,
			status:  http.StatusBadRequest,
			message: "Invalid request body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPut, tt.body, true)
			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}
