// Package handlers provides HTTP handlers for the user profile.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/modules/profile"
)

// Handler handles profile HTTP requests
type Handler struct {
	service *profile.Service
	log     zerolog.Logger
}

// NewHandler creates a new profile handler
func NewHandler(service *profile.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "profile").Logger(),
	}
}

// HandleGetProfile handles GET /api/profile
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleUpdateProfile handles PUT /api/profile
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.service.Update(r.Context(), update)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("Profile request failed")
	}
	h.writeError(w, status, domain.UserMessage(err))
}
