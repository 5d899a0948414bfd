// Package handlers provides HTTP handlers for the agent directory.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/modules/agents"
)

// Handler handles agent HTTP requests
type Handler struct {
	service *agents.Service
	log     zerolog.Logger
}

// NewHandler creates a new agents handler
func NewHandler(service *agents.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "agents").Logger(),
	}
}

// HandleListAgents handles GET /api/agents
func (h *Handler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), activeOnly(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": list,
		"count":  len(list),
	})
}

// HandleGetAgent handles GET /api/agents/{id}
func (h *Handler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.agentID(w, r)
	if !ok {
		return
	}
	agent, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, agent)
}

// HandleLink handles POST /api/agents/{id}/link
func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.agentID(w, r)
	if !ok {
		return
	}
	message, err := h.service.Link(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  message,
		"agent_id": id,
	})
}

// HandleListTraders handles GET /api/agents/traders
func (h *Handler) HandleListTraders(w http.ResponseWriter, r *http.Request) {
	traders, err := h.service.AssociatedTraders(r.Context(), activeOnly(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"traders": traders,
		"count":   len(traders),
	})
}

func activeOnly(r *http.Request) bool {
	active, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	return active
}

func (h *Handler) agentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid agent id")
		return 0, false
	}
	return id, true
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
		h.log.Error().Err(err).Int("status", status).Msg("Agent request failed")
	}
	h.writeError(w, status, domain.UserMessage(err))
}
