// Package handlers provides HTTP handlers for market data.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/modules/market"
)

// Handler handles market HTTP requests
type Handler struct {
	service *market.Service
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service *market.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleGetCatalogue handles GET /api/market/catalogue
func (h *Handler) HandleGetCatalogue(w http.ResponseWriter, r *http.Request) {
	markets := h.service.Catalogue()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"markets": markets,
		"count":   len(markets),
	})
}

// HandleGetListing handles GET /api/market/listing
func (h *Handler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.service.Listing(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": quotes,
		"count":  len(quotes),
	})
}

// HandleGetQuote handles GET /api/market/quotes/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}

// HandleGetHistory handles GET /api/market/history/{symbol}
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// HandleGetAnalysis handles GET /api/market/analysis/{symbol}
func (h *Handler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Analyze(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
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
		h.log.Error().Err(err).Int("status", status).Msg("Market request failed")
	}
	h.writeError(w, status, domain.UserMessage(err))
}
