package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the agent directory routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/agents", func(r chi.Router) {
		r.Get("/", h.HandleListAgents)
		r.Get("/traders", h.HandleListTraders)
		r.Get("/{id}", h.HandleGetAgent)
		r.Post("/{id}/link", h.HandleLink)
	})
}
