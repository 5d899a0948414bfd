package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the profile routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/profile", func(r chi.Router) {
		r.Get("/", h.HandleGetProfile)
		r.Put("/", h.HandleUpdateProfile)
	})
}
