package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all order routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/draft", h.HandleGetDraft)
		r.Put("/draft", h.HandleSaveDraft)
		r.Get("/sent", h.HandleListSent)
		r.Get("/received", h.HandleListReceived)
		r.Post("/{id}/accept", h.HandleAccept)
		r.Post("/{id}/reject", h.HandleReject)
	})
}
