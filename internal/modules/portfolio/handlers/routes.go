package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all paper account routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/positions", h.HandleGetPositions)
		r.Get("/summary", h.HandleGetSummary)
		r.Get("/account", h.HandleGetAccount)
		r.Get("/transactions", h.HandleGetTransactions)
		r.Post("/buy", h.HandleBuy)
		r.Post("/sell", h.HandleSell)
	})
}
