package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/market", func(r chi.Router) {
		r.Get("/catalogue", h.HandleGetCatalogue)
		r.Get("/listing", h.HandleGetListing)
		r.Get("/quotes/{symbol}", h.HandleGetQuote)
		r.Get("/history/{symbol}", h.HandleGetHistory)
		r.Get("/analysis/{symbol}", h.HandleGetAnalysis)
	})
}
