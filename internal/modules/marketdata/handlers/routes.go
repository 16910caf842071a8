package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/market", func(r chi.Router) {
		r.Get("/price/{symbol}", h.HandleGetPrice)
		r.Get("/historical/{symbol}", h.HandleGetHistorical)
		r.Get("/search", h.HandleSearch)
	})
}
