package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers risk analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analysis/{id}/risk", h.HandleGetRiskMetrics)
	r.Post("/analysis/compare", h.HandleComparePortfolios)
}
