package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all performance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/performance/{id}", func(r chi.Router) {
		r.Post("/snapshots", h.HandleCreateSnapshot)
		r.Get("/history", h.HandleGetHistory)
		r.Get("/metrics", h.HandleGetMetrics)
	})
}
