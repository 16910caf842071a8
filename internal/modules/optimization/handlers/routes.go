package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers frontier analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analysis/{id}/frontier", h.HandleGetFrontier)
	r.Get("/analysis/{id}/optimal", h.HandleGetOptimal)
}
