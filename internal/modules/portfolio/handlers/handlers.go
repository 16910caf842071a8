// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"context"
	"net/http"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PortfolioStore is the subset of portfolio.Repository used by the handlers
type PortfolioStore interface {
	Create(ctx context.Context, req portfolio.CreateRequest) (*domain.Portfolio, error)
	Update(ctx context.Context, id int64, req portfolio.CreateRequest) (*domain.Portfolio, error)
	GetWithAllocations(ctx context.Context, id int64) (*domain.Portfolio, error)
	List(ctx context.Context) ([]domain.Portfolio, error)
	Delete(ctx context.Context, id int64) error
}

// Handler handles portfolio HTTP requests
type Handler struct {
	store PortfolioStore
	log   zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(store PortfolioStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleList handles GET /api/portfolios
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.store.List(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(portfolios), h.log)
}

// HandleCreate handles POST /api/portfolios
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req portfolio.CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	p, err := h.store.Create(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Envelope(p), h.log)
}

// HandleGet handles GET /api/portfolios/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	p, err := h.store.GetWithAllocations(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(p), h.log)
}

// HandleUpdate handles PUT /api/portfolios/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	var req portfolio.CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	p, err := h.store.Update(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(p), h.log)
}

// HandleDelete handles DELETE /api/portfolios/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
