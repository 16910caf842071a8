// Package handlers provides HTTP handlers for efficient frontier analysis.
package handlers

import (
	"context"
	"net/http"

	"github.com/aristath/portfolio-analytics/internal/modules/optimization"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxSamples = 20000

// OptimizationService is the subset of optimization.Service used by the handlers
type OptimizationService interface {
	Frontier(ctx context.Context, portfolioID int64, days, samples int, seed *int64) ([]optimization.FrontierPoint, error)
	OptimalPortfolio(ctx context.Context, portfolioID int64, days, samples int, target *float64, seed *int64) (*optimization.Result, error)
}

// Handler handles frontier HTTP requests
type Handler struct {
	service OptimizationService
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service OptimizationService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

type frontierParams struct {
	id      int64
	days    int
	samples int
	seed    *int64
}

func (h *Handler) parseParams(r *http.Request) (frontierParams, error) {
	var p frontierParams
	var err error

	if p.id, err = utils.PathID(chi.URLParam(r, "id")); err != nil {
		return p, err
	}
	if p.days, err = utils.QueryInt(r, "days", risk.DefaultLookbackDays, 1, 3650); err != nil {
		return p, err
	}
	if p.samples, err = utils.QueryInt(r, "samples", 0, 1, maxSamples); err != nil {
		return p, err
	}
	if p.seed, err = utils.SeedParam(r); err != nil {
		return p, err
	}
	return p, nil
}

// HandleGetFrontier handles GET /api/analysis/{id}/frontier
func (h *Handler) HandleGetFrontier(w http.ResponseWriter, r *http.Request) {
	p, err := h.parseParams(r)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	points, err := h.service.Frontier(r.Context(), p.id, p.days, p.samples, p.seed)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"portfolio_id":   p.id,
		"risk_free_rate": optimization.FrontierRiskFreeRate,
		"points":         points,
	}), h.log)
}

// HandleGetOptimal handles GET /api/analysis/{id}/optimal
func (h *Handler) HandleGetOptimal(w http.ResponseWriter, r *http.Request) {
	p, err := h.parseParams(r)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	target, err := utils.OptionalFloat(r, "target_return")
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	result, err := h.service.OptimalPortfolio(r.Context(), p.id, p.days, p.samples, target, p.seed)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"portfolio_id":  p.id,
		"optimal":       result.Optimal,
		"target_return": result.TargetReturn,
		"samples":       len(result.Frontier),
	}), h.log)
}
