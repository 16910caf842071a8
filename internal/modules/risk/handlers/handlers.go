// Package handlers provides HTTP handlers for portfolio risk analysis.
package handlers

import (
	"context"
	"net/http"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxCompare limits the number of portfolios in one comparison request
const maxCompare = 20

// RiskService is the subset of risk.Analyzer used by the handlers
type RiskService interface {
	CalculatePortfolioRiskMetrics(ctx context.Context, portfolioID int64, days int) (*risk.Metrics, error)
	ComparePortfolios(ctx context.Context, ids []int64, days int) map[int64]risk.PortfolioComparison
}

// Handler handles risk metrics HTTP requests
type Handler struct {
	service RiskService
	log     zerolog.Logger
}

// NewHandler creates a new risk metrics handler
func NewHandler(service RiskService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetRiskMetrics handles GET /api/analysis/{id}/risk?days=365
func (h *Handler) HandleGetRiskMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	days, err := utils.QueryInt(r, "days", risk.DefaultLookbackDays, 1, 3650)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	metrics, err := h.service.CalculatePortfolioRiskMetrics(r.Context(), id, days)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"portfolio_id": id,
		"days":         days,
		"metrics":      metrics,
	}), h.log)
}

// HandleComparePortfolios handles POST /api/analysis/compare?days=365
// with a JSON array of portfolio ids as the body.
func (h *Handler) HandleComparePortfolios(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := utils.DecodeJSON(r, &ids); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	if len(ids) == 0 {
		utils.WriteError(w, domain.NewValidation("at least one portfolio id is required"), h.log)
		return
	}
	if len(ids) > maxCompare {
		utils.WriteError(w, domain.NewValidation("at most %d portfolios can be compared", maxCompare), h.log)
		return
	}

	days, err := utils.QueryInt(r, "days", risk.DefaultLookbackDays, 1, 3650)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	results := h.service.ComparePortfolios(r.Context(), ids, days)

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(results), h.log)
}
