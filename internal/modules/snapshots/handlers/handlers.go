// Package handlers provides HTTP handlers for portfolio performance tracking.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/snapshots"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PerformanceService is the subset of snapshots.Tracker used by the handlers
type PerformanceService interface {
	CreateSnapshot(ctx context.Context, portfolioID int64, investmentAmount *decimal.Decimal) (*snapshots.PortfolioSnapshot, error)
	GetPerformanceHistory(ctx context.Context, portfolioID int64, start, end *time.Time, interval snapshots.Interval) ([]snapshots.PortfolioSnapshot, error)
	CalculateMetrics(ctx context.Context, portfolioID int64, start, end *time.Time) (*snapshots.PerformanceMetrics, error)
}

// Handler handles performance HTTP requests
type Handler struct {
	service PerformanceService
	log     zerolog.Logger
}

// NewHandler creates a new performance handler
func NewHandler(service PerformanceService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "performance").Logger(),
	}
}

// HandleCreateSnapshot handles POST /api/performance/{id}/snapshots
func (h *Handler) HandleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	var amount *decimal.Decimal
	if raw := r.URL.Query().Get("investment_amount"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			utils.WriteError(w, domain.NewValidation("investment_amount must be a non-negative number"), h.log)
			return
		}
		amount = &d
	}

	snap, err := h.service.CreateSnapshot(r.Context(), id, amount)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Envelope(snap), h.log)
}

// HandleGetHistory handles GET /api/performance/{id}/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := parseRange(r)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	interval, err := snapshots.ParseInterval(r.URL.Query().Get("interval"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	history, err := h.service.GetPerformanceHistory(r.Context(), id, start, end, interval)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(history), h.log)
}

// HandleGetMetrics handles GET /api/performance/{id}/metrics
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := parseRange(r)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	metrics, err := h.service.CalculateMetrics(r.Context(), id, start, end)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(metrics), h.log)
}

func parseRange(r *http.Request) (int64, *time.Time, *time.Time, error) {
	id, err := utils.PathID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, nil, nil, err
	}
	start, err := utils.OptionalDate(r, "start_date")
	if err != nil {
		return 0, nil, nil, err
	}
	end, err := utils.OptionalDate(r, "end_date")
	if err != nil {
		return 0, nil, nil, err
	}
	return id, start, end, nil
}
