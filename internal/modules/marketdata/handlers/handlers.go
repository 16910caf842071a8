// Package handlers provides HTTP handlers for market data lookups.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MarketDataService is the subset of marketdata.Fetcher used by the handlers
type MarketDataService interface {
	GetLatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	GetHistoricalSeries(ctx context.Context, ticker string, start, end time.Time) (*marketdata.PriceSeries, error)
	SearchSymbols(ctx context.Context, query string) ([]marketdata.SymbolMatch, error)
}

// Handler handles market data HTTP requests
type Handler struct {
	service MarketDataService
	log     zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(service MarketDataService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleGetPrice handles GET /api/market/price/{symbol}
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	price, err := h.service.GetLatestPrice(r.Context(), symbol)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"symbol": symbol,
		"price":  price,
	}), h.log)
}

// HandleGetHistorical handles GET /api/market/historical/{symbol}?days=30
func (h *Handler) HandleGetHistorical(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	days, err := utils.QueryInt(r, "days", 30, 1, 365)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	series, err := h.service.GetHistoricalSeries(r.Context(), symbol, start, end)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"symbol": series.Ticker,
		"days":   days,
		"prices": series.Points,
	}), h.log)
}

// HandleSearch handles GET /api/market/search?query=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		utils.WriteError(w, domain.NewValidation("query parameter is required"), h.log)
		return
	}

	matches, err := h.service.SearchSymbols(r.Context(), query)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(matches), h.log)
}
