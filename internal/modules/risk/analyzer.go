package risk

import (
	"context"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultLookbackDays is the history window used when none is given
const DefaultLookbackDays = 365

// TableLoader builds aligned return tables for a set of tickers
type TableLoader interface {
	Load(ctx context.Context, tickers []string, start, end time.Time) (*returns.Table, error)
}

// PortfolioComparison is one entry of ComparePortfolios
type PortfolioComparison struct {
	Name        string             `json:"name"`
	RiskProfile domain.RiskProfile `json:"risk_profile"`
	Metrics     *Metrics           `json:"metrics"`
}

// Analyzer computes risk metrics for stored portfolios
type Analyzer struct {
	portfolios domain.PortfolioReader
	loader     TableLoader
	now        func() time.Time
	log        zerolog.Logger
}

// NewAnalyzer creates a new risk analyzer
func NewAnalyzer(portfolios domain.PortfolioReader, loader TableLoader, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		portfolios: portfolios,
		loader:     loader,
		now:        time.Now,
		log:        log.With().Str("service", "risk").Logger(),
	}
}

// CalculatePortfolioRiskMetrics computes metrics over the last days of
// history (DefaultLookbackDays when days <= 0).
func (a *Analyzer) CalculatePortfolioRiskMetrics(ctx context.Context, portfolioID int64, days int) (*Metrics, error) {
	defer utils.OperationTimer("portfolio_risk_metrics", a.log)()

	table, weights, err := LoadPortfolioReturns(ctx, a.portfolios, a.loader, portfolioID, days, a.now())
	if err != nil {
		return nil, err
	}

	return Compute(table, weights)
}

// ComparePortfolios computes metrics for each id. Portfolios that cannot be
// analyzed are logged and left out of the result.
func (a *Analyzer) ComparePortfolios(ctx context.Context, ids []int64, days int) map[int64]PortfolioComparison {
	results := make(map[int64]PortfolioComparison, len(ids))

	for _, id := range ids {
		metrics, err := a.CalculatePortfolioRiskMetrics(ctx, id, days)
		if err != nil {
			a.log.Warn().Err(err).Int64("portfolio_id", id).Msg("Skipping portfolio in comparison")
			continue
		}

		p, err := a.portfolios.GetByID(ctx, id)
		if err != nil {
			a.log.Warn().Err(err).Int64("portfolio_id", id).Msg("Skipping portfolio in comparison")
			continue
		}

		results[id] = PortfolioComparison{
			Name:        p.Name,
			RiskProfile: p.RiskProfile,
			Metrics:     metrics,
		}
	}

	return results
}

// LoadPortfolioReturns resolves a portfolio's ticker weights and loads the
// aligned return table for the window ending at now. Weights of allocations
// sharing a ticker are summed.
func LoadPortfolioReturns(
	ctx context.Context,
	portfolios domain.PortfolioReader,
	loader TableLoader,
	portfolioID int64,
	days int,
	now time.Time,
) (*returns.Table, map[string]float64, error) {
	if days <= 0 {
		days = DefaultLookbackDays
	}

	if _, err := portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, nil, err
	}

	allocations, err := portfolios.GetAllocations(ctx, portfolioID)
	if err != nil {
		return nil, nil, err
	}

	weights := make(map[string]float64)
	tickers := make([]string, 0, len(allocations))
	for _, alloc := range allocations {
		if !alloc.HasTicker() {
			continue
		}
		t := alloc.TickerSymbol()
		if _, seen := weights[t]; !seen {
			tickers = append(tickers, t)
		}
		weights[t] += alloc.AllocationPercentage
	}
	if len(tickers) == 0 {
		return nil, nil, domain.NewValidation("portfolio with id %d has no valid allocations", portfolioID)
	}

	end := now.UTC()
	start := end.AddDate(0, 0, -days)

	table, err := loader.Load(ctx, tickers, start, end)
	if err != nil {
		return nil, nil, err
	}

	return table, weights, nil
}
