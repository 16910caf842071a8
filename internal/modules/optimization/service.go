package optimization

import (
	"context"
	"math/rand"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/rs/zerolog"
)

// Result is a frontier together with the point selected from it
type Result struct {
	Optimal      FrontierPoint   `json:"optimal"`
	TargetReturn *float64        `json:"target_return,omitempty"`
	Frontier     []FrontierPoint `json:"frontier,omitempty"`
}

// Service runs frontier analysis for stored portfolios
type Service struct {
	portfolios     domain.PortfolioReader
	loader         risk.TableLoader
	defaultSamples int
	now            func() time.Time
	log            zerolog.Logger
}

// NewService creates a new optimization service
func NewService(portfolios domain.PortfolioReader, loader risk.TableLoader, defaultSamples int, log zerolog.Logger) *Service {
	if defaultSamples < 1 {
		defaultSamples = DefaultSamples
	}
	return &Service{
		portfolios:     portfolios,
		loader:         loader,
		defaultSamples: defaultSamples,
		now:            time.Now,
		log:            log.With().Str("service", "optimization").Logger(),
	}
}

// Frontier samples the frontier of the portfolio's tickers over the last
// days of history. samples <= 0 uses the configured default; a nil seed
// draws from a time-seeded source.
func (s *Service) Frontier(ctx context.Context, portfolioID int64, days, samples int, seed *int64) ([]FrontierPoint, error) {
	defer utils.OperationTimer("efficient_frontier", s.log)()

	table, _, err := risk.LoadPortfolioReturns(ctx, s.portfolios, s.loader, portfolioID, days, s.now())
	if err != nil {
		return nil, err
	}

	if samples <= 0 {
		samples = s.defaultSamples
	}

	var rng *rand.Rand
	if seed != nil {
		rng = rand.New(rand.NewSource(*seed))
	}

	points, err := GenerateFrontier(table, samples, rng)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int64("portfolio_id", portfolioID).
		Int("samples", samples).
		Int("assets", len(table.Tickers)).
		Msg("Generated efficient frontier")

	return points, nil
}

// OptimalPortfolio samples the frontier and selects the max-Sharpe point,
// or the point closest to target when one is given.
func (s *Service) OptimalPortfolio(ctx context.Context, portfolioID int64, days, samples int, target *float64, seed *int64) (*Result, error) {
	points, err := s.Frontier(ctx, portfolioID, days, samples, seed)
	if err != nil {
		return nil, err
	}

	optimal, err := SelectOptimal(points, target)
	if err != nil {
		return nil, err
	}

	return &Result{
		Optimal:      optimal,
		TargetReturn: target,
		Frontier:     points,
	}, nil
}
