package snapshots

import (
	"context"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultHistoryDays is the history window used when no start date is given
	DefaultHistoryDays = 90
	// DefaultMetricsDays is the metrics window used when no start date is given
	DefaultMetricsDays = 365
)

// DefaultInvestmentAmount values a portfolio that has no snapshot yet
var DefaultInvestmentAmount = decimal.NewFromInt(10000)

var hundred = decimal.NewFromInt(100)

// PriceSource fetches current prices for many tickers. Failures are
// reported per ticker.
type PriceSource interface {
	GetLatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, map[string]error)
}

// Tracker creates snapshots and reads performance from them
type Tracker struct {
	portfolios    domain.PortfolioReader
	snapshots     *Repository
	prices        PriceSource
	defaultAmount decimal.Decimal
	policy        FetchFailurePolicy
	now           func() time.Time
	log           zerolog.Logger
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithDefaultInvestmentAmount overrides DefaultInvestmentAmount
func WithDefaultInvestmentAmount(amount decimal.Decimal) TrackerOption {
	return func(t *Tracker) {
		if amount.IsPositive() {
			t.defaultAmount = amount
		}
	}
}

// WithFetchFailurePolicy sets how failed price lookups are handled
func WithFetchFailurePolicy(p FetchFailurePolicy) TrackerOption {
	return func(t *Tracker) { t.policy = p }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a new performance tracker
func NewTracker(portfolios domain.PortfolioReader, snapshots *Repository, prices PriceSource, log zerolog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		portfolios:    portfolios,
		snapshots:     snapshots,
		prices:        prices,
		defaultAmount: DefaultInvestmentAmount,
		policy:        PolicyZero,
		now:           time.Now,
		log:           log.With().Str("service", "snapshots").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateSnapshot values the portfolio at current prices and stores the
// result. investmentAmount may be nil, in which case the latest snapshot's
// total (or the default amount) is used.
func (t *Tracker) CreateSnapshot(ctx context.Context, portfolioID int64, investmentAmount *decimal.Decimal) (*PortfolioSnapshot, error) {
	defer utils.OperationTimer("create_snapshot", t.log)()

	if _, err := t.portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	allocations, err := t.portfolios.GetAllocations(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, domain.NewValidation("portfolio with id %d has no allocations", portfolioID)
	}

	amount, err := t.resolveAmount(ctx, portfolioID, investmentAmount)
	if err != nil {
		return nil, err
	}

	tickers := make([]string, 0, len(allocations))
	for _, a := range allocations {
		if a.HasTicker() {
			tickers = append(tickers, a.TickerSymbol())
		}
	}
	prices, failures := t.prices.GetLatestPrices(ctx, tickers)

	now := t.now().UTC().Truncate(time.Second)
	snap := &PortfolioSnapshot{
		PortfolioID: portfolioID,
		Date:        now,
		TotalValue:  decimal.Zero,
		Assets:      make([]AssetSnapshot, 0, len(tickers)),
	}

	for _, a := range allocations {
		if !a.HasTicker() {
			continue
		}
		ticker := a.TickerSymbol()

		price, ok := prices[ticker]
		if !ok {
			fetchErr := failures[ticker]
			switch t.policy {
			case PolicyAbort:
				return nil, fetchErr
			case PolicyExclude:
				t.log.Warn().Err(fetchErr).Str("ticker", ticker).Int64("portfolio_id", portfolioID).Msg("Excluding asset from snapshot")
				continue
			default:
				t.log.Warn().Err(fetchErr).Str("ticker", ticker).Int64("portfolio_id", portfolioID).Msg("Valuing asset at zero")
				price = decimal.Zero
			}
		}

		pct := decimal.NewFromFloat(a.AllocationPercentage)
		quantity := decimal.Zero
		if price.IsPositive() {
			quantity = pct.Mul(amount).Div(price)
		}
		value := price.Mul(quantity)

		allocationID := a.ID
		snap.Assets = append(snap.Assets, AssetSnapshot{
			AllocationID:         &allocationID,
			AssetName:            a.AssetName,
			Ticker:               &ticker,
			Price:                price,
			Quantity:             quantity,
			Value:                value,
			AllocationPercentage: a.AllocationPercentage,
		})
		snap.TotalValue = snap.TotalValue.Add(value)
	}

	if err := t.fillChanges(ctx, snap, now); err != nil {
		return nil, err
	}

	if err := t.snapshots.Create(ctx, snap); err != nil {
		return nil, err
	}

	t.log.Info().
		Int64("portfolio_id", portfolioID).
		Int64("snapshot_id", snap.ID).
		Str("total_value", snap.TotalValue.String()).
		Int("assets", len(snap.Assets)).
		Msg("Snapshot created")

	return snap, nil
}

func (t *Tracker) resolveAmount(ctx context.Context, portfolioID int64, requested *decimal.Decimal) (decimal.Decimal, error) {
	if requested != nil {
		if requested.IsNegative() {
			return decimal.Zero, domain.NewValidation("investment amount must not be negative")
		}
		return *requested, nil
	}

	latest, err := t.snapshots.Latest(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	if latest != nil {
		return latest.TotalValue, nil
	}
	return t.defaultAmount, nil
}

// fillChanges sets the daily, monthly and yearly change against the latest
// snapshots at least 1, 30 and 365 days older than now
func (t *Tracker) fillChanges(ctx context.Context, snap *PortfolioSnapshot, now time.Time) error {
	targets := []struct {
		days int
		dst  **float64
	}{
		{1, &snap.DailyChangePercent},
		{30, &snap.MonthlyChangePercent},
		{365, &snap.YearlyChangePercent},
	}

	for _, target := range targets {
		prior, err := t.snapshots.LatestAtOrBefore(ctx, snap.PortfolioID, now.AddDate(0, 0, -target.days))
		if err != nil {
			return err
		}
		*target.dst = changePercent(snap.TotalValue, prior)
	}
	return nil
}

func changePercent(current decimal.Decimal, prior *PortfolioSnapshot) *float64 {
	if prior == nil || prior.TotalValue.IsZero() {
		return nil
	}
	pct := current.Sub(prior.TotalValue).Div(prior.TotalValue).Mul(hundred).InexactFloat64()
	return &pct
}

// GetPerformanceHistory returns the snapshots within [start, end] that
// match interval, ascending by date. end defaults to now and start to
// DefaultHistoryDays before end.
func (t *Tracker) GetPerformanceHistory(ctx context.Context, portfolioID int64, start, end *time.Time, interval Interval) ([]PortfolioSnapshot, error) {
	if _, err := t.portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	from, to, err := t.window(start, end, DefaultHistoryDays)
	if err != nil {
		return nil, err
	}

	all, err := t.snapshots.Range(ctx, portfolioID, from, to)
	if err != nil {
		return nil, err
	}

	if interval == "" || interval == IntervalDaily {
		return all, nil
	}

	kept := make([]PortfolioSnapshot, 0, len(all))
	for _, s := range all {
		if interval.keeps(s.Date) {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// CalculateMetrics compares the latest snapshots at or before start and
// end. end defaults to now and start to DefaultMetricsDays before end.
func (t *Tracker) CalculateMetrics(ctx context.Context, portfolioID int64, start, end *time.Time) (*PerformanceMetrics, error) {
	if _, err := t.portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	from, to, err := t.window(start, end, DefaultMetricsDays)
	if err != nil {
		return nil, err
	}

	first, err := t.snapshots.LatestAtOrBefore(ctx, portfolioID, from)
	if err != nil {
		return nil, err
	}
	last, err := t.snapshots.LatestAtOrBefore(ctx, portfolioID, to)
	if err != nil {
		return nil, err
	}
	if first == nil || last == nil {
		return nil, domain.NewValidation("insufficient snapshot data to calculate metrics")
	}

	change := last.TotalValue.Sub(first.TotalValue)
	percent := 0.0
	if first.TotalValue.IsPositive() {
		percent = change.Div(first.TotalValue).Mul(hundred).InexactFloat64()
	}

	return &PerformanceMetrics{
		PeriodStart:    first.Date,
		PeriodEnd:      last.Date,
		StartingValue:  first.TotalValue,
		EndingValue:    last.TotalValue,
		AbsoluteChange: change,
		PercentChange:  percent,
	}, nil
}

func (t *Tracker) window(start, end *time.Time, defaultDays int) (time.Time, time.Time, error) {
	to := t.now().UTC()
	if end != nil {
		to = end.UTC()
	}
	from := to.AddDate(0, 0, -defaultDays)
	if start != nil {
		from = start.UTC()
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, domain.NewValidation("start date %s is after end date %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return from, to, nil
}
