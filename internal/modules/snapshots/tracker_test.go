package snapshots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
	testhelpers "github.com/aristath/portfolio-analytics/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrices struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  [][]string
}

func (s *stubPrices) GetLatestPrices(_ context.Context, tickers []string) (map[string]decimal.Decimal, map[string]error) {
	s.calls = append(s.calls, tickers)
	prices := make(map[string]decimal.Decimal)
	errs := make(map[string]error)
	for _, t := range tickers {
		if p, ok := s.prices[t]; ok {
			prices[t] = p
			continue
		}
		if err, ok := s.errs[t]; ok {
			errs[t] = err
			continue
		}
		errs[t] = &domain.ProviderError{Ticker: t, Primary: errors.New("unknown"), Secondary: errors.New("unknown")}
	}
	return prices, errs
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	tracker *Tracker
	repo    *Repository
	prices  *stubPrices
	clock   *clock
	pid     int64
}

func newFixture(t *testing.T, allocations []domain.Allocation, opts ...TrackerOption) *fixture {
	t.Helper()

	db := testhelpers.NewTestDB(t, "portfolio")
	p := testhelpers.SeedPortfolio(t, db.Conn(), "Tracked", allocations)

	f := &fixture{
		repo:   NewRepository(db.Conn(), zerolog.Nop()),
		prices: &stubPrices{prices: map[string]decimal.Decimal{}, errs: map[string]error{}},
		clock:  &clock{now: time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)},
		pid:    p.ID,
	}

	opts = append([]TrackerOption{WithClock(f.clock.Now)}, opts...)
	f.tracker = NewTracker(portfolio.NewRepository(db.Conn(), zerolog.Nop()), f.repo, f.prices, zerolog.Nop(), opts...)
	return f
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestCreateSnapshot_HalfAllocationAtPrice100(t *testing.T) {
	f := newFixture(t, []domain.Allocation{
		{AssetClass: "stocks", AssetName: "Asset X", AllocationPercentage: 0.5, Ticker: testhelpers.Ticker("X")},
	})
	f.prices.prices["X"] = decimal.NewFromInt(100)

	snap, err := f.tracker.CreateSnapshot(context.Background(), f.pid, amount(10000))
	require.NoError(t, err)

	require.Len(t, snap.Assets, 1)
	asset := snap.Assets[0]
	assert.True(t, asset.Quantity.Equal(decimal.NewFromInt(50)), "quantity = %s", asset.Quantity)
	assert.True(t, asset.Value.Equal(decimal.NewFromInt(5000)), "value = %s", asset.Value)
	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(5000)), "total = %s", snap.TotalValue)
	assert.Equal(t, "X", *asset.Ticker)
	assert.NotZero(t, snap.ID)
	assert.Equal(t, snap.ID, asset.SnapshotID)
	assert.Equal(t, f.clock.now, snap.Date)

	assert.Nil(t, snap.DailyChangePercent)
	assert.Nil(t, snap.MonthlyChangePercent)
	assert.Nil(t, snap.YearlyChangePercent)

	stored, err := f.repo.Latest(context.Background(), f.pid)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snap.ID, stored.ID)
	assert.True(t, stored.TotalValue.Equal(snap.TotalValue))
}

func TestCreateSnapshot_SkipsAllocationsWithoutTicker(t *testing.T) {
	f := newFixture(t, testhelpers.NewAllocationFixtures())
	f.prices.prices["SPY"] = decimal.NewFromInt(500)
	f.prices.prices["VXUS"] = decimal.NewFromInt(50)
	f.prices.prices["TLT"] = decimal.NewFromInt(100)

	snap, err := f.tracker.CreateSnapshot(context.Background(), f.pid, amount(10000))
	require.NoError(t, err)

	assert.Len(t, snap.Assets, 3)
	require.Len(t, f.prices.calls, 1)
	assert.ElementsMatch(t, []string{"SPY", "VXUS", "TLT"}, f.prices.calls[0])
	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(9500)), "total = %s", snap.TotalValue)
}

func TestCreateSnapshot_InvestmentAmountFallback(t *testing.T) {
	f := newFixture(t, []domain.Allocation{
		{AssetClass: "stocks", AssetName: "All In", AllocationPercentage: 1, Ticker: testhelpers.Ticker("X")},
	}, WithDefaultInvestmentAmount(decimal.NewFromInt(2500)))
	f.prices.prices["X"] = decimal.NewFromInt(50)
	ctx := context.Background()

	first, err := f.tracker.CreateSnapshot(ctx, f.pid, nil)
	require.NoError(t, err)
	assert.True(t, first.TotalValue.Equal(decimal.NewFromInt(2500)), "default amount, got %s", first.TotalValue)

	f.clock.Advance(time.Hour)
	_, err = f.tracker.CreateSnapshot(ctx, f.pid, amount(4000))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	third, err := f.tracker.CreateSnapshot(ctx, f.pid, nil)
	require.NoError(t, err)
	assert.True(t, third.TotalValue.Equal(decimal.NewFromInt(4000)), "latest snapshot total, got %s", third.TotalValue)
}

func TestCreateSnapshot_Changes(t *testing.T) {
	f := newFixture(t, []domain.Allocation{
		{AssetClass: "stocks", AssetName: "All In", AllocationPercentage: 1, Ticker: testhelpers.Ticker("X")},
	})
	f.prices.prices["X"] = decimal.NewFromInt(100)
	ctx := context.Background()

	_, err := f.tracker.CreateSnapshot(ctx, f.pid, amount(10000))
	require.NoError(t, err)

	f.clock.Advance(35 * 24 * time.Hour)
	_, err = f.tracker.CreateSnapshot(ctx, f.pid, amount(11000))
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	snap, err := f.tracker.CreateSnapshot(ctx, f.pid, amount(12100))
	require.NoError(t, err)

	require.NotNil(t, snap.DailyChangePercent)
	assert.InDelta(t, 10.0, *snap.DailyChangePercent, 1e-9)
	require.NotNil(t, snap.MonthlyChangePercent)
	assert.InDelta(t, 21.0, *snap.MonthlyChangePercent, 1e-9)
	assert.Nil(t, snap.YearlyChangePercent)
}

func TestCreateSnapshot_ZeroPriorTotalLeavesChangeUnset(t *testing.T) {
	f := newFixture(t, []domain.Allocation{
		{AssetClass: "stocks", AssetName: "All In", AllocationPercentage: 1, Ticker: testhelpers.Ticker("X")},
	})
	f.prices.prices["X"] = decimal.NewFromInt(100)
	ctx := context.Background()

	_, err := f.tracker.CreateSnapshot(ctx, f.pid, amount(0))
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	snap, err := f.tracker.CreateSnapshot(ctx, f.pid, amount(1000))
	require.NoError(t, err)
	assert.Nil(t, snap.DailyChangePercent)
}

func TestCreateSnapshot_FetchFailurePolicies(t *testing.T) {
	allocations := []domain.Allocation{
		{AssetClass: "stocks", AssetName: "Good", AllocationPercentage: 0.5, Ticker: testhelpers.Ticker("GOOD")},
		{AssetClass: "stocks", AssetName: "Bad", AllocationPercentage: 0.5, Ticker: testhelpers.Ticker("BAD")},
	}

	t.Run("zero", func(t *testing.T) {
		f := newFixture(t, allocations)
		f.prices.prices["GOOD"] = decimal.NewFromInt(10)

		snap, err := f.tracker.CreateSnapshot(context.Background(), f.pid, amount(1000))
		require.NoError(t, err)
		require.Len(t, snap.Assets, 2)
		bad := snap.Assets[1]
		assert.True(t, bad.Price.IsZero())
		assert.True(t, bad.Quantity.IsZero())
		assert.True(t, bad.Value.IsZero())
		assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(500)))
	})

	t.Run("exclude", func(t *testing.T) {
		f := newFixture(t, allocations, WithFetchFailurePolicy(PolicyExclude))
		f.prices.prices["GOOD"] = decimal.NewFromInt(10)

		snap, err := f.tracker.CreateSnapshot(context.Background(), f.pid, amount(1000))
		require.NoError(t, err)
		require.Len(t, snap.Assets, 1)
		assert.Equal(t, "Good", snap.Assets[0].AssetName)
	})

	t.Run("abort", func(t *testing.T) {
		f := newFixture(t, allocations, WithFetchFailurePolicy(PolicyAbort))
		f.prices.prices["GOOD"] = decimal.NewFromInt(10)

		_, err := f.tracker.CreateSnapshot(context.Background(), f.pid, amount(1000))
		assert.ErrorIs(t, err, domain.ErrProvider)

		latest, err := f.repo.Latest(context.Background(), f.pid)
		require.NoError(t, err)
		assert.Nil(t, latest, "an aborted snapshot must not be stored")
	})
}

func TestCreateSnapshot_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.tracker.CreateSnapshot(ctx, f.pid, amount(1000))
	assert.ErrorIs(t, err, domain.ErrValidation, "no allocations")

	_, err = f.tracker.CreateSnapshot(ctx, f.pid+100, amount(1000))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.tracker.CreateSnapshot(ctx, f.pid, amount(-1))
	assert.Error(t, err)
}

func seedSnapshot(t *testing.T, repo *Repository, pid int64, date time.Time, total int64) {
	t.Helper()
	err := repo.Create(context.Background(), &PortfolioSnapshot{
		PortfolioID: pid,
		TotalValue:  decimal.NewFromInt(total),
		Date:        date,
		Assets: []AssetSnapshot{{
			AssetName:            "Seeded",
			Price:                decimal.NewFromInt(1),
			Quantity:             decimal.NewFromInt(total),
			Value:                decimal.NewFromInt(total),
			AllocationPercentage: 1,
		}},
	})
	require.NoError(t, err)
}

func TestGetPerformanceHistory(t *testing.T) {
	f := newFixture(t, testhelpers.NewAllocationFixtures())
	f.clock.now = testhelpers.Day(2024, time.February, 10)

	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.January, 1), 100)  // Monday, 1st
	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.January, 2), 101)  // Tuesday
	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.January, 8), 102)  // Monday
	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.February, 1), 103) // Thursday, 1st

	dates := func(snaps []PortfolioSnapshot) []int {
		out := make([]int, len(snaps))
		for i, s := range snaps {
			out[i] = int(s.TotalValue.IntPart())
		}
		return out
	}

	tests := []struct {
		interval Interval
		want     []int
	}{
		{IntervalDaily, []int{100, 101, 102, 103}},
		{IntervalWeekly, []int{100, 102}},
		{IntervalMonthly, []int{100, 103}},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			snaps, err := f.tracker.GetPerformanceHistory(context.Background(), f.pid, nil, nil, tt.interval)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dates(snaps))
			for _, s := range snaps {
				assert.Len(t, s.Assets, 1)
			}
		})
	}

	start := testhelpers.Day(2024, time.January, 2)
	end := testhelpers.Day(2024, time.January, 8)
	snaps, err := f.tracker.GetPerformanceHistory(context.Background(), f.pid, &start, &end, IntervalDaily)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102}, dates(snaps), "bounds are inclusive")

	_, err = f.tracker.GetPerformanceHistory(context.Background(), f.pid, &end, &start, IntervalDaily)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.tracker.GetPerformanceHistory(context.Background(), f.pid+1, nil, nil, IntervalDaily)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCalculateMetrics(t *testing.T) {
	f := newFixture(t, testhelpers.NewAllocationFixtures())
	f.clock.now = testhelpers.Day(2024, time.February, 10)
	ctx := context.Background()

	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.January, 1), 10000)
	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.February, 1), 12000)

	start := testhelpers.Day(2024, time.January, 15)
	m, err := f.tracker.CalculateMetrics(ctx, f.pid, &start, nil)
	require.NoError(t, err)

	assert.Equal(t, testhelpers.Day(2024, time.January, 1), m.PeriodStart)
	assert.Equal(t, testhelpers.Day(2024, time.February, 1), m.PeriodEnd)
	assert.True(t, m.AbsoluteChange.Equal(decimal.NewFromInt(2000)))
	assert.InDelta(t, 20.0, m.PercentChange, 1e-9)

	early := testhelpers.Day(2023, time.December, 1)
	_, err = f.tracker.CalculateMetrics(ctx, f.pid, &early, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "insufficient snapshot data")
}

func TestCalculateMetrics_ZeroStartingValue(t *testing.T) {
	f := newFixture(t, testhelpers.NewAllocationFixtures())
	f.clock.now = testhelpers.Day(2024, time.February, 10)

	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.January, 1), 0)
	seedSnapshot(t, f.repo, f.pid, testhelpers.Day(2024, time.February, 1), 500)

	start := testhelpers.Day(2024, time.January, 2)
	m, err := f.tracker.CalculateMetrics(context.Background(), f.pid, &start, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.PercentChange)
	assert.True(t, m.AbsoluteChange.Equal(decimal.NewFromInt(500)))
}
