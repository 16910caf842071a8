package optimization

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() *returns.Table {
	dates := make([]time.Time, 5)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	return &returns.Table{
		Dates:   dates,
		Tickers: []string{"SPY", "TLT", "GLD"},
		Columns: [][]float64{
			{0, 0.012, -0.008, 0.015, 0.004},
			{0, -0.002, 0.006, -0.004, 0.001},
			{0, 0.003, 0.002, -0.006, 0.007},
		},
	}
}

func TestGenerateFrontier_SortedAndNormalized(t *testing.T) {
	points, err := GenerateFrontier(testTable(), 200, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, points, 200)

	seen := make(map[int]bool)
	for i, p := range points {
		if i > 0 {
			assert.GreaterOrEqual(t, points[i-1].SharpeRatio, p.SharpeRatio)
		}
		sum := 0.0
		for _, w := range p.Weights {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
		assert.InDelta(t, p.Return/p.Volatility, p.SharpeRatio, 1e-12)
		seen[p.Sample] = true
	}
	assert.Len(t, seen, 200, "every sample index appears once")
}

func TestGenerateFrontier_MatchesReferenceMoments(t *testing.T) {
	table := testTable()
	points, err := GenerateFrontier(table, 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	mean := func(xs []float64) float64 {
		s := 0.0
		for _, x := range xs {
			s += x
		}
		return s / float64(len(xs))
	}
	cov := func(a, b []float64) float64 {
		ma, mb := mean(a), mean(b)
		s := 0.0
		for i := range a {
			s += (a[i] - ma) * (b[i] - mb)
		}
		return s / float64(len(a)-1)
	}

	for _, p := range points {
		ret, variance := 0.0, 0.0
		for i, ti := range table.Tickers {
			ret += p.Weights[ti] * mean(table.Columns[i]) * 252
			for j, tj := range table.Tickers {
				variance += p.Weights[ti] * p.Weights[tj] * cov(table.Columns[i], table.Columns[j]) * 252
			}
		}
		assert.InDelta(t, ret, p.Return, 1e-12)
		assert.InDelta(t, math.Sqrt(variance), p.Volatility, 1e-12)
	}
}

func TestGenerateFrontier_SeedIsDeterministic(t *testing.T) {
	a, err := GenerateFrontier(testTable(), 50, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := GenerateFrontier(testTable(), 50, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateFrontier_NilRNG(t *testing.T) {
	points, err := GenerateFrontier(testTable(), 3, nil)
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestGenerateFrontier_Errors(t *testing.T) {
	_, err := GenerateFrontier(testTable(), 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	short := &returns.Table{Dates: []time.Time{time.Now()}, Tickers: []string{"A"}, Columns: [][]float64{{0}}}
	_, err = GenerateFrontier(short, 10, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	flat := testTable()
	for i := range flat.Columns {
		flat.Columns[i] = []float64{0, 0, 0, 0, 0}
	}
	_, err = GenerateFrontier(flat, 10, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, domain.ErrDivisionHazard)
}

func TestFrontierRiskFreeRateIsZero(t *testing.T) {
	assert.Equal(t, 0.0, FrontierRiskFreeRate)
}

func TestSelectOptimal_NoTargetIsGlobalMaxSharpe(t *testing.T) {
	points, err := GenerateFrontier(testTable(), 100, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	best, err := SelectOptimal(points, nil)
	require.NoError(t, err)

	for _, p := range points {
		assert.LessOrEqual(t, p.SharpeRatio, best.SharpeRatio)
	}
}

func TestSelectOptimal_Target(t *testing.T) {
	frontier := []FrontierPoint{
		{Return: 0.10, SharpeRatio: 2, Sample: 4},
		{Return: 0.06, SharpeRatio: 1.5, Sample: 9},
		{Return: 0.04, SharpeRatio: 1.2, Sample: 2},
		{Return: 0.02, SharpeRatio: 1.0, Sample: 1},
	}

	target := 0.07
	got, err := SelectOptimal(frontier, &target)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Sample)

	// 0.05 is equidistant from 0.06 and 0.04; the earlier sample wins
	target = 0.05
	got, err = SelectOptimal(frontier, &target)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Sample)
}

func TestSelectOptimal_Empty(t *testing.T) {
	_, err := SelectOptimal(nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
