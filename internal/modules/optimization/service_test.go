package optimization

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	testhelpers "github.com/aristath/portfolio-analytics/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableLoader struct {
	tickers []string
}

func (l *tableLoader) Load(_ context.Context, tickers []string, _, _ time.Time) (*returns.Table, error) {
	l.tickers = tickers
	full := testTable()
	out := &returns.Table{Dates: full.Dates}
	for _, t := range tickers {
		if col := full.Column(t); col != nil {
			out.Tickers = append(out.Tickers, t)
			out.Columns = append(out.Columns, col)
		}
	}
	return out, nil
}

func newTestService() (*Service, *tableLoader) {
	reader := testhelpers.NewMockPortfolioReader()
	reader.Add(domain.Portfolio{ID: 1, Name: "Income", Allocations: []domain.Allocation{
		{ID: 1, AllocationPercentage: 0.4, Ticker: testhelpers.Ticker("SPY")},
		{ID: 2, AllocationPercentage: 0.4, Ticker: testhelpers.Ticker("TLT")},
		{ID: 3, AllocationPercentage: 0.2, Ticker: testhelpers.Ticker("GLD")},
	}})
	reader.Add(domain.Portfolio{ID: 2, Name: "Cash", Allocations: []domain.Allocation{{ID: 4, AllocationPercentage: 1}}})

	loader := &tableLoader{}
	return NewService(reader, loader, 25, zerolog.Nop()), loader
}

func TestService_OptimalPortfolio(t *testing.T) {
	svc, loader := newTestService()
	seed := int64(11)

	result, err := svc.OptimalPortfolio(context.Background(), 1, 365, 0, nil, &seed)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "TLT", "GLD"}, loader.tickers)
	assert.Len(t, result.Frontier, 25, "default sample count applies")
	assert.Equal(t, result.Frontier[0], result.Optimal)

	again, err := svc.OptimalPortfolio(context.Background(), 1, 365, 0, nil, &seed)
	require.NoError(t, err)
	assert.Equal(t, result.Optimal, again.Optimal)
}

func TestService_OptimalPortfolioWithTarget(t *testing.T) {
	svc, _ := newTestService()
	seed := int64(5)
	target := 0.0

	result, err := svc.OptimalPortfolio(context.Background(), 1, 90, 40, &target, &seed)
	require.NoError(t, err)
	require.NotNil(t, result.TargetReturn)

	for _, p := range result.Frontier {
		assert.LessOrEqual(t, abs(result.Optimal.Return-target), abs(p.Return-target))
	}
}

func TestService_Errors(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Frontier(context.Background(), 42, 365, 10, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Frontier(context.Background(), 2, 365, 10, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
