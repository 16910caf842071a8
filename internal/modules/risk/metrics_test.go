package risk

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return out
}

func table(tickers []string, columns ...[]float64) *returns.Table {
	return &returns.Table{Dates: dates(len(columns[0])), Tickers: tickers, Columns: columns}
}

func relEqual(t *testing.T, want, got float64) {
	t.Helper()
	assert.LessOrEqual(t, math.Abs(want-got), 1e-9*math.Abs(want), "want %v got %v", want, got)
}

func TestCompute_TwoAssetScenario(t *testing.T) {
	tbl := table([]string{"A", "B"}, []float64{0, 0.01, -0.02}, []float64{0, 0.02, 0.01})

	m, err := Compute(tbl, map[string]float64{"A": 0.6, "B": 0.4})
	require.NoError(t, err)

	// Reference: portfolio returns [0, 0.014, -0.008]
	daily := []float64{0, 0.6*0.01 + 0.4*0.02, 0.6*-0.02 + 0.4*0.01}
	mean := (daily[0] + daily[1] + daily[2]) / 3
	ss := 0.0
	for _, r := range daily {
		ss += (r - mean) * (r - mean)
	}
	vol := math.Sqrt(ss/2) * math.Sqrt(252)
	er := mean * 252

	relEqual(t, vol, m.Volatility)
	relEqual(t, er, m.ExpectedAnnualReturn)
	relEqual(t, (er-RiskFreeRate)/vol, m.SharpeRatio)
	relEqual(t, -0.008, m.MaxDrawdown)
	// 5th percentile of sorted [-0.008, 0, 0.014]: rank 0.1 between the first two
	relEqual(t, -0.008+0.1*0.008, m.VaR95)

	assert.Equal(t, 1.0, m.Correlations["A"]["A"])
	assert.Equal(t, 1.0, m.Correlations["B"]["B"])
	assert.Contains(t, m.Correlations["A"], "B")
	assert.NotContains(t, m.Correlations["B"], "A")
}

func TestCompute_WeightsAreNormalized(t *testing.T) {
	tbl := table([]string{"A", "B"}, []float64{0, 0.01, -0.02}, []float64{0, 0.02, 0.01})

	a, err := Compute(tbl, map[string]float64{"A": 0.6, "B": 0.4})
	require.NoError(t, err)
	b, err := Compute(tbl, map[string]float64{"A": 60, "B": 40})
	require.NoError(t, err)

	relEqual(t, a.Volatility, b.Volatility)
	relEqual(t, a.SharpeRatio, b.SharpeRatio)
}

func TestCompute_Errors(t *testing.T) {
	tbl := table([]string{"A"}, []float64{0, 0.01, 0.02})

	_, err := Compute(tbl, map[string]float64{"A": 0})
	assert.ErrorIs(t, err, domain.ErrValidation)
	var werr *domain.WeightsError
	assert.ErrorAs(t, err, &werr)

	_, err = Compute(tbl, map[string]float64{"A": -1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = Compute(table([]string{"A"}, []float64{0}), map[string]float64{"A": 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = Compute(table([]string{"A"}, []float64{0, 0, 0}), map[string]float64{"A": 1})
	assert.ErrorIs(t, err, domain.ErrDivisionHazard)
}

func TestCompute_ConstantColumnCorrelationIsZero(t *testing.T) {
	tbl := table([]string{"A", "CASH"}, []float64{0, 0.01, -0.02, 0.03}, []float64{0, 0, 0, 0})

	m, err := Compute(tbl, map[string]float64{"A": 0.5, "CASH": 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Correlations["A"]["CASH"])
	assert.Equal(t, 1.0, m.Correlations["CASH"]["CASH"])
}

func TestCompute_MonotoneCurveHasNoDrawdown(t *testing.T) {
	tbl := table([]string{"A"}, []float64{0, 0.01, 0.02, 0.005})

	m, err := Compute(tbl, map[string]float64{"A": 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestComputeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genReturns := gen.SliceOfN(10, gen.Float64Range(-0.05, 0.05))

	properties.Property("volatility and sharpe are invariant under weight rescaling", prop.ForAll(
		func(a, b []float64, wa, wb, k float64) bool {
			tbl := table([]string{"A", "B"}, a, b)
			m1, err1 := Compute(tbl, map[string]float64{"A": wa, "B": wb})
			m2, err2 := Compute(tbl, map[string]float64{"A": wa * k, "B": wb * k})
			if err1 != nil || err2 != nil {
				return (err1 == nil) == (err2 == nil)
			}
			tol := func(x, y float64) bool { return math.Abs(x-y) <= 1e-9*math.Max(1, math.Abs(x)) }
			return tol(m1.Volatility, m2.Volatility) && tol(m1.SharpeRatio, m2.SharpeRatio)
		},
		genReturns, genReturns,
		gen.Float64Range(0.01, 1), gen.Float64Range(0.01, 1), gen.Float64Range(0.1, 100),
	))

	properties.Property("max drawdown is never positive", prop.ForAll(
		func(a []float64) bool {
			m, err := Compute(table([]string{"A"}, a), map[string]float64{"A": 1})
			if err != nil {
				return true
			}
			return m.MaxDrawdown <= 0
		},
		genReturns,
	))

	properties.Property("correlation is symmetric", prop.ForAll(
		func(a, b []float64) bool {
			ab := correlations(table([]string{"A", "B"}, a, b))["A"]["B"]
			ba := correlations(table([]string{"B", "A"}, b, a))["B"]["A"]
			return math.Abs(ab-ba) <= 1e-12 && ab >= -1-1e-12 && ab <= 1+1e-12
		},
		genReturns, genReturns,
	))

	properties.TestingRun(t)
}
