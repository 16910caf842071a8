package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	data := []float64{0, 0.014, -0.008}

	assert.InDelta(t, 0.002, Mean(data), 1e-12)
	// sample std: sqrt(((−0.002)^2 + 0.012^2 + (−0.01)^2) / 2)
	assert.InDelta(t, math.Sqrt(0.000248/2), StdDev(data), 1e-12)

	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{1}))
}

func TestAnnualization(t *testing.T) {
	data := []float64{0.01, -0.01, 0.02, 0}

	assert.InDelta(t, StdDev(data)*math.Sqrt(252), AnnualizedVolatility(data), 1e-12)
	assert.InDelta(t, Mean(data)*252, AnnualizedReturn(data), 1e-12)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	c, ok := Correlation(x, []float64{2, 4, 6, 8})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, c, 1e-12)

	c, ok = Correlation(x, []float64{4, 3, 2, 1})
	assert.True(t, ok)
	assert.InDelta(t, -1.0, c, 1e-12)

	_, ok = Correlation(x, []float64{5, 5, 5, 5})
	assert.False(t, ok, "constant series has no correlation")

	_, ok = Correlation(x, []float64{1, 2})
	assert.False(t, ok)
}

func TestPercentileLinearInterpolation(t *testing.T) {
	data := []float64{5, 1, 4, 2, 3}

	assert.InDelta(t, 1.2, Percentile(data, 5), 1e-12)
	assert.InDelta(t, 3.0, Percentile(data, 50), 1e-12)
	assert.InDelta(t, 1.0, Percentile(data, 0), 1e-12)
	assert.InDelta(t, 5.0, Percentile(data, 100), 1e-12)
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, data, "input must not be reordered")

	assert.True(t, math.IsNaN(Percentile(nil, 5)))
}

func TestMaxDrawdownFromReturns(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdownFromReturns([]float64{0, 0.01, 0.02, 0}))
	assert.Equal(t, 0.0, MaxDrawdownFromReturns(nil))

	// cum: 1, 1.1, 0.88, 0.968 -> worst is 0.88/1.1 - 1 = -0.2
	assert.InDelta(t, -0.2, MaxDrawdownFromReturns([]float64{0, 0.1, -0.2, 0.1}), 1e-12)

	// first day already below 1: peak starts at cum[0]
	assert.InDelta(t, -0.5, MaxDrawdownFromReturns([]float64{-0.5, -0.5}), 1e-12)
}

func TestSharpeRatio(t *testing.T) {
	s, ok := SharpeRatio(0.12, 0.2, 0.02)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, s, 1e-12)

	_, ok = SharpeRatio(0.12, 0, 0.02)
	assert.False(t, ok)
}
