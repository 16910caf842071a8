package returns

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func priceSeries(ticker string, closes ...float64) *marketdata.PriceSeries {
	s := &marketdata.PriceSeries{Ticker: ticker}
	for i, c := range closes {
		s.Points = append(s.Points, marketdata.PricePoint{Date: day(i), Close: c})
	}
	return s
}

func TestToReturns(t *testing.T) {
	s, err := ToReturns(priceSeries("SPY", 100, 110, 99))
	require.NoError(t, err)

	assert.Equal(t, "SPY", s.Ticker)
	require.Len(t, s.Returns, 3)
	assert.Equal(t, 0.0, s.Returns[0])
	assert.InDelta(t, 0.10, s.Returns[1], 1e-12)
	assert.InDelta(t, -0.10, s.Returns[2], 1e-12)
	assert.Equal(t, day(2), s.Dates[2])
}

func TestToReturns_ZeroPreviousClose(t *testing.T) {
	_, err := ToReturns(priceSeries("BAD", 100, 0, 5))
	assert.ErrorIs(t, err, domain.ErrDivisionHazard)
}

func TestToReturns_Empty(t *testing.T) {
	s, err := ToReturns(&marketdata.PriceSeries{Ticker: "X"})
	require.NoError(t, err)
	assert.Empty(t, s.Returns)
}

func TestAlign(t *testing.T) {
	a := Series{Ticker: "A", Dates: []time.Time{day(0), day(1), day(2), day(3)}, Returns: []float64{0, 0.1, 0.2, 0.3}}
	// Same calendar days with an intraday offset, listed out of order
	b := Series{Ticker: "B", Dates: []time.Time{day(3).Add(16 * time.Hour), day(1).Add(16 * time.Hour), day(4)}, Returns: []float64{-0.3, -0.1, -0.4}}

	table, err := Align(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, table.Tickers)
	assert.Equal(t, []time.Time{day(1), day(3)}, table.Dates)
	assert.Equal(t, []float64{0.1, 0.3}, table.Column("A"))
	assert.Equal(t, []float64{-0.1, -0.3}, table.Column("B"))
	assert.Nil(t, table.Column("C"))
	assert.Equal(t, 2, table.Rows())
}

func TestAlign_NoOverlap(t *testing.T) {
	a := Series{Ticker: "A", Dates: []time.Time{day(0), day(1)}, Returns: []float64{0, 0.1}}
	b := Series{Ticker: "B", Dates: []time.Time{day(5)}, Returns: []float64{0}}

	_, err := Align(a, b)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Contains(t, err.Error(), "A, B")

	_, err = Align()
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestToReturnsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("output length equals input length and first value is zero", prop.ForAll(
		func(closes []float64) bool {
			s, err := ToReturns(priceSeries("P", closes...))
			if err != nil {
				return false
			}
			if len(s.Returns) != len(closes) {
				return false
			}
			return len(closes) == 0 || s.Returns[0] == 0
		},
		gen.SliceOf(gen.Float64Range(0.01, 10000)),
	))

	properties.Property("returns reconstruct the price path", prop.ForAll(
		func(closes []float64) bool {
			s, err := ToReturns(priceSeries("P", closes...))
			if err != nil {
				return false
			}
			for i := 1; i < len(closes); i++ {
				rebuilt := closes[i-1] * (1 + s.Returns[i])
				if math.Abs(rebuilt-closes[i]) > 1e-9*math.Max(1, closes[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(0.01, 10000)),
	))

	properties.TestingRun(t)
}

func TestAlignProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	toSeries := func(ticker string, offsets []int) Series {
		s := Series{Ticker: ticker}
		seen := map[int]bool{}
		for _, o := range offsets {
			if seen[o] {
				continue
			}
			seen[o] = true
			s.Dates = append(s.Dates, day(o))
			s.Returns = append(s.Returns, float64(o))
		}
		return s
	}

	properties.Property("aligned dates are exactly the intersection", prop.ForAll(
		func(xs, ys []int) bool {
			a, b := toSeries("A", xs), toSeries("B", ys)

			want := map[int]bool{}
			inB := map[int]bool{}
			for _, y := range ys {
				inB[y] = true
			}
			for _, x := range xs {
				if inB[x] {
					want[x] = true
				}
			}

			table, err := Align(a, b)
			if len(want) == 0 {
				return err != nil
			}
			if err != nil || len(table.Dates) != len(want) {
				return false
			}
			for i, d := range table.Dates {
				if i > 0 && !table.Dates[i-1].Before(d) {
					return false
				}
				offset := int(d.Sub(day(0)).Hours() / 24)
				if !want[offset] {
					return false
				}
				// Values stay attached to their own date
				if table.Columns[0][i] != float64(offset) || table.Columns[1][i] != float64(offset) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.SliceOf(gen.IntRange(0, 30)),
	))

	properties.TestingRun(t)
}
