// Package returns converts price histories into daily simple returns and
// aligns them on a common date index.
package returns

import (
	"sort"
	"strings"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
)

// Series is the daily simple return series of one ticker.
// Returns[0] is 0 because the first day has no predecessor.
type Series struct {
	Ticker  string      `json:"ticker"`
	Dates   []time.Time `json:"dates"`
	Returns []float64   `json:"returns"`
}

// Table holds return series aligned on the intersection of their dates.
// Columns[i] belongs to Tickers[i] and has len(Dates) entries.
type Table struct {
	Dates   []time.Time `json:"dates"`
	Tickers []string    `json:"tickers"`
	Columns [][]float64 `json:"columns"`
}

// Rows returns the number of aligned dates
func (t *Table) Rows() int {
	return len(t.Dates)
}

// Column returns the returns of ticker, or nil when it is not in the table
func (t *Table) Column(ticker string) []float64 {
	for i, tk := range t.Tickers {
		if tk == ticker {
			return t.Columns[i]
		}
	}
	return nil
}

// ToReturns converts close prices into simple returns:
// r[0] = 0 and r[i] = (p[i] - p[i-1]) / p[i-1].
// A zero previous close yields a *domain.DivisionHazard.
func ToReturns(series *marketdata.PriceSeries) (Series, error) {
	n := len(series.Points)
	out := Series{
		Ticker:  series.Ticker,
		Dates:   make([]time.Time, n),
		Returns: make([]float64, n),
	}

	for i, p := range series.Points {
		out.Dates[i] = p.Date
		if i == 0 {
			continue
		}
		prev := series.Points[i-1].Close
		if prev == 0 {
			return Series{}, &domain.DivisionHazard{Quantity: "daily return for " + series.Ticker}
		}
		out.Returns[i] = (p.Close - prev) / prev
	}

	return out, nil
}

// Align intersects the dates of all series at UTC calendar-day granularity.
// Rows are ascending by date and columns keep the input order. A series
// with no date in the intersection fails with *domain.InsufficientDataError.
func Align(series ...Series) (*Table, error) {
	if len(series) == 0 {
		return nil, domain.NewInsufficientData("no return series to align")
	}

	lookups := make([]map[time.Time]float64, len(series))
	for i, s := range series {
		m := make(map[time.Time]float64, len(s.Dates))
		for j, d := range s.Dates {
			m[dayKey(d)] = s.Returns[j]
		}
		lookups[i] = m
	}

	common := make([]time.Time, 0, len(lookups[0]))
	for d := range lookups[0] {
		inAll := true
		for _, m := range lookups[1:] {
			if _, ok := m[d]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, d)
		}
	}

	if len(common) == 0 {
		return nil, domain.NewInsufficientData("return series for %s share no dates", tickerList(series))
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	table := &Table{
		Dates:   common,
		Tickers: make([]string, len(series)),
		Columns: make([][]float64, len(series)),
	}
	for i, s := range series {
		table.Tickers[i] = s.Ticker
		col := make([]float64, len(common))
		for j, d := range common {
			col[j] = lookups[i][d]
		}
		table.Columns[i] = col
	}

	return table, nil
}

func dayKey(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func tickerList(series []Series) string {
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = s.Ticker
	}
	return strings.Join(names, ", ")
}
