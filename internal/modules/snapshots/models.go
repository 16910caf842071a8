// Package snapshots records portfolio valuations over time and derives
// performance figures from them.
package snapshots

import (
	"strings"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is the valuation of a portfolio at one instant.
// Change percentages are nil when no comparable earlier snapshot exists.
type PortfolioSnapshot struct {
	ID                   int64           `json:"id"`
	PortfolioID          int64           `json:"portfolio_id"`
	TotalValue           decimal.Decimal `json:"total_value"`
	Date                 time.Time       `json:"date"`
	DailyChangePercent   *float64        `json:"daily_change_percent"`
	MonthlyChangePercent *float64        `json:"monthly_change_percent"`
	YearlyChangePercent  *float64        `json:"yearly_change_percent"`
	Assets               []AssetSnapshot `json:"assets"`
}

// AssetSnapshot is the valuation of one allocation inside a snapshot
type AssetSnapshot struct {
	ID                   int64           `json:"id"`
	SnapshotID           int64           `json:"snapshot_id"`
	AllocationID         *int64          `json:"allocation_id,omitempty"`
	AssetName            string          `json:"asset_name"`
	Ticker               *string         `json:"ticker,omitempty"`
	Price                decimal.Decimal `json:"price"`
	Quantity             decimal.Decimal `json:"quantity"`
	Value                decimal.Decimal `json:"value"`
	AllocationPercentage float64         `json:"allocation_percentage"`
}

// PerformanceMetrics compares the snapshots closest to two dates
type PerformanceMetrics struct {
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	StartingValue  decimal.Decimal `json:"starting_value"`
	EndingValue    decimal.Decimal `json:"ending_value"`
	AbsoluteChange decimal.Decimal `json:"absolute_change"`
	PercentChange  float64         `json:"percent_change"`
}

// Interval selects which snapshots a history query keeps
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"  // snapshots taken on a Monday (UTC)
	IntervalMonthly Interval = "monthly" // snapshots taken on the 1st (UTC)
)

// ParseInterval parses an interval name; empty means daily
func ParseInterval(s string) (Interval, error) {
	switch i := Interval(strings.ToLower(strings.TrimSpace(s))); i {
	case "":
		return IntervalDaily, nil
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return i, nil
	default:
		return "", domain.NewValidation("invalid interval %q (want daily, weekly or monthly)", s)
	}
}

// keeps reports whether a snapshot dated t survives the interval filter
func (i Interval) keeps(t time.Time) bool {
	t = t.UTC()
	switch i {
	case IntervalWeekly:
		return t.Weekday() == time.Monday
	case IntervalMonthly:
		return t.Day() == 1
	default:
		return true
	}
}

// FetchFailurePolicy decides what a snapshot does with an asset whose
// price could not be fetched
type FetchFailurePolicy string

const (
	// PolicyZero values the asset at price 0 and logs the failure
	PolicyZero FetchFailurePolicy = "zero"
	// PolicyExclude leaves the asset out of the snapshot
	PolicyExclude FetchFailurePolicy = "exclude"
	// PolicyAbort fails the whole snapshot
	PolicyAbort FetchFailurePolicy = "abort"
)

// ParseFetchFailurePolicy parses a policy name; empty means PolicyZero
func ParseFetchFailurePolicy(s string) (FetchFailurePolicy, error) {
	switch p := FetchFailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyZero, nil
	case PolicyZero, PolicyExclude, PolicyAbort:
		return p, nil
	default:
		return "", domain.NewValidation("invalid fetch failure policy %q", s)
	}
}
