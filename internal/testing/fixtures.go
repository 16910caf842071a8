package testing

import (
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
)

// Ticker returns a pointer to s, for building allocations inline
func Ticker(s string) *string {
	return &s
}

// NewAllocationFixtures returns a balanced three-asset allocation set
// plus one cash allocation without a ticker.
func NewAllocationFixtures() []domain.Allocation {
	return []domain.Allocation{
		{AssetClass: "stocks", AssetName: "US Large Cap", AllocationPercentage: 0.5, Ticker: Ticker("SPY"), Region: Ticker("US")},
		{AssetClass: "stocks", AssetName: "International", AllocationPercentage: 0.2, Ticker: Ticker("VXUS")},
		{AssetClass: "bonds", AssetName: "Treasury Bonds", AllocationPercentage: 0.25, Ticker: Ticker("TLT")},
		{AssetClass: "cash", AssetName: "Cash Reserve", AllocationPercentage: 0.05},
	}
}

// SeedPortfolio inserts a portfolio and its allocations with plain SQL and
// returns the portfolio with generated ids filled in.
func SeedPortfolio(t *testing.T, db *sql.DB, name string, allocations []domain.Allocation) domain.Portfolio {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	res, err := db.Exec(
		`INSERT INTO portfolios (name, risk_profile, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, string(domain.RiskProfileModerate), now.Unix(), now.Unix(),
	)
	if err != nil {
		t.Fatalf("Failed to insert portfolio: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read portfolio id: %v", err)
	}

	p := domain.Portfolio{ID: id, Name: name, RiskProfile: domain.RiskProfileModerate, CreatedAt: now, UpdatedAt: now}
	for _, a := range allocations {
		res, err := db.Exec(
			`INSERT INTO allocations (portfolio_id, asset_class, asset_name, allocation_percentage, ticker, sector, region)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, a.AssetClass, a.AssetName, a.AllocationPercentage, a.Ticker, a.Sector, a.Region,
		)
		if err != nil {
			t.Fatalf("Failed to insert allocation %s: %v", a.AssetName, err)
		}
		a.ID, _ = res.LastInsertId()
		a.PortfolioID = id
		p.Allocations = append(p.Allocations, a)
	}

	return p
}

// Day returns midnight UTC of the given date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// PricePoints builds one bar per consecutive calendar day starting at start,
// using closes as the close price of each bar.
func PricePoints(start time.Time, closes ...float64) []marketdata.PricePoint {
	points := make([]marketdata.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = marketdata.PricePoint{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return points
}
