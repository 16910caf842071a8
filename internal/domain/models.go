// Package domain provides core domain models and types.
package domain

import (
	"strings"
	"time"
)

// RiskProfile represents the investor risk appetite a portfolio was built for
type RiskProfile string

const (
	RiskProfileConservative RiskProfile = "conservative"
	RiskProfileModerate     RiskProfile = "moderate"
	RiskProfileAggressive   RiskProfile = "aggressive"
)

// ParseRiskProfile normalizes and validates a risk profile name
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch p := RiskProfile(strings.ToLower(strings.TrimSpace(s))); p {
	case RiskProfileConservative, RiskProfileModerate, RiskProfileAggressive:
		return p, nil
	default:
		return "", NewValidation("invalid risk profile %q", s)
	}
}

// Portfolio represents a named set of allocations
type Portfolio struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	RiskProfile RiskProfile  `json:"risk_profile"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Allocations []Allocation `json:"allocations,omitempty"`
}

// Allocation is a portion of a portfolio assigned to one asset.
// AllocationPercentage is a fraction of the whole: 0.5 means 50%.
type Allocation struct {
	ID                   int64          `json:"id"`
	PortfolioID          int64          `json:"portfolio_id"`
	AssetClass           string         `json:"asset_class"`
	AssetName            string         `json:"asset_name"`
	AllocationPercentage float64        `json:"allocation_percentage"`
	Ticker               *string        `json:"ticker,omitempty"`
	Sector               *string        `json:"sector,omitempty"`
	Region               *string        `json:"region,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// HasTicker reports whether the allocation carries a market price identifier
func (a Allocation) HasTicker() bool {
	return a.Ticker != nil && strings.TrimSpace(*a.Ticker) != ""
}

// TickerSymbol returns the normalized ticker, or "" when there is none
func (a Allocation) TickerSymbol() string {
	if !a.HasTicker() {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*a.Ticker))
}
