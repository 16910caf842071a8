// Package portfolio stores portfolios and their allocations.
package portfolio

import (
	"math"
	"strings"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// allocationSumTolerance absorbs float noise when checking that
// allocation fractions do not exceed the whole portfolio
const allocationSumTolerance = 1e-6

// AllocationInput describes one allocation of a portfolio to create or update
type AllocationInput struct {
	AssetClass           string         `json:"asset_class"`
	AssetName            string         `json:"asset_name"`
	AllocationPercentage float64        `json:"allocation_percentage"`
	Ticker               *string        `json:"ticker,omitempty"`
	Sector               *string        `json:"sector,omitempty"`
	Region               *string        `json:"region,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// CreateRequest is the payload for creating or replacing a portfolio
type CreateRequest struct {
	Name        string            `json:"name"`
	RiskProfile string            `json:"risk_profile"`
	Allocations []AllocationInput `json:"allocations"`
}

// Validate normalizes the request and checks it, returning the parsed risk profile
func (r *CreateRequest) Validate() (domain.RiskProfile, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "", domain.NewValidation("portfolio name is required")
	}

	profile, err := domain.ParseRiskProfile(r.RiskProfile)
	if err != nil {
		return "", err
	}

	sum := 0.0
	for i := range r.Allocations {
		a := &r.Allocations[i]
		a.AssetName = strings.TrimSpace(a.AssetName)
		a.AssetClass = strings.TrimSpace(a.AssetClass)
		if a.AssetName == "" {
			return "", domain.NewValidation("allocation %d: asset_name is required", i)
		}
		if a.AssetClass == "" {
			return "", domain.NewValidation("allocation %d: asset_class is required", i)
		}
		if math.IsNaN(a.AllocationPercentage) || a.AllocationPercentage < 0 || a.AllocationPercentage > 1 {
			return "", domain.NewValidation("allocation %d: allocation_percentage must be a fraction between 0 and 1", i)
		}
		if a.Ticker != nil {
			t := strings.ToUpper(strings.TrimSpace(*a.Ticker))
			if t == "" {
				a.Ticker = nil
			} else {
				a.Ticker = &t
			}
		}
		sum += a.AllocationPercentage
	}
	if sum > 1+allocationSumTolerance {
		return "", domain.NewValidation("allocation percentages sum to %g, which exceeds 1", sum)
	}

	return profile, nil
}
