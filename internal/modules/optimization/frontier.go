// Package optimization samples random long-only portfolios to approximate
// the efficient frontier of a set of assets.
package optimization

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/pkg/formulas"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FrontierRiskFreeRate is the risk-free rate used when ranking sampled
// portfolios. It differs from risk.RiskFreeRate on purpose.
const FrontierRiskFreeRate = 0.0

// DefaultSamples is the number of random portfolios drawn when none is given
const DefaultSamples = 1000

// FrontierPoint is one sampled portfolio
type FrontierPoint struct {
	Return      float64            `json:"return"`
	Volatility  float64            `json:"volatility"`
	SharpeRatio float64            `json:"sharpe_ratio"`
	Weights     map[string]float64 `json:"weights"`
	// Sample is the draw index, used to break ties deterministically
	Sample int `json:"sample"`
}

// GenerateFrontier draws numSamples random weight vectors over the tickers
// of table and returns them sorted by Sharpe ratio, highest first. Equal
// ratios keep sampling order. A nil rng uses a time-seeded source.
func GenerateFrontier(table *returns.Table, numSamples int, rng *rand.Rand) ([]FrontierPoint, error) {
	if numSamples < 1 {
		return nil, domain.NewValidation("number of samples must be at least 1, got %d", numSamples)
	}
	if table == nil || table.Rows() < 2 || len(table.Tickers) == 0 {
		return nil, domain.NewInsufficientData("at least 2 aligned dates are required")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	mu, sigma := annualizedMoments(table)
	n := len(table.Tickers)

	points := make([]FrontierPoint, 0, numSamples)
	w := make([]float64, n)
	for s := 0; s < numSamples; s++ {
		for i := range w {
			w[i] = rng.Float64()
		}
		sum := floats.Sum(w)
		if sum == 0 {
			return nil, &domain.DivisionHazard{Quantity: "weight normalization"}
		}
		floats.Scale(1/sum, w)

		vec := mat.NewVecDense(n, w)
		ret := floats.Dot(w, mu)
		vol := math.Sqrt(mat.Inner(vec, sigma, vec))

		sharpe, ok := formulas.SharpeRatio(ret, vol, FrontierRiskFreeRate)
		if !ok {
			return nil, &domain.DivisionHazard{Quantity: "frontier sharpe ratio (portfolio volatility is zero)"}
		}

		weights := make(map[string]float64, n)
		for i, t := range table.Tickers {
			weights[t] = w[i]
		}

		points = append(points, FrontierPoint{
			Return:      ret,
			Volatility:  vol,
			SharpeRatio: sharpe,
			Weights:     weights,
			Sample:      s,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].SharpeRatio > points[j].SharpeRatio
	})

	return points, nil
}

// SelectOptimal returns the highest-Sharpe point, or with a target the point
// whose return is closest to it. Ties go to the earliest sample.
func SelectOptimal(frontier []FrontierPoint, target *float64) (FrontierPoint, error) {
	if len(frontier) == 0 {
		return FrontierPoint{}, domain.NewValidation("frontier is empty")
	}
	if target == nil {
		return frontier[0], nil
	}

	best := 0
	bestDist := math.Abs(frontier[0].Return - *target)
	for i := 1; i < len(frontier); i++ {
		d := math.Abs(frontier[i].Return - *target)
		if d < bestDist || (d == bestDist && frontier[i].Sample < frontier[best].Sample) {
			best, bestDist = i, d
		}
	}
	return frontier[best], nil
}

// annualizedMoments returns mean returns and the sample covariance matrix,
// both scaled by the number of trading days per year.
func annualizedMoments(table *returns.Table) ([]float64, *mat.SymDense) {
	rows, cols := table.Rows(), len(table.Tickers)

	x := mat.NewDense(rows, cols, nil)
	mu := make([]float64, cols)
	for j, col := range table.Columns {
		x.SetCol(j, col)
		mu[j] = stat.Mean(col, nil) * formulas.TradingDaysPerYear
	}

	var sigma mat.SymDense
	stat.CovarianceMatrix(&sigma, x, nil)
	sigma.ScaleSym(formulas.TradingDaysPerYear, &sigma)

	return mu, &sigma
}
