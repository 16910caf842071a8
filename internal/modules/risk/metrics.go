// Package risk computes portfolio risk metrics from aligned daily returns.
package risk

import (
	"math"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/pkg/formulas"
	"gonum.org/v1/gonum/mat"
)

// RiskFreeRate is the annual risk-free rate used for the Sharpe ratio
const RiskFreeRate = 0.02

// VaRPercentile is the percentile of daily returns reported as 95% VaR
const VaRPercentile = 5

// Metrics holds the risk profile of a weighted portfolio
type Metrics struct {
	Volatility           float64 `json:"volatility"`
	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	VaR95                float64 `json:"var_95"`
	// Correlations[a][b] is set for every pair with index(a) <= index(b)
	Correlations map[string]map[string]float64 `json:"correlations"`
}

// Compute calculates risk metrics for the portfolio described by weights
// over the tickers of table. Tickers missing from weights get weight 0.
func Compute(table *returns.Table, weights map[string]float64) (*Metrics, error) {
	if table == nil || table.Rows() < 2 {
		return nil, domain.NewInsufficientData("at least 2 aligned dates are required")
	}

	w, err := normalizeWeights(table.Tickers, weights)
	if err != nil {
		return nil, err
	}

	daily := PortfolioReturns(table, w)

	m := &Metrics{
		Volatility:           formulas.AnnualizedVolatility(daily),
		ExpectedAnnualReturn: formulas.AnnualizedReturn(daily),
		MaxDrawdown:          formulas.MaxDrawdownFromReturns(daily),
		VaR95:                formulas.Percentile(daily, VaRPercentile),
		Correlations:         correlations(table),
	}

	sharpe, ok := formulas.SharpeRatio(m.ExpectedAnnualReturn, m.Volatility, RiskFreeRate)
	if !ok {
		return nil, &domain.DivisionHazard{Quantity: "sharpe ratio (portfolio volatility is zero)"}
	}
	m.SharpeRatio = sharpe

	return m, nil
}

// PortfolioReturns returns the weighted sum of the table columns per date.
// weights must be aligned with table.Tickers.
func PortfolioReturns(table *returns.Table, weights []float64) []float64 {
	rows, cols := table.Rows(), len(table.Tickers)

	r := mat.NewDense(rows, cols, nil)
	for j, col := range table.Columns {
		r.SetCol(j, col)
	}

	var out mat.VecDense
	out.MulVec(r, mat.NewVecDense(cols, weights))

	return mat.Col(nil, 0, &out)
}

func normalizeWeights(tickers []string, weights map[string]float64) ([]float64, error) {
	w := make([]float64, len(tickers))
	sum := 0.0
	for i, t := range tickers {
		v := weights[t]
		if v < 0 || math.IsNaN(v) {
			return nil, domain.NewValidation("weight for %s must be non-negative", t)
		}
		w[i] = v
		sum += v
	}
	if sum == 0 {
		return nil, &domain.WeightsError{Sum: sum}
	}
	for i := range w {
		w[i] /= sum
	}
	return w, nil
}

// correlations builds the upper-triangular Pearson matrix. The diagonal is
// always 1; pairs involving a constant column are reported as 0.
func correlations(table *returns.Table) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(table.Tickers))
	for i, a := range table.Tickers {
		row := make(map[string]float64, len(table.Tickers)-i)
		for j := i; j < len(table.Tickers); j++ {
			b := table.Tickers[j]
			if i == j {
				row[b] = 1
				continue
			}
			c, _ := formulas.Correlation(table.Columns[i], table.Columns[j])
			row[b] = c
		}
		out[a] = row
	}
	return out
}
