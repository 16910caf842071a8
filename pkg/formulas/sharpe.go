package formulas

// SharpeRatio returns (annualReturn - riskFreeRate) / volatility.
// ok is false when volatility is zero and the ratio is undefined.
func SharpeRatio(annualReturn, volatility, riskFreeRate float64) (ratio float64, ok bool) {
	if volatility == 0 {
		return 0, false
	}
	return (annualReturn - riskFreeRate) / volatility, true
}
