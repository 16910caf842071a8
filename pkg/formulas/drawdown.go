package formulas

// MaxDrawdownFromReturns calculates the worst peak-to-trough decline of the
// cumulative return curve cum[t] = Π(1+r_i).
//
// The result is reported as a non-positive fraction (-0.25 = 25% below the
// running peak) and is exactly 0 for a non-decreasing curve.
func MaxDrawdownFromReturns(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	cum := 1.0
	peak := 0.0

	for i, r := range returns {
		cum *= 1 + r
		if i == 0 || cum > peak {
			peak = cum
		}
		if peak > 0 {
			if dd := cum/peak - 1; dd < maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return maxDrawdown
}
