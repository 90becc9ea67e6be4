package formulas

// MaxDrawdown returns the largest peak-to-trough decline as a positive
// fraction of the running peak (0.25 = 25% below the peak).
//
//	Drawdown(t) = (max(prices[0..t]) - prices[t]) / max(prices[0..t])
//
// Series shorter than two points have no drawdown.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := prices[0]
	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			if dd := (peak - price) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}
