package formulas

import "math"

// SharpeRatio annualises the mean excess return over the return volatility.
//
//	Sharpe = sqrt(periodsPerYear) * mean(r - rf/periodsPerYear) / stddev(r)
//
// riskFreeRate is annual (0.03 = 3%). A flat series (stddev 0) or fewer
// than two returns gives 0.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return 0
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - periodicRiskFree
	}

	return math.Sqrt(float64(periodsPerYear)) * Mean(excess) / stdDev
}

// SharpeFromPrices converts daily prices to returns and annualises over 252 days.
func SharpeFromPrices(prices []float64, riskFreeRate float64) float64 {
	return SharpeRatio(CalculateReturns(prices), riskFreeRate, TradingDaysPerYear)
}
