package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"peak then trough", []float64{1.0, 1.2, 0.9, 1.1}, 0.25},
		{"monotonic rise", []float64{1, 2, 3, 4}, 0},
		{"single point", []float64{1}, 0},
		{"empty", nil, 0},
		{"second peak deeper", []float64{1, 2, 1.5, 3, 1.5}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxDrawdown(tt.prices), 1e-12)
		})
	}
}

func TestCalculateReturns(t *testing.T) {
	got := CalculateReturns([]float64{1.0, 1.1, 0.99})
	assert.Len(t, got, 2)
	assert.InDelta(t, 0.1, got[0], 1e-12)
	assert.InDelta(t, -0.1, got[1], 1e-12)

	assert.Empty(t, CalculateReturns([]float64{1}))
}

func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, 0.5, TotalReturn([]float64{2, 1, 3}), 1e-12)
	assert.Zero(t, TotalReturn(nil))
	assert.Zero(t, TotalReturn([]float64{0, 1}))
}

func TestSharpeRatio_ZeroVolatility(t *testing.T) {
	assert.Zero(t, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.03, 252))
	assert.Zero(t, SharpeFromPrices([]float64{1, 1, 1, 1}, 0.03))
}

func TestSharpeRatio_MatchesFormula(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, 0.0, 0.003}
	rf := 0.03

	mean := 0.0
	for _, r := range returns {
		mean += r - rf/252
	}
	mean /= float64(len(returns))

	want := math.Sqrt(252) * mean / StdDev(returns)
	assert.InDelta(t, want, SharpeRatio(returns, rf, 252), 1e-12)
}

func TestStdDev_SampleDenominator(t *testing.T) {
	// sample stddev of {1,2,3,4} = sqrt(5/3)
	assert.InDelta(t, math.Sqrt(5.0/3.0), StdDev([]float64{1, 2, 3, 4}), 1e-12)
	assert.Zero(t, StdDev([]float64{1}))
}
