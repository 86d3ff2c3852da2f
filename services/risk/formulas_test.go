package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyReturns(t *testing.T) {
	returns := DailyReturns([]float64{100, 110, 99})
	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Nil(t, DailyReturns([]float64{100}))
	assert.Nil(t, DailyReturns(nil))
}

func TestDailyReturnsSkipsZeroPrices(t *testing.T) {
	returns := DailyReturns([]float64{100, 0, 50})
	// The bar after the zero is skipped; the drop to zero itself is kept.
	assert.Len(t, returns, 1)
	assert.InDelta(t, -1.0, returns[0], 1e-9)
}

func TestAnnualizedVolatility(t *testing.T) {
	flat := []float64{0.01, 0.01, 0.01, 0.01}
	assert.InDelta(t, 0, AnnualizedVolatility(flat), 1e-9)

	choppy := []float64{0.02, -0.02, 0.02, -0.02}
	vol := AnnualizedVolatility(choppy)
	assert.Greater(t, vol, 0.0)
	assert.InDelta(t, math.Sqrt(252), vol/0.023094010767585, 0.01)

	assert.Zero(t, AnnualizedVolatility([]float64{0.01}))
}

func TestBeta(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.015, -0.005, 0.02}

	// A portfolio that moves exactly twice the benchmark has beta 2.
	levered := make([]float64, len(bench))
	for i, r := range bench {
		levered[i] = 2 * r
	}
	assert.InDelta(t, 2.0, Beta(levered, bench), 1e-9)

	// Identical series has beta 1.
	assert.InDelta(t, 1.0, Beta(bench, bench), 1e-9)

	// Mismatched lengths are rejected.
	assert.Zero(t, Beta(bench[:3], bench))
}

func TestSharpeRatio(t *testing.T) {
	up := []float64{0.01, 0.012, 0.008, 0.011, 0.009}
	down := make([]float64, len(up))
	for i, r := range up {
		down[i] = -r
	}

	assert.Greater(t, SharpeRatio(up, 0.065), 0.0)
	assert.Less(t, SharpeRatio(down, 0.065), 0.0)
	assert.Zero(t, SharpeRatio([]float64{0.01}, 0.065))
}

func TestValueAtRisk(t *testing.T) {
	// 20 returns, two losses. At 95% the cutoff index is 1, the second worst.
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.001
	}
	returns[7] = -0.08
	returns[12] = -0.05

	assert.InDelta(t, 0.05, ValueAtRisk(returns, 0.95), 1e-9)

	// All-positive series has zero VaR.
	assert.Zero(t, ValueAtRisk([]float64{0.01, 0.02, 0.03}, 0.95))
	assert.Zero(t, ValueAtRisk(nil, 0.95))
}

func TestConditionalValueAtRisk(t *testing.T) {
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.001
	}
	returns[3] = -0.10
	returns[11] = -0.04

	// Tail of ceil(20*0.05)=1 sample: the single worst loss.
	assert.InDelta(t, 0.10, ConditionalValueAtRisk(returns, 0.95), 1e-9)

	// Wider tail averages the losses: ceil(20*0.10)=2 samples.
	assert.InDelta(t, 0.07, ConditionalValueAtRisk(returns, 0.90), 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	equity := []float64{100, 120, 90, 110, 105}
	// Peak 120 to trough 90 is a 25% drawdown.
	assert.InDelta(t, 0.25, MaxDrawdown(equity), 1e-9)

	rising := []float64{100, 105, 110, 120}
	assert.Zero(t, MaxDrawdown(rising))
	assert.Zero(t, MaxDrawdown([]float64{100}))
}

func TestConcentration(t *testing.T) {
	// Equal weights over 4 positions: HHI = 4 * 0.25^2 = 0.25.
	assert.InDelta(t, 0.25, Concentration([]float64{1, 1, 1, 1}), 1e-9)

	// Single position is fully concentrated.
	assert.InDelta(t, 1.0, Concentration([]float64{42}), 1e-9)

	assert.Zero(t, Concentration(nil))
}

func TestWeightedReturns(t *testing.T) {
	a := []float64{0.02, 0.04}
	b := []float64{-0.02, 0.0}

	combined := WeightedReturns([][]float64{a, b}, []float64{1, 1})
	assert.Len(t, combined, 2)
	assert.InDelta(t, 0.0, combined[0], 1e-9)
	assert.InDelta(t, 0.02, combined[1], 1e-9)
}

func TestWeightedReturnsAlignsOnRecentBars(t *testing.T) {
	long := []float64{0.5, 0.01, 0.02}
	short := []float64{0.03, 0.04}

	combined := WeightedReturns([][]float64{long, short}, []float64{1, 1})
	assert.Len(t, combined, 2)
	// The oldest bar of the longer series is dropped.
	assert.InDelta(t, 0.02, combined[0], 1e-9)
	assert.InDelta(t, 0.03, combined[1], 1e-9)
}

func TestGradeRisk(t *testing.T) {
	assert.Equal(t, "low", GradeRisk(0.10, 0.10))
	assert.Equal(t, "medium", GradeRisk(0.25, 0.10))
	assert.Equal(t, "medium", GradeRisk(0.10, 0.30))
	assert.Equal(t, "high", GradeRisk(0.40, 0.10))
	assert.Equal(t, "high", GradeRisk(0.10, 0.60))
}
