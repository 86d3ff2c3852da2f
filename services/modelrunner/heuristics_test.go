package modelrunner

import (
	"testing"

	"research_platform_backend/models"

	"github.com/stretchr/testify/assert"
)

// flatSeries returns n closes pinned at price.
func flatSeries(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

// trendingSeries returns n closes walking from start by step per bar.
func trendingSeries(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	price := start
	for i := range closes {
		closes[i] = price
		price += step
	}
	return closes
}

func TestClassifyInsufficientHistory(t *testing.T) {
	signal := Classify(models.ModelCategoryMomentum, flatSeries(10, 100))
	assert.Equal(t, models.ActionHold, signal.Action)
	assert.Equal(t, "insufficient history", signal.Rationale)
}

func TestClassifyUnknownCategory(t *testing.T) {
	signal := Classify("made_up", flatSeries(60, 100))
	assert.Equal(t, models.ActionHold, signal.Action)
	assert.Equal(t, "unknown category", signal.Rationale)
}

func TestClassifyMomentum(t *testing.T) {
	// +1 per bar from 100: the last 20 bars gain well over 8%.
	up := trendingSeries(60, 100, 1)
	signal := Classify(models.ModelCategoryMomentum, up)
	assert.Equal(t, models.ActionBuy, signal.Action)
	assert.Equal(t, 0.80, signal.Confidence)

	down := trendingSeries(60, 200, -1)
	signal = Classify(models.ModelCategoryMomentum, down)
	assert.Equal(t, models.ActionSell, signal.Action)

	flat := flatSeries(60, 100)
	signal = Classify(models.ModelCategoryMomentum, flat)
	assert.Equal(t, models.ActionHold, signal.Action)
}

func TestClassifyMeanReversion(t *testing.T) {
	// Steady decline: every delta is a loss, RSI 0.
	down := trendingSeries(60, 200, -1)
	signal := Classify(models.ModelCategoryMeanReversion, down)
	assert.Equal(t, models.ActionBuy, signal.Action)

	// Steady climb: RSI 100, overbought.
	up := trendingSeries(60, 100, 1)
	signal = Classify(models.ModelCategoryMeanReversion, up)
	assert.Equal(t, models.ActionSell, signal.Action)

	flat := flatSeries(60, 100)
	signal = Classify(models.ModelCategoryMeanReversion, flat)
	assert.Equal(t, models.ActionHold, signal.Action)
}

func TestClassifyTrend(t *testing.T) {
	// Rising series: SMA20 > SMA50 and price above SMA20.
	up := trendingSeries(60, 100, 1)
	signal := Classify(models.ModelCategoryTrend, up)
	assert.Equal(t, models.ActionBuy, signal.Action)

	down := trendingSeries(60, 200, -1)
	signal = Classify(models.ModelCategoryTrend, down)
	assert.Equal(t, models.ActionSell, signal.Action)

	flat := flatSeries(60, 100)
	signal = Classify(models.ModelCategoryTrend, flat)
	assert.Equal(t, models.ActionHold, signal.Action)
}

func TestClassifyMultiFactorDisagreement(t *testing.T) {
	// A steady climb is bullish for momentum and trend but overbought for
	// mean reversion: 2 of 3 bullish wins the vote.
	up := trendingSeries(60, 100, 1)
	signal := Classify(models.ModelCategoryMultiFactor, up)
	assert.Equal(t, models.ActionBuy, signal.Action)
	assert.Equal(t, "2 of 3 factors bullish", signal.Rationale)

	flat := flatSeries(60, 100)
	signal = Classify(models.ModelCategoryMultiFactor, flat)
	assert.Equal(t, models.ActionHold, signal.Action)
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.0, SMA(closes, 3), 1e-9)
	assert.InDelta(t, 3.0, SMA(closes, 5), 1e-9)
	assert.Zero(t, SMA(closes, 6))
	assert.Zero(t, SMA(closes, 0))
}

func TestRSI(t *testing.T) {
	assert.Equal(t, 50.0, RSI([]float64{100, 101}, 14), "short series defaults to neutral")
	assert.Equal(t, 100.0, RSI(trendingSeries(20, 100, 1), 14), "all gains")
	assert.Equal(t, 50.0, RSI(flatSeries(20, 100), 14), "no movement")

	rsi := RSI(trendingSeries(20, 200, -1), 14)
	assert.Zero(t, rsi)
}
