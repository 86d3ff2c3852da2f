package backtesting

import (
	"testing"
	"time"

	"research_platform_backend/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestCalculateMetricsBasics(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	closed := []models.BacktestTrade{
		{PnL: d(1000)},
		{PnL: d(500)},
		{PnL: d(-300)},
		{PnL: d(-200)},
	}

	var backtest models.ModelBacktest
	CalculateMetrics(&backtest, d(110000), d(0.05), closed, d(100000), start, end)

	assert.True(t, backtest.FinalCapital.Equal(d(110000)))
	assert.True(t, backtest.TotalReturn.Equal(d(0.1)))
	assert.Equal(t, 4, backtest.TotalTrades)
	assert.Equal(t, 2, backtest.WinningTrades)
	assert.Equal(t, 2, backtest.LosingTrades)
	assert.True(t, backtest.WinRate.Equal(d(0.5)))
	assert.True(t, backtest.AvgWin.Equal(d(750)))
	assert.True(t, backtest.AvgLoss.Equal(d(250)))
	assert.True(t, backtest.ProfitFactor.Equal(d(3)))

	// One year: annual return matches total return.
	annual, _ := backtest.AnnualReturn.Float64()
	assert.InDelta(t, 0.1, annual, 0.001)
}

func TestCalculateMetricsMultiYearAnnualization(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(4, 0, 0)

	var backtest models.ModelBacktest
	// 4x over 4 years is about 41.4% annualized.
	CalculateMetrics(&backtest, d(400000), d(0.2), nil, d(100000), start, end)

	annual, _ := backtest.AnnualReturn.Float64()
	assert.InDelta(t, 0.414, annual, 0.01)
}

func TestCalculateMetricsNoTrades(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	var backtest models.ModelBacktest
	CalculateMetrics(&backtest, d(100000), decimal.Zero, nil, d(100000), start, start.AddDate(0, 6, 0))

	assert.Zero(t, backtest.TotalTrades)
	assert.True(t, backtest.TotalReturn.IsZero())
	assert.True(t, backtest.WinRate.IsZero())
	assert.True(t, backtest.ProfitFactor.IsZero())
}

func TestCalculateMetricsTotalLoss(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	var backtest models.ModelBacktest
	CalculateMetrics(&backtest, decimal.Zero, d(1.0), nil, d(100000), start, start.AddDate(1, 0, 0))

	assert.True(t, backtest.TotalReturn.Equal(d(-1)))
	// -100% cannot be annualized; the field stays at its zero value.
	assert.True(t, backtest.AnnualReturn.IsZero())
}

func TestBarIndexOn(t *testing.T) {
	day := func(offset int) time.Time {
		return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}
	bars := []models.PriceBar{
		{Date: day(0), Close: d(100)},
		{Date: day(1), Close: d(101)},
		{Date: day(2), Close: d(102)},
	}

	assert.Equal(t, 0, barIndexOn(bars, day(0)))
	assert.Equal(t, 2, barIndexOn(bars, day(2)))
	assert.Equal(t, -1, barIndexOn(bars, day(5)), "day after the series")
	assert.Equal(t, -1, barIndexOn(bars, day(-1)), "day before the series")
}

func TestClosesUpTo(t *testing.T) {
	bars := []models.PriceBar{
		{Close: d(100)},
		{Close: d(101)},
		{Close: d(102)},
	}

	closes := closesUpTo(bars, 1)
	assert.Equal(t, []float64{100, 101}, closes)
}

func TestSplitTickers(t *testing.T) {
	assert.Equal(t, []string{"TCS", "INFY", "RELIANCE"}, splitTickers(" tcs, INFY ,reliance,,"))
	assert.Nil(t, splitTickers(""))
	assert.Nil(t, splitTickers(" , ,"))
}
