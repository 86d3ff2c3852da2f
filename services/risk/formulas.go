package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear is the annualization factor for daily return series.
const tradingDaysPerYear = 252

// DailyReturns converts a price series to simple daily returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]. Zero prices are skipped.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return returns
}

// AnnualizedVolatility is the standard deviation of daily returns scaled by
// sqrt(252 trading days).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return stat.StdDev(dailyReturns, nil) * math.Sqrt(tradingDaysPerYear)
}

// Beta measures portfolio sensitivity to a benchmark:
// cov(portfolio, benchmark) / var(benchmark). Series must align by day.
func Beta(portfolioReturns, benchmarkReturns []float64) float64 {
	n := len(portfolioReturns)
	if n < 2 || n != len(benchmarkReturns) {
		return 0
	}
	benchVar := stat.Variance(benchmarkReturns, nil)
	if benchVar == 0 {
		return 0
	}
	return stat.Covariance(portfolioReturns, benchmarkReturns, nil) / benchVar
}

// SharpeRatio annualizes mean excess daily return over annualized
// volatility. riskFreeRate is annual (e.g. 0.065 for 6.5%).
func SharpeRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	vol := AnnualizedVolatility(dailyReturns)
	if vol == 0 {
		return 0
	}
	annualReturn := stat.Mean(dailyReturns, nil) * tradingDaysPerYear
	return (annualReturn - riskFreeRate) / vol
}

// ValueAtRisk computes historical VaR at the given confidence level,
// reported as a non-negative daily loss magnitude.
func ValueAtRisk(dailyReturns []float64, confidence float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	sorted := make([]float64, len(dailyReturns))
	copy(sorted, dailyReturns)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * (1 - confidence)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := sorted[idx]
	if v < 0 {
		return -v
	}
	return 0
}

// ConditionalValueAtRisk is the mean loss in the tail beyond the VaR
// threshold, reported as a non-negative magnitude.
func ConditionalValueAtRisk(dailyReturns []float64, confidence float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	sorted := make([]float64, len(dailyReturns))
	copy(sorted, dailyReturns)
	sort.Float64s(sorted)

	tail := int(math.Ceil(float64(len(sorted)) * (1 - confidence)))
	if tail < 1 {
		tail = 1
	}
	if tail > len(sorted) {
		tail = len(sorted)
	}

	sum := 0.0
	for _, r := range sorted[:tail] {
		sum += r
	}
	mean := sum / float64(tail)
	if mean < 0 {
		return -mean
	}
	return 0
}

// MaxDrawdown is the largest peak-to-trough decline in an equity series,
// as a fraction of the peak.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Concentration is the Herfindahl-Hirschman index over position weights:
// sum of squared weights. 1.0 means a single-position portfolio.
func Concentration(weights []float64) float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}
	hhi := 0.0
	for _, w := range weights {
		share := w / total
		hhi += share * share
	}
	return hhi
}

// WeightedReturns combines per-asset daily return series into a portfolio
// series using fixed weights. Series are truncated to the shortest length.
func WeightedReturns(returnsByAsset [][]float64, weights []float64) []float64 {
	if len(returnsByAsset) == 0 || len(returnsByAsset) != len(weights) {
		return nil
	}

	shortest := len(returnsByAsset[0])
	for _, series := range returnsByAsset[1:] {
		if len(series) < shortest {
			shortest = len(series)
		}
	}
	if shortest == 0 {
		return nil
	}

	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return nil
	}

	combined := make([]float64, shortest)
	for i := 0; i < shortest; i++ {
		for j, series := range returnsByAsset {
			// Align on the most recent bars.
			offset := len(series) - shortest
			combined[i] += series[offset+i] * (weights[j] / totalWeight)
		}
	}
	return combined
}
