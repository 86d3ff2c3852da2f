package modelrunner

import (
	"fmt"

	"research_platform_backend/models"
)

// Indicator windows shared by the category heuristics.
const (
	shortWindow = 20
	longWindow  = 50
	rsiWindow   = 14
)

// RSI bands.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// Signal is the outcome of classifying one ticker's price series
type Signal struct {
	Action     string
	Confidence float64
	Rationale  string
}

// Classify applies the model category's heuristic to a close price series
// (oldest first). Confidence values are fixed per band: these models are
// catalog heuristics, not statistical estimators.
func Classify(category string, closes []float64) Signal {
	if len(closes) < longWindow {
		return Signal{Action: models.ActionHold, Confidence: 0.50, Rationale: "insufficient history"}
	}

	switch category {
	case models.ModelCategoryMomentum:
		return classifyMomentum(closes)
	case models.ModelCategoryMeanReversion:
		return classifyMeanReversion(closes)
	case models.ModelCategoryTrend:
		return classifyTrend(closes)
	case models.ModelCategoryMultiFactor:
		return classifyMultiFactor(closes)
	default:
		return Signal{Action: models.ActionHold, Confidence: 0.50, Rationale: "unknown category"}
	}
}

// classifyMomentum compares the 20-day return against fixed bands.
func classifyMomentum(closes []float64) Signal {
	last := closes[len(closes)-1]
	prior := closes[len(closes)-1-shortWindow]
	if prior == 0 {
		return Signal{Action: models.ActionHold, Confidence: 0.50, Rationale: "no prior price"}
	}
	ret := (last - prior) / prior

	switch {
	case ret > 0.08:
		return Signal{models.ActionBuy, 0.80, fmt.Sprintf("20-day momentum %.1f%%", ret*100)}
	case ret > 0.03:
		return Signal{models.ActionBuy, 0.65, fmt.Sprintf("20-day momentum %.1f%%", ret*100)}
	case ret < -0.08:
		return Signal{models.ActionSell, 0.80, fmt.Sprintf("20-day momentum %.1f%%", ret*100)}
	case ret < -0.03:
		return Signal{models.ActionSell, 0.65, fmt.Sprintf("20-day momentum %.1f%%", ret*100)}
	default:
		return Signal{models.ActionHold, 0.55, "momentum within neutral band"}
	}
}

// classifyMeanReversion trades RSI extremes.
func classifyMeanReversion(closes []float64) Signal {
	rsi := RSI(closes, rsiWindow)

	switch {
	case rsi < rsiOversold:
		return Signal{models.ActionBuy, 0.75, fmt.Sprintf("RSI %.1f oversold", rsi)}
	case rsi > rsiOverbought:
		return Signal{models.ActionSell, 0.75, fmt.Sprintf("RSI %.1f overbought", rsi)}
	default:
		return Signal{models.ActionHold, 0.55, fmt.Sprintf("RSI %.1f neutral", rsi)}
	}
}

// classifyTrend uses the SMA20/SMA50 relationship.
func classifyTrend(closes []float64) Signal {
	smaShort := SMA(closes, shortWindow)
	smaLong := SMA(closes, longWindow)
	last := closes[len(closes)-1]

	switch {
	case smaShort > smaLong && last > smaShort:
		return Signal{models.ActionBuy, 0.70, "price above rising short-term average"}
	case smaShort < smaLong && last < smaShort:
		return Signal{models.ActionSell, 0.70, "price below falling short-term average"}
	default:
		return Signal{models.ActionHold, 0.55, "averages not aligned"}
	}
}

// classifyMultiFactor votes across the other three heuristics.
func classifyMultiFactor(closes []float64) Signal {
	votes := map[string]int{}
	for _, s := range []Signal{
		classifyMomentum(closes),
		classifyMeanReversion(closes),
		classifyTrend(closes),
	} {
		votes[s.Action]++
	}

	switch {
	case votes[models.ActionBuy] >= 2:
		return Signal{models.ActionBuy, 0.70, fmt.Sprintf("%d of 3 factors bullish", votes[models.ActionBuy])}
	case votes[models.ActionSell] >= 2:
		return Signal{models.ActionSell, 0.70, fmt.Sprintf("%d of 3 factors bearish", votes[models.ActionSell])}
	default:
		return Signal{models.ActionHold, 0.55, "factors disagree"}
	}
}

// SMA returns the simple moving average of the last n closes.
func SMA(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return 0
	}
	sum := 0.0
	for _, v := range closes[len(closes)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// RSI returns the Wilder relative strength index over the last n periods.
func RSI(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 {
		return 50.0
	}

	window := closes[len(closes)-n-1:]
	gains, losses := 0.0, 0.0
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50.0
		}
		return 100.0
	}

	rs := (gains / float64(n)) / (losses / float64(n))
	return 100.0 - 100.0/(1.0+rs)
}
