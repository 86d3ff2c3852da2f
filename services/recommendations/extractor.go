package recommendations

import (
	"regexp"
	"strconv"
	"strings"
)

// Extracted is one recommendation pulled out of report text
type Extracted struct {
	Ticker      string
	Action      string // BUY, SELL, HOLD
	TargetPrice float64
	Horizon     string  // short_term, medium_term, long_term
	Confidence  float64 // 0..1
}

var (
	// tickerPattern matches an exchange-style symbol in parentheses or after
	// NSE:/BSE: prefixes, e.g. "(RELIANCE)" or "NSE: TCS".
	tickerPattern = regexp.MustCompile(`(?:\(|NSE:\s*|BSE:\s*)([A-Z][A-Z0-9]{1,14})\)?`)

	// targetPricePattern matches explicit target price statements.
	targetPricePattern = regexp.MustCompile(`(?i)(?:target\s+price|price\s+target|tp)\s*(?:of|:|at|is)?\s*(?:₹|Rs\.?\s?|INR\s?|\$)?\s*(\d[\d,]*(?:\.\d+)?)`)
)

// buyCues and sellCues are direction signals counted across the text.
var buyCues = []string{
	"we recommend a buy",
	"recommend buying",
	"rate it a buy",
	"buy rating",
	"strong buy",
	"accumulate",
	"initiate coverage with a buy",
	"upgrade to buy",
	"attractive entry point",
	"upside potential",
}

var sellCues = []string{
	"we recommend a sell",
	"recommend selling",
	"rate it a sell",
	"sell rating",
	"strong sell",
	"book profits",
	"exit the position",
	"downgrade to sell",
	"downside risk outweighs",
	"overvalued at current levels",
}

var holdCues = []string{
	"hold rating",
	"maintain hold",
	"remain on the sidelines",
	"wait and watch",
	"neutral stance",
	"fairly valued",
}

// horizonCues map phrases to an investment horizon. Longest horizon first:
// a report mixing horizons ("near term pain, buy for the long term") states
// its call at the longer one, and the order keeps extraction deterministic.
var horizonCues = []struct {
	cue     string
	horizon string
}{
	{"long term", "long_term"},
	{"long-term", "long_term"},
	{"3-5 years", "long_term"},
	{"multi-year", "long_term"},
	{"structurally", "long_term"},
	{"medium term", "medium_term"},
	{"medium-term", "medium_term"},
	{"12 months", "medium_term"},
	{"one year", "medium_term"},
	{"short term", "short_term"},
	{"short-term", "short_term"},
	{"near term", "short_term"},
	{"near-term", "short_term"},
}

// Extract pulls recommendations out of report text. The fallbackTicker is
// used when no symbol is found in the text (the report's primary ticker).
// Returns nil when no directional call can be identified.
func Extract(body, fallbackTicker string) []Extracted {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	text := strings.ToLower(body)

	buy := countCues(text, buyCues)
	sell := countCues(text, sellCues)
	hold := countCues(text, holdCues)

	if buy == 0 && sell == 0 && hold == 0 {
		return nil
	}

	action, confidence := resolveAction(buy, sell, hold)

	ticker := fallbackTicker
	if m := tickerPattern.FindStringSubmatch(body); m != nil {
		ticker = m[1]
	}
	if ticker == "" {
		return nil
	}

	target := 0.0
	if m := targetPricePattern.FindStringSubmatch(body); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			target = v
		}
	}

	horizon := "medium_term"
	for _, hc := range horizonCues {
		if strings.Contains(text, hc.cue) {
			horizon = hc.horizon
			break
		}
	}

	return []Extracted{{
		Ticker:      strings.ToUpper(ticker),
		Action:      action,
		TargetPrice: target,
		Horizon:     horizon,
		Confidence:  confidence,
	}}
}

// resolveAction picks a direction by cue count. A tie between buy and sell
// resolves to HOLD: conflicting language is not a call either way.
func resolveAction(buy, sell, hold int) (string, float64) {
	total := buy + sell + hold
	switch {
	case buy > sell && buy >= hold:
		return "BUY", cueConfidence(buy, total)
	case sell > buy && sell >= hold:
		return "SELL", cueConfidence(sell, total)
	default:
		return "HOLD", cueConfidence(hold+min(buy, sell), total)
	}
}

// cueConfidence maps cue dominance to a 0.5-0.95 confidence band.
func cueConfidence(winning, total int) float64 {
	if total == 0 {
		return 0.5
	}
	share := float64(winning) / float64(total)
	conf := 0.5 + share*0.45
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func countCues(text string, cues []string) int {
	n := 0
	for _, cue := range cues {
		n += strings.Count(text, cue)
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
