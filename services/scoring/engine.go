package scoring

import (
	"fmt"
	"strings"
)

// ScorerVersion is stored alongside each persisted score so historical
// scores can be distinguished after weight or pattern changes.
const ScorerVersion = "1.2.0"

// Composite weights. They sum to 1.0.
const (
	weightFactualAccuracy = 0.30
	weightCompliance      = 0.25
	weightOriginality     = 0.20
	weightRiskCoverage    = 0.15
	weightTransparency    = 0.10
)

// minWordCount below which a report is too thin to score meaningfully.
const minWordCount = 50

// complianceFlagThreshold: reports scoring below this on compliance are
// flagged instead of scored.
const complianceFlagThreshold = 40.0

// Result is the outcome of scoring one report body.
type Result struct {
	FactualAccuracy  float64
	Compliance       float64
	Originality      float64
	RiskCoverage     float64
	Transparency     float64
	Composite        float64
	HasDisclaimer    bool
	ComplianceIssues []string
	Flagged          bool
	FlagReason       string
}

// ScoreText computes the quality score for a report body. It is pure and
// deterministic: the same text always produces the same result.
func ScoreText(body string) Result {
	text := strings.ToLower(body)
	words := strings.Fields(text)

	if len(words) == 0 {
		return Result{Flagged: true, FlagReason: "empty report body"}
	}

	res := Result{}
	res.FactualAccuracy = scoreFactualAccuracy(text, len(words))
	res.Compliance, res.HasDisclaimer, res.ComplianceIssues = scoreCompliance(text)
	res.Originality = scoreOriginality(body, text)
	res.RiskCoverage = scoreRiskCoverage(text)
	res.Transparency = scoreTransparency(text)

	res.Composite = clamp(
		res.FactualAccuracy*weightFactualAccuracy+
			res.Compliance*weightCompliance+
			res.Originality*weightOriginality+
			res.RiskCoverage*weightRiskCoverage+
			res.Transparency*weightTransparency,
		0, 100)

	if len(words) < minWordCount {
		res.Flagged = true
		res.FlagReason = fmt.Sprintf("report too short: %d words", len(words))
		return res
	}

	if res.Compliance < complianceFlagThreshold {
		res.Flagged = true
		res.FlagReason = "compliance score below threshold"
	}

	return res
}

// scoreFactualAccuracy rewards quantified, attributed claims. The density of
// figures and sourcing cues per 100 words drives the score.
func scoreFactualAccuracy(text string, wordCount int) float64 {
	figures := len(numericFigure.FindAllString(text, -1))

	sourced := 0
	for _, cue := range sourcedClaimCues {
		sourced += strings.Count(text, cue)
	}

	per100 := float64(wordCount) / 100.0
	if per100 <= 0 {
		return 0
	}

	figureDensity := float64(figures) / per100
	sourceDensity := float64(sourced) / per100

	// 2 figures and 0.5 sourcing cues per 100 words reach full marks.
	score := figureDensity/2.0*60 + sourceDensity/0.5*40
	return clamp(score, 0, 100)
}

// scoreCompliance checks the SEBI-facing requirements: a disclaimer, a
// registration disclosure, and the absence of promissory language.
func scoreCompliance(text string) (float64, bool, []string) {
	score := 0.0
	var issues []string

	hasDisclaimer := false
	for _, cue := range disclaimerCues {
		if strings.Contains(text, cue) {
			hasDisclaimer = true
			break
		}
	}
	if hasDisclaimer {
		score += 50
	} else {
		issues = append(issues, "missing risk disclaimer")
	}

	if sebiRegistrationNo.MatchString(strings.ToUpper(text)) || strings.Contains(text, "sebi registration") || strings.Contains(text, "sebi registered") {
		score += 30
	} else {
		issues = append(issues, "missing SEBI registration disclosure")
	}

	prohibited := 0
	for _, phrase := range prohibitedPhrases {
		if n := strings.Count(text, phrase); n > 0 {
			prohibited += n
			issues = append(issues, fmt.Sprintf("prohibited phrase: %q", phrase))
		}
	}
	if prohibited == 0 {
		score += 20
	} else {
		// Each promissory phrase costs 20 points beyond losing the bonus.
		score -= float64(prohibited) * 20
	}

	return clamp(score, 0, 100), hasDisclaimer, issues
}

// scoreOriginality penalizes boilerplate filler and repeated sentences.
func scoreOriginality(original, text string) float64 {
	score := 100.0

	for _, phrase := range boilerplateLines {
		score -= float64(strings.Count(text, phrase)) * 10
	}

	// Repetition: identical sentences beyond the first cost points.
	sentences := splitSentences(original)
	seen := make(map[string]int)
	repeats := 0
	for _, s := range sentences {
		key := strings.ToLower(strings.TrimSpace(s))
		if len(key) < 20 {
			continue
		}
		seen[key]++
		if seen[key] > 1 {
			repeats++
		}
	}
	score -= float64(repeats) * 15

	return clamp(score, 0, 100)
}

// scoreRiskCoverage rewards discussion of downside and macro risk factors.
func scoreRiskCoverage(text string) float64 {
	distinct := 0
	for _, cue := range riskCues {
		if strings.Contains(text, cue) {
			distinct++
		}
	}
	// 5 distinct risk topics reach full marks.
	return clamp(float64(distinct)/5.0*100, 0, 100)
}

// scoreTransparency rewards a disclosed valuation methodology.
func scoreTransparency(text string) float64 {
	distinct := 0
	for _, cue := range transparencyCues {
		if strings.Contains(text, cue) {
			distinct++
		}
	}
	if targetPricePattern.MatchString(text) {
		distinct += 2
	}
	// 4 methodology cues reach full marks.
	return clamp(float64(distinct)/4.0*100, 0, 100)
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
