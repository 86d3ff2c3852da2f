package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const compliantBody = `Infosys reported revenue growth of 12.5% for the quarter, according to
its exchange disclosure. Margins expanded 80 bps on the back of pricing gains, and
management commentary points to a stronger deal pipeline of $3.2 billion. Our DCF
valuation with a base case assumption of 10% growth yields a target price of Rs 1850.
Key risks include currency volatility, a slowdown in US discretionary spend, and
regulatory change in key markets. Competition from mid-cap peers remains a headwind.
This report is not investment advice and investments are subject to market risk.
SEBI registration INH000001234. The analyst holds no position in the stock, see the
disclosure section for details. Past performance is not indicative of future results.`

func TestScoreTextEmptyBody(t *testing.T) {
	res := ScoreText("")
	assert.True(t, res.Flagged)
	assert.Equal(t, "empty report body", res.FlagReason)
	assert.Zero(t, res.Composite)
}

func TestScoreTextTooShort(t *testing.T) {
	res := ScoreText("BUY this stock. Target price Rs 100. Not investment advice.")
	assert.True(t, res.Flagged)
	assert.Contains(t, res.FlagReason, "too short")
}

func TestScoreTextCompliantReport(t *testing.T) {
	res := ScoreText(compliantBody)

	assert.False(t, res.Flagged, "flag reason: %s", res.FlagReason)
	assert.True(t, res.HasDisclaimer)
	assert.Empty(t, res.ComplianceIssues)
	assert.Equal(t, 100.0, res.Compliance)
	assert.Greater(t, res.Composite, 60.0)
	assert.LessOrEqual(t, res.Composite, 100.0)
}

func TestScoreTextProhibitedPhrases(t *testing.T) {
	body := strings.Replace(compliantBody,
		"Competition from mid-cap peers remains a headwind.",
		"This trade offers guaranteed returns with no risk involved.", 1)

	res := ScoreText(body)

	assert.Less(t, res.Compliance, 100.0)
	found := 0
	for _, issue := range res.ComplianceIssues {
		if strings.Contains(issue, "prohibited phrase") {
			found++
		}
	}
	assert.Equal(t, 2, found)
}

func TestScoreTextMissingDisclaimerIsFlagged(t *testing.T) {
	// Figures and risk coverage, but no disclaimer, no registration number,
	// and promissory language on top.
	body := `Revenue grew 18% and margins expanded 120 bps this quarter. The order book
stands at Rs 4500 crore and the company guided for 15% growth next year. Buy now for
guaranteed returns, this is a sure shot multibagger. The downside is limited and
competition is weak. We expect the stock to double your money within a year as the
sector recovers from the recent slowdown and interest rate pressure eases.`

	res := ScoreText(body)

	assert.False(t, res.HasDisclaimer)
	assert.True(t, res.Flagged)
	assert.Equal(t, "compliance score below threshold", res.FlagReason)
	assert.Contains(t, res.ComplianceIssues, "missing risk disclaimer")
	assert.Contains(t, res.ComplianceIssues, "missing SEBI registration disclosure")
}

func TestScoreTextRepetitionLowersOriginality(t *testing.T) {
	unique := ScoreText(compliantBody)

	sentence := "The company has a durable moat in enterprise automation built over a decade. "
	repeated := ScoreText(compliantBody + "\n" + strings.Repeat(sentence, 6))

	assert.Less(t, repeated.Originality, unique.Originality)
}

func TestScoreTextDeterministic(t *testing.T) {
	first := ScoreText(compliantBody)
	second := ScoreText(compliantBody)
	assert.Equal(t, first, second)
}

func TestScoreTextRiskCoverage(t *testing.T) {
	none := ScoreText(strings.Repeat("The company makes software for banks and insurers. ", 10))
	assert.Zero(t, none.RiskCoverage)

	res := ScoreText(compliantBody)
	assert.Greater(t, res.RiskCoverage, 0.0)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 100))
	assert.Equal(t, 100.0, clamp(150, 0, 100))
	assert.Equal(t, 42.0, clamp(42, 0, 100))
}
