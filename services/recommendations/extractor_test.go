package recommendations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmptyBody(t *testing.T) {
	assert.Nil(t, Extract("", "TCS"))
	assert.Nil(t, Extract("   \n  ", "TCS"))
}

func TestExtractNoDirectionalCall(t *testing.T) {
	body := "The company reported quarterly numbers in line with street estimates."
	assert.Nil(t, Extract(body, "TCS"))
}

func TestExtractBuyCall(t *testing.T) {
	body := `Reliance Industries (RELIANCE) posted strong numbers. We recommend a buy
with a target price of Rs 3,150 over the next 12 months given the upside potential
in the retail segment.`

	recs := Extract(body, "")

	assert.Len(t, recs, 1)
	assert.Equal(t, "RELIANCE", recs[0].Ticker)
	assert.Equal(t, "BUY", recs[0].Action)
	assert.Equal(t, 3150.0, recs[0].TargetPrice)
	assert.Equal(t, "medium_term", recs[0].Horizon)
	assert.Greater(t, recs[0].Confidence, 0.5)
}

func TestExtractSellCall(t *testing.T) {
	body := "The stock looks overvalued at current levels. We recommend a sell and would book profits here."

	recs := Extract(body, "INFY")

	assert.Len(t, recs, 1)
	assert.Equal(t, "INFY", recs[0].Ticker)
	assert.Equal(t, "SELL", recs[0].Action)
	assert.Zero(t, recs[0].TargetPrice)
}

func TestExtractConflictingCuesResolveToHold(t *testing.T) {
	body := "Bulls see upside potential while bears argue the downside risk outweighs it. We maintain hold."

	recs := Extract(body, "HDFC")

	assert.Len(t, recs, 1)
	assert.Equal(t, "HOLD", recs[0].Action)
}

func TestExtractTickerFromNSEPrefix(t *testing.T) {
	body := "NSE: TATAMOTORS remains our top pick, initiate coverage with a buy."

	recs := Extract(body, "FALLBACK")

	assert.Len(t, recs, 1)
	assert.Equal(t, "TATAMOTORS", recs[0].Ticker)
}

func TestExtractNoTickerAnywhere(t *testing.T) {
	body := "We recommend a buy on this name."
	assert.Nil(t, Extract(body, ""))
}

func TestExtractHorizon(t *testing.T) {
	body := "Accumulate for the long term, the structural story is intact. (ITC)"

	recs := Extract(body, "")

	assert.Len(t, recs, 1)
	assert.Equal(t, "long_term", recs[0].Horizon)
}

func TestExtractMixedHorizonsIsStable(t *testing.T) {
	// Caveats about near-term pain must not override the stated horizon,
	// and repeated extraction of the same body must agree with itself.
	body := "Expect near term pain on margins, but we recommend a buy for the long term. (ITC)"

	for i := 0; i < 50; i++ {
		recs := Extract(body, "")
		assert.Len(t, recs, 1)
		assert.Equal(t, "long_term", recs[0].Horizon)
	}
}

func TestResolveAction(t *testing.T) {
	action, conf := resolveAction(3, 0, 0)
	assert.Equal(t, "BUY", action)
	assert.Equal(t, 0.95, conf)

	action, _ = resolveAction(0, 2, 1)
	assert.Equal(t, "SELL", action)

	// Buy/sell tie is not a call either way.
	action, _ = resolveAction(2, 2, 0)
	assert.Equal(t, "HOLD", action)
}

func TestCueConfidence(t *testing.T) {
	assert.Equal(t, 0.5, cueConfidence(0, 0))
	assert.InDelta(t, 0.725, cueConfidence(1, 2), 1e-9)
	assert.Equal(t, 0.95, cueConfidence(5, 5))
}
