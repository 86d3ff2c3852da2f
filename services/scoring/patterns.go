package scoring

import "regexp"

// Pattern tables for the report quality scorer. Sub-scores are computed from
// keyword and regex matches over the report body, then combined into the
// weighted composite.

var (
	// numericFigure matches quantified claims: percentages, currency values,
	// ratios. A report backing its thesis with figures scores higher on
	// factual accuracy.
	numericFigure = regexp.MustCompile(`(?:₹|Rs\.?\s?|INR\s?|\$)?\d[\d,]*(?:\.\d+)?\s?(?:%|percent|bps|crore|cr|lakh|bn|billion|mn|million|x)?`)

	// sebiRegistrationNo matches a SEBI research analyst registration number.
	sebiRegistrationNo = regexp.MustCompile(`INH\d{9}`)

	// targetPricePattern matches explicit target price statements.
	targetPricePattern = regexp.MustCompile(`(?i)(?:target\s+price|price\s+target|tp)\s*(?:of|:|at|is)?\s*(?:₹|Rs\.?\s?|INR\s?|\$)?\s*(\d[\d,]*(?:\.\d+)?)`)
)

// sourcedClaimCues indicate a claim is attributed to a source.
var sourcedClaimCues = []string{
	"according to",
	"as per",
	"reported",
	"quarterly results",
	"annual report",
	"earnings call",
	"filing",
	"exchange disclosure",
	"management commentary",
	"company guidance",
	"press release",
	"regulatory filing",
}

// disclaimerCues indicate the presence of a compliance disclaimer.
var disclaimerCues = []string{
	"not investment advice",
	"not a recommendation to buy or sell",
	"consult your financial advisor",
	"investments are subject to market risk",
	"subject to market risks",
	"past performance is not indicative",
	"disclaimer",
	"disclosure",
}

// prohibitedPhrases are promissory statements a registered analyst may not
// make. Each occurrence is a compliance finding.
var prohibitedPhrases = []string{
	"guaranteed returns",
	"guaranteed profit",
	"assured returns",
	"assured profit",
	"risk-free returns",
	"risk free returns",
	"sure shot",
	"can't lose",
	"cannot lose",
	"100% safe",
	"double your money",
	"no risk involved",
}

// boilerplateLines are generic filler phrases that lower originality.
var boilerplateLines = []string{
	"in today's fast-paced market",
	"in the current market scenario",
	"only time will tell",
	"investors are advised to do their own research",
	"the stock has been in the news",
	"as we all know",
	"needless to say",
	"it goes without saying",
	"at the end of the day",
}

// riskCues indicate coverage of downside and macro risk factors.
var riskCues = []string{
	"risk",
	"downside",
	"headwind",
	"geopolitical",
	"inflation",
	"currency",
	"interest rate",
	"regulatory",
	"competition",
	"volatility",
	"slowdown",
	"sanction",
	"tariff",
	"supply chain",
	"crude",
}

// transparencyCues indicate a disclosed methodology or valuation basis.
var transparencyCues = []string{
	"valuation",
	"dcf",
	"discounted cash flow",
	"p/e",
	"ev/ebitda",
	"price-to-book",
	"sum of the parts",
	"sotp",
	"assumption",
	"methodology",
	"base case",
	"bear case",
	"bull case",
	"sensitivity",
}
