package risk

import (
	"fmt"
	"time"

	"research_platform_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Defaults for the analyzer. The risk-free rate approximates the Indian
// 10-year government bond yield.
const (
	defaultWindowDays  = 252
	defaultConfidence  = 0.95
	defaultRiskFreeAnn = 0.065
)

// Analyzer computes and persists portfolio risk assessments
type Analyzer struct {
	db        *gorm.DB
	benchmark string
}

// NewAnalyzer creates a new risk analyzer. benchmark is the index ticker
// used for beta (e.g. ^NSEI).
func NewAnalyzer(db *gorm.DB, benchmark string) *Analyzer {
	return &Analyzer{db: db, benchmark: benchmark}
}

// Assess runs the full risk analysis for an investor's active holdings and
// stores the result as a RiskAssessment row.
func (a *Analyzer) Assess(investorID uint) (*models.RiskAssessment, error) {
	var holdings []models.PortfolioHolding
	if err := a.db.Where("investor_id = ? AND is_active = ?", investorID, true).Find(&holdings).Error; err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("no active holdings for investor %d", investorID)
	}

	since := time.Now().AddDate(0, 0, -defaultWindowDays*7/5-10) // calendar days covering the window

	var returnsByAsset [][]float64
	var weights []float64

	for _, holding := range holdings {
		closes, err := a.loadCloses(holding.Ticker, since)
		if err != nil || len(closes) < 2 {
			continue
		}

		latest := closes[len(closes)-1]
		qty, _ := holding.Quantity.Float64()
		weights = append(weights, latest*qty)
		returnsByAsset = append(returnsByAsset, DailyReturns(closes))
	}

	portfolioReturns := WeightedReturns(returnsByAsset, weights)

	var benchReturns []float64
	if benchCloses, err := a.loadCloses(a.benchmark, since); err == nil {
		benchReturns = DailyReturns(benchCloses)
	}

	// Align benchmark to portfolio series length for beta.
	beta := 0.0
	if n := len(portfolioReturns); n >= 2 && len(benchReturns) >= n {
		beta = Beta(portfolioReturns, benchReturns[len(benchReturns)-n:])
	}

	vol := AnnualizedVolatility(portfolioReturns)
	sharpe := SharpeRatio(portfolioReturns, defaultRiskFreeAnn)
	valueAtRisk := ValueAtRisk(portfolioReturns, defaultConfidence)
	cvar := ConditionalValueAtRisk(portfolioReturns, defaultConfidence)
	concentration := Concentration(weights)

	equity := equityFromReturns(portfolioReturns)
	maxDD := MaxDrawdown(equity)

	assessment := models.RiskAssessment{
		InvestorID:           investorID,
		AnnualizedVolatility: decimal.NewFromFloat(vol).Round(6),
		Beta:                 decimal.NewFromFloat(beta).Round(6),
		SharpeRatio:          decimal.NewFromFloat(sharpe).Round(6),
		ValueAtRisk95:        decimal.NewFromFloat(valueAtRisk).Round(6),
		CVaR95:               decimal.NewFromFloat(cvar).Round(6),
		MaxDrawdown:          decimal.NewFromFloat(maxDD).Round(6),
		Concentration:        decimal.NewFromFloat(concentration).Round(6),
		RiskGrade:            GradeRisk(vol, concentration),
		Benchmark:            a.benchmark,
		WindowDays:           defaultWindowDays,
	}

	if err := a.db.Create(&assessment).Error; err != nil {
		return nil, fmt.Errorf("failed to store assessment: %w", err)
	}

	return &assessment, nil
}

// GradeRisk buckets a portfolio by volatility and concentration.
func GradeRisk(annualVol, concentration float64) string {
	switch {
	case annualVol > 0.35 || concentration > 0.5:
		return models.RiskGradeHigh
	case annualVol > 0.20 || concentration > 0.25:
		return models.RiskGradeMedium
	default:
		return models.RiskGradeLow
	}
}

// loadCloses returns the close series for a ticker since the given date,
// oldest first.
func (a *Analyzer) loadCloses(ticker string, since time.Time) ([]float64, error) {
	var bars []models.PriceBar
	if err := a.db.Where("ticker = ? AND date >= ?", ticker, since).
		Order("date ASC").Find(&bars).Error; err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		v, _ := bar.Close.Float64()
		closes = append(closes, v)
	}
	return closes, nil
}

// equityFromReturns builds a unit equity curve from a return series.
func equityFromReturns(returns []float64) []float64 {
	equity := make([]float64, len(returns)+1)
	equity[0] = 1.0
	for i, r := range returns {
		equity[i+1] = equity[i] * (1 + r)
	}
	return equity
}
