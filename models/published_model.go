package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PublishedModel is a named recommendation model listed in the catalog.
// Execution is a market data fetch plus a heuristic classification; the
// record tracks run statistics and the accuracy the author claims.
type PublishedModel struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AnalystID       uint            `gorm:"index" json:"analyst_id"`
	Analyst         AnalystProfile  `gorm:"foreignKey:AnalystID" json:"analyst,omitempty"`
	Name            string          `gorm:"uniqueIndex;not null" json:"name"`
	Category        string          `json:"category"` // momentum, mean_reversion, trend, multi_factor
	Description     string          `gorm:"type:text" json:"description"`
	Tickers         string          `json:"tickers"` // comma-separated universe
	ClaimedAccuracy decimal.Decimal `gorm:"type:decimal(5,2)" json:"claimed_accuracy"` // percent
	RunCount        int             `gorm:"default:0" json:"run_count"`
	LastRunAt       *time.Time      `json:"last_run_at"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ModelRecommendation is the output of a single model run for one ticker
type ModelRecommendation struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ModelID    uint            `gorm:"index" json:"model_id"`
	Model      PublishedModel  `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	Ticker     string          `gorm:"index" json:"ticker"`
	Action     string          `json:"action"` // BUY, SELL, HOLD
	Confidence decimal.Decimal `gorm:"type:decimal(5,4)" json:"confidence"`
	PriceAtRun decimal.Decimal `gorm:"type:decimal(15,2)" json:"price_at_run"`
	Rationale  string          `json:"rationale"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ModelBacktest stores the result of replaying a model over price history
type ModelBacktest struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ModelID        uint            `gorm:"index" json:"model_id"`
	Model          PublishedModel  `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	InitialCapital decimal.Decimal `gorm:"type:decimal(20,2)" json:"initial_capital"`
	FinalCapital   decimal.Decimal `gorm:"type:decimal(20,2)" json:"final_capital"`
	TotalReturn    decimal.Decimal `gorm:"type:decimal(10,6)" json:"total_return"`
	AnnualReturn   decimal.Decimal `gorm:"type:decimal(10,6)" json:"annual_return"`
	MaxDrawdown    decimal.Decimal `gorm:"type:decimal(10,6)" json:"max_drawdown"`
	SharpeRatio    decimal.Decimal `gorm:"type:decimal(10,6)" json:"sharpe_ratio"`
	WinRate        decimal.Decimal `gorm:"type:decimal(10,6)" json:"win_rate"`
	ProfitFactor   decimal.Decimal `gorm:"type:decimal(10,6)" json:"profit_factor"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	LosingTrades   int             `json:"losing_trades"`
	AvgWin         decimal.Decimal `gorm:"type:decimal(20,2)" json:"avg_win"`
	AvgLoss        decimal.Decimal `gorm:"type:decimal(20,2)" json:"avg_loss"`
	EquityCurve    string          `gorm:"type:text" json:"equity_curve"` // JSON map date -> equity
	CompletedAt    *time.Time      `json:"completed_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BacktestTrade is a single simulated trade inside a model backtest
type BacktestTrade struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	BacktestID uint            `gorm:"index" json:"backtest_id"`
	Ticker     string          `json:"ticker"`
	Type       string          `json:"type"` // BUY, SELL
	Date       time.Time       `json:"date"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	Commission decimal.Decimal `gorm:"type:decimal(15,4)" json:"commission"`
	PnL        decimal.Decimal `gorm:"type:decimal(20,2)" json:"pnl"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Model category constants
const (
	ModelCategoryMomentum      = "momentum"
	ModelCategoryMeanReversion = "mean_reversion"
	ModelCategoryTrend         = "trend"
	ModelCategoryMultiFactor   = "multi_factor"
)

// ValidModelCategories returns the allowed model categories
func ValidModelCategories() []string {
	return []string{ModelCategoryMomentum, ModelCategoryMeanReversion, ModelCategoryTrend, ModelCategoryMultiFactor}
}

// IsValidModelCategory checks if the model category is valid
func IsValidModelCategory(category string) bool {
	for _, valid := range ValidModelCategories() {
		if category == valid {
			return true
		}
	}
	return false
}

// MigratePublishedModelModels runs database migrations for model catalog models
func MigratePublishedModelModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&PublishedModel{},
		&ModelRecommendation{},
		&ModelBacktest{},
		&BacktestTrade{},
	)
}
