package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PortfolioHolding represents a single position in an investor's portfolio
type PortfolioHolding struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InvestorID  uint            `gorm:"index:idx_holding_investor_ticker,unique" json:"investor_id"`
	Investor    InvestorAccount `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
	Ticker      string          `gorm:"index:idx_holding_investor_ticker,unique;not null" json:"ticker"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	AvgCost     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"avg_cost"`
	Sector      string          `json:"sector"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	PurchasedAt *time.Time      `json:"purchased_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PortfolioSnapshot captures the valuation of a portfolio at a point in time
type PortfolioSnapshot struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	InvestorID    uint            `gorm:"index:idx_snapshot_investor_date" json:"investor_id"`
	Date          time.Time       `gorm:"index:idx_snapshot_investor_date" json:"date"`
	TotalValue    decimal.Decimal `gorm:"type:decimal(20,2)" json:"total_value"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(20,2)" json:"total_cost"`
	UnrealizedPnL decimal.Decimal `gorm:"type:decimal(20,2)" json:"unrealized_pnl"`
	Positions     int             `json:"positions"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RiskAssessment stores the result of a portfolio risk analysis run
type RiskAssessment struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	InvestorID           uint            `gorm:"index" json:"investor_id"`
	Investor             InvestorAccount `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
	AnnualizedVolatility decimal.Decimal `gorm:"type:decimal(10,6)" json:"annualized_volatility"`
	Beta                 decimal.Decimal `gorm:"type:decimal(10,6)" json:"beta"`
	SharpeRatio          decimal.Decimal `gorm:"type:decimal(10,6)" json:"sharpe_ratio"`
	ValueAtRisk95        decimal.Decimal `gorm:"type:decimal(10,6)" json:"value_at_risk_95"` // loss magnitude, daily
	CVaR95               decimal.Decimal `gorm:"type:decimal(10,6)" json:"cvar_95"`
	MaxDrawdown          decimal.Decimal `gorm:"type:decimal(10,6)" json:"max_drawdown"`
	Concentration        decimal.Decimal `gorm:"type:decimal(10,6)" json:"concentration"` // HHI over weights
	RiskGrade            string          `json:"risk_grade"`                               // low, medium, high
	Benchmark            string          `json:"benchmark"`
	WindowDays           int             `json:"window_days"`
	CreatedAt            time.Time       `json:"created_at"`
}

// PriceBar is a cached daily OHLCV bar for a ticker
type PriceBar struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Ticker    string          `gorm:"index:idx_bar_ticker_date,unique;not null" json:"ticker"`
	Date      time.Time       `gorm:"index:idx_bar_ticker_date,unique" json:"date"`
	Open      decimal.Decimal `gorm:"type:decimal(15,2)" json:"open"`
	High      decimal.Decimal `gorm:"type:decimal(15,2)" json:"high"`
	Low       decimal.Decimal `gorm:"type:decimal(15,2)" json:"low"`
	Close     decimal.Decimal `gorm:"type:decimal(15,2)" json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}

// Risk grade constants
const (
	RiskGradeLow    = "low"
	RiskGradeMedium = "medium"
	RiskGradeHigh   = "high"
)

// MigratePortfolioModels runs database migrations for portfolio-related models
func MigratePortfolioModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&PortfolioHolding{},
		&PortfolioSnapshot{},
		&RiskAssessment{},
		&PriceBar{},
	)
}
