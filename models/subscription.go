package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionPlan represents available subscription plans
type SubscriptionPlan struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	Name                  string          `gorm:"uniqueIndex;not null" json:"name"` // Free, Basic, Premium, Pro
	Description           string          `json:"description"`
	Price                 decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	Currency              string          `gorm:"default:'INR'" json:"currency"`
	BillingCycle          string          `json:"billing_cycle"` // monthly, yearly
	MaxHoldings           int             `gorm:"default:10" json:"max_holdings"`
	MaxModelSubscriptions int             `gorm:"default:3" json:"max_model_subscriptions"`
	MaxBookingsPerMonth   int             `gorm:"default:1" json:"max_bookings_per_month"`
	HasTerminalAccess     bool            `gorm:"default:false" json:"has_terminal_access"`
	HasRiskAnalytics      bool            `gorm:"default:false" json:"has_risk_analytics"`
	HasBacktesting        bool            `gorm:"default:false" json:"has_backtesting"`
	IsActive              bool            `gorm:"default:true" json:"is_active"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// Subscription represents an investor's subscription
type Subscription struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	InvestorID    uint             `gorm:"uniqueIndex" json:"investor_id"`
	Investor      InvestorAccount  `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
	PlanID        uint             `gorm:"index" json:"plan_id"`
	Plan          SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status        string           `json:"status"` // active, cancelled, expired, pending
	StartDate     time.Time        `json:"start_date"`
	EndDate       time.Time        `json:"end_date"`
	AutoRenew     bool             `gorm:"default:true" json:"auto_renew"`
	LastPaymentAt *time.Time       `json:"last_payment_at"`
	CancelledAt   *time.Time       `json:"cancelled_at"`
	CancelReason  string           `json:"cancel_reason"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// PaymentRecord represents a Razorpay payment attempt for a subscription
type PaymentRecord struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	InvestorID        uint            `gorm:"index" json:"investor_id"`
	Investor          InvestorAccount `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
	SubscriptionID    uint            `gorm:"index" json:"subscription_id"`
	PlanID            uint            `json:"plan_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	Currency          string          `gorm:"default:'INR'" json:"currency"`
	RazorpayOrderID   string          `gorm:"uniqueIndex" json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	Receipt           string          `json:"receipt"`
	Status            string          `json:"status"` // created, completed, failed, refunded
	FailureReason     string          `json:"failure_reason"`
	ProcessedAt       *time.Time      `json:"processed_at"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Subscription status constants
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusPending   = "pending"
)

// Payment status constants
const (
	PaymentStatusCreated   = "created"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Currency constants
const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"
)

// ValidCurrencies returns valid currency codes
func ValidCurrencies() []string {
	return []string{CurrencyINR, CurrencyUSD}
}

// IsValidCurrency checks if the currency is valid
func IsValidCurrency(currency string) bool {
	for _, valid := range ValidCurrencies() {
		if currency == valid {
			return true
		}
	}
	return false
}

// MigrateSubscriptionModels runs database migrations for subscription-related models
func MigrateSubscriptionModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&SubscriptionPlan{},
		&Subscription{},
		&PaymentRecord{},
	)
}
