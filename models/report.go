package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ResearchReport represents an analyst-submitted research report
type ResearchReport struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	AnalystID     uint            `gorm:"index" json:"analyst_id"`
	Analyst       AnalystProfile  `gorm:"foreignKey:AnalystID" json:"analyst,omitempty"`
	Title         string          `gorm:"not null" json:"title"`
	Ticker        string          `gorm:"index" json:"ticker"` // primary ticker covered
	Sector        string          `json:"sector"`
	Body          string          `gorm:"type:text" json:"body"`
	Status        string          `gorm:"index;default:'draft'" json:"status"` // draft, submitted, scored, published, flagged
	Source        string          `gorm:"default:'manual'" json:"source"`      // manual, llm_draft
	QualityScore  decimal.Decimal `gorm:"type:decimal(6,2);default:0" json:"quality_score"`
	HasDisclaimer bool            `gorm:"default:false" json:"has_disclaimer"`
	FlagReason    string          `json:"flag_reason"`
	ScoredAt      *time.Time      `json:"scored_at"`
	PublishedAt   *time.Time      `json:"published_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ReportScore stores the sub-score breakdown for a scored report
type ReportScore struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ReportID         uint            `gorm:"uniqueIndex" json:"report_id"`
	Report           ResearchReport  `gorm:"foreignKey:ReportID" json:"report,omitempty"`
	FactualAccuracy  decimal.Decimal `gorm:"type:decimal(6,2)" json:"factual_accuracy"`
	Compliance       decimal.Decimal `gorm:"type:decimal(6,2)" json:"compliance"`
	Originality      decimal.Decimal `gorm:"type:decimal(6,2)" json:"originality"`
	RiskCoverage     decimal.Decimal `gorm:"type:decimal(6,2)" json:"risk_coverage"`
	Transparency     decimal.Decimal `gorm:"type:decimal(6,2)" json:"transparency"`
	Composite        decimal.Decimal `gorm:"type:decimal(6,2)" json:"composite"`
	ScorerVersion    string          `json:"scorer_version"`
	ComplianceIssues string          `gorm:"type:text" json:"compliance_issues"` // newline-separated findings
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ReportRecommendation is a recommendation extracted from report text
type ReportRecommendation struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ReportID    uint            `gorm:"index" json:"report_id"`
	Report      ResearchReport  `gorm:"foreignKey:ReportID" json:"report,omitempty"`
	Ticker      string          `gorm:"index" json:"ticker"`
	Action      string          `json:"action"` // BUY, SELL, HOLD
	TargetPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"target_price"`
	Horizon     string          `json:"horizon"` // short_term, medium_term, long_term
	Confidence  decimal.Decimal `gorm:"type:decimal(5,4)" json:"confidence"` // 0..1
	CreatedAt   time.Time       `json:"created_at"`
}

// Report status constants
const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
	ReportStatusScored    = "scored"
	ReportStatusPublished = "published"
	ReportStatusFlagged   = "flagged"
)

// Report source constants
const (
	ReportSourceManual   = "manual"
	ReportSourceLLMDraft = "llm_draft"
)

// Recommendation action constants
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// ValidReportStatuses returns the allowed report statuses
func ValidReportStatuses() []string {
	return []string{ReportStatusDraft, ReportStatusSubmitted, ReportStatusScored, ReportStatusPublished, ReportStatusFlagged}
}

// IsValidReportStatus checks if the report status is valid
func IsValidReportStatus(status string) bool {
	for _, valid := range ValidReportStatuses() {
		if status == valid {
			return true
		}
	}
	return false
}

// MigrateReportModels runs database migrations for report-related models
func MigrateReportModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&ResearchReport{},
		&ReportScore{},
		&ReportRecommendation{},
	)
}
