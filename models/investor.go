package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InvestorAccount represents an investor using the research portal
type InvestorAccount struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"not null" json:"-"`
	FullName      string     `json:"full_name"`
	Phone         string     `json:"phone"`
	PAN           string     `json:"pan"` // Indian tax identifier, optional
	RiskTolerance string     `gorm:"default:'moderate'" json:"risk_tolerance"` // conservative, moderate, aggressive
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SetPassword hashes and sets the password for the investor
func (i *InvestorAccount) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	i.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies the provided password against the stored hash
func (i *InvestorAccount) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(i.PasswordHash), []byte(password)) == nil
}

// Risk tolerance constants
const (
	RiskToleranceConservative = "conservative"
	RiskToleranceModerate     = "moderate"
	RiskToleranceAggressive   = "aggressive"
)

// ValidRiskTolerances returns the allowed risk tolerance values
func ValidRiskTolerances() []string {
	return []string{RiskToleranceConservative, RiskToleranceModerate, RiskToleranceAggressive}
}

// IsValidRiskTolerance checks if the risk tolerance value is valid
func IsValidRiskTolerance(tolerance string) bool {
	for _, valid := range ValidRiskTolerances() {
		if tolerance == valid {
			return true
		}
	}
	return false
}

// ModelSubscription links an investor to a published model they follow
type ModelSubscription struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	InvestorID uint            `gorm:"index:idx_investor_model,unique" json:"investor_id"`
	Investor   InvestorAccount `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
	ModelID    uint            `gorm:"index:idx_investor_model,unique" json:"model_id"`
	Model      PublishedModel  `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MigrateInvestorModels runs database migrations for investor-related models
func MigrateInvestorModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&InvestorAccount{},
		&ModelSubscription{},
	)
}
