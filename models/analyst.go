package models

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AnalystProfile represents a research analyst account
type AnalystProfile struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Email              string          `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash       string          `gorm:"not null" json:"-"`
	FullName           string          `json:"full_name"`
	Phone              string          `json:"phone"`
	SEBIRegistration   string          `gorm:"uniqueIndex" json:"sebi_registration"` // e.g. INH000001234
	CertificationState string          `gorm:"default:'pending'" json:"certification_state"` // pending, verified, rejected
	Specialization     string          `json:"specialization"` // equity, derivatives, macro, commodities
	Bio                string          `gorm:"type:text" json:"bio"`
	YearsExperience    int             `json:"years_experience"`
	RatingAvg          decimal.Decimal `gorm:"type:decimal(4,2);default:0" json:"rating_avg"`
	RatingCount        int             `gorm:"default:0" json:"rating_count"`
	ReportsPublished   int             `gorm:"default:0" json:"reports_published"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`
	LastLoginAt        *time.Time      `json:"last_login_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SetPassword hashes and sets the password for the analyst
func (a *AnalystProfile) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies the provided password against the stored hash
func (a *AnalystProfile) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// Certification state constants
const (
	CertificationPending  = "pending"
	CertificationVerified = "verified"
	CertificationRejected = "rejected"
)

// ValidCertificationStates returns the allowed certification states
func ValidCertificationStates() []string {
	return []string{CertificationPending, CertificationVerified, CertificationRejected}
}

// IsValidCertificationState checks if the certification state is valid
func IsValidCertificationState(state string) bool {
	for _, valid := range ValidCertificationStates() {
		if state == valid {
			return true
		}
	}
	return false
}

// AnalystRating is a single investor rating left for an analyst
type AnalystRating struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	AnalystID  uint           `gorm:"index" json:"analyst_id"`
	Analyst    AnalystProfile `gorm:"foreignKey:AnalystID" json:"analyst,omitempty"`
	InvestorID uint           `gorm:"index" json:"investor_id"`
	Stars      int            `gorm:"not null" json:"stars"` // 1..5
	Comment    string         `json:"comment"`
	CreatedAt  time.Time      `json:"created_at"`
}

// MigrateAnalystModels runs database migrations for analyst-related models
func MigrateAnalystModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&AnalystProfile{},
		&AnalystRating{},
	)
}
