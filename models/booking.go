package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionBooking is a consultation slot booked by an investor with an analyst
type SessionBooking struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	InvestorID uint            `gorm:"index" json:"investor_id"`
	Investor   InvestorAccount `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
	AnalystID  uint            `gorm:"index" json:"analyst_id"`
	Analyst    AnalystProfile  `gorm:"foreignKey:AnalystID" json:"analyst,omitempty"`
	StartAt    time.Time       `gorm:"index" json:"start_at"`
	EndAt      time.Time       `json:"end_at"`
	Status     string          `gorm:"index;default:'pending'" json:"status"` // pending, confirmed, completed, cancelled
	Topic      string          `json:"topic"`
	Fee        decimal.Decimal `gorm:"type:decimal(15,2)" json:"fee"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Booking status constants
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// ValidBookingStatuses returns the allowed booking statuses
func ValidBookingStatuses() []string {
	return []string{BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled}
}

// IsValidBookingStatus checks if the booking status is valid
func IsValidBookingStatus(status string) bool {
	for _, valid := range ValidBookingStatuses() {
		if status == valid {
			return true
		}
	}
	return false
}

// Overlaps reports whether the booking's [StartAt, EndAt) window overlaps
// the given window.
func (b *SessionBooking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && start.Before(b.EndAt)
}

// BlocksSlot reports whether the booking occupies the analyst's calendar.
// Cancelled and completed bookings do not block new ones.
func (b *SessionBooking) BlocksSlot() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// MigrateBookingModels runs database migrations for booking-related models
func MigrateBookingModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&SessionBooking{},
	)
}
