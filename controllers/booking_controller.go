package controllers

import (
	"errors"
	"net/http"
	"time"

	"research_platform_backend/middleware"
	"research_platform_backend/models"
	"research_platform_backend/services/notifications"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errSlotTaken aborts the booking transaction when the slot is blocked
var errSlotTaken = errors.New("slot overlaps an existing booking")

// BookingController handles consultation session booking between investors
// and verified analysts.
type BookingController struct {
	db     *gorm.DB
	mailer *notifications.Mailer
}

// NewBookingController creates a new booking controller
func NewBookingController(db *gorm.DB, mailer *notifications.Mailer) *BookingController {
	return &BookingController{db: db, mailer: mailer}
}

// CreateBooking books a session slot; overlapping slots are rejected
// POST /api/v1/bookings
func (bc *BookingController) CreateBooking(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		AnalystID uint    `json:"analyst_id" binding:"required"`
		StartAt   string  `json:"start_at" binding:"required"` // RFC 3339
		EndAt     string  `json:"end_at" binding:"required"`
		Topic     string  `json:"topic"`
		Fee       float64 `json:"fee"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startAt, err := time.Parse(time.RFC3339, request.StartAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_at, use RFC 3339"})
		return
	}
	endAt, err := time.Parse(time.RFC3339, request.EndAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_at, use RFC 3339"})
		return
	}
	if !startAt.Before(endAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_at must be before end_at"})
		return
	}
	if startAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot book a slot in the past"})
		return
	}

	var analyst models.AnalystProfile
	if err := bc.db.Where("is_active = ? AND certification_state = ?", true, models.CertificationVerified).
		First(&analyst, request.AnalystID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analyst not found or not verified"})
		return
	}

	entitlements, err := entitlementsFor(bc.db, investorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan limits"})
		return
	}

	monthStart := time.Date(startAt.Year(), startAt.Month(), 1, 0, 0, 0, 0, startAt.Location())
	var monthCount int64
	bc.db.Model(&models.SessionBooking{}).
		Where("investor_id = ? AND start_at >= ? AND start_at < ? AND status IN ?",
			investorID, monthStart, monthStart.AddDate(0, 1, 0),
			[]string{models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusCompleted}).
		Count(&monthCount)
	if int(monthCount) >= entitlements.MaxBookingsPerMonth {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Monthly booking limit reached for your plan",
			"limit": entitlements.MaxBookingsPerMonth,
			"plan":  entitlements.PlanName,
		})
		return
	}

	// Reject any overlap with a pending or confirmed slot on the analyst's
	// calendar. Windows are half-open [start, end). The check and insert run
	// in one transaction so concurrent requests cannot double-book the slot.
	booking := models.SessionBooking{
		InvestorID: investorID,
		AnalystID:  analyst.ID,
		StartAt:    startAt,
		EndAt:      endAt,
		Status:     models.BookingStatusPending,
		Topic:      request.Topic,
		Fee:        decimal.NewFromFloat(request.Fee).Round(2),
	}
	err = bc.db.Transaction(func(tx *gorm.DB) error {
		var blocking int64
		if err := tx.Model(&models.SessionBooking{}).
			Where("analyst_id = ? AND status IN ? AND start_at < ? AND end_at > ?",
				analyst.ID,
				[]string{models.BookingStatusPending, models.BookingStatusConfirmed},
				endAt, startAt).
			Count(&blocking).Error; err != nil {
			return err
		}
		if blocking > 0 {
			return errSlotTaken
		}
		return tx.Create(&booking).Error
	})
	if errors.Is(err, errSlotTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Slot overlaps an existing booking"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": booking})
}

// ListBookings returns bookings for the caller, on either side of the table
// GET /api/v1/bookings
func (bc *BookingController) ListBookings(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	role, _ := middleware.RoleFromContext(c)

	query := bc.db.Model(&models.SessionBooking{})
	switch role {
	case middleware.RoleAnalyst:
		query = query.Where("analyst_id = ?", userID).Preload("Investor")
	case middleware.RoleInvestor:
		query = query.Where("investor_id = ?", userID).Preload("Analyst")
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Unknown role"})
		return
	}

	if status := c.Query("status"); status != "" {
		if !models.IsValidBookingStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        "Invalid status",
				"valid_values": models.ValidBookingStatuses(),
			})
			return
		}
		query = query.Where("status = ?", status)
	}

	var bookings []models.SessionBooking
	if err := query.Order("start_at DESC").Limit(100).Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

// ConfirmBooking lets the analyst confirm a pending booking
// POST /api/v1/bookings/:id/confirm
func (bc *BookingController) ConfirmBooking(c *gin.Context) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var booking models.SessionBooking
	if err := bc.db.Preload("Investor").Preload("Analyst").First(&booking, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}
	if booking.AnalystID != analystID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
		return
	}
	if booking.Status != models.BookingStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Only pending bookings can be confirmed"})
		return
	}

	if err := bc.db.Model(&booking).Update("status", models.BookingStatusConfirmed).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm booking"})
		return
	}

	bc.mailer.SendBookingConfirmation(c.Request.Context(),
		booking.Investor.Email, booking.Analyst.Email, booking.Analyst.FullName,
		booking.StartAt, booking.EndAt)

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

// CancelBooking cancels a pending or confirmed booking from either side
// POST /api/v1/bookings/:id/cancel
func (bc *BookingController) CancelBooking(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	role, _ := middleware.RoleFromContext(c)

	var booking models.SessionBooking
	if err := bc.db.First(&booking, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	owns := (role == middleware.RoleAnalyst && booking.AnalystID == userID) ||
		(role == middleware.RoleInvestor && booking.InvestorID == userID)
	if !owns {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
		return
	}
	if !booking.BlocksSlot() {
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is already finished or cancelled"})
		return
	}

	var request struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&request)

	updates := map[string]interface{}{
		"status": models.BookingStatusCancelled,
	}
	if request.Reason != "" {
		updates["notes"] = request.Reason
	}
	if err := bc.db.Model(&booking).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}

// CompleteBooking marks a confirmed session as held
// POST /api/v1/bookings/:id/complete
func (bc *BookingController) CompleteBooking(c *gin.Context) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var booking models.SessionBooking
	if err := bc.db.First(&booking, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}
	if booking.AnalystID != analystID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
		return
	}
	if booking.Status != models.BookingStatusConfirmed {
		c.JSON(http.StatusConflict, gin.H{"error": "Only confirmed bookings can be completed"})
		return
	}

	var request struct {
		Notes string `json:"notes"`
	}
	c.ShouldBindJSON(&request)

	updates := map[string]interface{}{
		"status": models.BookingStatusCompleted,
	}
	if request.Notes != "" {
		updates["notes"] = request.Notes
	}
	if err := bc.db.Model(&booking).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete booking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

// GetAvailability returns the analyst's blocked windows for a given day
// GET /api/v1/analysts/:id/availability?date=YYYY-MM-DD
func (bc *BookingController) GetAvailability(c *gin.Context) {
	dateStr := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, use YYYY-MM-DD"})
		return
	}

	var bookings []models.SessionBooking
	if err := bc.db.Where("analyst_id = ? AND status IN ? AND start_at >= ? AND start_at < ?",
		c.Param("id"),
		[]string{models.BookingStatusPending, models.BookingStatusConfirmed},
		day, day.AddDate(0, 0, 1)).
		Order("start_at ASC").Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch availability"})
		return
	}

	type window struct {
		StartAt time.Time `json:"start_at"`
		EndAt   time.Time `json:"end_at"`
	}
	blocked := make([]window, 0, len(bookings))
	for _, booking := range bookings {
		blocked = append(blocked, window{StartAt: booking.StartAt, EndAt: booking.EndAt})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"date":    dateStr,
			"blocked": blocked,
		},
	})
}
