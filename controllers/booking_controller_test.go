package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"research_platform_backend/middleware"
	"research_platform_backend/models"
	"research_platform_backend/services/notifications"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newBookingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.MigrateAnalystModels(db))
	require.NoError(t, models.MigrateInvestorModels(db))
	require.NoError(t, models.MigrateBookingModels(db))
	require.NoError(t, models.MigrateSubscriptionModels(db))

	return db
}

func postBooking(t *testing.T, bc *BookingController, investorID uint, analystID uint, start, end time.Time) *httptest.ResponseRecorder {
	t.Helper()

	body := fmt.Sprintf(`{"analyst_id": %d, "start_at": %q, "end_at": %q, "topic": "portfolio review"}`,
		analystID, start.Format(time.RFC3339), end.Format(time.RFC3339))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", investorID)
	c.Set("user_role", middleware.RoleInvestor)

	bc.CreateBooking(c)
	return w
}

func TestCreateBookingRejectsOverlapAllowsBackToBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newBookingTestDB(t)

	analyst := models.AnalystProfile{
		Email:              "analyst@example.com",
		PasswordHash:       "x",
		FullName:           "Priya Nair",
		SEBIRegistration:   "INH000009999",
		CertificationState: models.CertificationVerified,
		IsActive:           true,
	}
	require.NoError(t, db.Create(&analyst).Error)

	var investors [3]models.InvestorAccount
	for i := range investors {
		investors[i] = models.InvestorAccount{
			Email:        fmt.Sprintf("investor%d@example.com", i+1),
			PasswordHash: "x",
			IsActive:     true,
		}
		require.NoError(t, db.Create(&investors[i]).Error)
	}

	bc := NewBookingController(db, notifications.NewMailer(context.Background(), "", ""))

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	// First slot on the analyst's calendar.
	w := postBooking(t, bc, investors[0].ID, analyst.ID, start, start.Add(time.Hour))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Any intersection with a pending slot is rejected.
	w = postBooking(t, bc, investors[1].ID, analyst.ID, start.Add(30*time.Minute), start.Add(90*time.Minute))
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// Windows are half-open: a slot starting exactly when the first ends
	// does not intersect it.
	w = postBooking(t, bc, investors[2].ID, analyst.ID, start.Add(time.Hour), start.Add(2*time.Hour))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var count int64
	db.Model(&models.SessionBooking{}).Count(&count)
	assert.EqualValues(t, 2, count)

	// The model helper agrees with the SQL predicate on both edges.
	var first models.SessionBooking
	require.NoError(t, db.Where("investor_id = ?", investors[0].ID).First(&first).Error)
	assert.True(t, first.Overlaps(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.False(t, first.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
	assert.False(t, first.Overlaps(start.Add(-time.Hour), start))
}

func TestCreateBookingRejectsInvertedWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newBookingTestDB(t)

	analyst := models.AnalystProfile{
		Email:              "analyst2@example.com",
		PasswordHash:       "x",
		SEBIRegistration:   "INH000008888",
		CertificationState: models.CertificationVerified,
		IsActive:           true,
	}
	require.NoError(t, db.Create(&analyst).Error)

	investor := models.InvestorAccount{Email: "inv@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&investor).Error)

	bc := NewBookingController(db, notifications.NewMailer(context.Background(), "", ""))

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	w := postBooking(t, bc, investor.ID, analyst.ID, start.Add(time.Hour), start)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postBooking(t, bc, investor.ID, analyst.ID, start, start)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
