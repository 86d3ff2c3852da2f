package admin

import (
	"net/http"
	"strconv"
	"time"

	"research_platform_backend/models"
	"research_platform_backend/services/modelrunner"
	"research_platform_backend/services/notifications"
	"research_platform_backend/services/scoring"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdminController handles admin UI requests
type AdminController struct {
	db     *gorm.DB
	scorer *scoring.Service
	runner *modelrunner.Runner
	mailer *notifications.Mailer
}

// NewAdminController creates a new admin controller
func NewAdminController(db *gorm.DB, scorer *scoring.Service, runner *modelrunner.Runner, mailer *notifications.Mailer) *AdminController {
	return &AdminController{db: db, scorer: scorer, runner: runner, mailer: mailer}
}

// Dashboard shows admin dashboard
func (ac *AdminController) Dashboard(c *gin.Context) {
	adminUser := ac.getAdminUser(c)

	var analystCount int64
	ac.db.Model(&models.AnalystProfile{}).Count(&analystCount)

	var pendingAnalysts int64
	ac.db.Model(&models.AnalystProfile{}).
		Where("certification_state = ?", models.CertificationPending).Count(&pendingAnalysts)

	var investorCount int64
	ac.db.Model(&models.InvestorAccount{}).Count(&investorCount)

	var reportCount int64
	ac.db.Model(&models.ResearchReport{}).Count(&reportCount)

	var flaggedReports int64
	ac.db.Model(&models.ResearchReport{}).
		Where("status = ?", models.ReportStatusFlagged).Count(&flaggedReports)

	var modelCount int64
	ac.db.Model(&models.PublishedModel{}).Count(&modelCount)

	var bookingCount int64
	ac.db.Model(&models.SessionBooking{}).
		Where("status IN ?", []string{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Count(&bookingCount)

	var revenue decimal.Decimal
	var payments []models.PaymentRecord
	ac.db.Where("status = ?", models.PaymentStatusCompleted).Find(&payments)
	for _, payment := range payments {
		revenue = revenue.Add(payment.Amount)
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"analystCount":    analystCount,
		"pendingAnalysts": pendingAnalysts,
		"investorCount":   investorCount,
		"reportCount":     reportCount,
		"flaggedReports":  flaggedReports,
		"modelCount":      modelCount,
		"bookingCount":    bookingCount,
		"revenue":         revenue.Round(2),
		"adminUser":       adminUser,
		"page":            "dashboard",
		"title":           "Dashboard",
	})
}

// getAdminUser retrieves the admin user from context
func (ac *AdminController) getAdminUser(c *gin.Context) *models.AdminUser {
	if user, exists := c.Get("admin_user"); exists {
		if adminUser, ok := user.(models.AdminUser); ok {
			return &adminUser
		}
	}
	return nil
}

// AnalystsPage shows the analyst certification queue and directory
func (ac *AdminController) AnalystsPage(c *gin.Context) {
	adminUser := ac.getAdminUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit := 50
	offset := (page - 1) * limit

	query := ac.db.Model(&models.AnalystProfile{})
	if state := c.Query("state"); state != "" && models.IsValidCertificationState(state) {
		query = query.Where("certification_state = ?", state)
	}

	var total int64
	query.Count(&total)

	var analysts []models.AnalystProfile
	query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&analysts)

	c.HTML(http.StatusOK, "analysts.html", gin.H{
		"analysts":  analysts,
		"page":      page,
		"total":     total,
		"adminUser": adminUser,
		"title":     "Analysts",
	})
}

// ReportsPage shows reports needing attention
func (ac *AdminController) ReportsPage(c *gin.Context) {
	adminUser := ac.getAdminUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit := 50
	offset := (page - 1) * limit

	query := ac.db.Model(&models.ResearchReport{})
	status := c.DefaultQuery("status", models.ReportStatusFlagged)
	if models.IsValidReportStatus(status) {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var reports []models.ResearchReport
	query.Preload("Analyst").Order("updated_at DESC").Limit(limit).Offset(offset).Find(&reports)

	c.HTML(http.StatusOK, "reports.html", gin.H{
		"reports":   reports,
		"status":    status,
		"page":      page,
		"total":     total,
		"adminUser": adminUser,
		"title":     "Reports",
	})
}

// ModelsPage shows the published model catalog
func (ac *AdminController) ModelsPage(c *gin.Context) {
	adminUser := ac.getAdminUser(c)

	var catalog []models.PublishedModel
	ac.db.Preload("Analyst").Order("run_count DESC").Limit(200).Find(&catalog)

	c.HTML(http.StatusOK, "models.html", gin.H{
		"models":    catalog,
		"adminUser": adminUser,
		"title":     "Models",
	})
}

// BookingsPage shows upcoming consultation sessions
func (ac *AdminController) BookingsPage(c *gin.Context) {
	adminUser := ac.getAdminUser(c)

	var bookings []models.SessionBooking
	ac.db.Preload("Analyst").Preload("Investor").
		Where("start_at >= ?", time.Now().AddDate(0, 0, -7)).
		Order("start_at ASC").Limit(200).Find(&bookings)

	c.HTML(http.StatusOK, "bookings.html", gin.H{
		"bookings":  bookings,
		"adminUser": adminUser,
		"title":     "Bookings",
	})
}

// PaymentsPage shows payment records
func (ac *AdminController) PaymentsPage(c *gin.Context) {
	adminUser := ac.getAdminUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit := 50
	offset := (page - 1) * limit

	var total int64
	ac.db.Model(&models.PaymentRecord{}).Count(&total)

	var payments []models.PaymentRecord
	ac.db.Preload("Investor").Order("created_at DESC").Limit(limit).Offset(offset).Find(&payments)

	c.HTML(http.StatusOK, "payments.html", gin.H{
		"payments":  payments,
		"page":      page,
		"total":     total,
		"adminUser": adminUser,
		"title":     "Payments",
	})
}

// PlansPage shows subscription plan management
func (ac *AdminController) PlansPage(c *gin.Context) {
	adminUser := ac.getAdminUser(c)

	var plans []models.SubscriptionPlan
	ac.db.Order("price ASC").Find(&plans)

	c.HTML(http.StatusOK, "plans.html", gin.H{
		"plans":     plans,
		"adminUser": adminUser,
		"title":     "Plans",
	})
}

// CertifyAnalystAction verifies or rejects an analyst registration
func (ac *AdminController) CertifyAnalystAction(c *gin.Context) {
	analystID := c.PostForm("analyst_id")
	state := c.PostForm("state")

	if !models.IsValidCertificationState(state) || state == models.CertificationPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "State must be verified or rejected"})
		return
	}

	var analyst models.AnalystProfile
	if err := ac.db.First(&analyst, analystID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analyst not found"})
		return
	}

	if err := ac.db.Model(&analyst).Update("certification_state", state).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update analyst"})
		return
	}

	ac.mailer.SendCertificationDecision(c.Request.Context(), analyst.Email, state)
	c.Redirect(http.StatusFound, "/admin/analysts")
}

// DeactivateAnalystAction soft-deletes an analyst account
func (ac *AdminController) DeactivateAnalystAction(c *gin.Context) {
	analystID := c.PostForm("analyst_id")
	active := c.PostForm("active") == "true"

	if err := ac.db.Model(&models.AnalystProfile{}).
		Where("id = ?", analystID).Update("is_active", active).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update analyst"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/analysts")
}

// RescoreReportAction re-runs quality scoring on a report
func (ac *AdminController) RescoreReportAction(c *gin.Context) {
	reportID, err := strconv.ParseUint(c.PostForm("report_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	if _, err := ac.scorer.ScoreReport(uint(reportID)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, "/admin/reports")
}

// UnpublishReportAction pulls a published report back to flagged
func (ac *AdminController) UnpublishReportAction(c *gin.Context) {
	reportID := c.PostForm("report_id")
	reason := c.PostForm("reason")
	if reason == "" {
		reason = "withdrawn by compliance review"
	}

	var report models.ResearchReport
	if err := ac.db.Preload("Analyst").First(&report, reportID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if report.Status != models.ReportStatusPublished {
		c.JSON(http.StatusConflict, gin.H{"error": "Report is not published"})
		return
	}

	updates := map[string]interface{}{
		"status":      models.ReportStatusFlagged,
		"flag_reason": reason,
	}
	if err := ac.db.Model(&report).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unpublish report"})
		return
	}

	ac.db.Model(&models.AnalystProfile{}).
		Where("id = ? AND reports_published > 0", report.AnalystID).
		Update("reports_published", gorm.Expr("reports_published - 1"))

	ac.mailer.SendReportFlagged(c.Request.Context(), report.Analyst.Email, report.Title, reason)
	c.Redirect(http.StatusFound, "/admin/reports")
}

// ToggleModelAction activates or deactivates a published model
func (ac *AdminController) ToggleModelAction(c *gin.Context) {
	modelID := c.PostForm("model_id")
	active := c.PostForm("active") == "true"

	if err := ac.db.Model(&models.PublishedModel{}).
		Where("id = ?", modelID).Update("is_active", active).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update model"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/models")
}

// RunModelAction executes a model run from the admin UI
func (ac *AdminController) RunModelAction(c *gin.Context) {
	modelID, err := strconv.ParseUint(c.PostForm("model_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid model id"})
		return
	}

	if _, err := ac.runner.Run(c.Request.Context(), uint(modelID)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, "/admin/models")
}

// CreatePlanAction creates a subscription plan from the admin form
func (ac *AdminController) CreatePlanAction(c *gin.Context) {
	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil || price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
		return
	}

	maxHoldings, _ := strconv.Atoi(c.DefaultPostForm("max_holdings", "10"))
	maxModels, _ := strconv.Atoi(c.DefaultPostForm("max_model_subscriptions", "3"))
	maxBookings, _ := strconv.Atoi(c.DefaultPostForm("max_bookings_per_month", "1"))

	currency := c.DefaultPostForm("currency", models.CurrencyINR)
	if !models.IsValidCurrency(currency) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid currency"})
		return
	}

	plan := models.SubscriptionPlan{
		Name:                  c.PostForm("name"),
		Description:           c.PostForm("description"),
		Price:                 decimal.NewFromFloat(price).Round(2),
		Currency:              currency,
		BillingCycle:          c.DefaultPostForm("billing_cycle", "monthly"),
		MaxHoldings:           maxHoldings,
		MaxModelSubscriptions: maxModels,
		MaxBookingsPerMonth:   maxBookings,
		HasTerminalAccess:     c.PostForm("has_terminal_access") == "on",
		HasRiskAnalytics:      c.PostForm("has_risk_analytics") == "on",
		HasBacktesting:        c.PostForm("has_backtesting") == "on",
		IsActive:              true,
	}
	if plan.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan name is required"})
		return
	}

	if err := ac.db.Create(&plan).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Plan name already in use"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/plans")
}

// TogglePlanAction activates or retires a plan
func (ac *AdminController) TogglePlanAction(c *gin.Context) {
	planID := c.PostForm("plan_id")
	active := c.PostForm("active") == "true"

	if err := ac.db.Model(&models.SubscriptionPlan{}).
		Where("id = ?", planID).Update("is_active", active).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/plans")
}
