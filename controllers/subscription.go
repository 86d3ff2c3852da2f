package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"research_platform_backend/middleware"
	"research_platform_backend/models"
	"research_platform_backend/services/notifications"
	"research_platform_backend/services/payments"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubscriptionController handles plan discovery, Razorpay checkout and
// subscription lifecycle.
type SubscriptionController struct {
	db       *gorm.DB
	payments *payments.Service
	mailer   *notifications.Mailer
}

// NewSubscriptionController creates a new subscription controller
func NewSubscriptionController(db *gorm.DB, paymentService *payments.Service, mailer *notifications.Mailer) *SubscriptionController {
	return &SubscriptionController{db: db, payments: paymentService, mailer: mailer}
}

// GetPlans returns all available subscription plans
// GET /api/v1/subscriptions/plans
func (sc *SubscriptionController) GetPlans(c *gin.Context) {
	var plans []models.SubscriptionPlan
	if err := sc.db.Where("is_active = ?", true).Order("price ASC").Find(&plans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch plans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plans})
}

// GetPlan returns a single plan by ID
// GET /api/v1/subscriptions/plans/:id
func (sc *SubscriptionController) GetPlan(c *gin.Context) {
	var plan models.SubscriptionPlan
	if err := sc.db.First(&plan, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plan})
}

// GetMySubscription returns the caller's current subscription and limits
// GET /api/v1/subscriptions/me
func (sc *SubscriptionController) GetMySubscription(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	entitlements, err := entitlementsFor(sc.db, investorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription"})
		return
	}

	var sub models.Subscription
	err = sc.db.Where("investor_id = ?", investorID).Preload("Plan").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{
			"data":         nil,
			"entitlements": entitlements,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         sub,
		"entitlements": entitlements,
	})
}

// Checkout creates a Razorpay order for the chosen plan
// POST /api/v1/subscriptions/checkout
func (sc *SubscriptionController) Checkout(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		PlanID uint `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var plan models.SubscriptionPlan
	if err := sc.db.Where("is_active = ?", true).First(&plan, request.PlanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	record, err := sc.payments.CreateOrder(investorID, &plan)
	if err != nil {
		if errors.Is(err, payments.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not available"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create payment order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"order_id": record.RazorpayOrderID,
			"amount":   record.Amount,
			"currency": record.Currency,
			"receipt":  record.Receipt,
		},
	})
}

// VerifyPayment verifies the Razorpay checkout callback and activates the
// subscription on success
// POST /api/v1/subscriptions/verify
func (sc *SubscriptionController) VerifyPayment(c *gin.Context) {
	var request struct {
		RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
		RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
		RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := sc.payments.VerifyAndCapture(
		request.RazorpayOrderID, request.RazorpayPaymentID, request.RazorpaySignature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment signature verification failed"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var investor models.InvestorAccount
	var plan models.SubscriptionPlan
	if sc.db.First(&investor, record.InvestorID).Error == nil &&
		sc.db.First(&plan, record.PlanID).Error == nil {
		sc.mailer.SendPaymentReceipt(c.Request.Context(), investor.Email,
			plan.Name, record.Amount.StringFixed(2), record.Currency, record.RazorpayPaymentID)
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

// CancelSubscription cancels the caller's subscription
// POST /api/v1/subscriptions/cancel
func (sc *SubscriptionController) CancelSubscription(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		CancelReason string `json:"cancel_reason"`
	}
	c.ShouldBindJSON(&request)

	var subscription models.Subscription
	if err := sc.db.Where("investor_id = ? AND status = ?", investorID, models.SubscriptionStatusActive).
		First(&subscription).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active subscription found"})
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":        models.SubscriptionStatusCancelled,
		"auto_renew":    false,
		"cancelled_at":  now,
		"cancel_reason": request.CancelReason,
	}
	if err := sc.db.Model(&subscription).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription cancelled", "valid_until": subscription.EndDate})
}

// GetPaymentHistory returns the caller's payment history
// GET /api/v1/subscriptions/payments
func (sc *SubscriptionController) GetPaymentHistory(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var payments []models.PaymentRecord
	var total int64

	sc.db.Model(&models.PaymentRecord{}).Where("investor_id = ?", investorID).Count(&total)

	if err := sc.db.Where("investor_id = ?", investorID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": payments,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}
