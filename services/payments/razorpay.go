package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"research_platform_backend/models"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotConfigured is returned when Razorpay credentials are missing
var ErrNotConfigured = errors.New("payment gateway not configured")

// ErrInvalidSignature is returned when a payment callback fails verification
var ErrInvalidSignature = errors.New("payment signature verification failed")

// Service creates Razorpay orders for plan purchases and verifies the
// signed callback before activating a subscription.
type Service struct {
	db        *gorm.DB
	client    *razorpay.Client
	keySecret string
}

// NewService builds the payment service; missing credentials yield a
// disabled service whose operations return ErrNotConfigured.
func NewService(db *gorm.DB, keyID, keySecret string) *Service {
	s := &Service{db: db, keySecret: keySecret}
	if keyID != "" && keySecret != "" {
		s.client = razorpay.NewClient(keyID, keySecret)
	}
	return s
}

// Enabled reports whether gateway credentials were configured
func (s *Service) Enabled() bool {
	return s.client != nil
}

// CreateOrder creates a Razorpay order for the plan and records a pending
// payment row. Amount is converted to paise as the gateway requires.
func (s *Service) CreateOrder(investorID uint, plan *models.SubscriptionPlan) (*models.PaymentRecord, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	amountPaise := plan.Price.Mul(decimal.NewFromInt(100)).IntPart()
	receipt := fmt.Sprintf("sub_%d_%d", investorID, time.Now().Unix())

	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": plan.Currency,
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"investor_id": fmt.Sprintf("%d", investorID),
			"plan_id":     fmt.Sprintf("%d", plan.ID),
		},
	}

	order, err := s.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}

	record := &models.PaymentRecord{
		InvestorID:      investorID,
		PlanID:          plan.ID,
		RazorpayOrderID: orderID,
		Amount:          plan.Price,
		Currency:        plan.Currency,
		Receipt:         receipt,
		Status:          models.PaymentStatusCreated,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	return record, nil
}

// VerifyAndCapture checks the callback signature and, on success, marks the
// payment completed and activates the investor's subscription.
func (s *Service) VerifyAndCapture(orderID, paymentID, signature string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := s.db.Where("razorpay_order_id = ?", orderID).First(&record).Error; err != nil {
		return nil, fmt.Errorf("unknown order: %w", err)
	}

	if !VerifySignature(orderID, paymentID, signature, s.keySecret) {
		record.Status = models.PaymentStatusFailed
		record.FailureReason = "signature mismatch"
		s.db.Save(&record)
		return nil, ErrInvalidSignature
	}

	now := time.Now()
	record.RazorpayPaymentID = paymentID
	record.Status = models.PaymentStatusCompleted
	record.ProcessedAt = &now
	if err := s.db.Save(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	if err := s.activateSubscription(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// VerifySignature checks the Razorpay checkout signature: HMAC-SHA256 over
// "<order_id>|<payment_id>" keyed by the key secret, hex encoded. Uses a
// constant-time comparison.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// activateSubscription upserts the investor subscription for the paid plan.
func (s *Service) activateSubscription(record *models.PaymentRecord) error {
	var plan models.SubscriptionPlan
	if err := s.db.First(&plan, record.PlanID).Error; err != nil {
		return fmt.Errorf("plan not found: %w", err)
	}

	now := time.Now()
	endDate := now.AddDate(0, 1, 0)
	if plan.BillingCycle == "yearly" {
		endDate = now.AddDate(1, 0, 0)
	}

	var sub models.Subscription
	err := s.db.Where("investor_id = ?", record.InvestorID).First(&sub).Error
	switch {
	case err == nil:
		sub.PlanID = plan.ID
		sub.Status = models.SubscriptionStatusActive
		sub.StartDate = now
		sub.EndDate = endDate
		sub.LastPaymentAt = &now
		if err := s.db.Save(&sub).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.Subscription{
			InvestorID:    record.InvestorID,
			PlanID:        plan.ID,
			Status:        models.SubscriptionStatusActive,
			StartDate:     now,
			EndDate:       endDate,
			LastPaymentAt: &now,
		}
		if err := s.db.Create(&sub).Error; err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	record.SubscriptionID = sub.ID
	return s.db.Model(record).Update("subscription_id", sub.ID).Error
}

// ExpireLapsedSubscriptions marks active subscriptions past their end date
// as expired. Returns the number of rows transitioned.
func (s *Service) ExpireLapsedSubscriptions() (int64, error) {
	result := s.db.Model(&models.Subscription{}).
		Where("status = ? AND end_date < ?", models.SubscriptionStatusActive, time.Now()).
		Update("status", models.SubscriptionStatusExpired)
	return result.RowsAffected, result.Error
}
