package controllers

import (
	"errors"

	"research_platform_backend/models"

	"gorm.io/gorm"
)

// Entitlements are the feature limits the investor's current plan grants.
// Investors with no active subscription get the free-tier defaults.
type Entitlements struct {
	PlanName              string
	MaxHoldings           int
	MaxModelSubscriptions int
	MaxBookingsPerMonth   int
	HasTerminalAccess     bool
	HasRiskAnalytics      bool
	HasBacktesting        bool
}

// Free-tier defaults applied when no subscription exists
var freeTier = Entitlements{
	PlanName:              "Free",
	MaxHoldings:           10,
	MaxModelSubscriptions: 3,
	MaxBookingsPerMonth:   1,
}

// entitlementsFor resolves the investor's plan limits.
func entitlementsFor(db *gorm.DB, investorID uint) (*Entitlements, error) {
	var sub models.Subscription
	err := db.Where("investor_id = ? AND status = ?", investorID, models.SubscriptionStatusActive).
		Preload("Plan").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		free := freeTier
		return &free, nil
	}
	if err != nil {
		return nil, err
	}

	return &Entitlements{
		PlanName:              sub.Plan.Name,
		MaxHoldings:           sub.Plan.MaxHoldings,
		MaxModelSubscriptions: sub.Plan.MaxModelSubscriptions,
		MaxBookingsPerMonth:   sub.Plan.MaxBookingsPerMonth,
		HasTerminalAccess:     sub.Plan.HasTerminalAccess,
		HasRiskAnalytics:      sub.Plan.HasRiskAnalytics,
		HasBacktesting:        sub.Plan.HasBacktesting,
	}, nil
}
