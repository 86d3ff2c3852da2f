package controllers

import (
	"net/http"
	"time"

	"research_platform_backend/middleware"
	"research_platform_backend/models"
	"research_platform_backend/services/marketdata"
	"research_platform_backend/services/risk"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PortfolioController manages investor holdings, valuation and risk analytics
type PortfolioController struct {
	db       *gorm.DB
	fetcher  *marketdata.Fetcher
	analyzer *risk.Analyzer
}

// NewPortfolioController creates a new portfolio controller
func NewPortfolioController(db *gorm.DB, fetcher *marketdata.Fetcher, analyzer *risk.Analyzer) *PortfolioController {
	return &PortfolioController{db: db, fetcher: fetcher, analyzer: analyzer}
}

// ListHoldings returns the investor's active holdings
// GET /api/v1/portfolio/holdings
func (pc *PortfolioController) ListHoldings(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var holdings []models.PortfolioHolding
	if err := pc.db.Where("investor_id = ? AND is_active = ?", investorID, true).
		Order("ticker ASC").Find(&holdings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch holdings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": holdings})
}

// AddHolding adds or tops up a position, subject to the plan holding limit
// POST /api/v1/portfolio/holdings
func (pc *PortfolioController) AddHolding(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		Ticker   string  `json:"ticker" binding:"required"`
		Quantity float64 `json:"quantity" binding:"required,gt=0"`
		AvgCost  float64 `json:"avg_cost" binding:"required,gt=0"`
		Sector   string  `json:"sector"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity := decimal.NewFromFloat(request.Quantity)
	avgCost := decimal.NewFromFloat(request.AvgCost)

	// Topping up an existing position recomputes the weighted average cost.
	var existing models.PortfolioHolding
	err = pc.db.Where("investor_id = ? AND ticker = ?", investorID, request.Ticker).First(&existing).Error
	if err == nil {
		if existing.IsActive {
			oldValue := existing.AvgCost.Mul(existing.Quantity)
			newValue := avgCost.Mul(quantity)
			totalQty := existing.Quantity.Add(quantity)
			existing.AvgCost = oldValue.Add(newValue).Div(totalQty).Round(2)
			existing.Quantity = totalQty
		} else {
			existing.IsActive = true
			existing.Quantity = quantity
			existing.AvgCost = avgCost
		}
		if request.Sector != "" {
			existing.Sector = request.Sector
		}
		if err := pc.db.Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update holding"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": existing})
		return
	}

	entitlements, err := entitlementsFor(pc.db, investorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan limits"})
		return
	}

	var activeCount int64
	pc.db.Model(&models.PortfolioHolding{}).
		Where("investor_id = ? AND is_active = ?", investorID, true).
		Count(&activeCount)
	if int(activeCount) >= entitlements.MaxHoldings {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Holding limit reached for your plan",
			"limit": entitlements.MaxHoldings,
			"plan":  entitlements.PlanName,
		})
		return
	}

	now := time.Now()
	holding := models.PortfolioHolding{
		InvestorID:  investorID,
		Ticker:      request.Ticker,
		Quantity:    quantity,
		AvgCost:     avgCost,
		Sector:      request.Sector,
		IsActive:    true,
		PurchasedAt: &now,
	}
	if err := pc.db.Create(&holding).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add holding"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": holding})
}

// UpdateHolding adjusts quantity or average cost of a position
// PUT /api/v1/portfolio/holdings/:id
func (pc *PortfolioController) UpdateHolding(c *gin.Context) {
	holding, ok := pc.ownedHolding(c)
	if !ok {
		return
	}

	var request struct {
		Quantity *float64 `json:"quantity"`
		AvgCost  *float64 `json:"avg_cost"`
		Sector   string   `json:"sector"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.Quantity != nil {
		if *request.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be positive"})
			return
		}
		updates["quantity"] = decimal.NewFromFloat(*request.Quantity)
	}
	if request.AvgCost != nil {
		if *request.AvgCost <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Average cost must be positive"})
			return
		}
		updates["avg_cost"] = decimal.NewFromFloat(*request.AvgCost)
	}
	if request.Sector != "" {
		updates["sector"] = request.Sector
	}

	if len(updates) > 0 {
		if err := pc.db.Model(holding).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update holding"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": holding})
}

// RemoveHolding soft-deletes a position
// DELETE /api/v1/portfolio/holdings/:id
func (pc *PortfolioController) RemoveHolding(c *gin.Context) {
	holding, ok := pc.ownedHolding(c)
	if !ok {
		return
	}

	if err := pc.db.Model(holding).Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove holding"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Holding removed"})
}

// GetValuation marks the portfolio to the latest cached prices
// GET /api/v1/portfolio/valuation
func (pc *PortfolioController) GetValuation(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var holdings []models.PortfolioHolding
	if err := pc.db.Where("investor_id = ? AND is_active = ?", investorID, true).
		Find(&holdings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch holdings"})
		return
	}

	type positionValue struct {
		Ticker        string          `json:"ticker"`
		Quantity      decimal.Decimal `json:"quantity"`
		AvgCost       decimal.Decimal `json:"avg_cost"`
		LastPrice     decimal.Decimal `json:"last_price"`
		MarketValue   decimal.Decimal `json:"market_value"`
		CostBasis     decimal.Decimal `json:"cost_basis"`
		UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	}

	positions := make([]positionValue, 0, len(holdings))
	totalValue, totalCost := decimal.Zero, decimal.Zero

	for _, holding := range holdings {
		lastPrice, err := pc.fetcher.LatestClose(holding.Ticker)
		if err != nil {
			// No cached price yet: value at cost so the total stays meaningful.
			lastPrice = holding.AvgCost
		}
		marketValue := lastPrice.Mul(holding.Quantity)
		costBasis := holding.AvgCost.Mul(holding.Quantity)

		positions = append(positions, positionValue{
			Ticker:        holding.Ticker,
			Quantity:      holding.Quantity,
			AvgCost:       holding.AvgCost,
			LastPrice:     lastPrice,
			MarketValue:   marketValue.Round(2),
			CostBasis:     costBasis.Round(2),
			UnrealizedPnL: marketValue.Sub(costBasis).Round(2),
		})
		totalValue = totalValue.Add(marketValue)
		totalCost = totalCost.Add(costBasis)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"positions":      positions,
			"total_value":    totalValue.Round(2),
			"total_cost":     totalCost.Round(2),
			"unrealized_pnl": totalValue.Sub(totalCost).Round(2),
		},
	})
}

// GetRiskAssessment runs (or returns) the portfolio risk analysis
// POST /api/v1/portfolio/risk
func (pc *PortfolioController) GetRiskAssessment(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	entitlements, err := entitlementsFor(pc.db, investorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan limits"})
		return
	}
	if !entitlements.HasRiskAnalytics {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Risk analytics requires a plan upgrade",
			"plan":  entitlements.PlanName,
		})
		return
	}

	assessment, err := pc.analyzer.Assess(investorID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assessment})
}

// ListRiskHistory returns past risk assessments
// GET /api/v1/portfolio/risk/history
func (pc *PortfolioController) ListRiskHistory(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var assessments []models.RiskAssessment
	if err := pc.db.Where("investor_id = ?", investorID).
		Order("created_at DESC").Limit(30).Find(&assessments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assessments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assessments})
}

// ListSnapshots returns the daily valuation history
// GET /api/v1/portfolio/snapshots
func (pc *PortfolioController) ListSnapshots(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var snapshots []models.PortfolioSnapshot
	if err := pc.db.Where("investor_id = ?", investorID).
		Order("date DESC").Limit(90).Find(&snapshots).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch snapshots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

// ownedHolding loads the :id holding and verifies ownership
func (pc *PortfolioController) ownedHolding(c *gin.Context) (*models.PortfolioHolding, bool) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	var holding models.PortfolioHolding
	if err := pc.db.First(&holding, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Holding not found"})
		return nil, false
	}
	if holding.InvestorID != investorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your holding"})
		return nil, false
	}
	return &holding, true
}
