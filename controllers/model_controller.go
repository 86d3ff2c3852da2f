package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"research_platform_backend/middleware"
	"research_platform_backend/models"
	"research_platform_backend/services/backtesting"
	"research_platform_backend/services/modelrunner"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ModelController manages the published model catalog: creation, runs,
// subscriptions and backtests.
type ModelController struct {
	db     *gorm.DB
	runner *modelrunner.Runner
	engine *backtesting.Engine
}

// NewModelController creates a new model controller
func NewModelController(db *gorm.DB, runner *modelrunner.Runner, engine *backtesting.Engine) *ModelController {
	return &ModelController{db: db, runner: runner, engine: engine}
}

// ListModels returns the public catalog of active models
// GET /api/v1/models
func (mc *ModelController) ListModels(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := mc.db.Model(&models.PublishedModel{}).Where("is_active = ?", true)
	if analystID := c.Query("analyst_id"); analystID != "" {
		query = query.Where("analyst_id = ?", analystID)
	}
	if category := c.Query("category"); category != "" {
		if !models.IsValidModelCategory(category) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        "Invalid category",
				"valid_values": models.ValidModelCategories(),
			})
			return
		}
		query = query.Where("category = ?", category)
	}

	var total int64
	query.Count(&total)

	var catalog []models.PublishedModel
	if err := query.Preload("Analyst").
		Order("run_count DESC").
		Limit(limit).Offset(offset).
		Find(&catalog).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch models"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": catalog,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetModel returns one model with its latest recommendations
// GET /api/v1/models/:id
func (mc *ModelController) GetModel(c *gin.Context) {
	var model models.PublishedModel
	if err := mc.db.Preload("Analyst").First(&model, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}

	var recs []models.ModelRecommendation
	mc.db.Where("model_id = ?", model.ID).
		Order("created_at DESC").Limit(20).Find(&recs)

	c.JSON(http.StatusOK, gin.H{
		"data":            model,
		"recommendations": recs,
	})
}

// CreateModel publishes a new model authored by the analyst
// POST /api/v1/models
func (mc *ModelController) CreateModel(c *gin.Context) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		Name            string  `json:"name" binding:"required"`
		Category        string  `json:"category" binding:"required"`
		Description     string  `json:"description"`
		Tickers         string  `json:"tickers" binding:"required"`
		ClaimedAccuracy float64 `json:"claimed_accuracy"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.IsValidModelCategory(request.Category) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "Invalid category",
			"valid_values": models.ValidModelCategories(),
		})
		return
	}
	if request.ClaimedAccuracy < 0 || request.ClaimedAccuracy > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Claimed accuracy must be between 0 and 100"})
		return
	}

	model := models.PublishedModel{
		AnalystID:       analystID,
		Name:            request.Name,
		Category:        request.Category,
		Description:     request.Description,
		Tickers:         strings.ToUpper(strings.ReplaceAll(request.Tickers, " ", "")),
		ClaimedAccuracy: decimal.NewFromFloat(request.ClaimedAccuracy).Round(2),
		IsActive:        true,
	}
	if err := mc.db.Create(&model).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Model name already in use"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": model})
}

// UpdateModel edits a model owned by the analyst
// PUT /api/v1/models/:id
func (mc *ModelController) UpdateModel(c *gin.Context) {
	model, ok := mc.ownedModel(c)
	if !ok {
		return
	}

	var request struct {
		Description     string   `json:"description"`
		Tickers         string   `json:"tickers"`
		ClaimedAccuracy *float64 `json:"claimed_accuracy"`
		IsActive        *bool    `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.Description != "" {
		updates["description"] = request.Description
	}
	if request.Tickers != "" {
		updates["tickers"] = strings.ToUpper(strings.ReplaceAll(request.Tickers, " ", ""))
	}
	if request.ClaimedAccuracy != nil {
		if *request.ClaimedAccuracy < 0 || *request.ClaimedAccuracy > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Claimed accuracy must be between 0 and 100"})
			return
		}
		updates["claimed_accuracy"] = decimal.NewFromFloat(*request.ClaimedAccuracy).Round(2)
	}
	if request.IsActive != nil {
		updates["is_active"] = *request.IsActive
	}

	if len(updates) > 0 {
		if err := mc.db.Model(model).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update model"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": model})
}

// RunModel executes the model now and returns fresh recommendations
// POST /api/v1/models/:id/run
func (mc *ModelController) RunModel(c *gin.Context) {
	model, ok := mc.ownedModel(c)
	if !ok {
		return
	}

	recs, err := mc.runner.Run(c.Request.Context(), model.ID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": recs})
}

// ListRecommendations returns recent recommendations for a model,
// visible to subscribed investors and the owning analyst
// GET /api/v1/models/:id/recommendations
func (mc *ModelController) ListRecommendations(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	role, _ := middleware.RoleFromContext(c)

	var model models.PublishedModel
	if err := mc.db.First(&model, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}

	allowed := role == middleware.RoleAnalyst && model.AnalystID == userID
	if !allowed && role == middleware.RoleInvestor {
		var count int64
		mc.db.Model(&models.ModelSubscription{}).
			Where("investor_id = ? AND model_id = ?", userID, model.ID).
			Count(&count)
		allowed = count > 0
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Subscribe to this model to view its recommendations"})
		return
	}

	var recs []models.ModelRecommendation
	if err := mc.db.Where("model_id = ?", model.ID).
		Order("created_at DESC").Limit(100).Find(&recs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": recs})
}

// SubscribeModel follows a model, subject to the plan limit
// POST /api/v1/models/:id/subscribe
func (mc *ModelController) SubscribeModel(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var model models.PublishedModel
	if err := mc.db.Where("is_active = ?", true).First(&model, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}

	entitlements, err := entitlementsFor(mc.db, investorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan limits"})
		return
	}

	var count int64
	mc.db.Model(&models.ModelSubscription{}).
		Where("investor_id = ?", investorID).Count(&count)
	if int(count) >= entitlements.MaxModelSubscriptions {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Model subscription limit reached for your plan",
			"limit": entitlements.MaxModelSubscriptions,
			"plan":  entitlements.PlanName,
		})
		return
	}

	sub := models.ModelSubscription{
		InvestorID: investorID,
		ModelID:    model.ID,
	}
	if err := mc.db.Create(&sub).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already subscribed to this model"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": sub})
}

// UnsubscribeModel stops following a model
// DELETE /api/v1/models/:id/subscribe
func (mc *ModelController) UnsubscribeModel(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	result := mc.db.Where("investor_id = ? AND model_id = ?", investorID, c.Param("id")).
		Delete(&models.ModelSubscription{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not subscribed to this model"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

// RunBacktest replays the model over cached history
// POST /api/v1/models/:id/backtest
func (mc *ModelController) RunBacktest(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	role, _ := middleware.RoleFromContext(c)

	var model models.PublishedModel
	if err := mc.db.First(&model, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}

	switch role {
	case middleware.RoleAnalyst:
		if model.AnalystID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not your model"})
			return
		}
	case middleware.RoleInvestor:
		entitlements, err := entitlementsFor(mc.db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan limits"})
			return
		}
		if !entitlements.HasBacktesting {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Backtesting requires a plan upgrade",
				"plan":  entitlements.PlanName,
			})
			return
		}
	}

	var request struct {
		StartDate      string  `json:"start_date" binding:"required"` // YYYY-MM-DD
		EndDate        string  `json:"end_date" binding:"required"`
		InitialCapital float64 `json:"initial_capital"`
		Commission     float64 `json:"commission"`
		RiskPerTrade   float64 `json:"risk_per_trade"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", request.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date, use YYYY-MM-DD"})
		return
	}
	endDate, err := time.Parse("2006-01-02", request.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date, use YYYY-MM-DD"})
		return
	}
	if !startDate.Before(endDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be before end_date"})
		return
	}

	config := &backtesting.Config{
		ModelID:        model.ID,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: decimal.NewFromFloat(request.InitialCapital),
		Commission:     decimal.NewFromFloat(request.Commission),
		RiskPerTrade:   decimal.NewFromFloat(request.RiskPerTrade),
	}
	if config.InitialCapital.LessThanOrEqual(decimal.Zero) {
		config.InitialCapital = decimal.NewFromInt(1000000) // 10 lakh default
	}
	if config.RiskPerTrade.LessThanOrEqual(decimal.Zero) {
		config.RiskPerTrade = decimal.NewFromFloat(0.2)
	}
	if config.Commission.LessThan(decimal.Zero) {
		config.Commission = decimal.Zero
	}

	backtest, err := mc.engine.Run(config)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": backtest})
}

// ListBacktests returns past backtests for a model
// GET /api/v1/models/:id/backtests
func (mc *ModelController) ListBacktests(c *gin.Context) {
	var backtests []models.ModelBacktest
	if err := mc.db.Where("model_id = ?", c.Param("id")).
		Order("created_at DESC").Limit(20).Find(&backtests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch backtests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": backtests})
}

// ownedModel loads the :id model and verifies the analyst owns it
func (mc *ModelController) ownedModel(c *gin.Context) (*models.PublishedModel, bool) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	var model models.PublishedModel
	if err := mc.db.First(&model, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return nil, false
	}
	if model.AnalystID != analystID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your model"})
		return nil, false
	}
	return &model, true
}
