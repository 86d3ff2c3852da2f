package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"research_platform_backend/models"
	"research_platform_backend/services/marketdata"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MarketController exposes cached quotes and price history
type MarketController struct {
	db      *gorm.DB
	fetcher *marketdata.Fetcher
}

// NewMarketController creates a new market data controller
func NewMarketController(db *gorm.DB, fetcher *marketdata.Fetcher) *MarketController {
	return &MarketController{db: db, fetcher: fetcher}
}

// GetQuote returns the latest quote for a ticker
// GET /api/v1/market/quote/:ticker
func (mc *MarketController) GetQuote(c *gin.Context) {
	ticker := strings.ToUpper(c.Param("ticker"))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticker is required"})
		return
	}

	quote, err := mc.fetcher.FetchQuote(c.Request.Context(), ticker)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No quote available for " + ticker})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// GetHistory returns cached daily bars, fetching upstream when the cache
// is short
// GET /api/v1/market/history/:ticker?days=90
func (mc *MarketController) GetHistory(c *gin.Context) {
	ticker := strings.ToUpper(c.Param("ticker"))
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	if days < 1 || days > 1825 {
		days = 90
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	// Best effort refresh; serve the cache even if upstream is down.
	mc.fetcher.FetchHistory(c.Request.Context(), ticker, start, end)

	var bars []models.PriceBar
	if err := mc.db.Where("ticker = ? AND date >= ?", ticker, start).
		Order("date ASC").Find(&bars).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No price history for " + ticker})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": bars,
		"meta": gin.H{
			"ticker": ticker,
			"days":   days,
			"count":  len(bars),
		},
	})
}
