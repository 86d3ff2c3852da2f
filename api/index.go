package api

import (
	"net/http"

	"research_platform_backend/config"
	"research_platform_backend/models"
	"research_platform_backend/routes"

	"github.com/gin-gonic/gin"
)

var router *gin.Engine

func init() {
	// Load configuration
	_, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load configuration")
	}

	// Initialize database
	db, err := config.InitDB()
	if err != nil {
		panic("Failed to connect to database")
	}

	// Run migrations
	models.MigrateAnalystModels(db)
	models.MigrateInvestorModels(db)
	models.MigrateReportModels(db)
	models.MigratePortfolioModels(db)
	models.MigratePublishedModelModels(db)
	models.MigrateBookingModels(db)
	models.MigrateSubscriptionModels(db)
	models.MigrateChatModels(db)
	models.MigrateAdminModels(db)

	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Initialize router
	router = gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(corsMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Setup routes
	routes.SetupRoutes(router, db)
}

// Handler is the Vercel serverless function handler
func Handler(w http.ResponseWriter, r *http.Request) {
	router.ServeHTTP(w, r)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
