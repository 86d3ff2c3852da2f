package routes

import (
	"context"
	"log"
	"net/http"

	"research_platform_backend/admin"
	"research_platform_backend/config"
	"research_platform_backend/controllers"
	"research_platform_backend/middleware"
	"research_platform_backend/services/backtesting"
	"research_platform_backend/services/chatarchive"
	"research_platform_backend/services/llm"
	"research_platform_backend/services/marketdata"
	"research_platform_backend/services/modelrunner"
	"research_platform_backend/services/notifications"
	"research_platform_backend/services/payments"
	"research_platform_backend/services/recommendations"
	"research_platform_backend/services/risk"
	"research_platform_backend/services/scoring"
	"research_platform_backend/services/terminalstream"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API and admin routes. The returned function
// releases long-lived service resources (stream hub, transcript archive)
// and belongs in the server's graceful shutdown path.
func SetupRoutes(router *gin.Engine, db *gorm.DB) func() {
	cfg := config.AppConfig

	// Initialize shared services
	scorer := scoring.NewService(db)
	extractor := recommendations.NewService(db)
	fetcher := marketdata.NewFetcher(db, cfg.MarketDataBaseURL)
	analyzer := risk.NewAnalyzer(db, cfg.BenchmarkTicker)
	runner := modelrunner.NewRunner(db, fetcher)
	engine := backtesting.NewEngine(db)
	llmClient := llm.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	paymentService := payments.NewService(db, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	mailer := notifications.NewMailer(context.Background(), cfg.SESRegion, cfg.SESSender)
	archive := chatarchive.NewArchive(cfg.MongoDBURI)
	hub := terminalstream.NewHub()

	// Initialize controllers
	authController := controllers.NewAuthController(db, cfg.JWTSecret)
	analystController := controllers.NewAnalystController(db)
	reportController := controllers.NewReportController(db, scorer, extractor, llmClient)
	portfolioController := controllers.NewPortfolioController(db, fetcher, analyzer)
	modelController := controllers.NewModelController(db, runner, engine)
	bookingController := controllers.NewBookingController(db, mailer)
	subscriptionController := controllers.NewSubscriptionController(db, paymentService, mailer)
	terminalController := controllers.NewTerminalController(db, llmClient, hub, archive)
	marketController := controllers.NewMarketController(db, fetcher)

	// Initialize admin controllers
	adminAuthController := admin.NewAuthController(db)
	adminController := admin.NewAdminController(db, scorer, runner, mailer)
	userManagementController := admin.NewUserManagementController(db)

	requireAuth := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	optionalAuth := middleware.OptionalJWTAuthMiddleware(cfg.JWTSecret)
	analystOnly := middleware.RequireRole(middleware.RoleAnalyst)
	investorOnly := middleware.RequireRole(middleware.RoleInvestor)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Integration diagnostics: which optional backends are live
		api.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"llm":          llmClient.Enabled(),
				"payments":     paymentService.Enabled(),
				"email":        mailer.Enabled(),
				"chat_archive": archive.ConnectionStatus(),
			})
		})

		// Authentication
		auth := api.Group("/auth")
		{
			auth.POST("/analyst/register", authController.RegisterAnalyst)
			auth.POST("/analyst/login", middleware.APILoginRateLimitMiddleware(), authController.LoginAnalyst)
			auth.POST("/investor/register", authController.RegisterInvestor)
			auth.POST("/investor/login", middleware.APILoginRateLimitMiddleware(), authController.LoginInvestor)
			auth.GET("/me", requireAuth, authController.Me)
		}

		// Analyst directory; profile and rating routes require a token
		analysts := api.Group("/analysts")
		{
			analysts.GET("", analystController.ListAnalysts)
			analysts.GET("/:id", analystController.GetAnalyst)
			analysts.GET("/:id/availability", bookingController.GetAvailability)
			analysts.PUT("/profile", requireAuth, analystOnly, analystController.UpdateProfile)
			analysts.POST("/:id/ratings", requireAuth, investorOnly, analystController.RateAnalyst)
		}

		// Research reports
		reports := api.Group("/reports")
		{
			reports.GET("", reportController.ListPublishedReports)
			reports.GET("/mine", requireAuth, analystOnly, reportController.ListMyReports)
			reports.GET("/:id", optionalAuth, reportController.GetReport)
			reports.POST("", requireAuth, analystOnly, reportController.CreateReport)
			reports.POST("/draft", requireAuth, analystOnly, reportController.DraftWithLLM)
			reports.PUT("/:id", requireAuth, analystOnly, reportController.UpdateReport)
			reports.POST("/:id/submit", requireAuth, analystOnly, reportController.SubmitReport)
			reports.POST("/:id/publish", requireAuth, analystOnly, reportController.PublishReport)
		}

		// Published model catalog
		catalog := api.Group("/models")
		{
			catalog.GET("", modelController.ListModels)
			catalog.GET("/:id", modelController.GetModel)
			catalog.POST("", requireAuth, analystOnly, modelController.CreateModel)
			catalog.PUT("/:id", requireAuth, analystOnly, modelController.UpdateModel)
			catalog.POST("/:id/run", requireAuth, analystOnly, modelController.RunModel)
			catalog.GET("/:id/recommendations", requireAuth, modelController.ListRecommendations)
			catalog.POST("/:id/subscribe", requireAuth, investorOnly, modelController.SubscribeModel)
			catalog.DELETE("/:id/subscribe", requireAuth, investorOnly, modelController.UnsubscribeModel)
			catalog.POST("/:id/backtest", requireAuth, modelController.RunBacktest)
			catalog.GET("/:id/backtests", requireAuth, modelController.ListBacktests)
		}

		// Investor portfolio
		portfolio := api.Group("/portfolio", requireAuth, investorOnly)
		{
			portfolio.GET("/holdings", portfolioController.ListHoldings)
			portfolio.POST("/holdings", portfolioController.AddHolding)
			portfolio.PUT("/holdings/:id", portfolioController.UpdateHolding)
			portfolio.DELETE("/holdings/:id", portfolioController.RemoveHolding)
			portfolio.GET("/valuation", portfolioController.GetValuation)
			portfolio.POST("/risk", portfolioController.GetRiskAssessment)
			portfolio.GET("/risk/history", portfolioController.ListRiskHistory)
			portfolio.GET("/snapshots", portfolioController.ListSnapshots)
		}

		// Consultation bookings
		bookings := api.Group("/bookings", requireAuth)
		{
			bookings.POST("", investorOnly, bookingController.CreateBooking)
			bookings.GET("", bookingController.ListBookings)
			bookings.POST("/:id/confirm", analystOnly, bookingController.ConfirmBooking)
			bookings.POST("/:id/cancel", bookingController.CancelBooking)
			bookings.POST("/:id/complete", analystOnly, bookingController.CompleteBooking)
		}

		// Subscriptions and payments
		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.GET("/plans", subscriptionController.GetPlans)
			subscriptions.GET("/plans/:id", subscriptionController.GetPlan)
			subscriptions.GET("/me", requireAuth, investorOnly, subscriptionController.GetMySubscription)
			subscriptions.POST("/checkout", requireAuth, investorOnly, subscriptionController.Checkout)
			subscriptions.POST("/verify", requireAuth, investorOnly, subscriptionController.VerifyPayment)
			subscriptions.POST("/cancel", requireAuth, investorOnly, subscriptionController.CancelSubscription)
			subscriptions.GET("/payments", requireAuth, investorOnly, subscriptionController.GetPaymentHistory)
		}

		// Chat terminal
		terminal := api.Group("/terminal", requireAuth)
		{
			terminal.POST("/threads", terminalController.CreateThread)
			terminal.GET("/threads", terminalController.ListThreads)
			terminal.GET("/threads/:key", terminalController.GetThread)
			terminal.POST("/threads/:key/messages", terminalController.PostMessage)
			terminal.GET("/threads/:key/stream", terminalController.StreamThread)
			terminal.DELETE("/threads/:key", terminalController.CloseThread)
		}

		// Market data
		market := api.Group("/market")
		{
			market.GET("/quote/:ticker", marketController.GetQuote)
			market.GET("/history/:ticker", marketController.GetHistory)
		}
	}

	// Admin UI routes
	adminRoutes := router.Group("/admin")
	{
		// Login is rate limited and CSRF protected
		adminRoutes.GET("/login", adminAuthController.LoginPage)
		adminRoutes.POST("/login", middleware.LoginRateLimitMiddleware(), middleware.CSRFMiddleware(), adminAuthController.Login)
		adminRoutes.GET("/logout", adminAuthController.Logout)

		// Everything else requires an admin session
		authed := adminRoutes.Group("", adminAuthController.AuthMiddleware())
		{
			authed.GET("", adminController.Dashboard)
			authed.GET("/analysts", adminController.AnalystsPage)
			authed.GET("/reports", adminController.ReportsPage)
			authed.GET("/models", adminController.ModelsPage)
			authed.GET("/bookings", adminController.BookingsPage)
			authed.GET("/payments", adminController.PaymentsPage)
			authed.GET("/plans", adminController.PlansPage)
			authed.GET("/investors", userManagementController.ListInvestors)
			authed.GET("/users", userManagementController.AdminUsersPage)

			actions := authed.Group("/actions")
			{
				actions.POST("/certify-analyst", adminController.CertifyAnalystAction)
				actions.POST("/deactivate-analyst", adminController.DeactivateAnalystAction)
				actions.POST("/rescore-report", adminController.RescoreReportAction)
				actions.POST("/unpublish-report", adminController.UnpublishReportAction)
				actions.POST("/toggle-model", adminController.ToggleModelAction)
				actions.POST("/run-model", adminController.RunModelAction)
				actions.POST("/create-plan", adminController.CreatePlanAction)
				actions.POST("/toggle-plan", adminController.TogglePlanAction)
			}

			adminAPI := authed.Group("/api")
			{
				adminAPI.GET("/investors/export", userManagementController.ExportInvestors)
				adminAPI.GET("/investors/:id", userManagementController.GetInvestor)
				adminAPI.POST("/investors/:id/status", userManagementController.SetInvestorStatus)
				adminAPI.POST("/investors/:id/reset-password", userManagementController.ResetInvestorPassword)
				adminAPI.POST("/users", userManagementController.CreateAdminUser)
				adminAPI.POST("/users/:id/status", userManagementController.SetAdminUserStatus)
			}
		}
	}

	return func() {
		hub.Shutdown()
		if err := archive.Close(); err != nil {
			log.Printf("Error closing transcript archive: %v", err)
		}
	}
}
