package scheduler

import (
	"context"
	"log"
	"time"

	"research_platform_backend/config"
	"research_platform_backend/models"
	"research_platform_backend/services/marketdata"
	"research_platform_backend/services/modelrunner"
	"research_platform_backend/services/payments"
	"research_platform_backend/services/risk"
	"research_platform_backend/services/scoring"

	"github.com/go-co-op/gocron"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron     *gocron.Scheduler
	db       *gorm.DB
	fetcher  *marketdata.Fetcher
	scorer   *scoring.Service
	runner   *modelrunner.Runner
	analyzer *risk.Analyzer
	payments *payments.Service
}

// NewScheduler creates a new scheduler instance
func NewScheduler(db *gorm.DB) *Scheduler {
	cfg := config.AppConfig
	fetcher := marketdata.NewFetcher(db, cfg.MarketDataBaseURL)

	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		db:       db,
		fetcher:  fetcher,
		scorer:   scoring.NewService(db),
		runner:   modelrunner.NewRunner(db, fetcher),
		analyzer: risk.NewAnalyzer(db, cfg.BenchmarkTicker),
		payments: payments.NewService(db, cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Score reports stuck in submitted state every 10 minutes
	s.cron.Every(10).Minutes().Do(func() {
		s.scoreSubmittedReports()
	})

	// Refresh cached prices for tracked tickers every 15 minutes during market hours
	s.cron.Every(15).Minutes().Do(func() {
		if isMarketOpen() {
			s.refreshTrackedPrices()
		}
	})

	// Run all active models daily at 11:00 UTC (after NSE close)
	s.cron.Every(1).Day().At("11:00").Do(func() {
		s.runActiveModels()
	})

	// Take end-of-day portfolio snapshots at 12:00 UTC
	s.cron.Every(1).Day().At("12:00").Do(func() {
		s.takePortfolioSnapshots()
	})

	// Refresh risk assessments for premium investors at 12:30 UTC
	s.cron.Every(1).Day().At("12:30").Do(func() {
		s.refreshRiskAssessments()
	})

	// Expire lapsed subscriptions shortly after midnight
	s.cron.Every(1).Day().At("00:30").Do(func() {
		if n, err := s.payments.ExpireLapsedSubscriptions(); err != nil {
			log.Printf("Error expiring subscriptions: %v", err)
		} else if n > 0 {
			log.Printf("Expired %d lapsed subscriptions", n)
		}
	})

	// Cleanup old data weekly on Sunday at 01:00
	s.cron.Every(1).Week().Sunday().At("01:00").Do(func() {
		s.cleanupOldData()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// scoreSubmittedReports scores any report left in the submitted state
func (s *Scheduler) scoreSubmittedReports() {
	scored, err := s.scorer.ScorePendingReports()
	if err != nil {
		log.Printf("Error scoring pending reports: %v", err)
		return
	}
	if scored > 0 {
		log.Printf("Scored %d pending reports", scored)
	}
}

// refreshTrackedPrices refreshes cached history for every ticker that appears
// in an active holding
func (s *Scheduler) refreshTrackedPrices() {
	var tickers []string
	if err := s.db.Model(&models.PortfolioHolding{}).
		Where("is_active = ?", true).
		Distinct().Pluck("ticker", &tickers).Error; err != nil {
		log.Printf("Error loading tracked tickers: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now().AddDate(0, 0, -7)
	end := time.Now()
	for _, ticker := range tickers {
		if _, err := s.fetcher.FetchHistory(ctx, ticker, start, end); err != nil {
			log.Printf("Error refreshing prices for %s: %v", ticker, err)
		}
	}

	log.Printf("Refreshed prices for %d tickers", len(tickers))
}

// runActiveModels executes every active published model once
func (s *Scheduler) runActiveModels() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ran, err := s.runner.RunAllActive(ctx)
	if err != nil {
		log.Printf("Error running active models: %v", err)
		return
	}
	log.Printf("Ran %d active models", ran)
}

// takePortfolioSnapshots records an end-of-day valuation for every investor
// with active holdings
func (s *Scheduler) takePortfolioSnapshots() {
	var investorIDs []uint
	if err := s.db.Model(&models.PortfolioHolding{}).
		Where("is_active = ?", true).
		Distinct().Pluck("investor_id", &investorIDs).Error; err != nil {
		log.Printf("Error loading investors for snapshots: %v", err)
		return
	}

	today := time.Now().Truncate(24 * time.Hour)
	taken := 0
	for _, investorID := range investorIDs {
		var holdings []models.PortfolioHolding
		if err := s.db.Where("investor_id = ? AND is_active = ?", investorID, true).
			Find(&holdings).Error; err != nil {
			continue
		}

		totalValue := decimal.Zero
		totalCost := decimal.Zero
		for _, holding := range holdings {
			price, err := s.fetcher.LatestClose(holding.Ticker)
			if err != nil {
				price = holding.AvgCost
			}
			totalValue = totalValue.Add(price.Mul(holding.Quantity))
			totalCost = totalCost.Add(holding.AvgCost.Mul(holding.Quantity))
		}

		snapshot := models.PortfolioSnapshot{
			InvestorID:    investorID,
			Date:          today,
			TotalValue:    totalValue.Round(2),
			TotalCost:     totalCost.Round(2),
			UnrealizedPnL: totalValue.Sub(totalCost).Round(2),
			Positions:     len(holdings),
		}

		// One snapshot per investor per day
		var existing models.PortfolioSnapshot
		if err := s.db.Where("investor_id = ? AND date = ?", investorID, today).
			First(&existing).Error; err == nil {
			snapshot.ID = existing.ID
			snapshot.CreatedAt = existing.CreatedAt
			s.db.Save(&snapshot)
		} else {
			s.db.Create(&snapshot)
		}
		taken++
	}

	log.Printf("Took %d portfolio snapshots", taken)
}

// refreshRiskAssessments refreshes risk metrics for investors whose plan
// includes risk analytics
func (s *Scheduler) refreshRiskAssessments() {
	var investorIDs []uint
	if err := s.db.Model(&models.Subscription{}).
		Joins("JOIN subscription_plans ON subscription_plans.id = subscriptions.plan_id").
		Where("subscriptions.status = ? AND subscription_plans.has_risk_analytics = ?", models.SubscriptionStatusActive, true).
		Pluck("subscriptions.investor_id", &investorIDs).Error; err != nil {
		log.Printf("Error loading investors for risk refresh: %v", err)
		return
	}

	refreshed := 0
	for _, investorID := range investorIDs {
		if _, err := s.analyzer.Assess(investorID); err != nil {
			// Investors without enough history are expected here
			continue
		}
		refreshed++
	}

	log.Printf("Refreshed %d risk assessments", refreshed)
}

// cleanupOldData removes old data to save storage
func (s *Scheduler) cleanupOldData() {
	log.Println("Cleaning up old data...")

	// Delete price bars older than 5 years
	fiveYearsAgo := time.Now().AddDate(-5, 0, 0)
	if err := s.db.Where("date < ?", fiveYearsAgo).Delete(&models.PriceBar{}).Error; err != nil {
		log.Printf("Error cleaning up old price bars: %v", err)
	}

	// Delete expired admin sessions
	if err := s.db.Where("expires_at < ?", time.Now()).Delete(&models.AdminSession{}).Error; err != nil {
		log.Printf("Error cleaning up admin sessions: %v", err)
	}

	// Delete risk assessments older than a year
	oneYearAgo := time.Now().AddDate(-1, 0, 0)
	if err := s.db.Where("created_at < ?", oneYearAgo).Delete(&models.RiskAssessment{}).Error; err != nil {
		log.Printf("Error cleaning up old risk assessments: %v", err)
	}

	// Delete closed chat threads untouched for 90 days; transcripts were
	// archived when the thread was closed
	ninetyDaysAgo := time.Now().AddDate(0, 0, -90)
	var staleThreads []models.ChatThread
	if err := s.db.Where("is_active = ? AND updated_at < ?", false, ninetyDaysAgo).
		Find(&staleThreads).Error; err == nil {
		for _, thread := range staleThreads {
			s.db.Where("thread_id = ?", thread.ID).Delete(&models.ChatMessage{})
			s.db.Delete(&thread)
		}
	}

	log.Println("Cleanup completed")
}

// isMarketOpen checks if the Indian stock market is currently open.
// NSE trades 09:15-15:30 IST, which is 03:45-10:00 UTC.
func isMarketOpen() bool {
	now := time.Now().UTC()

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	return minutes >= 3*60+45 && minutes < 10*60
}
