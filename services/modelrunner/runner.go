package modelrunner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"research_platform_backend/models"
	"research_platform_backend/services/marketdata"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Runner executes published models: it fetches market data for the model's
// universe, applies the category heuristic, and persists recommendations.
type Runner struct {
	db      *gorm.DB
	fetcher *marketdata.Fetcher
}

// NewRunner creates a new model runner
func NewRunner(db *gorm.DB, fetcher *marketdata.Fetcher) *Runner {
	return &Runner{db: db, fetcher: fetcher}
}

// Run executes a model for every ticker in its universe and stores one
// ModelRecommendation per ticker. Tickers without enough history are
// skipped, not failed.
func (r *Runner) Run(ctx context.Context, modelID uint) ([]models.ModelRecommendation, error) {
	var model models.PublishedModel
	if err := r.db.First(&model, modelID).Error; err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}
	if !model.IsActive {
		return nil, fmt.Errorf("model %q is not active", model.Name)
	}

	tickers := splitTickers(model.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("model %q has no tickers configured", model.Name)
	}

	since := time.Now().AddDate(0, -6, 0)
	var recs []models.ModelRecommendation

	for _, ticker := range tickers {
		// Top up the bar cache; stale data still classifies.
		_, _ = r.fetcher.FetchHistory(ctx, ticker, since, time.Now())

		closes, err := r.fetcher.Closes(ticker, since)
		if err != nil || len(closes) < longWindow {
			continue
		}

		signal := Classify(model.Category, closes)

		rec := models.ModelRecommendation{
			ModelID:    model.ID,
			Ticker:     ticker,
			Action:     signal.Action,
			Confidence: decimal.NewFromFloat(signal.Confidence).Round(4),
			PriceAtRun: decimal.NewFromFloat(closes[len(closes)-1]).Round(2),
			Rationale:  signal.Rationale,
		}
		if err := r.db.Create(&rec).Error; err != nil {
			return recs, fmt.Errorf("failed to store recommendation for %s: %w", ticker, err)
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("no tickers produced a recommendation for model %q", model.Name)
	}

	now := time.Now()
	if err := r.db.Model(&model).Updates(map[string]interface{}{
		"run_count":   gorm.Expr("run_count + 1"),
		"last_run_at": now,
	}).Error; err != nil {
		return recs, fmt.Errorf("failed to update run stats: %w", err)
	}

	return recs, nil
}

// RunAllActive executes every active model. Used by the scheduler.
func (r *Runner) RunAllActive(ctx context.Context) (int, error) {
	var activeModels []models.PublishedModel
	if err := r.db.Where("is_active = ?", true).Find(&activeModels).Error; err != nil {
		return 0, err
	}

	executed := 0
	for _, m := range activeModels {
		if _, err := r.Run(ctx, m.ID); err != nil {
			continue
		}
		executed++
	}
	return executed, nil
}

func splitTickers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		t := strings.ToUpper(strings.TrimSpace(part))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
