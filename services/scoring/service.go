package scoring

import (
	"fmt"
	"strings"
	"time"

	"research_platform_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service persists scoring results against research reports
type Service struct {
	db *gorm.DB
}

// NewService creates a new scoring service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ScoreReport scores a report body and persists the breakdown. The report
// moves to "scored", or to "flagged" when the scorer flags it.
func (s *Service) ScoreReport(reportID uint) (*models.ReportScore, error) {
	var report models.ResearchReport
	if err := s.db.First(&report, reportID).Error; err != nil {
		return nil, fmt.Errorf("report not found: %w", err)
	}

	result := ScoreText(report.Body)

	score := models.ReportScore{
		ReportID:         report.ID,
		FactualAccuracy:  decimal.NewFromFloat(result.FactualAccuracy).Round(2),
		Compliance:       decimal.NewFromFloat(result.Compliance).Round(2),
		Originality:      decimal.NewFromFloat(result.Originality).Round(2),
		RiskCoverage:     decimal.NewFromFloat(result.RiskCoverage).Round(2),
		Transparency:     decimal.NewFromFloat(result.Transparency).Round(2),
		Composite:        decimal.NewFromFloat(result.Composite).Round(2),
		ScorerVersion:    ScorerVersion,
		ComplianceIssues: strings.Join(result.ComplianceIssues, "\n"),
	}

	// Re-scoring replaces the previous breakdown.
	var existing models.ReportScore
	err := s.db.Where("report_id = ?", report.ID).First(&existing).Error
	if err == nil {
		score.ID = existing.ID
		if err := s.db.Save(&score).Error; err != nil {
			return nil, fmt.Errorf("failed to update score: %w", err)
		}
	} else if err == gorm.ErrRecordNotFound {
		if err := s.db.Create(&score).Error; err != nil {
			return nil, fmt.Errorf("failed to create score: %w", err)
		}
	} else {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"quality_score":  score.Composite,
		"has_disclaimer": result.HasDisclaimer,
		"scored_at":      now,
	}
	if result.Flagged {
		updates["status"] = models.ReportStatusFlagged
		updates["flag_reason"] = result.FlagReason
	} else if report.Status == models.ReportStatusSubmitted || report.Status == models.ReportStatusFlagged {
		updates["status"] = models.ReportStatusScored
		updates["flag_reason"] = ""
	}

	if err := s.db.Model(&report).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	return &score, nil
}

// ScorePendingReports scores every report sitting in "submitted" status.
// Used by the scheduler to catch reports whose inline scoring failed.
func (s *Service) ScorePendingReports() (int, error) {
	var reports []models.ResearchReport
	if err := s.db.Where("status = ?", models.ReportStatusSubmitted).Find(&reports).Error; err != nil {
		return 0, err
	}

	scored := 0
	for _, report := range reports {
		if _, err := s.ScoreReport(report.ID); err != nil {
			continue
		}
		scored++
	}
	return scored, nil
}
