package recommendations

import (
	"fmt"

	"research_platform_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service persists extracted recommendations against reports
type Service struct {
	db *gorm.DB
}

// NewService creates a new recommendation extraction service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SyncReport re-extracts recommendations for a report, replacing any
// previously stored rows.
func (s *Service) SyncReport(reportID uint) ([]models.ReportRecommendation, error) {
	var report models.ResearchReport
	if err := s.db.First(&report, reportID).Error; err != nil {
		return nil, fmt.Errorf("report not found: %w", err)
	}

	extracted := Extract(report.Body, report.Ticker)

	if err := s.db.Where("report_id = ?", report.ID).Delete(&models.ReportRecommendation{}).Error; err != nil {
		return nil, fmt.Errorf("failed to clear recommendations: %w", err)
	}

	var rows []models.ReportRecommendation
	for _, e := range extracted {
		row := models.ReportRecommendation{
			ReportID:    report.ID,
			Ticker:      e.Ticker,
			Action:      e.Action,
			TargetPrice: decimal.NewFromFloat(e.TargetPrice),
			Horizon:     e.Horizon,
			Confidence:  decimal.NewFromFloat(e.Confidence).Round(4),
		}
		if err := s.db.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("failed to store recommendation: %w", err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
