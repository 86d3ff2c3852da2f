package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"research_platform_backend/middleware"
	"research_platform_backend/models"
	"research_platform_backend/services/llm"
	"research_platform_backend/services/recommendations"
	"research_platform_backend/services/scoring"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// publishThreshold is the minimum composite score for publication
const publishThreshold = 60.0

// ReportController covers the report lifecycle: draft, submit, score,
// publish, plus LLM-assisted drafting.
type ReportController struct {
	db        *gorm.DB
	scorer    *scoring.Service
	extractor *recommendations.Service
	llmClient *llm.Client
}

// NewReportController creates a new report controller
func NewReportController(db *gorm.DB, scorer *scoring.Service, extractor *recommendations.Service, llmClient *llm.Client) *ReportController {
	return &ReportController{db: db, scorer: scorer, extractor: extractor, llmClient: llmClient}
}

// CreateReport creates a draft report for the authenticated analyst
// POST /api/v1/reports
func (rc *ReportController) CreateReport(c *gin.Context) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		Title  string `json:"title" binding:"required"`
		Ticker string `json:"ticker" binding:"required"`
		Sector string `json:"sector"`
		Body   string `json:"body"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := models.ResearchReport{
		AnalystID: analystID,
		Title:     request.Title,
		Ticker:    request.Ticker,
		Sector:    request.Sector,
		Body:      request.Body,
		Status:    models.ReportStatusDraft,
		Source:    models.ReportSourceManual,
	}
	if err := rc.db.Create(&report).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": report})
}

// UpdateReport edits a draft or flagged report owned by the analyst
// PUT /api/v1/reports/:id
func (rc *ReportController) UpdateReport(c *gin.Context) {
	report, ok := rc.ownedReport(c)
	if !ok {
		return
	}

	if report.Status != models.ReportStatusDraft && report.Status != models.ReportStatusFlagged {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft or flagged reports can be edited"})
		return
	}

	var request struct {
		Title  string `json:"title"`
		Ticker string `json:"ticker"`
		Sector string `json:"sector"`
		Body   string `json:"body"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.Title != "" {
		updates["title"] = request.Title
	}
	if request.Ticker != "" {
		updates["ticker"] = request.Ticker
	}
	if request.Sector != "" {
		updates["sector"] = request.Sector
	}
	if request.Body != "" {
		updates["body"] = request.Body
	}
	// Editing a flagged report puts it back in draft for resubmission.
	if report.Status == models.ReportStatusFlagged {
		updates["status"] = models.ReportStatusDraft
		updates["flag_reason"] = ""
	}

	if err := rc.db.Model(report).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// SubmitReport moves a draft into scoring; the quality gate runs inline
// POST /api/v1/reports/:id/submit
func (rc *ReportController) SubmitReport(c *gin.Context) {
	report, ok := rc.ownedReport(c)
	if !ok {
		return
	}

	if report.Status != models.ReportStatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft reports can be submitted"})
		return
	}

	if err := rc.db.Model(report).Update("status", models.ReportStatusSubmitted).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit report"})
		return
	}

	if _, err := rc.scorer.ScoreReport(report.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to score report"})
		return
	}
	if _, err := rc.extractor.SyncReport(report.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to extract recommendations"})
		return
	}

	rc.db.First(report, report.ID)

	var score models.ReportScore
	rc.db.Where("report_id = ?", report.ID).First(&score)

	c.JSON(http.StatusOK, gin.H{
		"data":  report,
		"score": score,
	})
}

// PublishReport publishes a scored report that clears the quality threshold
// POST /api/v1/reports/:id/publish
func (rc *ReportController) PublishReport(c *gin.Context) {
	report, ok := rc.ownedReport(c)
	if !ok {
		return
	}

	if report.Status != models.ReportStatusScored {
		c.JSON(http.StatusConflict, gin.H{"error": "Only scored reports can be published"})
		return
	}

	scoreValue, _ := report.QualityScore.Float64()
	if scoreValue < publishThreshold {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":         "Quality score below publication threshold",
			"quality_score": report.QualityScore,
			"threshold":     publishThreshold,
		})
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.ReportStatusPublished,
		"published_at": now,
	}
	if err := rc.db.Model(report).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish report"})
		return
	}

	rc.db.Model(&models.AnalystProfile{}).
		Where("id = ?", report.AnalystID).
		Update("reports_published", gorm.Expr("reports_published + 1"))

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// ListMyReports returns the analyst's own reports in any status
// GET /api/v1/reports/mine
func (rc *ReportController) ListMyReports(c *gin.Context) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := rc.db.Model(&models.ResearchReport{}).Where("analyst_id = ?", analystID)
	if status := c.Query("status"); status != "" {
		if !models.IsValidReportStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        "Invalid status",
				"valid_values": models.ValidReportStatuses(),
			})
			return
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var reports []models.ResearchReport
	if err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": reports,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// ListPublishedReports is the investor-facing feed of published research
// GET /api/v1/reports
func (rc *ReportController) ListPublishedReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := rc.db.Model(&models.ResearchReport{}).
		Where("status = ?", models.ReportStatusPublished)
	if analystID := c.Query("analyst_id"); analystID != "" {
		query = query.Where("analyst_id = ?", analystID)
	}
	if ticker := c.Query("ticker"); ticker != "" {
		query = query.Where("ticker = ?", ticker)
	}
	if sector := c.Query("sector"); sector != "" {
		query = query.Where("sector = ?", sector)
	}

	var total int64
	query.Count(&total)

	var reports []models.ResearchReport
	if err := query.Preload("Analyst").
		Order("published_at DESC").
		Limit(limit).Offset(offset).
		Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": reports,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetReport returns a single report with score and recommendations.
// Published reports are public; drafts are visible only to their author.
// GET /api/v1/reports/:id
func (rc *ReportController) GetReport(c *gin.Context) {
	id := c.Param("id")

	var report models.ResearchReport
	if err := rc.db.Preload("Analyst").First(&report, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	if report.Status != models.ReportStatusPublished {
		userID, err := middleware.UserIDFromContext(c)
		role, _ := middleware.RoleFromContext(c)
		if err != nil || role != middleware.RoleAnalyst || userID != report.AnalystID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
	}

	var score models.ReportScore
	rc.db.Where("report_id = ?", report.ID).First(&score)

	var recs []models.ReportRecommendation
	rc.db.Where("report_id = ?", report.ID).Find(&recs)

	c.JSON(http.StatusOK, gin.H{
		"data":            report,
		"score":           score,
		"recommendations": recs,
	})
}

// DraftWithLLM generates a report draft from analyst notes
// POST /api/v1/reports/draft
func (rc *ReportController) DraftWithLLM(c *gin.Context) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		Title  string `json:"title" binding:"required"`
		Ticker string `json:"ticker" binding:"required"`
		Sector string `json:"sector"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := rc.llmClient.DraftReport(c.Request.Context(), request.Ticker, request.Notes)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report drafting is not available"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Draft generation failed"})
		return
	}

	report := models.ResearchReport{
		AnalystID: analystID,
		Title:     request.Title,
		Ticker:    request.Ticker,
		Sector:    request.Sector,
		Body:      reply.Text,
		Status:    models.ReportStatusDraft,
		Source:    models.ReportSourceLLMDraft,
	}
	if err := rc.db.Create(&report).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save draft"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": report,
		"usage": gin.H{
			"input_tokens":  reply.InputTokens,
			"output_tokens": reply.OutputTokens,
		},
	})
}

// ownedReport loads the :id report and verifies the caller owns it
func (rc *ReportController) ownedReport(c *gin.Context) (*models.ResearchReport, bool) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	var report models.ResearchReport
	if err := rc.db.First(&report, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return nil, false
	}
	if report.AnalystID != analystID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your report"})
		return nil, false
	}
	return &report, true
}
