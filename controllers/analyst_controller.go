package controllers

import (
	"net/http"
	"strconv"

	"research_platform_backend/middleware"
	"research_platform_backend/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AnalystController serves the public analyst directory and the analyst's
// own profile management.
type AnalystController struct {
	db *gorm.DB
}

// NewAnalystController creates a new analyst controller
func NewAnalystController(db *gorm.DB) *AnalystController {
	return &AnalystController{db: db}
}

// ListAnalysts returns the public directory of verified analysts
// GET /api/v1/analysts
func (ac *AnalystController) ListAnalysts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := ac.db.Model(&models.AnalystProfile{}).
		Where("is_active = ? AND certification_state = ?", true, models.CertificationVerified)

	if specialization := c.Query("specialization"); specialization != "" {
		query = query.Where("specialization = ?", specialization)
	}

	var total int64
	query.Count(&total)

	var analysts []models.AnalystProfile
	if err := query.Order("rating_avg DESC, reports_published DESC").
		Limit(limit).Offset(offset).
		Find(&analysts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analysts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": analysts,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetAnalyst returns one analyst's public profile with recent ratings
// GET /api/v1/analysts/:id
func (ac *AnalystController) GetAnalyst(c *gin.Context) {
	id := c.Param("id")

	var analyst models.AnalystProfile
	if err := ac.db.Where("is_active = ?", true).First(&analyst, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analyst not found"})
		return
	}

	var ratings []models.AnalystRating
	ac.db.Where("analyst_id = ?", analyst.ID).
		Order("created_at DESC").Limit(10).Find(&ratings)

	c.JSON(http.StatusOK, gin.H{
		"data":    analyst,
		"ratings": ratings,
	})
}

// UpdateProfile lets the authenticated analyst edit their own profile
// PUT /api/v1/analysts/profile
func (ac *AnalystController) UpdateProfile(c *gin.Context) {
	analystID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		FullName        string `json:"full_name"`
		Phone           string `json:"phone"`
		Specialization  string `json:"specialization"`
		Bio             string `json:"bio"`
		YearsExperience *int   `json:"years_experience"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var analyst models.AnalystProfile
	if err := ac.db.First(&analyst, analystID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	updates := map[string]interface{}{}
	if request.FullName != "" {
		updates["full_name"] = request.FullName
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}
	if request.Specialization != "" {
		updates["specialization"] = request.Specialization
	}
	if request.Bio != "" {
		updates["bio"] = request.Bio
	}
	if request.YearsExperience != nil {
		updates["years_experience"] = *request.YearsExperience
	}

	if len(updates) > 0 {
		if err := ac.db.Model(&analyst).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": analyst})
}

// RateAnalyst records an investor rating and refreshes the analyst average
// POST /api/v1/analysts/:id/ratings
func (ac *AnalystController) RateAnalyst(c *gin.Context) {
	investorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	analystID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid analyst id"})
		return
	}

	var request struct {
		Stars   int    `json:"stars" binding:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var analyst models.AnalystProfile
	if err := ac.db.Where("is_active = ?", true).First(&analyst, analystID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analyst not found"})
		return
	}

	// One rating per investor per analyst; a repeat replaces the old one.
	var existing models.AnalystRating
	err = ac.db.Where("analyst_id = ? AND investor_id = ?", analyst.ID, investorID).First(&existing).Error
	if err == nil {
		existing.Stars = request.Stars
		existing.Comment = request.Comment
		if err := ac.db.Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rating"})
			return
		}
	} else {
		rating := models.AnalystRating{
			AnalystID:  analyst.ID,
			InvestorID: investorID,
			Stars:      request.Stars,
			Comment:    request.Comment,
		}
		if err := ac.db.Create(&rating).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rating"})
			return
		}
	}

	if err := ac.refreshRating(analyst.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh rating"})
		return
	}

	ac.db.First(&analyst, analyst.ID)
	c.JSON(http.StatusOK, gin.H{"data": analyst})
}

// refreshRating recomputes the stored rating average and count
func (ac *AnalystController) refreshRating(analystID uint) error {
	var result struct {
		Avg   float64
		Count int64
	}
	if err := ac.db.Model(&models.AnalystRating{}).
		Select("COALESCE(AVG(stars), 0) as avg, COUNT(*) as count").
		Where("analyst_id = ?", analystID).
		Scan(&result).Error; err != nil {
		return err
	}

	return ac.db.Model(&models.AnalystProfile{}).
		Where("id = ?", analystID).
		Updates(map[string]interface{}{
			"rating_avg":   decimal.NewFromFloat(result.Avg).Round(2),
			"rating_count": result.Count,
		}).Error
}
