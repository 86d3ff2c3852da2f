package controllers

import (
	"net/http"
	"regexp"
	"time"

	"research_platform_backend/middleware"
	"research_platform_backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var sebiRegistrationPattern = regexp.MustCompile(`^INH\d{9}$`)

// AuthController handles portal registration and login for both roles
type AuthController struct {
	db        *gorm.DB
	jwtSecret string
}

// NewAuthController creates a new auth controller
func NewAuthController(db *gorm.DB, jwtSecret string) *AuthController {
	return &AuthController{db: db, jwtSecret: jwtSecret}
}

// RegisterAnalyst creates a new analyst account in the pending state
// POST /api/v1/auth/analyst/register
func (ac *AuthController) RegisterAnalyst(c *gin.Context) {
	var request struct {
		Email            string `json:"email" binding:"required,email"`
		Password         string `json:"password" binding:"required,min=8"`
		FullName         string `json:"full_name" binding:"required"`
		Phone            string `json:"phone"`
		SEBIRegistration string `json:"sebi_registration" binding:"required"`
		Specialization   string `json:"specialization"`
		Bio              string `json:"bio"`
		YearsExperience  int    `json:"years_experience"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !sebiRegistrationPattern.MatchString(request.SEBIRegistration) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "SEBI registration must match format INHxxxxxxxxx"})
		return
	}

	analyst := models.AnalystProfile{
		Email:              request.Email,
		FullName:           request.FullName,
		Phone:              request.Phone,
		SEBIRegistration:   request.SEBIRegistration,
		CertificationState: models.CertificationPending,
		Specialization:     request.Specialization,
		Bio:                request.Bio,
		YearsExperience:    request.YearsExperience,
		IsActive:           true,
	}
	if err := analyst.SetPassword(request.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	if err := ac.db.Create(&analyst).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email or SEBI registration already in use"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": analyst})
}

// LoginAnalyst authenticates an analyst and issues a token
// POST /api/v1/auth/analyst/login
func (ac *AuthController) LoginAnalyst(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var analyst models.AnalystProfile
	err := ac.db.Where("email = ?", request.Email).First(&analyst).Error
	if err != nil || !analyst.CheckPassword(request.Password) {
		middleware.RecordLoginAttempt(c.ClientIP(), false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !analyst.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
		return
	}

	middleware.RecordLoginAttempt(c.ClientIP(), true)

	token, err := middleware.IssueToken(ac.jwtSecret, analyst.ID, analyst.Email, middleware.RoleAnalyst)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	now := time.Now()
	ac.db.Model(&analyst).Update("last_login_at", now)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"data":  analyst,
	})
}

// RegisterInvestor creates a new investor account
// POST /api/v1/auth/investor/register
func (ac *AuthController) RegisterInvestor(c *gin.Context) {
	var request struct {
		Email         string `json:"email" binding:"required,email"`
		Password      string `json:"password" binding:"required,min=8"`
		FullName      string `json:"full_name" binding:"required"`
		Phone         string `json:"phone"`
		PAN           string `json:"pan"`
		RiskTolerance string `json:"risk_tolerance"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	riskTolerance := request.RiskTolerance
	if riskTolerance == "" {
		riskTolerance = models.RiskToleranceModerate
	}
	if !models.IsValidRiskTolerance(riskTolerance) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "Invalid risk tolerance",
			"valid_values": models.ValidRiskTolerances(),
		})
		return
	}

	investor := models.InvestorAccount{
		Email:         request.Email,
		FullName:      request.FullName,
		Phone:         request.Phone,
		PAN:           request.PAN,
		RiskTolerance: riskTolerance,
		IsActive:      true,
	}
	if err := investor.SetPassword(request.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	if err := ac.db.Create(&investor).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": investor})
}

// LoginInvestor authenticates an investor and issues a token
// POST /api/v1/auth/investor/login
func (ac *AuthController) LoginInvestor(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var investor models.InvestorAccount
	err := ac.db.Where("email = ?", request.Email).First(&investor).Error
	if err != nil || !investor.CheckPassword(request.Password) {
		middleware.RecordLoginAttempt(c.ClientIP(), false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !investor.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
		return
	}

	middleware.RecordLoginAttempt(c.ClientIP(), true)

	token, err := middleware.IssueToken(ac.jwtSecret, investor.ID, investor.Email, middleware.RoleInvestor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	now := time.Now()
	ac.db.Model(&investor).Update("last_login_at", now)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"data":  investor,
	})
}

// Me returns the authenticated user's profile
// GET /api/v1/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	role, _ := middleware.RoleFromContext(c)

	switch role {
	case middleware.RoleAnalyst:
		var analyst models.AnalystProfile
		if err := ac.db.First(&analyst, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": analyst, "role": role})
	case middleware.RoleInvestor:
		var investor models.InvestorAccount
		if err := ac.db.First(&investor, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": investor, "role": role})
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Unknown role"})
	}
}
