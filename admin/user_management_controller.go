package admin

import (
	"net/http"
	"strconv"

	"research_platform_backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserManagementController handles investor and admin account management
type UserManagementController struct {
	db *gorm.DB
}

// NewUserManagementController creates a new user management controller
func NewUserManagementController(db *gorm.DB) *UserManagementController {
	return &UserManagementController{db: db}
}

// currentAdmin retrieves the authenticated admin user from the request context.
func currentAdmin(c *gin.Context) *models.AdminUser {
	if user, exists := c.Get("admin_user"); exists {
		if adminUser, ok := user.(models.AdminUser); ok {
			return &adminUser
		}
	}
	return nil
}

// ListInvestors handles GET /admin/investors - displays the investor list page
func (ctrl *UserManagementController) ListInvestors(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	search := c.Query("search")

	query := ctrl.db.Model(&models.InvestorAccount{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("email LIKE ? OR full_name LIKE ?", pattern, pattern)
	}

	var total int64
	query.Count(&total)

	var investors []models.InvestorAccount
	query.Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&investors)

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	c.HTML(http.StatusOK, "investors.html", gin.H{
		"title":      "Investors",
		"adminUser":  currentAdmin(c),
		"investors":  investors,
		"total":      total,
		"page":       page,
		"pageSize":   pageSize,
		"totalPages": totalPages,
		"search":     search,
	})
}

// GetInvestor handles GET /admin/api/investors/:id - returns investor details as JSON
func (ctrl *UserManagementController) GetInvestor(c *gin.Context) {
	var investor models.InvestorAccount
	if err := ctrl.db.First(&investor, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investor not found"})
		return
	}

	var subscription models.Subscription
	ctrl.db.Where("investor_id = ?", investor.ID).Preload("Plan").First(&subscription)

	var holdingCount int64
	ctrl.db.Model(&models.PortfolioHolding{}).
		Where("investor_id = ? AND is_active = ?", investor.ID, true).Count(&holdingCount)

	c.JSON(http.StatusOK, gin.H{
		"investor":      investor,
		"subscription":  subscription,
		"holding_count": holdingCount,
	})
}

// SetInvestorStatus handles POST /admin/api/investors/:id/status - toggles the account
func (ctrl *UserManagementController) SetInvestorStatus(c *gin.Context) {
	var input struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := ctrl.db.Model(&models.InvestorAccount{}).
		Where("id = ?", c.Param("id")).Update("is_active", input.IsActive)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update investor"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investor not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Investor updated"})
}

// ResetInvestorPassword handles POST /admin/api/investors/:id/reset-password
func (ctrl *UserManagementController) ResetInvestorPassword(c *gin.Context) {
	var input struct {
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var investor models.InvestorAccount
	if err := ctrl.db.First(&investor, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investor not found"})
		return
	}

	if err := investor.SetPassword(input.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}
	if err := ctrl.db.Model(&investor).Update("password_hash", investor.PasswordHash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// AdminUsersPage handles GET /admin/users - admin account management page
func (ctrl *UserManagementController) AdminUsersPage(c *gin.Context) {
	var admins []models.AdminUser
	ctrl.db.Order("created_at ASC").Find(&admins)

	c.HTML(http.StatusOK, "admin_users.html", gin.H{
		"title":     "Admin Users",
		"adminUser": currentAdmin(c),
		"admins":    admins,
	})
}

// CreateAdminUser handles POST /admin/api/users - creates a new admin account
func (ctrl *UserManagementController) CreateAdminUser(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := input.Role
	if role == "" {
		role = "admin"
	}

	adminUser := models.AdminUser{
		Username: input.Username,
		Email:    input.Email,
		FullName: input.FullName,
		Role:     role,
		IsActive: true,
	}
	if err := adminUser.SetPassword(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	if err := ctrl.db.Create(&adminUser).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already in use"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Admin user created",
		"data":    adminUser,
	})
}

// SetAdminUserStatus handles POST /admin/api/users/:id/status
func (ctrl *UserManagementController) SetAdminUserStatus(c *gin.Context) {
	var input struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Do not allow an admin to deactivate their own account.
	if session, exists := c.Get("admin_session"); exists {
		if adminSession, ok := session.(*models.AdminSession); ok {
			if strconv.FormatUint(uint64(adminSession.AdminUserID), 10) == c.Param("id") && !input.IsActive {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate your own account"})
				return
			}
		}
	}

	result := ctrl.db.Model(&models.AdminUser{}).
		Where("id = ?", c.Param("id")).Update("is_active", input.IsActive)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update admin user"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Admin user updated"})
}

// ExportInvestors handles GET /admin/api/investors/export - exports investors to JSON
func (ctrl *UserManagementController) ExportInvestors(c *gin.Context) {
	var investors []models.InvestorAccount
	if err := ctrl.db.Order("created_at DESC").Limit(10000).Find(&investors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export investors"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=investors_export.json")
	c.JSON(http.StatusOK, investors)
}
