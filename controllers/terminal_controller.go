package controllers

import (
	"errors"
	"net/http"

	"research_platform_backend/middleware"
	"research_platform_backend/models"
	"research_platform_backend/services/chatarchive"
	"research_platform_backend/services/llm"
	"research_platform_backend/services/terminalstream"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxContextMessages limits how much thread history is replayed to the model
const maxContextMessages = 20

// TerminalController is the VS Terminal: chat threads with an LLM research
// assistant, live-streamed over websocket and archived to MongoDB.
type TerminalController struct {
	db        *gorm.DB
	llmClient *llm.Client
	hub       *terminalstream.Hub
	archive   *chatarchive.Archive
}

// NewTerminalController creates a new terminal controller
func NewTerminalController(db *gorm.DB, llmClient *llm.Client, hub *terminalstream.Hub, archive *chatarchive.Archive) *TerminalController {
	return &TerminalController{db: db, llmClient: llmClient, hub: hub, archive: archive}
}

// CreateThread opens a new conversation
// POST /api/v1/terminal/threads
func (tc *TerminalController) CreateThread(c *gin.Context) {
	userID, role, ok := tc.caller(c)
	if !ok {
		return
	}
	if !tc.checkTerminalAccess(c, userID, role) {
		return
	}

	var request struct {
		Title string `json:"title"`
	}
	c.ShouldBindJSON(&request)

	title := request.Title
	if title == "" {
		title = "New conversation"
	}

	thread := models.ChatThread{
		ThreadKey: uuid.NewString(),
		OwnerRole: role,
		OwnerID:   userID,
		Title:     title,
		IsActive:  true,
	}
	if err := tc.db.Create(&thread).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create thread"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": thread})
}

// ListThreads returns the caller's threads
// GET /api/v1/terminal/threads
func (tc *TerminalController) ListThreads(c *gin.Context) {
	userID, role, ok := tc.caller(c)
	if !ok {
		return
	}

	var threads []models.ChatThread
	if err := tc.db.Where("owner_role = ? AND owner_id = ? AND is_active = ?", role, userID, true).
		Order("updated_at DESC").Limit(50).Find(&threads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch threads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": threads})
}

// GetThread returns one thread with its message history
// GET /api/v1/terminal/threads/:key
func (tc *TerminalController) GetThread(c *gin.Context) {
	thread, ok := tc.ownedThread(c)
	if !ok {
		return
	}

	var messages []models.ChatMessage
	if err := tc.db.Where("thread_id = ?", thread.ID).
		Order("created_at ASC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     thread,
		"messages": messages,
	})
}

// PostMessage sends a user message and returns the assistant reply
// POST /api/v1/terminal/threads/:key/messages
func (tc *TerminalController) PostMessage(c *gin.Context) {
	userID, role, ok := tc.caller(c)
	if !ok {
		return
	}
	if !tc.checkTerminalAccess(c, userID, role) {
		return
	}

	thread, ok := tc.ownedThread(c)
	if !ok {
		return
	}

	var request struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var history []models.ChatMessage
	tc.db.Where("thread_id = ?", thread.ID).
		Order("created_at DESC").Limit(maxContextMessages).Find(&history)
	// Reverse into chronological order for the model.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	reply, err := tc.llmClient.Chat(c.Request.Context(), history, request.Content)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Terminal is not available"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Assistant request failed"})
		return
	}

	userMessage := models.ChatMessage{
		ThreadID: thread.ID,
		Role:     models.ChatRoleUser,
		Content:  request.Content,
	}
	assistantMessage := models.ChatMessage{
		ThreadID:     thread.ID,
		Role:         models.ChatRoleAssistant,
		Content:      reply.Text,
		InputTokens:  reply.InputTokens,
		OutputTokens: reply.OutputTokens,
	}
	if err := tc.db.Create(&userMessage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}
	if err := tc.db.Create(&assistantMessage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save reply"})
		return
	}

	tc.db.Model(thread).Update("updated_at", assistantMessage.CreatedAt)

	tc.hub.PublishMessage(thread.ThreadKey, &userMessage)
	tc.hub.PublishMessage(thread.ThreadKey, &assistantMessage)

	c.JSON(http.StatusOK, gin.H{
		"data": assistantMessage,
		"usage": gin.H{
			"input_tokens":  reply.InputTokens,
			"output_tokens": reply.OutputTokens,
		},
	})
}

// StreamThread upgrades to a websocket that receives new thread messages
// GET /api/v1/terminal/threads/:key/stream
func (tc *TerminalController) StreamThread(c *gin.Context) {
	thread, ok := tc.ownedThread(c)
	if !ok {
		return
	}

	if err := tc.hub.Subscribe(c.Writer, c.Request, thread.ThreadKey); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open stream"})
	}
}

// CloseThread archives the transcript and deactivates the thread
// DELETE /api/v1/terminal/threads/:key
func (tc *TerminalController) CloseThread(c *gin.Context) {
	thread, ok := tc.ownedThread(c)
	if !ok {
		return
	}

	var messages []models.ChatMessage
	tc.db.Where("thread_id = ?", thread.ID).Order("created_at ASC").Find(&messages)

	if err := tc.archive.ArchiveThread(c.Request.Context(), thread, messages); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive thread"})
		return
	}

	if err := tc.db.Model(thread).Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close thread"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Thread closed"})
}

// caller extracts the authenticated user and role
func (tc *TerminalController) caller(c *gin.Context) (uint, string, bool) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return 0, "", false
	}
	role, err := middleware.RoleFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return 0, "", false
	}
	return userID, role, true
}

// checkTerminalAccess enforces the plan gate for investors; analysts always
// have terminal access.
func (tc *TerminalController) checkTerminalAccess(c *gin.Context, userID uint, role string) bool {
	if role != middleware.RoleInvestor {
		return true
	}

	entitlements, err := entitlementsFor(tc.db, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan limits"})
		return false
	}
	if !entitlements.HasTerminalAccess {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Terminal access requires a plan upgrade",
			"plan":  entitlements.PlanName,
		})
		return false
	}
	return true
}

// ownedThread loads the :key thread and verifies ownership
func (tc *TerminalController) ownedThread(c *gin.Context) (*models.ChatThread, bool) {
	userID, role, ok := tc.caller(c)
	if !ok {
		return nil, false
	}

	var thread models.ChatThread
	if err := tc.db.Where("thread_key = ?", c.Param("key")).First(&thread).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		return nil, false
	}
	if thread.OwnerRole != role || thread.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your thread"})
		return nil, false
	}
	return &thread, true
}
