package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatThread is a VS Terminal conversation owned by an investor or analyst
type ChatThread struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ThreadKey string    `gorm:"uniqueIndex;not null" json:"thread_key"` // uuid, stable client handle
	OwnerRole string    `gorm:"index:idx_thread_owner" json:"owner_role"` // analyst, investor
	OwnerID   uint      `gorm:"index:idx_thread_owner" json:"owner_id"`
	Title     string    `json:"title"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is a single exchange inside a thread
type ChatMessage struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ThreadID     uint       `gorm:"index" json:"thread_id"`
	Thread       ChatThread `gorm:"foreignKey:ThreadID" json:"thread,omitempty"`
	Role         string     `json:"role"` // user, assistant
	Content      string     `gorm:"type:text" json:"content"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Chat role constants
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// MigrateChatModels runs database migrations for terminal chat models
func MigrateChatModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&ChatThread{},
		&ChatMessage{},
	)
}
