package models

import (
	"time"
)

// Session is one template-building conversation. Draft state lives in
// Draft rows; the session carries memory, history, and loop-detection
// bookkeeping. JSON payloads are stored as text so the same schema works
// on SQLite and PostgreSQL.
type Session struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ActiveDraftID    uint      `gorm:"index" json:"active_draft_id"`
	Memory           string    `gorm:"type:text" json:"memory"`   // JSON memory map
	Messages         string    `gorm:"type:text" json:"messages"` // JSON history turns
	LastAction       string    `gorm:"type:varchar(20)" json:"last_action"`
	LastQuestionHash string    `gorm:"type:varchar(32)" json:"last_question_hash"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// Draft is a versioned working template for a session. Status moves from
// DRAFT to FINAL; FinalizedPayload is written once on finalization and
// never rewritten.
type Draft struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SessionID        string    `gorm:"index;type:varchar(64);not null" json:"session_id"`
	Version          int       `gorm:"default:1" json:"version"`
	Status           string    `gorm:"type:varchar(20);default:'DRAFT'" json:"status"`
	Draft            string    `gorm:"type:text" json:"draft"`             // JSON working draft
	FinalizedPayload string    `gorm:"type:text" json:"finalized_payload"` // JSON creation payload
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Draft) TableName() string {
	return "drafts"
}

// GeneratorLog records each generator request/response/error for a
// session, keeping a failure trail without blocking the turn.
type GeneratorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index;type:varchar(64)" json:"session_id"`
	Kind      string    `gorm:"type:varchar(20)" json:"kind"` // request | response | error
	Payload   string    `gorm:"type:text" json:"payload"`     // JSON
	Model     string    `gorm:"type:varchar(100)" json:"model"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GeneratorLog) TableName() string {
	return "generator_logs"
}

// FinalizedTemplate is the submission-side record of a finalized
// template, tracking its status with the messaging platform.
type FinalizedTemplate struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SessionID string    `gorm:"index;type:varchar(64)" json:"session_id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Language  string    `gorm:"type:varchar(50)" json:"language"`
	Category  string    `gorm:"type:varchar(100)" json:"category"`
	Status    string    `gorm:"type:varchar(50)" json:"status"`
	Payload   string    `gorm:"type:text" json:"payload"` // JSON creation payload
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FinalizedTemplate) TableName() string {
	return "finalized_templates"
}
