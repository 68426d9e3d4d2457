package models

import "time"

// Usage event status values.
const (
	UsageStatusSuccess = "success"
	UsageStatusError   = "error"
)

// APIUsageLog records one completed or failed AI model call. Rows are
// immutable once created; summaries are always recomputed from them.
type APIUsageLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RequestID        string    `gorm:"uniqueIndex;size:64" json:"request_id"`
	OrganizationID   uint      `gorm:"index;not null" json:"organization_id"`
	UserID           *uint     `gorm:"index" json:"user_id"`
	ModelID          uint      `gorm:"index;not null" json:"model_id"`
	Model            *AIModel  `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	Endpoint         string    `gorm:"size:200" json:"endpoint"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"` // always prompt + completion
	InputCost        float64   `json:"input_cost"`
	OutputCost       float64   `json:"output_cost"`
	TotalCost        float64   `json:"total_cost"`
	ResponseTimeMs   int64     `json:"response_time_ms"`
	Status           string    `gorm:"size:20;index" json:"status"` // success, error
	StatusCode       int       `json:"status_code"`
	ErrorMessage     string    `gorm:"size:500" json:"error_message,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (APIUsageLog) TableName() string { return "api_usage_logs" }
