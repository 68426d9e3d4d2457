package models

import (
	"time"

	"gorm.io/gorm"
)

// AIModel is one entry in the model catalog with its price schedule.
// Prices are per 1000 tokens and must never be negative.
type AIModel struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	ModelIdentifier       string         `gorm:"uniqueIndex;size:100;not null" json:"model_identifier"`
	Name                  string         `gorm:"size:100;not null" json:"name"`
	Provider              string         `gorm:"size:50;not null" json:"provider"` // openai, anthropic, google
	InputCostPer1kTokens  float64        `json:"input_cost_per_1k_tokens"`
	OutputCostPer1kTokens float64        `json:"output_cost_per_1k_tokens"`
	ContextWindow         int            `json:"context_window"`
	MaxTokens             int            `json:"max_tokens"`
	PerformanceTier       string         `gorm:"size:50" json:"performance_tier"` // fast, balanced, advanced
	IsActive              bool           `gorm:"default:true" json:"is_active"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AIModel) TableName() string { return "ai_models" }
