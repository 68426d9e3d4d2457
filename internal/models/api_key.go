package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey authenticates programmatic usage reporting. Only the SHA-256 hash
// of the key is stored; the prefix is kept for display.
type APIKey struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"index;not null" json:"organization_id"`
	Name           string         `gorm:"size:100" json:"name"`
	KeyHash        string         `gorm:"uniqueIndex;size:64;not null" json:"-"`
	KeyPrefix      string         `gorm:"size:12" json:"key_prefix"`
	Environment    string         `gorm:"size:20;default:production" json:"environment"`
	UsageCount     int64          `json:"usage_count"`
	LastUsed       *time.Time     `json:"last_used,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (APIKey) TableName() string { return "api_keys" }
