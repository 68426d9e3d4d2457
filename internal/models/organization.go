package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization represents a billing tenant. Every usage event, summary and
// billing cycle belongs to exactly one organization.
type Organization struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Slug             string         `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Name             string         `gorm:"size:200;not null" json:"name"`
	Plan             string         `gorm:"size:50;default:starter" json:"plan"` // starter, pro, enterprise
	SubscriptionCost float64        `json:"subscription_cost"`                   // flat monthly fee
	TaxRate          float64        `json:"tax_rate"`                            // 0 uses the configured default
	MonthlyRequests  int64          `gorm:"default:10000" json:"monthly_request_limit"`
	MonthlyBudget    float64        `gorm:"default:200" json:"monthly_budget"`
	MonthlyTokens    int64          `gorm:"default:2000000" json:"monthly_token_limit"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Organization) TableName() string { return "organizations" }
