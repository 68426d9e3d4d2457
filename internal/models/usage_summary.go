package models

import "time"

// DailyUsageSummary is the derived rollup of usage events for one
// (organization, model, date) bucket. It is recomputed from APIUsageLog
// rows and never hand edited; rebuilding is idempotent.
type DailyUsageSummary struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrganizationID     uint      `gorm:"uniqueIndex:idx_daily_bucket;not null" json:"organization_id"`
	ModelID            uint      `gorm:"uniqueIndex:idx_daily_bucket;not null" json:"model_id"`
	Model              *AIModel  `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	UsageDate          string    `gorm:"uniqueIndex:idx_daily_bucket;size:10;not null" json:"usage_date"` // YYYY-MM-DD
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	TotalTokens        int64     `json:"total_tokens"`
	TotalCost          float64   `json:"total_cost"`
	AvgResponseTimeMs  float64   `json:"avg_response_time_ms"`
	SuccessRate        float64   `json:"success_rate"` // in [0,1], 0 when no requests
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (DailyUsageSummary) TableName() string { return "daily_usage_summaries" }

// MonthlyUsageSummary aggregates daily summaries across one calendar month
// for an organization.
type MonthlyUsageSummary struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	OrganizationID       uint      `gorm:"uniqueIndex:idx_monthly_bucket;not null" json:"organization_id"`
	Year                 int       `gorm:"uniqueIndex:idx_monthly_bucket;not null" json:"year"`
	Month                int       `gorm:"uniqueIndex:idx_monthly_bucket;not null" json:"month"`
	TotalRequests        int64     `json:"total_requests"`
	TotalTokens          int64     `json:"total_tokens"`
	TotalCost            float64   `json:"total_cost"`
	PeakDailyRequests    int64     `json:"peak_daily_requests"`
	AverageDailyRequests float64   `json:"average_daily_requests"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (MonthlyUsageSummary) TableName() string { return "monthly_usage_summaries" }
