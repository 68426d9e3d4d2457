package models

import (
	"fmt"

	"github.com/jupiterbrains/insight/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&Organization{},
		&User{},
		&AIModel{},
		&APIKey{},
		&APIUsageLog{},
		&DailyUsageSummary{},
		&MonthlyUsageSummary{},
		&BillingCycle{},
		&BillingLineItem{},
		&PaymentMethod{},
		&RefreshToken{},
		&SystemLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the default organization and model catalog if the
// database is empty. Prices are per 1000 tokens.
func SeedDefaultData() error {
	var orgCount int64
	DB.Model(&Organization{}).Count(&orgCount)
	if orgCount == 0 {
		defaultOrg := Organization{
			Slug:             "acme-corp",
			Name:             "Acme Corp",
			Plan:             "pro",
			SubscriptionCost: 29.00,
			MonthlyRequests:  10000,
			MonthlyBudget:    200,
			MonthlyTokens:    2000000,
			IsActive:         true,
		}
		if err := DB.Create(&defaultOrg).Error; err != nil {
			return err
		}
	}

	defaultModels := []AIModel{
		{ModelIdentifier: "gpt-4o", Name: "GPT-4o", Provider: "openai",
			InputCostPer1kTokens: 0.0025, OutputCostPer1kTokens: 0.01,
			ContextWindow: 128000, MaxTokens: 16384, PerformanceTier: "advanced"},
		{ModelIdentifier: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "openai",
			InputCostPer1kTokens: 0.00015, OutputCostPer1kTokens: 0.0006,
			ContextWindow: 128000, MaxTokens: 16384, PerformanceTier: "fast"},
		{ModelIdentifier: "claude-3-5-sonnet", Name: "Claude 3.5 Sonnet", Provider: "anthropic",
			InputCostPer1kTokens: 0.003, OutputCostPer1kTokens: 0.015,
			ContextWindow: 200000, MaxTokens: 8192, PerformanceTier: "advanced"},
		{ModelIdentifier: "claude-3-haiku", Name: "Claude 3 Haiku", Provider: "anthropic",
			InputCostPer1kTokens: 0.00025, OutputCostPer1kTokens: 0.00125,
			ContextWindow: 200000, MaxTokens: 4096, PerformanceTier: "fast"},
		{ModelIdentifier: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Provider: "google",
			InputCostPer1kTokens: 0.00125, OutputCostPer1kTokens: 0.005,
			ContextWindow: 2000000, MaxTokens: 8192, PerformanceTier: "balanced"},
	}

	for _, m := range defaultModels {
		var count int64
		DB.Model(&AIModel{}).Where("model_identifier = ?", m.ModelIdentifier).Count(&count)
		if count == 0 {
			m.IsActive = true
			if err := DB.Create(&m).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
