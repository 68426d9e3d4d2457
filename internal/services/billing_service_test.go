package services

import (
	"math"
	"testing"
	"time"

	"github.com/jupiterbrains/insight/internal/config"
	"github.com/jupiterbrains/insight/internal/models"
)

func TestRepriceWindow_MatchesRecordedCosts(t *testing.T) {
	db := newTestDB(t)
	model := models.AIModel{
		ModelIdentifier:       "gpt-4o",
		Name:                  "GPT-4o",
		Provider:              "openai",
		InputCostPer1kTokens:  0.03,
		OutputCostPer1kTokens: 0.06,
		IsActive:              true,
	}
	if err := db.Create(&model).Error; err != nil {
		t.Fatalf("seed model: %v", err)
	}

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	logs := []models.APIUsageLog{
		{RequestID: "r1", OrganizationID: 1, ModelID: model.ID, PromptTokens: 2000, CompletionTokens: 1000, TotalTokens: 3000, TotalCost: 0.12, Status: models.UsageStatusSuccess, CreatedAt: start.Add(24 * time.Hour)},
		{RequestID: "r2", OrganizationID: 1, ModelID: model.ID, PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500, TotalCost: 0.06, Status: models.UsageStatusSuccess, CreatedAt: start.Add(48 * time.Hour)},
	}
	if err := db.Create(&logs).Error; err != nil {
		t.Fatalf("seed logs: %v", err)
	}

	catalog := NewAIModelService(db, nil)
	svc := NewBillingService(db, &config.BillingConfig{LineItemTolerance: 1e-6}, nil, catalog)

	result, err := svc.repriceWindow(1, start, end)
	if err != nil {
		t.Fatalf("repriceWindow returned error: %v", err)
	}
	if result.PricedCount != 2 {
		t.Errorf("PricedCount = %d, expected 2", result.PricedCount)
	}
	if result.SkippedCount != 0 {
		t.Errorf("SkippedCount = %d, expected 0", result.SkippedCount)
	}
	if math.Abs(result.TotalCost-0.18) > 1e-9 {
		t.Errorf("TotalCost = %v, expected repriced total 0.18", result.TotalCost)
	}
}

func TestRepriceWindow_SkipsUncataloguedModels(t *testing.T) {
	db := newTestDB(t)
	model := models.AIModel{
		ModelIdentifier:       "gemini-pro",
		Name:                  "Gemini Pro",
		Provider:              "google",
		InputCostPer1kTokens:  0.01,
		OutputCostPer1kTokens: 0.02,
		IsActive:              true,
	}
	if err := db.Create(&model).Error; err != nil {
		t.Fatalf("seed model: %v", err)
	}

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	logs := []models.APIUsageLog{
		{RequestID: "r1", OrganizationID: 1, ModelID: model.ID, PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000, TotalCost: 0.03, Status: models.UsageStatusSuccess, CreatedAt: start.Add(time.Hour)},
		{RequestID: "r2", OrganizationID: 1, ModelID: 9999, PromptTokens: 500, CompletionTokens: 500, TotalTokens: 1000, TotalCost: 0.05, Status: models.UsageStatusSuccess, CreatedAt: start.Add(2 * time.Hour)},
	}
	if err := db.Create(&logs).Error; err != nil {
		t.Fatalf("seed logs: %v", err)
	}

	catalog := NewAIModelService(db, nil)
	svc := NewBillingService(db, &config.BillingConfig{LineItemTolerance: 1e-6}, nil, catalog)

	result, err := svc.repriceWindow(1, start, end)
	if err != nil {
		t.Fatalf("repriceWindow returned error: %v", err)
	}
	if result.PricedCount != 1 {
		t.Errorf("PricedCount = %d, expected 1", result.PricedCount)
	}
	if result.SkippedCount != 1 {
		t.Errorf("SkippedCount = %d, expected the orphaned event to be skipped and counted", result.SkippedCount)
	}
	if math.Abs(result.TotalCost-0.03) > 1e-9 {
		t.Errorf("TotalCost = %v, expected 0.03 from the catalogued model only", result.TotalCost)
	}
}
