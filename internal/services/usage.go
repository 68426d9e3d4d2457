package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jupiterbrains/insight/internal/billing"
	"github.com/jupiterbrains/insight/internal/models"
	"gorm.io/gorm"
)

// UsageService manages usage event recording and statistics.
type UsageService struct {
	db       *gorm.DB
	notifier *ChangeNotifier
}

func NewUsageService(db *gorm.DB, notifier *ChangeNotifier) *UsageService {
	return &UsageService{db: db, notifier: notifier}
}

// ProcessTask prices and persists one usage task. It is the task queue
// processor: the sync queue calls it inline, the asynq worker calls it from
// the worker pool.
func (s *UsageService) ProcessTask(ctx context.Context, task *UsageTask) error {
	var model models.AIModel
	if err := s.db.WithContext(ctx).First(&model, task.ModelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("model %d: %w", task.ModelID, billing.ErrPricingNotFound)
		}
		return err
	}

	cost, err := billing.EventCost(task.PromptTokens, task.CompletionTokens, billing.PriceSchedule{
		ModelID:               model.ID,
		InputCostPer1kTokens:  model.InputCostPer1kTokens,
		OutputCostPer1kTokens: model.OutputCostPer1kTokens,
	})
	if err != nil {
		return err
	}

	status := task.Status
	if status != models.UsageStatusError {
		status = models.UsageStatusSuccess
	}

	log := &models.APIUsageLog{
		RequestID:        task.RequestID,
		OrganizationID:   task.OrganizationID,
		UserID:           task.UserID,
		ModelID:          task.ModelID,
		Endpoint:         task.Endpoint,
		PromptTokens:     task.PromptTokens,
		CompletionTokens: task.CompletionTokens,
		TotalTokens:      task.PromptTokens + task.CompletionTokens,
		InputCost:        cost.InputCost,
		OutputCost:       cost.OutputCost,
		TotalCost:        cost.TotalCost,
		ResponseTimeMs:   task.ResponseTimeMs,
		Status:           status,
		StatusCode:       task.StatusCode,
		ErrorMessage:     task.ErrorMessage,
		CreatedAt:        time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyChange("api_usage_logs", "insert")
	}
	return nil
}

// UsageStats holds aggregated usage statistics.
type UsageStats struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalTokens       int64   `json:"total_tokens"`
	PromptTokens      int64   `json:"prompt_tokens"`
	CompletionTokens  int64   `json:"completion_tokens"`
	TotalCost         float64 `json:"total_cost"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	SuccessRate       float64 `json:"success_rate"`
	SuccessCount      int64   `json:"success_count"`
	ErrorCount        int64   `json:"error_count"`
}

// GetStats returns aggregated usage statistics for the given time range.
func (s *UsageService) GetStats(orgID uint, startDate, endDate string) (*UsageStats, error) {
	query := s.db.Model(&models.APIUsageLog{}).Where("organization_id = ?", orgID)
	if startDate != "" {
		query = query.Where("created_at >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("created_at <= ?", endDate+" 23:59:59")
	}

	var stats UsageStats
	err := query.Select(
		"COUNT(*) as total_requests, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(SUM(prompt_tokens), 0) as prompt_tokens, " +
			"COALESCE(SUM(completion_tokens), 0) as completion_tokens, " +
			"COALESCE(SUM(total_cost), 0) as total_cost, " +
			"COALESCE(AVG(response_time_ms), 0) as avg_response_time_ms, " +
			"COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) as success_count, " +
			"COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) as error_count",
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalRequests)
	}
	return &stats, nil
}

// UsageLogListRequest holds filters for the paginated log listing.
type UsageLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size" binding:"max=100"`
	ModelID   uint   `form:"model_id"`
	Status    string `form:"status"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// List returns usage logs for an organization, most recent first.
func (s *UsageService) List(orgID uint, req *UsageLogListRequest) (int64, []models.APIUsageLog, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.APIUsageLog{}).Where("organization_id = ?", orgID)
	if req.ModelID > 0 {
		query = query.Where("model_id = ?", req.ModelID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var logs []models.APIUsageLog
	err := query.Preload("Model").
		Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&logs).Error
	if err != nil {
		return 0, nil, err
	}

	return total, logs, nil
}

// RecentCalls returns the latest usage events for the dashboard feed.
func (s *UsageService) RecentCalls(orgID uint, limit int) ([]models.APIUsageLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var logs []models.APIUsageLog
	err := s.db.Where("organization_id = ?", orgID).
		Preload("Model").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CleanupBefore deletes usage logs older than the given time.
func (s *UsageService) CleanupBefore(before time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", before).Delete(&models.APIUsageLog{})
	return result.RowsAffected, result.Error
}
