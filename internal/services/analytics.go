package services

import (
	"fmt"
	"math"
	"time"

	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/internal/rollup"
	"gorm.io/gorm"
)

// AnalyticsService turns stored summaries into the chart-ready series the
// dashboard renders. All shaping happens in the rollup package; this service
// only runs the queries.
type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// UsageAnalyticsResponse is the payload for the usage analytics page.
type UsageAnalyticsResponse struct {
	Range    string              `json:"range"`
	Timeline []rollup.DateBucket `json:"timeline"`
	Models   []rollup.ModelTotal `json:"models"`
}

// rangeDays maps the UI range selector to a day count.
func rangeDays(dateRange string) int {
	switch dateRange {
	case "30d":
		return 30
	case "90d":
		return 90
	default:
		return 7
	}
}

// GetUsageAnalytics returns the merged timeline and per-model totals for the
// last 7, 30 or 90 days.
func (s *AnalyticsService) GetUsageAnalytics(orgID uint, dateRange string) (*UsageAnalyticsResponse, error) {
	days := rangeDays(dateRange)
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	rows, err := s.loadDailyRows(orgID, startDate, "")
	if err != nil {
		return nil, err
	}

	return &UsageAnalyticsResponse{
		Range:    fmt.Sprintf("%dd", days),
		Timeline: rollup.MergeByDate(rows),
		Models:   rollup.MergeByModel(rows),
	}, nil
}

// DashboardStats is the headline card data for the dashboard landing page.
type DashboardStats struct {
	TotalRequests     int64                `json:"total_requests"`
	TotalCost         float64              `json:"total_cost"`
	AvgResponseTimeMs int64                `json:"avg_response_time_ms"`
	SuccessRate       float64              `json:"success_rate"` // in [0,1]
	MonthlyCost       float64              `json:"monthly_cost"`
	RecentCalls       []models.APIUsageLog `json:"recent_calls"`
}

// emptyDashboardStats is the single place fallback values live when an
// organization has no data yet. Zeroes, not mock numbers.
var emptyDashboardStats = DashboardStats{RecentCalls: []models.APIUsageLog{}}

// GetDashboardStats aggregates today's summaries, the current month's cost
// and the most recent calls. Missing rows yield the empty defaults, not an
// error: a brand-new organization has a dashboard too.
func (s *AnalyticsService) GetDashboardStats(orgID uint, usageSvc *UsageService) (*DashboardStats, error) {
	today := time.Now().Format("2006-01-02")

	rows, err := s.loadDailyRows(orgID, today, today)
	if err != nil {
		return nil, err
	}

	stats := emptyDashboardStats

	if len(rows) > 0 {
		var responseSum, rateSum float64
		for _, row := range rows {
			stats.TotalRequests += row.TotalRequests
			stats.TotalCost += row.TotalCost
			responseSum += row.AvgResponseTimeMs
			rateSum += rollup.SuccessRate(row.TotalRequests, row.SuccessfulRequests)
		}
		// Unweighted means across models, matching the timeline merge.
		stats.AvgResponseTimeMs = int64(math.Round(responseSum / float64(len(rows))))
		stats.SuccessRate = rateSum / float64(len(rows))
	}

	now := time.Now()
	var monthly models.MonthlyUsageSummary
	err = s.db.Where("organization_id = ? AND year = ? AND month = ?", orgID, now.Year(), int(now.Month())).
		First(&monthly).Error
	if err == nil {
		stats.MonthlyCost = monthly.TotalCost
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	recent, err := usageSvc.RecentCalls(orgID, 10)
	if err != nil {
		return nil, err
	}
	stats.RecentCalls = recent

	return &stats, nil
}

// loadDailyRows fetches daily summaries for an organization and converts
// them to rollup rows. endDate is inclusive; empty means no upper bound.
func (s *AnalyticsService) loadDailyRows(orgID uint, startDate, endDate string) ([]rollup.DailyRow, error) {
	query := s.db.Model(&models.DailyUsageSummary{}).
		Where("organization_id = ? AND usage_date >= ?", orgID, startDate)
	if endDate != "" {
		query = query.Where("usage_date <= ?", endDate)
	}

	var summaries []models.DailyUsageSummary
	if err := query.Preload("Model").Order("usage_date ASC").Find(&summaries).Error; err != nil {
		return nil, err
	}

	rows := make([]rollup.DailyRow, 0, len(summaries))
	for _, sm := range summaries {
		row := rollup.DailyRow{
			Date:               sm.UsageDate,
			ModelID:            sm.ModelID,
			TotalRequests:      sm.TotalRequests,
			SuccessfulRequests: sm.SuccessfulRequests,
			TotalTokens:        sm.TotalTokens,
			TotalCost:          sm.TotalCost,
			AvgResponseTimeMs:  sm.AvgResponseTimeMs,
		}
		if sm.Model != nil {
			row.ModelName = sm.Model.Name
			row.Provider = sm.Model.Provider
		}
		rows = append(rows, row)
	}
	return rows, nil
}
