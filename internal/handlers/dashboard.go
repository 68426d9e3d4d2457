package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/cache"
	"github.com/jupiterbrains/insight/internal/middleware"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/pkg/response"
	"gorm.io/gorm"
)

// Tables whose changes make cached usage views stale. Billing tables are
// deliberately absent: billing edits never touch usage aggregates.
var usageTables = []string{"api_usage_logs", "daily_usage_summaries"}

// DashboardHandler serves the dashboard and analytics reads through the
// change-driven cache: values stay served from memory until a change
// notification for one of their source tables marks them stale.
type DashboardHandler struct {
	analyticsService *services.AnalyticsService
	usageService     *services.UsageService
	store            *cache.Store
}

func NewDashboardHandler(db *gorm.DB, usageService *services.UsageService, store *cache.Store) *DashboardHandler {
	return &DashboardHandler{
		analyticsService: services.NewAnalyticsService(db),
		usageService:     usageService,
		store:            store,
	}
}

// GetStats returns the dashboard overview for the caller's organization.
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	orgID := middleware.GetOrgID(c)

	key := fmt.Sprintf("dashboard-stats:%d", orgID)
	h.ensureKey(key, usageTables, func(ctx context.Context) (interface{}, error) {
		return h.analyticsService.GetDashboardStats(orgID, h.usageService)
	})

	stats, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		response.ServerError(c, "failed to get dashboard stats: "+err.Error())
		return
	}

	response.Success(c, stats)
}

// GetUsageHistory returns the timeline and per-model breakdown for a range.
// GET /api/analytics/usage?range=7d|30d|90d
func (h *DashboardHandler) GetUsageHistory(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	dateRange := c.DefaultQuery("range", "30d")

	switch dateRange {
	case "7d", "30d", "90d":
	default:
		response.BadRequest(c, "range must be one of 7d, 30d, 90d")
		return
	}

	key := fmt.Sprintf("usage-history:%d:%s", orgID, dateRange)
	h.ensureKey(key, usageTables, func(ctx context.Context) (interface{}, error) {
		return h.analyticsService.GetUsageAnalytics(orgID, dateRange)
	})

	history, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		response.ServerError(c, "failed to get usage history: "+err.Error())
		return
	}

	response.Success(c, history)
}

// ensureKey registers the cache key on first use. Concurrent first requests
// may both register; the extra registration just re-marks the key stale.
func (h *DashboardHandler) ensureKey(key string, tables []string, query cache.QueryFunc) {
	if _, err := h.store.State(key); err != nil {
		h.store.Register(key, tables, query)
	}
}
