package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/internal/services"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// SSE connections
	sseClients := services.GetSSEHub().ClientCount()

	// Usage events recorded today
	var todayCount int64
	today := time.Now().Format("2006-01-02")
	models.GetDB().Model(&models.APIUsageLog{}).
		Where("created_at >= ?", today).
		Count(&todayCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "insight",
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"sse_clients": sseClients,
			"usage_today": todayCount,
		},
	})
}
