package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/internal/services"
)

var startTime = time.Now()

// Metrics returns Prometheus-compatible text format metrics.
func Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "insight_uptime_seconds", "Time since server start in seconds", float64(time.Since(startTime).Seconds()))
	writeGauge(&b, "insight_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "insight_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "insight_memory_sys_bytes", "Total memory obtained from OS in bytes", float64(m.Sys))
	writeGauge(&b, "insight_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	// -- Database metrics --
	db := models.GetDB()
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "insight_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "insight_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
			writeGauge(&b, "insight_db_idle_connections", "Number of idle DB connections", float64(stats.Idle))
		}
	}

	// -- SSE metrics --
	sseHub := services.GetSSEHub()
	if sseHub != nil {
		writeGauge(&b, "insight_sse_active_clients", "Number of active SSE connections", float64(sseHub.ClientCount()))
	}

	// -- Queue metrics --
	taskQueue := services.GetTaskQueue()
	queueAsync := 0.0
	if taskQueue != nil && taskQueue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "insight_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	// -- Usage and billing metrics --
	if db != nil {
		since24h := time.Now().Add(-24 * time.Hour)
		var calls24h, errors24h int64
		db.Model(&models.APIUsageLog{}).Where("created_at >= ?", since24h).Count(&calls24h)
		db.Model(&models.APIUsageLog{}).Where("created_at >= ? AND status = ?", since24h, models.UsageStatusError).Count(&errors24h)

		writeGauge(&b, "insight_usage_calls_24h", "API calls recorded in the last 24 hours", float64(calls24h))
		writeGauge(&b, "insight_usage_errors_24h", "Failed API calls recorded in the last 24 hours", float64(errors24h))

		var pendingCycles, overdueCycles, reviewCycles int64
		db.Model(&models.BillingCycle{}).Where("status = ?", models.CycleStatusPending).Count(&pendingCycles)
		db.Model(&models.BillingCycle{}).Where("status = ?", models.CycleStatusOverdue).Count(&overdueCycles)
		db.Model(&models.BillingCycle{}).Where("needs_review = ? OR inconsistent = ?", true, true).Count(&reviewCycles)

		writeGauge(&b, "insight_billing_cycles_pending", "Number of pending billing cycles", float64(pendingCycles))
		writeGauge(&b, "insight_billing_cycles_overdue", "Number of overdue billing cycles", float64(overdueCycles))
		writeGauge(&b, "insight_billing_cycles_flagged", "Number of billing cycles flagged for review", float64(reviewCycles))

		var activeModels, activeUsers int64
		db.Model(&models.AIModel{}).Where("is_active = ?", true).Count(&activeModels)
		db.Model(&models.User{}).Where("deleted_at IS NULL AND is_active = ?", true).Count(&activeUsers)

		writeGauge(&b, "insight_models_active", "Number of active catalog models", float64(activeModels))
		writeGauge(&b, "insight_users_active", "Number of active users", float64(activeUsers))
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
