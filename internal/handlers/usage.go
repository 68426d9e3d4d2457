package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jupiterbrains/insight/internal/middleware"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/pkg/response"
	"gorm.io/gorm"
)

// UsageHandler provides endpoints for usage reporting and inspection.
type UsageHandler struct {
	usageService     *services.UsageService
	simulatorService *services.SimulatorService
	apiKeyService    *services.APIKeyService
	queue            services.TaskQueue
}

func NewUsageHandler(db *gorm.DB, usageService *services.UsageService, queue services.TaskQueue) *UsageHandler {
	return &UsageHandler{
		usageService:     usageService,
		simulatorService: services.NewSimulatorService(db, queue),
		apiKeyService:    services.NewAPIKeyService(db),
		queue:            queue,
	}
}

// GetStats returns aggregated usage statistics for a date range.
// GET /api/usage/stats?start_date=&end_date=
func (h *UsageHandler) GetStats(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	stats, err := h.usageService.GetStats(orgID, startDate, endDate)
	if err != nil {
		response.ServerError(c, "failed to get usage stats: "+err.Error())
		return
	}

	response.Success(c, stats)
}

// List returns paginated usage logs.
// GET /api/usage/logs
func (h *UsageHandler) List(c *gin.Context) {
	orgID := middleware.GetOrgID(c)

	var req services.UsageLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	total, logs, err := h.usageService.List(orgID, &req)
	if err != nil {
		response.ServerError(c, "failed to list usage logs: "+err.Error())
		return
	}

	response.Page(c, total, req.Page, req.PageSize, logs)
}

// RecentCalls returns the latest usage events for the live feed.
// GET /api/usage/recent?limit=10
func (h *UsageHandler) RecentCalls(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	calls, err := h.usageService.RecentCalls(orgID, limit)
	if err != nil {
		response.ServerError(c, "failed to get recent calls: "+err.Error())
		return
	}

	response.Success(c, calls)
}

// ReportRequest is the payload for API-key authenticated usage reporting.
type ReportRequest struct {
	RequestID        string `json:"request_id"`
	ModelID          uint   `json:"model_id" binding:"required"`
	Endpoint         string `json:"endpoint"`
	PromptTokens     int64  `json:"prompt_tokens" binding:"min=0"`
	CompletionTokens int64  `json:"completion_tokens" binding:"min=0"`
	ResponseTimeMs   int64  `json:"response_time_ms" binding:"min=0"`
	Status           string `json:"status"`
	StatusCode       int    `json:"status_code"`
	ErrorMessage     string `json:"error_message"`
}

// Report ingests one usage event reported by a client SDK.
// POST /api/usage/report  (X-API-Key auth)
func (h *UsageHandler) Report(c *gin.Context) {
	apiKey, err := h.apiKeyService.Verify(c.GetHeader("X-API-Key"))
	if err != nil {
		response.Unauthorized(c, "invalid API key")
		return
	}

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = "success"
	}

	task := &services.UsageTask{
		RequestID:        req.RequestID,
		OrganizationID:   apiKey.OrganizationID,
		ModelID:          req.ModelID,
		Endpoint:         req.Endpoint,
		PromptTokens:     req.PromptTokens,
		CompletionTokens: req.CompletionTokens,
		ResponseTimeMs:   req.ResponseTimeMs,
		Status:           req.Status,
		StatusCode:       req.StatusCode,
		ErrorMessage:     req.ErrorMessage,
	}

	if err := h.queue.Enqueue(task); err != nil {
		response.ServerError(c, "failed to enqueue usage event: "+err.Error())
		return
	}

	response.Success(c, gin.H{"request_id": req.RequestID, "queued": true})
}

// Simulate enqueues synthetic usage traffic.
// POST /api/usage/simulate
func (h *UsageHandler) Simulate(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	userID := middleware.GetUserID(c)

	var req struct {
		Count int `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}

	enqueued, err := h.simulatorService.SimulateBatch(orgID, &userID, req.Count)
	if err != nil {
		response.ServerError(c, "simulation failed: "+err.Error())
		return
	}

	response.Success(c, gin.H{"enqueued": enqueued})
}
