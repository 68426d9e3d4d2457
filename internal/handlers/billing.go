package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/cache"
	"github.com/jupiterbrains/insight/internal/middleware"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/pkg/response"
)

// Tables whose changes make the cached billing view stale. Usage tables are
// absent on purpose: new usage events do not rewrite issued invoices.
var billingTables = []string{"billing_cycles", "billing_line_items", "payment_methods"}

type BillingHandler struct {
	billingService *services.BillingService
	store          *cache.Store
}

func NewBillingHandler(billingService *services.BillingService, store *cache.Store) *BillingHandler {
	return &BillingHandler{billingService: billingService, store: store}
}

// GetBillingInfo returns the billing page payload for the caller's org.
// GET /api/billing
func (h *BillingHandler) GetBillingInfo(c *gin.Context) {
	orgID := middleware.GetOrgID(c)

	key := fmt.Sprintf("billing-info:%d", orgID)
	if _, err := h.store.State(key); err != nil {
		h.store.Register(key, billingTables, func(ctx context.Context) (interface{}, error) {
			return h.billingService.GetBillingInfo(orgID)
		})
	}

	info, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		response.ServerError(c, "failed to get billing info: "+err.Error())
		return
	}

	response.Success(c, info)
}

// GetCycle returns one billing cycle with its line items.
// GET /api/billing/cycles/:id
func (h *BillingHandler) GetCycle(c *gin.Context) {
	cycleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid cycle id")
		return
	}

	cycle, err := h.billingService.GetCycle(uint(cycleID))
	if err != nil {
		if errors.Is(err, services.ErrCycleNotFound) {
			response.NotFound(c, "billing cycle not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	if cycle.OrganizationID != middleware.GetOrgID(c) {
		response.NotFound(c, "billing cycle not found")
		return
	}

	response.Success(c, cycle)
}

type generateCycleRequest struct {
	CycleStart     string  `json:"cycle_start" binding:"required"` // YYYY-MM-DD
	CycleEnd       string  `json:"cycle_end" binding:"required"`   // YYYY-MM-DD, exclusive
	DiscountAmount float64 `json:"discount_amount"`
}

// GenerateCycle builds a draft invoice for a period (admin only).
// POST /api/billing/cycles
func (h *BillingHandler) GenerateCycle(c *gin.Context) {
	var req generateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	start, err := time.Parse("2006-01-02", req.CycleStart)
	if err != nil {
		response.BadRequest(c, "cycle_start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.CycleEnd)
	if err != nil {
		response.BadRequest(c, "cycle_end must be YYYY-MM-DD")
		return
	}
	if !start.Before(end) {
		response.BadRequest(c, "cycle_start must be before cycle_end")
		return
	}
	if req.DiscountAmount < 0 {
		response.BadRequest(c, "discount_amount cannot be negative")
		return
	}

	cycle, err := h.billingService.GenerateCycle(middleware.GetOrgID(c), start, end, req.DiscountAmount)
	if err != nil {
		response.ServerError(c, "failed to generate billing cycle: "+err.Error())
		return
	}

	response.Created(c, cycle)
}

// FinalizeCycle moves a draft cycle to pending (admin only).
// POST /api/billing/cycles/:id/finalize
func (h *BillingHandler) FinalizeCycle(c *gin.Context) {
	cycleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid cycle id")
		return
	}

	cycle, err := h.billingService.FinalizeCycle(uint(cycleID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCycleNotFound):
			response.NotFound(c, "billing cycle not found")
		case errors.Is(err, services.ErrCycleNotDraft):
			response.Error(c, response.NewConflict("only draft cycles can be finalized"))
		case errors.Is(err, services.ErrCycleInconsistent):
			response.Error(c, response.NewConflict("line items do not match stated costs; cycle flagged for review"))
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, cycle)
}

// MarkPaid settles a pending or overdue cycle (admin only).
// POST /api/billing/cycles/:id/pay
func (h *BillingHandler) MarkPaid(c *gin.Context) {
	cycleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid cycle id")
		return
	}

	cycle, err := h.billingService.MarkPaid(uint(cycleID))
	if err != nil {
		if errors.Is(err, services.ErrCycleNotFound) {
			response.NotFound(c, "billing cycle not found")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, cycle)
}
