package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/pkg/response"
)

// AIModelHandler manages the model catalog and pricing (admin write access).
type AIModelHandler struct {
	modelService *services.AIModelService
}

func NewAIModelHandler(modelService *services.AIModelService) *AIModelHandler {
	return &AIModelHandler{modelService: modelService}
}

// List returns the model catalog.
// GET /api/models?active=true
func (h *AIModelHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	list, err := h.modelService.List(activeOnly)
	if err != nil {
		response.ServerError(c, "failed to list models: "+err.Error())
		return
	}

	response.Success(c, list)
}

// Get returns one model.
// GET /api/models/:id
func (h *AIModelHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid model id")
		return
	}

	model, err := h.modelService.Get(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrModelNotFound) {
			response.NotFound(c, "model not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, model)
}

type createModelRequest struct {
	ModelIdentifier       string  `json:"model_identifier" binding:"required"`
	Name                  string  `json:"name" binding:"required"`
	Provider              string  `json:"provider" binding:"required"`
	InputCostPer1kTokens  float64 `json:"input_cost_per_1k_tokens" binding:"min=0"`
	OutputCostPer1kTokens float64 `json:"output_cost_per_1k_tokens" binding:"min=0"`
	ContextWindow         int     `json:"context_window"`
	MaxTokens             int     `json:"max_tokens"`
	PerformanceTier       string  `json:"performance_tier"`
}

// Create adds a model to the catalog.
// POST /api/models
func (h *AIModelHandler) Create(c *gin.Context) {
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model := &models.AIModel{
		ModelIdentifier:       req.ModelIdentifier,
		Name:                  req.Name,
		Provider:              req.Provider,
		InputCostPer1kTokens:  req.InputCostPer1kTokens,
		OutputCostPer1kTokens: req.OutputCostPer1kTokens,
		ContextWindow:         req.ContextWindow,
		MaxTokens:             req.MaxTokens,
		PerformanceTier:       req.PerformanceTier,
		IsActive:              true,
	}

	if err := h.modelService.Create(model); err != nil {
		response.ServerError(c, "failed to create model: "+err.Error())
		return
	}

	response.Created(c, model)
}

// Update modifies catalog fields, including pricing.
// PUT /api/models/:id
func (h *AIModelHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid model id")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	allowed := map[string]bool{
		"name":                      true,
		"provider":                  true,
		"input_cost_per_1k_tokens":  true,
		"output_cost_per_1k_tokens": true,
		"context_window":            true,
		"max_tokens":                true,
		"performance_tier":          true,
		"is_active":                 true,
	}
	for field := range updates {
		if !allowed[field] {
			response.BadRequest(c, "field not updatable: "+field)
			return
		}
	}

	model, err := h.modelService.Update(uint(id), updates)
	if err != nil {
		if errors.Is(err, services.ErrModelNotFound) {
			response.NotFound(c, "model not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, model)
}

// Deactivate retires a model from the catalog.
// DELETE /api/models/:id
func (h *AIModelHandler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid model id")
		return
	}

	if err := h.modelService.Deactivate(uint(id)); err != nil {
		if errors.Is(err, services.ErrModelNotFound) {
			response.NotFound(c, "model not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "model deactivated"})
}
