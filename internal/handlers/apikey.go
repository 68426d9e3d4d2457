package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/middleware"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/pkg/response"
)

type APIKeyHandler struct {
	apiKeyService *services.APIKeyService
}

func NewAPIKeyHandler(apiKeyService *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService: apiKeyService}
}

// List returns the organization's API keys (hashes excluded).
// GET /api/keys
func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.apiKeyService.List(middleware.GetOrgID(c))
	if err != nil {
		response.ServerError(c, "failed to list API keys: "+err.Error())
		return
	}
	response.Success(c, keys)
}

// Create issues a new key. The plaintext key appears only in this response.
// POST /api/keys
func (h *APIKeyHandler) Create(c *gin.Context) {
	var req services.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.apiKeyService.Create(middleware.GetOrgID(c), &req)
	if err != nil {
		response.ServerError(c, "failed to create API key: "+err.Error())
		return
	}

	response.Created(c, resp)
}

// Revoke deactivates a key.
// DELETE /api/keys/:id
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	keyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid key id")
		return
	}

	if err := h.apiKeyService.Revoke(middleware.GetOrgID(c), uint(keyID)); err != nil {
		if errors.Is(err, services.ErrInvalidAPIKey) {
			response.NotFound(c, "API key not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "API key revoked"})
}
