package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/config"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/pkg/response"
	"gorm.io/gorm"
)

const refreshCookieName = "insight_refresh_token"

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, &cfg.JWT),
	}
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(&req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpireAt.Unix())

	response.Success(c, gin.H{
		"token":     result.AccessToken,
		"expire_at": result.AccessExpireAt,
		"user":      result.User,
	})
}

// Refresh rotates the refresh token cookie and issues a new access token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		response.Unauthorized(c, "refresh token required")
		return
	}

	result, err := h.authService.Refresh(refreshToken, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		h.clearRefreshCookie(c)
		response.Unauthorized(c, err.Error())
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpireAt.Unix())

	response.Success(c, gin.H{
		"token":     result.AccessToken,
		"expire_at": result.AccessExpireAt,
	})
}

// Logout revokes the refresh token and clears the cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(refreshCookieName); err == nil && refreshToken != "" {
		if err := h.authService.RevokeRefreshToken(refreshToken); err != nil {
			response.ServerError(c, "failed to revoke refresh token: "+err.Error())
			return
		}
	}
	h.clearRefreshCookie(c)
	response.Success(c, gin.H{"message": "logged out successfully"})
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, _ := c.Get("user_id")
	user, err := h.authService.GetUserByID(userID.(uint))
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, user)
}

// ChangePassword updates the current user's password
// POST /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	if err := h.authService.ChangePassword(userID.(uint), &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "password updated"})
}

// CreateAdminIfNotExists creates the default admin user on startup
func (h *AuthHandler) CreateAdminIfNotExists(orgID uint) error {
	return h.authService.CreateAdminIfNotExists(orgID)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, expiresAtUnix int64) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := int(expiresAtUnix - time.Now().Unix())
	if maxAge <= 0 {
		maxAge = 0
	}
	c.SetCookie(refreshCookieName, token, maxAge, "/api/auth", "", false, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, "/api/auth", "", false, true)
}
