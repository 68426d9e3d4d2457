package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jupiterbrains/insight/internal/handlers"
	"github.com/jupiterbrains/insight/internal/middleware"
	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for unauthenticated and ingest routes
	ingestLimiter := middleware.NewRateLimiter(10, 20)

	// Health and metrics
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics)

	db := models.GetDB()
	usageHandler := handlers.NewUsageHandler(db, svc.usageService, svc.taskQueue)
	dashboardHandler := handlers.NewDashboardHandler(db, svc.usageService, svc.store)
	billingHandler := handlers.NewBillingHandler(svc.billingService, svc.store)
	modelHandler := handlers.NewAIModelHandler(svc.modelService)
	apiKeyHandler := handlers.NewAPIKeyHandler(services.NewAPIKeyService(db))

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", ingestLimiter.Middleware())
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
		}

		// SSE change events (public route with internal token validation)
		sseHandler := handlers.NewSSEHandler(services.GetSSEHub())
		api.GET("/events/changes", sseHandler.StreamChangeEvents)

		// Usage reporting (API key auth, rate limited)
		api.POST("/usage/report", ingestLimiter.Middleware(), usageHandler.Report)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.OrgContext(db))
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Dashboard and analytics
			protected.GET("/dashboard/stats", dashboardHandler.GetStats)
			protected.GET("/analytics/usage", dashboardHandler.GetUsageHistory)

			// Usage
			protected.GET("/usage/stats", usageHandler.GetStats)
			protected.GET("/usage/logs", usageHandler.List)
			protected.GET("/usage/recent", usageHandler.RecentCalls)

			// Model catalog (read)
			protected.GET("/models", modelHandler.List)
			protected.GET("/models/:id", modelHandler.Get)

			// Billing (read)
			protected.GET("/billing", billingHandler.GetBillingInfo)
			protected.GET("/billing/cycles/:id", billingHandler.GetCycle)

			// API keys
			protected.GET("/keys", apiKeyHandler.List)
		}

		// Admin only routes (audited)
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.OrgContext(db), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Usage simulation
			admin.POST("/usage/simulate", usageHandler.Simulate)

			// Model catalog (write)
			admin.POST("/models", modelHandler.Create)
			admin.PUT("/models/:id", modelHandler.Update)
			admin.DELETE("/models/:id", modelHandler.Deactivate)

			// Billing lifecycle
			admin.POST("/billing/cycles", billingHandler.GenerateCycle)
			admin.POST("/billing/cycles/:id/finalize", billingHandler.FinalizeCycle)
			admin.POST("/billing/cycles/:id/pay", billingHandler.MarkPaid)

			// API keys (write)
			admin.POST("/keys", apiKeyHandler.Create)
			admin.DELETE("/keys/:id", apiKeyHandler.Revoke)

			// Users
			userHandler := handlers.NewUserHandler(db)
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			// System Logs
			systemLogHandler := handlers.NewSystemLogHandler(db)
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
		}
	}
}
