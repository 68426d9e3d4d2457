package main

import (
	"github.com/jupiterbrains/insight/internal/cache"
	"github.com/jupiterbrains/insight/internal/config"
	"github.com/jupiterbrains/insight/internal/handlers"
	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/internal/services"
	"github.com/jupiterbrains/insight/internal/utils"
	"github.com/jupiterbrains/insight/pkg/logger"
)

// Ambient system logs are kept for 30 days.
const systemLogRetentionDays = 30

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	store          *cache.Store
	taskQueue      services.TaskQueue
	worker         *services.Worker
	usageService   *services.UsageService
	rollupService  *services.RollupService
	billingService *services.BillingService
	modelService   *services.AIModelService
	authHandler    *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed the default organization and model catalog
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())
	services.StartLogCleanupScheduler(models.GetDB(), systemLogRetentionDays)

	// Change-driven cache: values registered per handler, invalidated by
	// change notifications fanned out by the notifier below.
	store := cache.NewStore()
	notifier := services.NewChangeNotifier(services.GetSSEHub(), store)

	usageService := services.NewUsageService(models.GetDB(), notifier)

	// Task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(usageService.ProcessTask)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled && taskQueue.IsAsync() {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(usageService.ProcessTask)
			worker.Start()
		}
	}

	// Rollup schedulers keep the daily/monthly summary tables current
	rollupService := services.NewRollupService(models.GetDB(), &cfg.Rollup, notifier, usageService)
	rollupService.StartScheduler()

	modelService := services.NewAIModelService(models.GetDB(), notifier)
	billingService := services.NewBillingService(models.GetDB(), &cfg.Billing, notifier, modelService)

	// Create default admin user in the default organization
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	var defaultOrg models.Organization
	if err := models.GetDB().Order("id ASC").First(&defaultOrg).Error; err != nil {
		logger.Warn().Err(err).Msg("No organization found, admin user not created")
	} else if err := authHandler.CreateAdminIfNotExists(defaultOrg.ID); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		store:          store,
		taskQueue:      taskQueue,
		worker:         worker,
		usageService:   usageService,
		rollupService:  rollupService,
		billingService: billingService,
		modelService:   modelService,
		authHandler:    authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.rollupService.StopScheduler()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}

