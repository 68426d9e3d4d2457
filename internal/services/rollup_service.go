package services

import (
	"time"

	"github.com/jupiterbrains/insight/internal/config"
	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/internal/rollup"
	"github.com/jupiterbrains/insight/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RollupService recomputes daily and monthly usage summaries from raw usage
// logs. Summaries are derived data: every rebuild replaces the stored bucket
// wholesale, so re-running after a partial failure is always safe.
type RollupService struct {
	db        *gorm.DB
	cfg       *config.RollupConfig
	notifier  *ChangeNotifier
	usageSvc  *UsageService
	scheduler *cron.Cron
}

func NewRollupService(db *gorm.DB, cfg *config.RollupConfig, notifier *ChangeNotifier, usageSvc *UsageService) *RollupService {
	return &RollupService{
		db:       db,
		cfg:      cfg,
		notifier: notifier,
		usageSvc: usageSvc,
	}
}

// RebuildDaily re-aggregates usage logs created since the lookback window
// into daily summary buckets. Buckets are upserted by (org, model, date).
func (s *RollupService) RebuildDaily(lookbackDays int) error {
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	since := time.Now().AddDate(0, 0, -lookbackDays).Format("2006-01-02")

	var logs []models.APIUsageLog
	if err := s.db.Where("created_at >= ?", since).Find(&logs).Error; err != nil {
		return err
	}

	events := make([]rollup.Event, 0, len(logs))
	for _, log := range logs {
		events = append(events, rollup.Event{
			OrganizationID: log.OrganizationID,
			ModelID:        log.ModelID,
			Date:           log.CreatedAt.Format("2006-01-02"),
			TotalTokens:    log.TotalTokens,
			TotalCost:      log.TotalCost,
			ResponseTimeMs: log.ResponseTimeMs,
			Success:        log.Status == models.UsageStatusSuccess,
		})
	}

	summaries, err := rollup.BuildDaily(events)
	if err != nil {
		return err
	}

	for _, sm := range summaries {
		if err := s.upsertDaily(sm); err != nil {
			return err
		}
	}

	if len(summaries) > 0 && s.notifier != nil {
		s.notifier.NotifyChange("daily_usage_summaries", "update")
	}

	logger.Debugf("[Rollup] Rebuilt %d daily buckets from %d events", len(summaries), len(events))
	return nil
}

func (s *RollupService) upsertDaily(sm rollup.DailySummary) error {
	var existing models.DailyUsageSummary
	err := s.db.Where("organization_id = ? AND model_id = ? AND usage_date = ?",
		sm.OrganizationID, sm.ModelID, sm.Date).First(&existing).Error

	record := models.DailyUsageSummary{
		OrganizationID:     sm.OrganizationID,
		ModelID:            sm.ModelID,
		UsageDate:          sm.Date,
		TotalRequests:      sm.TotalRequests,
		SuccessfulRequests: sm.SuccessfulRequests,
		TotalTokens:        sm.TotalTokens,
		TotalCost:          sm.TotalCost,
		AvgResponseTimeMs:  sm.AvgResponseTimeMs,
		SuccessRate:        sm.SuccessRate,
	}

	if err == gorm.ErrRecordNotFound {
		return s.db.Create(&record).Error
	}
	if err != nil {
		return err
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return s.db.Save(&record).Error
}

// RebuildMonthly recomputes the month summary for every organization that
// has daily data in the given month.
func (s *RollupService) RebuildMonthly(year, month int) error {
	prefix := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")

	var dailies []models.DailyUsageSummary
	if err := s.db.Where("usage_date LIKE ?", prefix+"%").Find(&dailies).Error; err != nil {
		return err
	}

	byOrg := make(map[uint][]rollup.DailySummary)
	for _, d := range dailies {
		byOrg[d.OrganizationID] = append(byOrg[d.OrganizationID], rollup.DailySummary{
			OrganizationID:     d.OrganizationID,
			ModelID:            d.ModelID,
			Date:               d.UsageDate,
			TotalRequests:      d.TotalRequests,
			SuccessfulRequests: d.SuccessfulRequests,
			TotalTokens:        d.TotalTokens,
			TotalCost:          d.TotalCost,
		})
	}

	for orgID, rows := range byOrg {
		monthly := rollup.BuildMonthly(year, month, rows)
		if err := s.upsertMonthly(orgID, monthly); err != nil {
			return err
		}
	}

	if len(byOrg) > 0 && s.notifier != nil {
		s.notifier.NotifyChange("monthly_usage_summaries", "update")
	}
	return nil
}

func (s *RollupService) upsertMonthly(orgID uint, m rollup.MonthlySummary) error {
	var existing models.MonthlyUsageSummary
	err := s.db.Where("organization_id = ? AND year = ? AND month = ?",
		orgID, m.Year, m.Month).First(&existing).Error

	record := models.MonthlyUsageSummary{
		OrganizationID:       orgID,
		Year:                 m.Year,
		Month:                m.Month,
		TotalRequests:        m.TotalRequests,
		TotalTokens:          m.TotalTokens,
		TotalCost:            m.TotalCost,
		PeakDailyRequests:    m.PeakDailyRequests,
		AverageDailyRequests: m.AverageDailyRequests,
	}

	if err == gorm.ErrRecordNotFound {
		return s.db.Create(&record).Error
	}
	if err != nil {
		return err
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return s.db.Save(&record).Error
}

// StartScheduler runs the periodic rollup jobs.
func (s *RollupService) StartScheduler() {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc(s.cfg.DailyCron, func() {
		if err := s.RebuildDaily(s.cfg.LookbackDays); err != nil {
			logger.Errorf("[Rollup] Daily rebuild failed: %v", err)
		}
	}); err != nil {
		logger.Errorf("[Rollup] Invalid daily cron spec %q: %v", s.cfg.DailyCron, err)
	}

	if _, err := s.scheduler.AddFunc(s.cfg.MonthlyCron, func() {
		now := time.Now()
		if err := s.RebuildMonthly(now.Year(), int(now.Month())); err != nil {
			logger.Errorf("[Rollup] Monthly rebuild failed: %v", err)
		}
	}); err != nil {
		logger.Errorf("[Rollup] Invalid monthly cron spec %q: %v", s.cfg.MonthlyCron, err)
	}

	if s.cfg.RetentionDays > 0 {
		s.scheduler.AddFunc("0 3 * * *", func() {
			before := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
			deleted, err := s.usageSvc.CleanupBefore(before)
			if err != nil {
				logger.Errorf("[Rollup] Usage log cleanup failed: %v", err)
				return
			}
			if deleted > 0 {
				logger.Infof("[Rollup] Deleted %d usage logs older than %d days", deleted, s.cfg.RetentionDays)
			}
		})
	}

	s.scheduler.Start()
	logger.Infof("[Rollup] Scheduler started (daily=%q monthly=%q)", s.cfg.DailyCron, s.cfg.MonthlyCron)
}

// StopScheduler stops the periodic jobs.
func (s *RollupService) StopScheduler() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
