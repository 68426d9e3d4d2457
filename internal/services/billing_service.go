package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jupiterbrains/insight/internal/billing"
	"github.com/jupiterbrains/insight/internal/config"
	"github.com/jupiterbrains/insight/internal/models"
	"github.com/jupiterbrains/insight/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCycleNotFound     = errors.New("billing cycle not found")
	ErrCycleNotDraft     = errors.New("billing cycle is not in draft status")
	ErrCycleInconsistent = errors.New("billing cycle line items do not match stated costs")
)

// BillingService assembles billing cycles from recorded usage and manages
// their lifecycle: draft -> pending -> paid/overdue. Totals are computed by
// the billing package; this layer only persists and transitions them.
type BillingService struct {
	db       *gorm.DB
	cfg      *config.BillingConfig
	notifier *ChangeNotifier
	catalog  *AIModelService
}

func NewBillingService(db *gorm.DB, cfg *config.BillingConfig, notifier *ChangeNotifier, catalog *AIModelService) *BillingService {
	return &BillingService{db: db, cfg: cfg, notifier: notifier, catalog: catalog}
}

// BillingInfo is the billing page payload: the cycle currently awaiting
// payment, recent history, and the organization's payment methods.
type BillingInfo struct {
	CurrentCycle   *models.BillingCycle   `json:"current_cycle"`
	History        []models.BillingCycle  `json:"history"`
	PaymentMethods []models.PaymentMethod `json:"payment_methods"`
}

func (s *BillingService) GetBillingInfo(orgID uint) (*BillingInfo, error) {
	// Flip any pending cycles past their due date before reading, so the
	// payload never shows a stale pending state.
	if _, err := s.MarkOverdueCycles(); err != nil {
		logger.Warnf("[Billing] overdue sweep failed: %v", err)
	}

	info := &BillingInfo{}

	var current models.BillingCycle
	err := s.db.Preload("LineItems").
		Where("organization_id = ? AND status = ?", orgID, models.CycleStatusPending).
		Order("cycle_start DESC").
		First(&current).Error
	if err == nil {
		info.CurrentCycle = &current
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err := s.db.Where("organization_id = ? AND status <> ?", orgID, models.CycleStatusDraft).
		Order("cycle_start DESC").
		Limit(12).
		Find(&info.History).Error; err != nil {
		return nil, err
	}

	if err := s.db.Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("is_default DESC, created_at DESC").
		Find(&info.PaymentMethods).Error; err != nil {
		return nil, err
	}

	return info, nil
}

func (s *BillingService) GetCycle(cycleID uint) (*models.BillingCycle, error) {
	var cycle models.BillingCycle
	if err := s.db.Preload("LineItems").First(&cycle, cycleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	return &cycle, nil
}

type modelUsageRow struct {
	ModelID     uint
	ModelName   string
	TotalTokens int64
	TotalCost   float64
}

// GenerateCycle builds a draft billing cycle for the usage recorded in
// [cycleStart, cycleEnd). Line items are one usage row per model plus the
// subscription charge; a clamped (negative) total flags the cycle for review
// instead of producing a negative invoice.
func (s *BillingService) GenerateCycle(orgID uint, cycleStart, cycleEnd time.Time, discountAmount float64) (*models.BillingCycle, error) {
	var org models.Organization
	if err := s.db.First(&org, orgID).Error; err != nil {
		return nil, fmt.Errorf("load organization %d: %w", orgID, err)
	}

	var rows []modelUsageRow
	if err := s.db.Model(&models.APIUsageLog{}).
		Select("api_usage_logs.model_id, ai_models.name AS model_name, SUM(api_usage_logs.total_tokens) AS total_tokens, SUM(api_usage_logs.total_cost) AS total_cost").
		Joins("JOIN ai_models ON ai_models.id = api_usage_logs.model_id").
		Where("api_usage_logs.organization_id = ? AND api_usage_logs.created_at >= ? AND api_usage_logs.created_at < ?", orgID, cycleStart, cycleEnd).
		Group("api_usage_logs.model_id, ai_models.name").
		Order("total_cost DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	taxRate := org.TaxRate
	if taxRate == 0 {
		taxRate = s.cfg.DefaultTaxRate
	}

	var usageCost float64
	items := make([]models.BillingLineItem, 0, len(rows)+1)
	for _, row := range rows {
		usageCost += row.TotalCost
		modelID := row.ModelID
		unitPrice := 0.0
		if row.TotalTokens > 0 {
			unitPrice = row.TotalCost / float64(row.TotalTokens)
		}
		items = append(items, models.BillingLineItem{
			ModelID:     &modelID,
			ItemType:    "usage",
			Description: fmt.Sprintf("%s usage", row.ModelName),
			Quantity:    float64(row.TotalTokens),
			UnitType:    "tokens",
			UnitPrice:   unitPrice,
			TotalAmount: billing.LineItemTotal(float64(row.TotalTokens), unitPrice),
		})
	}

	if org.SubscriptionCost > 0 {
		items = append(items, models.BillingLineItem{
			ItemType:    "subscription",
			Description: fmt.Sprintf("%s plan subscription", org.Plan),
			Quantity:    1,
			UnitType:    "month",
			UnitPrice:   org.SubscriptionCost,
			TotalAmount: billing.LineItemTotal(1, org.SubscriptionCost),
		})
	}

	reprice, err := s.repriceWindow(orgID, cycleStart, cycleEnd)
	if err != nil {
		logger.Warnf("[Billing] Reprice check for org %d failed: %v", orgID, err)
	} else {
		if reprice.SkippedCount > 0 {
			logger.Warnf("[Billing] %d usage events in org %d cycle reference models no longer in the catalog", reprice.SkippedCount, orgID)
		}
		if math.Abs(reprice.TotalCost-usageCost) > s.cfg.LineItemTolerance {
			logger.Warnf("[Billing] Org %d cycle usage cost %.6f differs from current catalog pricing %.6f (schedule changed since events were recorded)",
				orgID, usageCost, reprice.TotalCost)
		}
	}

	amounts := billing.CycleTotal(usageCost, org.SubscriptionCost, taxRate, discountAmount)

	cycle := &models.BillingCycle{
		OrganizationID:   orgID,
		CycleStart:       cycleStart,
		CycleEnd:         cycleEnd,
		UsageCost:        amounts.UsageCost,
		SubscriptionCost: amounts.SubscriptionCost,
		TaxRate:          amounts.TaxRate,
		TaxAmount:        amounts.TaxAmount,
		DiscountAmount:   amounts.DiscountAmount,
		TotalAmount:      amounts.TotalAmount,
		Status:           models.CycleStatusDraft,
		NeedsReview:      amounts.Clamped,
		LineItems:        items,
	}

	if err := s.db.Create(cycle).Error; err != nil {
		return nil, err
	}

	if amounts.Clamped {
		logger.Warnf("[Billing] Cycle %d for org %d clamped to zero (discount %.2f exceeds charges)", cycle.ID, orgID, discountAmount)
		LogWarning("billing", "generate_cycle",
			fmt.Sprintf("Cycle %d total clamped to zero, flagged for review", cycle.ID),
			nil, "", "", map[string]interface{}{
				"organization_id": orgID,
				"discount_amount": discountAmount,
			})
	}

	if s.notifier != nil {
		s.notifier.NotifyChange("billing_cycles", "insert")
	}
	return cycle, nil
}

// repriceWindow re-prices the raw usage events in [start, end) against the
// current model catalog. Stored costs were priced at event time, so a drift
// between the two means the price schedule was edited after the fact; events
// whose model left the catalog are skipped and counted.
func (s *BillingService) repriceWindow(orgID uint, start, end time.Time) (billing.BatchResult, error) {
	var events []billing.BatchEvent
	if err := s.db.Model(&models.APIUsageLog{}).
		Select("model_id, prompt_tokens, completion_tokens").
		Where("organization_id = ? AND created_at >= ? AND created_at < ?", orgID, start, end).
		Scan(&events).Error; err != nil {
		return billing.BatchResult{}, err
	}
	if s.catalog == nil {
		return billing.BatchResult{}, errors.New("no model catalog configured")
	}
	schedules, err := s.catalog.Schedules()
	if err != nil {
		return billing.BatchResult{}, err
	}
	return billing.BatchCost(events, schedules)
}

// FinalizeCycle moves a draft cycle to pending, assigning its invoice number
// and due date. Finalization is refused when the line items disagree with the
// stated costs; the cycle is flagged inconsistent and left in draft so the
// data can be corrected first.
func (s *BillingService) FinalizeCycle(cycleID uint) (*models.BillingCycle, error) {
	cycle, err := s.GetCycle(cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleStatusDraft {
		return nil, ErrCycleNotDraft
	}

	items := make([]billing.LineItem, 0, len(cycle.LineItems))
	for _, item := range cycle.LineItems {
		items = append(items, billing.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalAmount: item.TotalAmount,
		})
	}

	if !billing.CheckLineItems(items, cycle.UsageCost, cycle.SubscriptionCost, s.cfg.LineItemTolerance) {
		cycle.Inconsistent = true
		if err := s.db.Model(cycle).Update("inconsistent", true).Error; err != nil {
			return nil, err
		}
		LogWarning("billing", "finalize_cycle",
			fmt.Sprintf("Cycle %d line items inconsistent, finalization blocked", cycle.ID),
			nil, "", "", nil)
		return nil, ErrCycleInconsistent
	}

	dueDate := time.Now().AddDate(0, 0, s.cfg.PaymentTermsDays)
	cycle.Status = models.CycleStatusPending
	cycle.InvoiceNumber = s.invoiceNumber(cycle)
	cycle.DueDate = &dueDate
	cycle.Inconsistent = false

	if err := s.db.Save(cycle).Error; err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyChange("billing_cycles", "update")
	}
	return cycle, nil
}

// MarkPaid settles a pending or overdue cycle.
func (s *BillingService) MarkPaid(cycleID uint) (*models.BillingCycle, error) {
	cycle, err := s.GetCycle(cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleStatusPending && cycle.Status != models.CycleStatusOverdue {
		return nil, fmt.Errorf("cycle %d is %s, only pending or overdue cycles can be paid", cycleID, cycle.Status)
	}

	now := time.Now()
	cycle.Status = models.CycleStatusPaid
	cycle.PaidAt = &now
	if err := s.db.Save(cycle).Error; err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyChange("billing_cycles", "update")
	}
	return cycle, nil
}

// MarkOverdueCycles flips pending cycles past their due date to overdue.
func (s *BillingService) MarkOverdueCycles() (int64, error) {
	result := s.db.Model(&models.BillingCycle{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.CycleStatusPending, time.Now()).
		Update("status", models.CycleStatusOverdue)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 && s.notifier != nil {
		s.notifier.NotifyChange("billing_cycles", "update")
	}
	return result.RowsAffected, nil
}

func (s *BillingService) invoiceNumber(cycle *models.BillingCycle) string {
	return fmt.Sprintf("%s-%s-%05d", s.cfg.InvoicePrefix, cycle.CycleStart.Format("200601"), cycle.ID)
}
