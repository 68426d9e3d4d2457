package services

import (
	"errors"

	"github.com/jupiterbrains/insight/internal/billing"
	"github.com/jupiterbrains/insight/internal/models"
	"gorm.io/gorm"
)

var ErrModelNotFound = errors.New("model not found")

// AIModelService manages the model catalog and its pricing.
type AIModelService struct {
	db       *gorm.DB
	notifier *ChangeNotifier
}

func NewAIModelService(db *gorm.DB, notifier *ChangeNotifier) *AIModelService {
	return &AIModelService{db: db, notifier: notifier}
}

func (s *AIModelService) List(activeOnly bool) ([]models.AIModel, error) {
	var list []models.AIModel
	query := s.db.Order("provider, name")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *AIModelService) Get(id uint) (*models.AIModel, error) {
	var model models.AIModel
	if err := s.db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return &model, nil
}

// Schedules loads the per-model price schedules for batch pricing.
func (s *AIModelService) Schedules() (map[uint]billing.PriceSchedule, error) {
	list, err := s.List(false)
	if err != nil {
		return nil, err
	}
	schedules := make(map[uint]billing.PriceSchedule, len(list))
	for _, m := range list {
		schedules[m.ID] = billing.PriceSchedule{
			ModelID:               m.ID,
			InputCostPer1kTokens:  m.InputCostPer1kTokens,
			OutputCostPer1kTokens: m.OutputCostPer1kTokens,
		}
	}
	return schedules, nil
}

func (s *AIModelService) Create(model *models.AIModel) error {
	if model.InputCostPer1kTokens < 0 || model.OutputCostPer1kTokens < 0 {
		return errors.New("model pricing cannot be negative")
	}
	if err := s.db.Create(model).Error; err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyChange("ai_models", "insert")
	}
	return nil
}

func (s *AIModelService) Update(id uint, updates map[string]interface{}) (*models.AIModel, error) {
	model, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(model).Updates(updates).Error; err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyChange("ai_models", "update")
	}
	return model, nil
}

// Deactivate retires a model from the catalog. Existing usage rows keep
// their reference, so history and past invoices are unaffected.
func (s *AIModelService) Deactivate(id uint) error {
	result := s.db.Model(&models.AIModel{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrModelNotFound
	}
	if s.notifier != nil {
		s.notifier.NotifyChange("ai_models", "update")
	}
	return nil
}
