package services

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/jupiterbrains/insight/internal/models"
	"gorm.io/gorm"
)

// SimulatorService generates synthetic usage traffic for demos and load
// checks. Events go through the same task queue as real ingest so the whole
// pipeline (pricing, persistence, rollups, change notifications) is
// exercised.
type SimulatorService struct {
	db    *gorm.DB
	queue TaskQueue
}

func NewSimulatorService(db *gorm.DB, queue TaskQueue) *SimulatorService {
	return &SimulatorService{db: db, queue: queue}
}

var simulatedEndpoints = []string{
	"/v1/chat/completions",
	"/v1/completions",
	"/v1/embeddings",
}

// SimulateBatch enqueues count synthetic usage events for the organization,
// spread across its active models. Roughly one in twenty events is an error.
func (s *SimulatorService) SimulateBatch(orgID uint, userID *uint, count int) (int, error) {
	if count <= 0 {
		count = 1
	}
	if count > 500 {
		count = 500
	}

	var activeModels []models.AIModel
	if err := s.db.Where("is_active = ?", true).Find(&activeModels).Error; err != nil {
		return 0, err
	}
	if len(activeModels) == 0 {
		return 0, errors.New("no active models to simulate against")
	}

	enqueued := 0
	for i := 0; i < count; i++ {
		model := activeModels[rand.Intn(len(activeModels))]
		task := s.buildTask(orgID, userID, model)
		if err := s.queue.Enqueue(task); err != nil {
			return enqueued, fmt.Errorf("enqueue simulated event: %w", err)
		}
		enqueued++
	}
	return enqueued, nil
}

func (s *SimulatorService) buildTask(orgID uint, userID *uint, model models.AIModel) *UsageTask {
	promptTokens := int64(rand.Intn(1900) + 100)
	completionTokens := int64(rand.Intn(1400) + 50)
	responseTime := int64(rand.Intn(2000) + 200)

	task := &UsageTask{
		RequestID:        uuid.NewString(),
		OrganizationID:   orgID,
		UserID:           userID,
		ModelID:          model.ID,
		Endpoint:         simulatedEndpoints[rand.Intn(len(simulatedEndpoints))],
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		ResponseTimeMs:   responseTime,
		Status:           models.UsageStatusSuccess,
		StatusCode:       200,
	}

	if rand.Intn(20) == 0 {
		task.Status = models.UsageStatusError
		task.StatusCode = 429
		task.ErrorMessage = "rate limit exceeded"
		task.CompletionTokens = 0
	}
	return task
}
