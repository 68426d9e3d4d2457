package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jupiterbrains/insight/internal/models"
	"gorm.io/gorm"
)

var ErrInvalidAPIKey = errors.New("invalid or inactive API key")

// APIKeyService issues and verifies keys for the usage reporting endpoint.
// Keys are shown once at creation; only their SHA-256 hash is persisted.
type APIKeyService struct {
	db *gorm.DB
}

func NewAPIKeyService(db *gorm.DB) *APIKeyService {
	return &APIKeyService{db: db}
}

type CreateAPIKeyRequest struct {
	Name        string `json:"name" binding:"required"`
	Environment string `json:"environment"` // production, development
}

type CreateAPIKeyResponse struct {
	Key    string        `json:"key"` // full key, returned only here
	APIKey models.APIKey `json:"api_key"`
}

// Create generates a new key for the organization and returns the plaintext
// exactly once.
func (s *APIKeyService) Create(orgID uint, req *CreateAPIKeyRequest) (*CreateAPIKeyResponse, error) {
	env := req.Environment
	if env == "" {
		env = "production"
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	prefix := "jb_live"
	if env != "production" {
		prefix = "jb_test"
	}
	key := fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(raw))

	record := models.APIKey{
		OrganizationID: orgID,
		Name:           req.Name,
		KeyHash:        hashAPIKey(key),
		KeyPrefix:      key[:12],
		Environment:    env,
		IsActive:       true,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &CreateAPIKeyResponse{Key: key, APIKey: record}, nil
}

// Verify resolves a presented key to its record, bumping usage stats.
func (s *APIKeyService) Verify(key string) (*models.APIKey, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidAPIKey
	}

	var record models.APIKey
	if err := s.db.Where("key_hash = ? AND is_active = ?", hashAPIKey(key), true).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}

	if record.ExpiresAt != nil && time.Now().After(*record.ExpiresAt) {
		return nil, ErrInvalidAPIKey
	}

	now := time.Now()
	s.db.Model(&record).Updates(map[string]interface{}{
		"usage_count": gorm.Expr("usage_count + 1"),
		"last_used":   now,
	})
	record.UsageCount++
	record.LastUsed = &now

	return &record, nil
}

// List returns the organization's keys, newest first.
func (s *APIKeyService) List(orgID uint) ([]models.APIKey, error) {
	var keys []models.APIKey
	if err := s.db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// Revoke deactivates a key. Revoked keys stay listed for audit.
func (s *APIKeyService) Revoke(orgID, keyID uint) error {
	result := s.db.Model(&models.APIKey{}).
		Where("id = ? AND organization_id = ?", keyID, orgID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidAPIKey
	}
	return nil
}

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
