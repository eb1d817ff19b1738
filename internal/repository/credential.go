package repository

import (
	"context"
	"errors"

	"chatrelay/internal/model"

	"gorm.io/gorm"
)

// CredentialRepository validates per-instance API keys for the HTTP surface.
type CredentialRepository interface {
	ValidateAPIKey(ctx context.Context, apiKey string) (string, bool, error)
}

type InstanceCredentialRepository struct {
	db *gorm.DB
}

func NewInstanceCredentialRepository(db *gorm.DB) *InstanceCredentialRepository {
	return &InstanceCredentialRepository{db: db}
}

// ValidateAPIKey returns the instance the key is bound to.
func (r *InstanceCredentialRepository) ValidateAPIKey(ctx context.Context, apiKey string) (string, bool, error) {
	var cred model.InstanceCredential
	err := r.db.WithContext(ctx).
		Where("api_key = ? AND status = 1", apiKey).
		First(&cred).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return cred.InstanceID, true, nil
}
