package repository

import (
	"context"

	"chatrelay/internal/model"

	"gorm.io/gorm"
)

// HistoryInterface is the append-only message trail.
type HistoryInterface interface {
	Record(ctx context.Context, entry *model.MessageHistory) error
	List(ctx context.Context, instanceID string, limit int) ([]model.MessageHistory, error)
}

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Record(ctx context.Context, entry *model.MessageHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *HistoryRepository) List(ctx context.Context, instanceID string, limit int) ([]model.MessageHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []model.MessageHistory
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
