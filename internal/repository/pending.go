package repository

import (
	"context"

	"chatrelay/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PendingInterface is the deferred-delivery buffer contract. Consume is
// all-or-nothing per key: exactly one racing caller observes the group, the
// others see an empty result.
type PendingInterface interface {
	Add(ctx context.Context, entry *model.PendingMessage) error
	Consume(ctx context.Context, instanceID, normalizedRecipient string) ([]model.PendingMessage, error)
	Summary(ctx context.Context) (model.PendingSummary, error)
}

type PendingRepository struct {
	db *gorm.DB
}

func NewPendingRepository(db *gorm.DB) *PendingRepository {
	return &PendingRepository{db: db}
}

func (r *PendingRepository) Add(ctx context.Context, entry *model.PendingMessage) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Consume reads and deletes the whole FIFO group for the key in one
// transaction. The locking read serializes racing consumers on the same key:
// the loser blocks until the winner's delete commits and then finds nothing.
func (r *PendingRepository) Consume(ctx context.Context, instanceID, normalizedRecipient string) ([]model.PendingMessage, error) {
	var entries []model.PendingMessage

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("instance_id = ? AND normalized_recipient = ?", instanceID, normalizedRecipient).
			Order("created_at ASC").
			Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		return tx.Where("id IN ?", ids).Delete(&model.PendingMessage{}).Error
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PendingRepository) Summary(ctx context.Context) (model.PendingSummary, error) {
	summary := model.PendingSummary{PerInstance: map[string]int64{}}

	rows := []struct {
		InstanceID string
		N          int64
	}{}
	if err := r.db.WithContext(ctx).Model(&model.PendingMessage{}).
		Select("instance_id, COUNT(*) AS n").
		Group("instance_id").
		Scan(&rows).Error; err != nil {
		return summary, err
	}

	for _, row := range rows {
		summary.PerInstance[row.InstanceID] = row.N
		summary.Total += row.N
	}
	return summary, nil
}
