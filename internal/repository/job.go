package repository

import (
	"context"
	"time"

	"chatrelay/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobInterface is the durable job table contract. ClaimBatch is the single
// correctness-critical operation: concurrent callers, including other
// processes, must receive disjoint job sets.
type JobInterface interface {
	Enqueue(ctx context.Context, job *model.MessageJob) error
	ClaimBatch(ctx context.Context, limit int, leaseTimeout time.Duration) ([]model.MessageJob, error)
	Complete(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, attempts int, nextAttemptAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error
	ReclaimExpired(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (model.QueueCounts, error)
}

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Enqueue(ctx context.Context, job *model.MessageJob) error {
	job.Status = model.JobPending
	job.Attempts = 0
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// ClaimBatch selects up to limit eligible jobs oldest-first and flips them to
// processing inside one transaction. FOR UPDATE SKIP LOCKED keeps concurrent
// claimers off each other's rows instead of blocking on them, so replicas
// make progress on disjoint subsets.
func (r *JobRepository) ClaimBatch(ctx context.Context, limit int, leaseTimeout time.Duration) ([]model.MessageJob, error) {
	var jobs []model.MessageJob
	now := time.Now()
	deadline := now.Add(leaseTimeout)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", model.JobPending, now).
			Order("created_at ASC").
			Limit(limit).
			Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]int64, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		if err := tx.Model(&model.MessageJob{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":              model.JobProcessing,
				"processing_deadline": deadline,
				"updated_at":          now,
			}).Error; err != nil {
			return err
		}

		for i := range jobs {
			jobs[i].Status = model.JobProcessing
			jobs[i].ProcessingDeadline = &deadline
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Complete is an idempotent no-op when the job is already completed.
func (r *JobRepository) Complete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.MessageJob{}).
		Where("id = ? AND status <> ?", id, model.JobCompleted).
		Updates(map[string]any{
			"status":              model.JobCompleted,
			"processing_deadline": nil,
			"updated_at":          time.Now(),
		}).Error
}

// Retry puts a claimed job back on the queue with its new attempt count and
// schedule. The caller owns the claim, so the attempt math happens on its
// copy of the row.
func (r *JobRepository) Retry(ctx context.Context, id int64, attempts int, nextAttemptAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.MessageJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              model.JobPending,
			"attempts":            attempts,
			"next_attempt_at":     nextAttemptAt,
			"last_error":          lastError,
			"processing_deadline": nil,
			"updated_at":          time.Now(),
		}).Error
}

func (r *JobRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.MessageJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              model.JobFailed,
			"attempts":            attempts,
			"last_error":          lastError,
			"processing_deadline": nil,
			"updated_at":          time.Now(),
		}).Error
}

// ReclaimExpired returns crashed claims to the queue. A job stuck in
// processing past its lease goes back to pending without consuming an
// attempt; the next tick picks it up again.
func (r *JobRepository) ReclaimExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.MessageJob{}).
		Where("status = ? AND processing_deadline < ?", model.JobProcessing, now).
		Updates(map[string]any{
			"status":              model.JobPending,
			"next_attempt_at":     now,
			"processing_deadline": nil,
			"updated_at":          now,
		})
	return res.RowsAffected, res.Error
}

func (r *JobRepository) Stats(ctx context.Context) (model.QueueCounts, error) {
	var counts model.QueueCounts

	rows := []struct {
		Status model.JobStatus
		N      int64
	}{}
	if err := r.db.WithContext(ctx).Model(&model.MessageJob{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return counts, err
	}

	var pending int64
	for _, row := range rows {
		switch row.Status {
		case model.JobPending:
			pending = row.N
		case model.JobProcessing:
			counts.Active = row.N
		case model.JobCompleted:
			counts.Completed = row.N
		case model.JobFailed:
			counts.Failed = row.N
		}
	}

	if err := r.db.WithContext(ctx).Model(&model.MessageJob{}).
		Where("status = ? AND next_attempt_at > ?", model.JobPending, time.Now()).
		Count(&counts.Delayed).Error; err != nil {
		return counts, err
	}
	counts.Waiting = pending - counts.Delayed

	return counts, nil
}
