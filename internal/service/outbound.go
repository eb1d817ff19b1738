package service

import (
	"context"
	"encoding/json"

	"chatrelay/internal/model"
	"chatrelay/internal/repository"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/phone"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboundService is the enqueue-side API: queue a message for dispatch,
// park one behind a policy gate, and drain parked messages back onto the
// queue when a recipient becomes reachable.
type OutboundService struct {
	jobs        repository.JobInterface
	pending     repository.PendingInterface
	history     repository.HistoryInterface
	maxAttempts int
}

func NewOutboundService(
	jobs repository.JobInterface,
	pending repository.PendingInterface,
	history repository.HistoryInterface,
	maxAttempts int,
) *OutboundService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &OutboundService{
		jobs:        jobs,
		pending:     pending,
		history:     history,
		maxAttempts: maxAttempts,
	}
}

// Queue inserts a delivery job. maxAttempts 0 takes the system default.
func (s *OutboundService) Queue(ctx context.Context, instanceID string, msgType model.MessageType, recipient, payload string, maxAttempts int) (int64, error) {
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}

	job := &model.MessageJob{
		InstanceID:  instanceID,
		Type:        msgType,
		Recipient:   recipient,
		Payload:     payload,
		MaxAttempts: maxAttempts,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return 0, err
	}

	s.record(ctx, instanceID, recipient, payload, model.HistoryQueued, job.ID)
	logger.Info("message queued",
		zap.Int64("job_id", job.ID),
		zap.String("instance", instanceID),
		zap.String("type", string(msgType)))
	return job.ID, nil
}

func (s *OutboundService) QueueText(ctx context.Context, instanceID, recipient, text string) (int64, error) {
	return s.Queue(ctx, instanceID, model.TypeText, recipient, text, 0)
}

func (s *OutboundService) QueueMedia(ctx context.Context, instanceID, recipient, mediaURL string) (int64, error) {
	return s.Queue(ctx, instanceID, model.TypeMedia, recipient, mediaURL, 0)
}

// Defer parks a message in the pending buffer without touching the job store
// or any retry budget. Used when the caller already knows the recipient is
// policy-gated.
func (s *OutboundService) Defer(ctx context.Context, instanceID string, msgType model.MessageType, recipient, payload string, reason model.PendingReason) (string, error) {
	if reason == "" {
		reason = model.ReasonUnknown
	}
	entry := &model.PendingMessage{
		ID:                  uuid.NewString(),
		InstanceID:          instanceID,
		Recipient:           recipient,
		NormalizedRecipient: phone.Normalize(recipient),
		Type:                msgType,
		Payload:             payload,
		Reason:              reason,
	}
	if err := s.pending.Add(ctx, entry); err != nil {
		return "", err
	}

	logger.Info("message deferred",
		zap.String("pending_id", entry.ID),
		zap.String("instance", instanceID),
		zap.String("recipient_key", entry.NormalizedRecipient),
		zap.String("reason", string(reason)))
	return entry.ID, nil
}

// DrainPending handles the "recipient became reachable" signal: it consumes
// the whole pending group for the key and re-enqueues every entry as a fresh
// job, in the order they were deferred. Returns the number of messages moved.
// A racing drain on the same key simply finds an empty group.
func (s *OutboundService) DrainPending(ctx context.Context, instanceID, recipient string) (int, error) {
	key := phone.Normalize(recipient)
	entries, err := s.pending.Consume(ctx, instanceID, key)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	moved := 0
	for _, entry := range entries {
		job := &model.MessageJob{
			InstanceID:  entry.InstanceID,
			Type:        entry.Type,
			Recipient:   entry.Recipient,
			Payload:     entry.Payload,
			MaxAttempts: s.maxAttempts,
		}
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			// The entry is already deleted; losing it silently is worse than
			// a duplicate, so put it back in the buffer.
			logger.Error("re-enqueue of pending message failed, restoring entry",
				zap.String("pending_id", entry.ID), zap.Error(err))
			if addErr := s.pending.Add(ctx, &entry); addErr != nil {
				logger.Error("failed to restore pending entry",
					zap.String("pending_id", entry.ID), zap.Error(addErr))
			}
			continue
		}
		moved++
	}

	logger.Info("pending messages drained",
		zap.String("instance", instanceID),
		zap.String("recipient_key", key),
		zap.Int("moved", moved))
	return moved, nil
}

func (s *OutboundService) record(ctx context.Context, instanceID, recipient, content string, status model.HistoryStatus, jobID int64) {
	meta, _ := json.Marshal(map[string]any{"job_id": jobID})
	entry := &model.MessageHistory{
		InstanceID: instanceID,
		Direction:  model.DirectionOutbound,
		ToNumber:   recipient,
		Content:    content,
		Status:     status,
		Metadata:   string(meta),
	}
	if err := s.history.Record(ctx, entry); err != nil {
		logger.Warn("history record failed", zap.Error(err))
	}
}
