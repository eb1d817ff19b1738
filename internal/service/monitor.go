package service

import (
	"context"
	"time"

	"chatrelay/internal/metrics"
	"chatrelay/internal/repository"
	"chatrelay/pkg/logger"

	"go.uber.org/zap"
)

// QueueMonitor periodically snapshots queue depth and pending-buffer size
// into the observer. It holds no state and performs no writes; a failed
// snapshot is logged and the timer keeps going.
type QueueMonitor struct {
	jobs      repository.JobInterface
	pending   repository.PendingInterface
	observer  metrics.QueueObserver
	queueName string
	interval  time.Duration
}

func NewQueueMonitor(jobs repository.JobInterface, pending repository.PendingInterface, observer metrics.QueueObserver, queueName string, interval time.Duration) *QueueMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if queueName == "" {
		queueName = "outbound-messages"
	}
	return &QueueMonitor{
		jobs:      jobs,
		pending:   pending,
		observer:  observer,
		queueName: queueName,
		interval:  interval,
	}
}

func (m *QueueMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	logger.Info("queue monitor started",
		zap.String("queue", m.queueName),
		zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("queue monitor stopped")
			return
		case <-ticker.C:
			m.snapshot(ctx)
		}
	}
}

func (m *QueueMonitor) snapshot(ctx context.Context) {
	counts, err := m.jobs.Stats(ctx)
	if err != nil {
		logger.Error("failed to collect queue stats", zap.Error(err))
		return
	}
	pending, err := m.pending.Summary(ctx)
	if err != nil {
		logger.Error("failed to collect pending summary", zap.Error(err))
		return
	}

	m.observer.PublishSnapshot(m.queueName, counts, pending)
	logger.Debug("queue snapshot published",
		zap.Int64("waiting", counts.Waiting),
		zap.Int64("active", counts.Active),
		zap.Int64("failed", counts.Failed),
		zap.Int64("pending_total", pending.Total))
}
