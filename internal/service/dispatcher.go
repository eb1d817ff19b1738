package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"chatrelay/internal/buffer"
	"chatrelay/internal/channel"
	"chatrelay/internal/metrics"
	"chatrelay/internal/model"
	"chatrelay/internal/repository"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/phone"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DispatcherConfig bounds one dispatcher instance. Multiple instances may run
// in separate processes; cross-process safety rests entirely on the job
// store's claim semantics, not on anything in here.
type DispatcherConfig struct {
	Interval     time.Duration
	BatchSize    int
	LeaseTimeout time.Duration
	Backoff      BackoffPolicy
}

// Dispatcher is the polling delivery loop: claim a batch, check channel
// connectivity, send, resolve each job to completed, retried, failed, or
// deferred.
type Dispatcher struct {
	jobs     repository.JobInterface
	pending  repository.PendingInterface
	history  repository.HistoryInterface
	adapter  channel.Adapter
	observer metrics.QueueObserver
	recent   *buffer.RecentBuffer
	cfg      DispatcherConfig

	// busy is the in-process single-flight guard: a tick never starts while
	// the previous batch is still in flight.
	busy atomic.Bool
}

func NewDispatcher(
	jobs repository.JobInterface,
	pending repository.PendingInterface,
	history repository.HistoryInterface,
	adapter channel.Adapter,
	observer metrics.QueueObserver,
	recent *buffer.RecentBuffer,
	cfg DispatcherConfig,
) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 2 * time.Minute
	}
	if cfg.Backoff == (BackoffPolicy{}) {
		cfg.Backoff = DefaultBackoff
	}
	return &Dispatcher{
		jobs:     jobs,
		pending:  pending,
		history:  history,
		adapter:  adapter,
		observer: observer,
		recent:   recent,
		cfg:      cfg,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	logger.Info("dispatcher started",
		zap.Duration("interval", d.cfg.Interval),
		zap.Int("batch_size", d.cfg.BatchSize))

	for {
		select {
		case <-ctx.Done():
			logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick runs one claim/process cycle. Store errors abort the tick; the next
// interval retries from scratch. Nothing in here may take the process down.
func (d *Dispatcher) tick(ctx context.Context) {
	if !d.busy.CompareAndSwap(false, true) {
		return
	}
	defer d.busy.Store(false)

	if n, err := d.jobs.ReclaimExpired(ctx); err != nil {
		logger.Error("reclaim sweep failed", zap.Error(err))
		return
	} else if n > 0 {
		logger.Warn("reclaimed expired claims", zap.Int64("count", n))
	}

	jobs, err := d.jobs.ClaimBatch(ctx, d.cfg.BatchSize, d.cfg.LeaseTimeout)
	if err != nil {
		logger.Error("failed to claim job batch", zap.Error(err))
		return
	}
	if len(jobs) == 0 {
		return
	}

	// Claim order is FIFO; completion order within the batch is not.
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			d.process(gctx, job)
			return nil
		})
	}
	g.Wait()
}

func (d *Dispatcher) process(ctx context.Context, job model.MessageJob) {
	state, err := d.adapter.ConnectionState(ctx, job.InstanceID)
	if err != nil {
		logger.Error("connection state lookup failed",
			zap.Int64("job_id", job.ID), zap.String("instance", job.InstanceID), zap.Error(err))
		d.retryOrFail(ctx, job, fmt.Errorf("connection state lookup: %w", err))
		return
	}
	if state != channel.StateConnected {
		// Backpressure rule: never hand a job to a known-down channel. This
		// still consumes an attempt so a permanently dead instance drains to
		// failed instead of spinning forever.
		d.retryOrFail(ctx, job, fmt.Errorf("instance %s not connected (state %s)", job.InstanceID, state))
		return
	}

	logger.Debug("processing job",
		zap.Int64("job_id", job.ID),
		zap.String("instance", job.InstanceID),
		zap.String("type", string(job.Type)))

	var sendErr error
	switch job.Type {
	case model.TypeText:
		sendErr = d.adapter.SendText(ctx, job.InstanceID, job.Recipient, job.Payload)
	case model.TypeMedia:
		sendErr = d.adapter.SendMedia(ctx, job.InstanceID, job.Recipient, job.Payload)
	default:
		sendErr = fmt.Errorf("unknown message type %q", job.Type)
	}

	if sendErr == nil {
		d.resolveSent(ctx, job)
		return
	}
	if errors.Is(sendErr, channel.ErrRecipientUnavailable) {
		d.divert(ctx, job, sendErr)
		return
	}
	d.retryOrFail(ctx, job, sendErr)
}

func (d *Dispatcher) resolveSent(ctx context.Context, job model.MessageJob) {
	if err := d.jobs.Complete(ctx, job.ID); err != nil {
		logger.Error("failed to mark job completed", zap.Int64("job_id", job.ID), zap.Error(err))
		return
	}

	d.recordHistory(ctx, job, model.HistorySent, "")
	d.observer.RecordSent(job.InstanceID)
	d.recent.Add(buffer.DeliveryEvent{
		JobID:      job.ID,
		InstanceID: job.InstanceID,
		Recipient:  job.Recipient,
		Type:       job.Type,
		Status:     model.JobCompleted,
		At:         time.Now(),
	})
	logger.Info("job completed", zap.Int64("job_id", job.ID), zap.String("instance", job.InstanceID))
}

// divert parks a policy-gated message in the pending buffer. No attempt is
// consumed: the buffer is drained by a reachability signal, not by a timer.
// The job itself completes since the buffer now owns the message.
func (d *Dispatcher) divert(ctx context.Context, job model.MessageJob, cause error) {
	entry := &model.PendingMessage{
		ID:                  uuid.NewString(),
		InstanceID:          job.InstanceID,
		Recipient:           job.Recipient,
		NormalizedRecipient: phone.Normalize(job.Recipient),
		Type:                job.Type,
		Payload:             job.Payload,
		Reason:              channel.DeferralReason(cause),
	}
	if err := d.pending.Add(ctx, entry); err != nil {
		// Could not park it; keep it on the queue instead of losing it.
		logger.Error("failed to defer message, falling back to retry",
			zap.Int64("job_id", job.ID), zap.Error(err))
		d.retryOrFail(ctx, job, cause)
		return
	}

	if err := d.jobs.Complete(ctx, job.ID); err != nil {
		logger.Error("failed to complete diverted job", zap.Int64("job_id", job.ID), zap.Error(err))
	}

	d.recordHistory(ctx, job, model.HistoryDeferred, cause.Error())
	d.observer.RecordDeferred(job.InstanceID)
	logger.Info("job deferred to pending buffer",
		zap.Int64("job_id", job.ID),
		zap.String("instance", job.InstanceID),
		zap.String("reason", string(entry.Reason)))
}

func (d *Dispatcher) retryOrFail(ctx context.Context, job model.MessageJob, cause error) {
	attempts := job.Attempts + 1

	if attempts >= job.MaxAttempts {
		if err := d.jobs.MarkFailed(ctx, job.ID, attempts, cause.Error()); err != nil {
			logger.Error("failed to mark job failed", zap.Int64("job_id", job.ID), zap.Error(err))
			return
		}
		d.recordHistory(ctx, job, model.HistoryFailed, cause.Error())
		d.observer.RecordFailed(job.InstanceID)
		d.recent.Add(buffer.DeliveryEvent{
			JobID:      job.ID,
			InstanceID: job.InstanceID,
			Recipient:  job.Recipient,
			Type:       job.Type,
			Status:     model.JobFailed,
			Error:      cause.Error(),
			At:         time.Now(),
		})
		logger.Error("job failed permanently",
			zap.Int64("job_id", job.ID),
			zap.Int("attempts", attempts),
			zap.String("error", cause.Error()))
		return
	}

	nextAttemptAt := time.Now().Add(d.cfg.Backoff.Delay(attempts))
	if err := d.jobs.Retry(ctx, job.ID, attempts, nextAttemptAt, cause.Error()); err != nil {
		logger.Error("failed to reschedule job", zap.Int64("job_id", job.ID), zap.Error(err))
		return
	}
	d.observer.RecordRetry(job.InstanceID)
	logger.Warn("job rescheduled",
		zap.Int64("job_id", job.ID),
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", nextAttemptAt),
		zap.String("error", cause.Error()))
}

// recordHistory appends to the durable trail. Fire-and-forget: failures are
// logged, never propagated.
func (d *Dispatcher) recordHistory(ctx context.Context, job model.MessageJob, status model.HistoryStatus, errText string) {
	meta, _ := json.Marshal(map[string]any{"job_id": job.ID, "error": errText})
	entry := &model.MessageHistory{
		InstanceID: job.InstanceID,
		Direction:  model.DirectionOutbound,
		ToNumber:   job.Recipient,
		Content:    job.Payload,
		Status:     status,
		Metadata:   string(meta),
	}
	if err := d.history.Record(ctx, entry); err != nil {
		logger.Warn("history record failed", zap.Int64("job_id", job.ID), zap.Error(err))
	}
}
