package metrics

import "chatrelay/internal/model"

// QueueObserver receives dispatch outcomes and periodic depth snapshots.
// Every call is one-way and best-effort; implementations must never block
// dispatch.
type QueueObserver interface {
	RecordSent(instanceID string)
	RecordRetry(instanceID string)
	RecordFailed(instanceID string)
	RecordDeferred(instanceID string)
	PublishSnapshot(queue string, counts model.QueueCounts, pending model.PendingSummary)
}
