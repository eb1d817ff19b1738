// Package buffer holds a fixed-size in-memory ring of recent delivery
// outcomes for the ops API. It is a convenience view only; the durable trail
// lives in message history.
package buffer

import (
	"sync"
	"time"

	"chatrelay/internal/model"
)

type DeliveryEvent struct {
	JobID      int64             `json:"job_id"`
	InstanceID string            `json:"instance_id"`
	Recipient  string            `json:"recipient"`
	Type       model.MessageType `json:"type"`
	Status     model.JobStatus   `json:"status"`
	Error      string            `json:"error,omitempty"`
	At         time.Time         `json:"at"`
}

type RecentBuffer struct {
	mu     sync.RWMutex
	events []DeliveryEvent
	size   int
	head   int
	isFull bool
}

func NewRecentBuffer(size int) *RecentBuffer {
	if size <= 0 {
		size = 256
	}
	return &RecentBuffer{
		events: make([]DeliveryEvent, size),
		size:   size,
	}
}

func (b *RecentBuffer) Add(evt DeliveryEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.head] = evt
	b.head = (b.head + 1) % b.size
	if b.head == 0 {
		b.isFull = true
	}
}

// Snapshot returns up to limit events, newest first.
func (b *RecentBuffer) Snapshot(limit int) []DeliveryEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.head
	if b.isFull {
		count = b.size
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	result := make([]DeliveryEvent, 0, limit)
	for i := 0; i < limit; i++ {
		// Walk backwards from the slot before head
		physIdx := (b.head - 1 - i + b.size) % b.size
		result = append(result, b.events[physIdx])
	}
	return result
}
