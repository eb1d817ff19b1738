package model

import "time"

// PendingReason records why a message was parked instead of queued.
type PendingReason string

const (
	ReasonContactInactive PendingReason = "contact_inactive"
	ReasonUnknown         PendingReason = "unknown"
)

// PendingMessage is a deferred message waiting for its recipient to become
// reachable. Entries sharing (instance_id, normalized_recipient) form a FIFO
// group and are only ever consumed as a whole group.
type PendingMessage struct {
	ID                  string        `json:"id" gorm:"primaryKey;size:36"`
	InstanceID          string        `json:"instance_id" gorm:"size:64;index:idx_pending_key,priority:1"`
	Recipient           string        `json:"recipient" gorm:"size:64"`
	NormalizedRecipient string        `json:"normalized_recipient" gorm:"size:32;index:idx_pending_key,priority:2"`
	Type                MessageType   `json:"type" gorm:"size:16"`
	Payload             string        `json:"payload" gorm:"type:text"`
	Reason              PendingReason `json:"reason" gorm:"size:32"`
	CreatedAt           time.Time     `json:"created_at" gorm:"index"`
}

// PendingSummary is the read-only aggregation served to observability.
type PendingSummary struct {
	Total       int64            `json:"total"`
	PerInstance map[string]int64 `json:"per_instance"`
}
