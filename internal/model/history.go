package model

import "time"

type HistoryDirection string

const (
	DirectionInbound  HistoryDirection = "inbound"
	DirectionOutbound HistoryDirection = "outbound"
)

type HistoryStatus string

const (
	HistoryQueued   HistoryStatus = "queued"
	HistorySent     HistoryStatus = "sent"
	HistoryFailed   HistoryStatus = "failed"
	HistoryDeferred HistoryStatus = "deferred"
)

// MessageHistory is the append-only delivery trail. Writes are best-effort;
// a failed append never blocks dispatch.
type MessageHistory struct {
	ID         int64            `json:"id" gorm:"primaryKey"`
	InstanceID string           `json:"instance_id" gorm:"size:64;index"`
	Direction  HistoryDirection `json:"direction" gorm:"size:16"`
	FromNumber string           `json:"from_number,omitempty" gorm:"size:64"`
	ToNumber   string           `json:"to_number,omitempty" gorm:"size:64"`
	Content    string           `json:"content" gorm:"type:text"`
	Status     HistoryStatus    `json:"status" gorm:"size:16"`
	Metadata   string           `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt  time.Time        `json:"created_at" gorm:"index"`
}
