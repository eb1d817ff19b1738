package model

import "time"

// JobStatus is the closed lifecycle set for outbound jobs. completed and
// failed are terminal.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// MessageType is the closed set of deliverable payload kinds.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeMedia MessageType = "media"
)

// MessageJob is one durable outbound delivery. Rows are never deleted;
// terminal states stay behind for audit and stats.
type MessageJob struct {
	ID                 int64       `json:"id" gorm:"primaryKey"`
	InstanceID         string      `json:"instance_id" gorm:"size:64;index"`
	Type               MessageType `json:"type" gorm:"size:16"`
	Recipient          string      `json:"recipient" gorm:"size:64"`
	Payload            string      `json:"payload" gorm:"type:text"`
	Status             JobStatus   `json:"status" gorm:"size:16;index:idx_jobs_claim,priority:1"`
	Attempts           int         `json:"attempts" gorm:"default:0"`
	MaxAttempts        int         `json:"max_attempts"`
	NextAttemptAt      time.Time   `json:"next_attempt_at" gorm:"index:idx_jobs_claim,priority:2"`
	ProcessingDeadline *time.Time  `json:"processing_deadline,omitempty"`
	LastError          string      `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt          time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// QueueCounts is the per-state depth snapshot published by the monitor.
// Delayed counts pending rows whose next attempt lies in the future.
type QueueCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

func (c QueueCounts) Total() int64 {
	return c.Waiting + c.Active + c.Completed + c.Failed + c.Delayed
}
