package resp

import "chatrelay/internal/model"

type Enqueued struct {
	JobID  int64           `json:"job_id"`
	Status model.JobStatus `json:"status"`
}

type Drained struct {
	Moved int `json:"moved"`
}

type QueueStats struct {
	Queue  string            `json:"queue"`
	Counts model.QueueCounts `json:"counts"`
	Total  int64             `json:"total"`
}
