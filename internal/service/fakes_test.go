package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatrelay/internal/channel"
	"chatrelay/internal/model"

	"chatrelay/pkg/logger"
)

func init() {
	logger.InitLogger("test")
}

// fakeJobStore implements repository.JobInterface in memory with the same
// contract the SQL store provides: claims are atomic and disjoint across
// concurrent callers.
type fakeJobStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*model.MessageJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[int64]*model.MessageJob{}}
}

func (s *fakeJobStore) Enqueue(_ context.Context, job *model.MessageJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	job.ID = s.nextID
	job.Status = model.JobPending
	job.Attempts = 0
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = time.Now()
	}
	job.CreatedAt = time.Now()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeJobStore) ClaimBatch(_ context.Context, limit int, leaseTimeout time.Duration) ([]model.MessageJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var eligible []*model.MessageJob
	for _, j := range s.jobs {
		if j.Status == model.JobPending && !j.NextAttemptAt.After(now) {
			eligible = append(eligible, j)
		}
	}
	// Creation order; IDs are assigned monotonically.
	sort.Slice(eligible, func(i, k int) bool { return eligible[i].ID < eligible[k].ID })
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	deadline := now.Add(leaseTimeout)
	out := make([]model.MessageJob, 0, len(eligible))
	for _, j := range eligible {
		j.Status = model.JobProcessing
		j.ProcessingDeadline = &deadline
		out = append(out, *j)
	}
	return out, nil
}

func (s *fakeJobStore) Complete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok && j.Status != model.JobCompleted {
		j.Status = model.JobCompleted
		j.ProcessingDeadline = nil
	}
	return nil
}

func (s *fakeJobStore) Retry(_ context.Context, id int64, attempts int, nextAttemptAt time.Time, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = model.JobPending
		j.Attempts = attempts
		j.NextAttemptAt = nextAttemptAt
		j.LastError = lastError
		j.ProcessingDeadline = nil
	}
	return nil
}

func (s *fakeJobStore) MarkFailed(_ context.Context, id int64, attempts int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = model.JobFailed
		j.Attempts = attempts
		j.LastError = lastError
		j.ProcessingDeadline = nil
	}
	return nil
}

func (s *fakeJobStore) ReclaimExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for _, j := range s.jobs {
		if j.Status == model.JobProcessing && j.ProcessingDeadline != nil && j.ProcessingDeadline.Before(now) {
			j.Status = model.JobPending
			j.NextAttemptAt = now
			j.ProcessingDeadline = nil
			n++
		}
	}
	return n, nil
}

func (s *fakeJobStore) Stats(_ context.Context) (model.QueueCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c model.QueueCounts
	now := time.Now()
	for _, j := range s.jobs {
		switch j.Status {
		case model.JobPending:
			if j.NextAttemptAt.After(now) {
				c.Delayed++
			} else {
				c.Waiting++
			}
		case model.JobProcessing:
			c.Active++
		case model.JobCompleted:
			c.Completed++
		case model.JobFailed:
			c.Failed++
		}
	}
	return c, nil
}

func (s *fakeJobStore) get(id int64) model.MessageJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *fakeJobStore) all() []model.MessageJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MessageJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// fakePendingStore mirrors the SQL pending buffer: Consume atomically hands
// the whole group to exactly one caller.
type fakePendingStore struct {
	mu      sync.Mutex
	entries []model.PendingMessage
}

func (s *fakePendingStore) Add(_ context.Context, entry *model.PendingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakePendingStore) Consume(_ context.Context, instanceID, normalizedRecipient string) ([]model.PendingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var group, rest []model.PendingMessage
	for _, e := range s.entries {
		if e.InstanceID == instanceID && e.NormalizedRecipient == normalizedRecipient {
			group = append(group, e)
		} else {
			rest = append(rest, e)
		}
	}
	s.entries = rest
	return group, nil
}

func (s *fakePendingStore) Summary(_ context.Context) (model.PendingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := model.PendingSummary{PerInstance: map[string]int64{}}
	for _, e := range s.entries {
		summary.PerInstance[e.InstanceID]++
		summary.Total++
	}
	return summary, nil
}

func (s *fakePendingStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type fakeHistory struct {
	mu      sync.Mutex
	records []model.MessageHistory
}

func (h *fakeHistory) Record(_ context.Context, entry *model.MessageHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, *entry)
	return nil
}

func (h *fakeHistory) List(_ context.Context, instanceID string, limit int) ([]model.MessageHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.MessageHistory
	for _, r := range h.records {
		if r.InstanceID == instanceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (h *fakeHistory) byStatus(status model.HistoryStatus) []model.MessageHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.MessageHistory
	for _, r := range h.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type sendCall struct {
	instanceID, recipient, payload string
	msgType                        model.MessageType
}

// fakeAdapter scripts send outcomes: each send pops the next error from the
// script (nil means success). An exhausted script succeeds.
type fakeAdapter struct {
	mu     sync.Mutex
	states map[string]channel.ConnectionState
	script []error
	calls  []sendCall

	// when set, sends block until release is closed
	block   chan struct{}
	started chan struct{}
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{states: map[string]channel.ConnectionState{}}
}

func (a *fakeAdapter) ConnectionState(_ context.Context, instanceID string) (channel.ConnectionState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.states[instanceID]; ok {
		return st, nil
	}
	return channel.StateConnected, nil
}

func (a *fakeAdapter) SendText(_ context.Context, instanceID, recipient, text string) error {
	return a.send(instanceID, recipient, text, model.TypeText)
}

func (a *fakeAdapter) SendMedia(_ context.Context, instanceID, recipient, mediaURL string) error {
	return a.send(instanceID, recipient, mediaURL, model.TypeMedia)
}

func (a *fakeAdapter) send(instanceID, recipient, payload string, msgType model.MessageType) error {
	a.mu.Lock()
	a.calls = append(a.calls, sendCall{instanceID, recipient, payload, msgType})
	var err error
	if len(a.script) > 0 {
		err = a.script[0]
		a.script = a.script[1:]
	}
	block, started := a.block, a.started
	a.mu.Unlock()

	if block != nil {
		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		<-block
	}
	return err
}

func (a *fakeAdapter) sendCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fakeObserver struct {
	mu                            sync.Mutex
	sent, retry, failed, deferred int
	lastQueue                     string
	lastCounts                    model.QueueCounts
	lastPending                   model.PendingSummary
	snapshots                     int
}

func (o *fakeObserver) RecordSent(string)     { o.mu.Lock(); o.sent++; o.mu.Unlock() }
func (o *fakeObserver) RecordRetry(string)    { o.mu.Lock(); o.retry++; o.mu.Unlock() }
func (o *fakeObserver) RecordFailed(string)   { o.mu.Lock(); o.failed++; o.mu.Unlock() }
func (o *fakeObserver) RecordDeferred(string) { o.mu.Lock(); o.deferred++; o.mu.Unlock() }

func (o *fakeObserver) PublishSnapshot(queue string, counts model.QueueCounts, pending model.PendingSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastQueue = queue
	o.lastCounts = counts
	o.lastPending = pending
	o.snapshots++
}
