package buffer

import (
	"sync"
	"testing"

	"chatrelay/internal/model"
)

func TestRecentBuffer_Lifecycle(t *testing.T) {
	buf := NewRecentBuffer(3)

	if got := buf.Snapshot(10); len(got) != 0 {
		t.Errorf("empty buffer snapshot should be empty, got %d", len(got))
	}

	buf.Add(DeliveryEvent{JobID: 1, Status: model.JobCompleted})
	buf.Add(DeliveryEvent{JobID: 2, Status: model.JobCompleted})
	buf.Add(DeliveryEvent{JobID: 3, Status: model.JobFailed})

	got := buf.Snapshot(10)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Newest first
	if got[0].JobID != 3 || got[1].JobID != 2 || got[2].JobID != 1 {
		t.Errorf("wrong order: %v %v %v", got[0].JobID, got[1].JobID, got[2].JobID)
	}

	// Wrap around: 1 is evicted
	buf.Add(DeliveryEvent{JobID: 4, Status: model.JobCompleted})
	got = buf.Snapshot(10)
	if len(got) != 3 {
		t.Fatalf("expected 3 events after wrap, got %d", len(got))
	}
	if got[0].JobID != 4 || got[2].JobID != 2 {
		t.Errorf("wrap order wrong: newest=%d oldest=%d", got[0].JobID, got[2].JobID)
	}

	// Limited snapshot
	if got = buf.Snapshot(1); len(got) != 1 || got[0].JobID != 4 {
		t.Errorf("Snapshot(1) should return only the newest event")
	}
}

func TestRecentBuffer_ConcurrentAdd(t *testing.T) {
	buf := NewRecentBuffer(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			for j := int64(0); j < 100; j++ {
				buf.Add(DeliveryEvent{JobID: n*1000 + j})
				buf.Snapshot(10)
			}
		}(int64(i))
	}
	wg.Wait()

	if got := buf.Snapshot(64); len(got) != 64 {
		t.Errorf("expected full buffer, got %d", len(got))
	}
}
