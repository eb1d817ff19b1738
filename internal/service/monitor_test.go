package service

import (
	"context"
	"testing"
	"time"

	"chatrelay/internal/model"
)

func TestMonitor_PublishesSnapshot(t *testing.T) {
	jobs := newFakeJobStore()
	pending := &fakePendingStore{}
	obs := &fakeObserver{}
	ctx := context.Background()

	jobs.Enqueue(ctx, &model.MessageJob{InstanceID: "inst-a", Type: model.TypeText, Recipient: "+51999123456", Payload: "x", MaxAttempts: 3})
	jobs.Enqueue(ctx, &model.MessageJob{InstanceID: "inst-a", Type: model.TypeText, Recipient: "+51999123456", Payload: "y", MaxAttempts: 3, NextAttemptAt: time.Now().Add(time.Hour)})
	pending.Add(ctx, &model.PendingMessage{ID: "p1", InstanceID: "inst-b", NormalizedRecipient: "51888", Type: model.TypeText, Payload: "z", Reason: model.ReasonUnknown})

	m := NewQueueMonitor(jobs, pending, obs, "outbound-messages", time.Second)
	m.snapshot(ctx)

	if obs.snapshots != 1 {
		t.Fatalf("expected one snapshot, got %d", obs.snapshots)
	}
	if obs.lastQueue != "outbound-messages" {
		t.Errorf("unexpected queue name %q", obs.lastQueue)
	}
	if obs.lastCounts.Waiting != 1 || obs.lastCounts.Delayed != 1 {
		t.Errorf("expected waiting=1 delayed=1, got %+v", obs.lastCounts)
	}
	if obs.lastPending.Total != 1 || obs.lastPending.PerInstance["inst-b"] != 1 {
		t.Errorf("unexpected pending summary %+v", obs.lastPending)
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	jobs := newFakeJobStore()
	pending := &fakePendingStore{}
	obs := &fakeObserver{}

	m := NewQueueMonitor(jobs, pending, obs, "", 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancel")
	}

	obs.mu.Lock()
	n := obs.snapshots
	obs.mu.Unlock()
	if n == 0 {
		t.Error("expected at least one snapshot while running")
	}
}
