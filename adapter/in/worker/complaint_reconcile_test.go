package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingReconciler struct {
	mu    sync.Mutex
	seen  []int64
	fail  map[int64]error
	block chan struct{}
}

func (r *recordingReconciler) Reconcile(ctx context.Context, complaintID int64, text string) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.seen = append(r.seen, complaintID)
	r.mu.Unlock()

	if r.fail != nil {
		if err, ok := r.fail[complaintID]; ok {
			return err
		}
	}
	return nil
}

func (r *recordingReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func testPool(reconciler *recordingReconciler, cfg *PoolConfig) *ReconcilePool {
	return NewReconcilePool(reconciler, cfg, zerolog.Nop())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestPoolProcessesScheduledJobs(t *testing.T) {
	reconciler := &recordingReconciler{}
	p := testPool(reconciler, &PoolConfig{Workers: 2, QueueSize: 16, JobTimeout: time.Second})

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for id := int64(1); id <= 5; id++ {
		if !p.Schedule(id, "complaint text") {
			t.Fatalf("Schedule(%d) = false, want accepted", id)
		}
	}

	waitFor(t, func() bool { return reconciler.count() == 5 })
	p.Stop(time.Second)

	m := p.Metrics()
	if m.Submitted != 5 || m.Processed != 5 || m.Failed != 0 {
		t.Errorf("metrics = %+v, want 5 submitted, 5 processed, 0 failed", m)
	}
}

func TestPoolSwallowsJobFailures(t *testing.T) {
	reconciler := &recordingReconciler{
		fail: map[int64]error{2: errors.New("record vanished")},
	}
	p := testPool(reconciler, &PoolConfig{Workers: 1, QueueSize: 16, JobTimeout: time.Second})

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for id := int64(1); id <= 3; id++ {
		p.Schedule(id, "complaint text")
	}

	// A failed job must not stop the pool from draining later jobs.
	waitFor(t, func() bool { return reconciler.count() == 3 })
	p.Stop(time.Second)

	m := p.Metrics()
	if m.Processed != 2 {
		t.Errorf("processed = %d, want 2", m.Processed)
	}
	if m.Failed != 1 {
		t.Errorf("failed = %d, want 1", m.Failed)
	}
}

func TestScheduleRejectedWhenNotRunning(t *testing.T) {
	p := testPool(&recordingReconciler{}, nil)

	if p.Schedule(1, "before start") {
		t.Error("Schedule() = true before Start, want rejected")
	}
	if m := p.Metrics(); m.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", m.Dropped)
	}
}

func TestStopDrainsInFlightJobs(t *testing.T) {
	reconciler := &recordingReconciler{block: make(chan struct{})}
	p := testPool(reconciler, &PoolConfig{Workers: 1, QueueSize: 16, JobTimeout: 5 * time.Second})

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	p.Schedule(1, "slow job")

	done := make(chan struct{})
	go func() {
		p.Stop(2 * time.Second)
		close(done)
	}()

	// Stop must wait for the in-flight job rather than abandoning it.
	time.Sleep(50 * time.Millisecond)
	close(reconciler.block)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop() did not return after jobs drained")
	}

	if reconciler.count() != 1 {
		t.Errorf("reconciled jobs = %d, want 1", reconciler.count())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	p := testPool(&recordingReconciler{}, &PoolConfig{Workers: 1, QueueSize: 4, JobTimeout: time.Second})

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	p.Stop(time.Second)
}
