// Package worker runs the deferred spam reconciliation jobs on a
// bounded pool, decoupled from the request lifecycle.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"complaint_server/core/port/in"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"
)

// Job is one spam re-check: the persisted complaint id plus its
// original text.
type Job struct {
	ComplaintID int64
	Text        string
}

// PoolConfig holds reconciliation pool configuration.
type PoolConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 15 * time.Second,
	}
}

// ReconcilePool is a fire-and-forget worker pool for spam re-checks.
// Nothing ever waits on a job's result: a failed job is logged and
// dropped, with no retry queue and no persistence of failed attempts.
type ReconcilePool struct {
	reconciler in.SpamReconciler
	config     *PoolConfig

	pool   *pool.WorkerGroup[Job]
	ctx    context.Context
	cancel context.CancelFunc

	submitted int64
	processed int64
	failed    int64
	dropped   int64

	log     zerolog.Logger
	started bool
	mu      sync.Mutex
}

// PoolMetrics holds reconciliation pool counters.
type PoolMetrics struct {
	Submitted int64
	Processed int64
	Failed    int64
	Dropped   int64
}

// reconcileWorker implements pool.Worker for Job processing.
type reconcileWorker struct {
	pool *ReconcilePool
}

// Do implements pool.Worker.
func (w *reconcileWorker) Do(ctx context.Context, job Job) error {
	return w.pool.processJob(ctx, job)
}

// NewReconcilePool creates a reconciliation pool.
func NewReconcilePool(reconciler in.SpamReconciler, config *PoolConfig, log zerolog.Logger) *ReconcilePool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultPoolConfig().Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultPoolConfig().QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultPoolConfig().JobTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ReconcilePool{
		reconciler: reconciler,
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
		log:        log.With().Str("component", "reconcile_pool").Logger(),
	}
}

// Start starts the worker pool.
func (p *ReconcilePool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	worker := &reconcileWorker{pool: p}
	p.pool = pool.New[Job](p.config.Workers, worker).
		WithWorkerChanSize(p.config.QueueSize).
		WithContinueOnError()

	if err := p.pool.Go(p.ctx); err != nil {
		return err
	}

	p.started = true
	p.log.Info().
		Int("workers", p.config.Workers).
		Int("queue_size", p.config.QueueSize).
		Msg("reconciliation pool started")

	return nil
}

// Stop drains the pool, bounded by the given timeout.
func (p *ReconcilePool) Stop(timeout time.Duration) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), timeout)
	defer closeCancel()

	if err := p.pool.Close(closeCtx); err != nil {
		p.log.Warn().Err(err).Msg("error closing reconciliation pool")
	}
	p.cancel()

	p.log.Info().
		Int64("processed", atomic.LoadInt64(&p.processed)).
		Int64("failed", atomic.LoadInt64(&p.failed)).
		Msg("reconciliation pool stopped")
}

// Schedule implements out.ReconcileScheduler. Returns false when the
// pool is not running.
func (p *ReconcilePool) Schedule(complaintID int64, text string) bool {
	p.mu.Lock()
	if !p.started || p.pool == nil {
		p.mu.Unlock()
		atomic.AddInt64(&p.dropped, 1)
		return false
	}
	p.mu.Unlock()

	p.pool.Submit(Job{ComplaintID: complaintID, Text: text})
	atomic.AddInt64(&p.submitted, 1)
	return true
}

func (p *ReconcilePool) processJob(ctx context.Context, job Job) error {
	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	start := time.Now()
	err := p.reconciler.Reconcile(jobCtx, job.ComplaintID, job.Text)
	if err != nil {
		// Terminal for this record, non-fatal for the system.
		atomic.AddInt64(&p.failed, 1)
		p.log.Warn().
			Err(err).
			Int64("complaint_id", job.ComplaintID).
			Dur("duration", time.Since(start)).
			Msg("spam reconciliation failed")
		return err
	}

	atomic.AddInt64(&p.processed, 1)
	p.log.Debug().
		Int64("complaint_id", job.ComplaintID).
		Dur("duration", time.Since(start)).
		Msg("spam reconciliation done")

	return nil
}

// Metrics returns a snapshot of the pool counters.
func (p *ReconcilePool) Metrics() PoolMetrics {
	return PoolMetrics{
		Submitted: atomic.LoadInt64(&p.submitted),
		Processed: atomic.LoadInt64(&p.processed),
		Failed:    atomic.LoadInt64(&p.failed),
		Dropped:   atomic.LoadInt64(&p.dropped),
	}
}
