package scan

import (
	"context"
	"sync"

	"splay/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProcessFunc func(ctx context.Context, scanID uuid.UUID)

// WorkerPool runs scan jobs on a fixed number of goroutines fed by a bounded
// queue.
type WorkerPool struct {
	process ProcessFunc
	workers int
	jobs    chan uuid.UUID
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewWorkerPool(process ProcessFunc, workers, queueSize int, m *metrics.Metrics, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkerPool{
		process: process,
		workers: workers,
		jobs:    make(chan uuid.UUID, queueSize),
		metrics: m,
		logger:  logger,
	}
}

func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.logger.Info("scan workers started", zap.Int("workers", p.workers), zap.Int("queue_size", cap(p.jobs)))
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for id := range p.jobs {
		p.setDepth()
		p.runJob(id)
	}
}

// runJob keeps the worker alive when process panics.
func (p *WorkerPool) runJob(id uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("scan worker panicked",
				zap.String("scan_id", id.String()), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	p.process(context.Background(), id)
}

// Submit queues a scan. It reports false when the queue is full or the pool
// is shut down; the caller then processes the scan itself.
func (p *WorkerPool) Submit(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || !p.started {
		return false
	}

	select {
	case p.jobs <- id:
		p.setDepth()
		return true
	default:
		return false
	}
}

func (p *WorkerPool) setDepth() {
	if p.metrics != nil {
		p.metrics.ScanQueueDepth.Set(float64(len(p.jobs)))
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to
// expire.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
