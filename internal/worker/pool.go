// AngelaMos | 2026
// pool.go

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool is an in-process queue drained by a fixed number of goroutines.
type Pool struct {
	jobs       chan Job
	workers    int
	jobTimeout time.Duration
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

type PoolOption func(*Pool)

func WithJobTimeout(d time.Duration) PoolOption {
	return func(p *Pool) { p.jobTimeout = d }
}

func WithLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = l }
}

func NewPool(workers, queueSize int, opts ...PoolOption) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue hands a job to the pool without blocking. A full buffer returns
// ErrQueueFull so the caller can record the job as failed.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrQueueClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Run blocks until the queue is closed and drained or ctx is cancelled. On
// cancellation intake is closed and every job still buffered is completed
// with ErrQueueClosed so its owner can record the failure.
func (p *Pool) Run(ctx context.Context, handle HandleFunc, complete CompleteFunc) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case job, ok := <-p.jobs:
					if !ok {
						return nil
					}
					p.process(gctx, job, handle, complete)
				}
			}
		})
	}

	err := g.Wait()
	p.drain(ctx, complete)
	return err
}

func (p *Pool) drain(ctx context.Context, complete CompleteFunc) {
	_ = p.Close() //nolint:errcheck // Close never fails

	ctx = context.WithoutCancel(ctx)
	dropped := 0
	for job := range p.jobs {
		dropped++
		if complete != nil {
			complete(ctx, job, ErrQueueClosed)
		}
	}

	if dropped > 0 {
		p.logger.WarnContext(ctx, "queue stopped with jobs pending",
			"dropped", dropped,
		)
	}
}

// Close stops intake. Jobs already queued are still processed by Run
// unless its context is cancelled first.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	return nil
}

func (p *Pool) process(
	ctx context.Context,
	job Job,
	handle HandleFunc,
	complete CompleteFunc,
) {
	jobCtx := ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	err := runSafely(jobCtx, job, handle)
	if err != nil {
		p.logger.ErrorContext(ctx, "job failed",
			"job_id", job.ID,
			"job_type", job.Type,
			"error", err,
		)
	}

	if complete != nil {
		// Completion must run even when the job context has expired.
		complete(context.WithoutCancel(ctx), job, err)
	}
}

func runSafely(ctx context.Context, job Job, handle HandleFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v\n%s", job.ID, r, debug.Stack())
		}
	}()
	return handle(ctx, job)
}

var _ Queue = (*Pool)(nil)
