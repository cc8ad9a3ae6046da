package dashboard

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to the WorkerPool, typically one report
// panel writing into its own slot.
type Job func(ctx context.Context) error

// WorkerPool runs jobs using a fixed number of goroutines and keeps the
// first job error.
type WorkerPool struct {
	jobs    chan Job
	quit    chan struct{}
	wg      sync.WaitGroup
	workers int

	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// NewWorkerPool creates a new worker pool with the specified number of workers
// and job queue capacity.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

// Start launches the workers. Once ctx is done, queued jobs are skipped and
// the context error is recorded instead.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if err := ctx.Err(); err != nil {
					p.fail(err)
					continue
				}
				if err := job(ctx); err != nil {
					p.fail(err)
				}
			}
		}()
	}
}

func (p *WorkerPool) fail(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed if the pool closes first and ctx.Err() if ctx ends first.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new jobs, waits for queued jobs to finish and returns
// the first job error.
func (p *WorkerPool) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.closeMu.Lock()
		p.closed = true
		close(p.jobs)
		p.closeMu.Unlock()
	})
	p.wg.Wait()
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// runJobs runs jobs on a pool of the given size and returns the first error.
func runJobs(ctx context.Context, workers int, jobs []Job) error {
	p := NewWorkerPool(workers, len(jobs))
	p.Start(ctx)
	for _, job := range jobs {
		if err := p.Submit(ctx, job); err != nil {
			_ = p.Close()
			return err
		}
	}
	return p.Close()
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
