package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
	ErrTooManyWorkers = errors.New("worker count exceeds maximum")
	// ErrInvalidWorkerCount is returned for worker counts below one.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
	// ErrWorkerPanic wraps a panic recovered from a worker.
	ErrWorkerPanic = errors.New("worker panicked")
)

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt32

// Task is the body of one long-running worker. worker is in [0, Workers()).
type Task func(ctx context.Context, worker int) error

// WorkerPool runs a fixed number of identical workers to completion.
type WorkerPool struct {
	workers int
	active  atomic.Int64
}

// NewWorkerPool creates a pool with exactly workers goroutines per Run.
func NewWorkerPool(workers int) (*WorkerPool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workers)
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	return &WorkerPool{workers: workers}, nil
}

// Workers returns the configured worker count.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Active returns how many workers are currently running.
func (wp *WorkerPool) Active() int {
	return int(wp.active.Load())
}

// Run starts the workers and blocks until every one of them has returned.
// The first non-nil error cancels the context handed to the remaining workers
// and is returned once all have unwound.
func (wp *WorkerPool) Run(ctx context.Context, task Task) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < wp.workers; i++ {
		g.Go(func() (err error) {
			wp.active.Add(1)
			defer wp.active.Add(-1)

			// A panicking worker must not take the process down
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, i, r)
				}
			}()
			return task(gctx, i)
		})
	}
	return g.Wait()
}
