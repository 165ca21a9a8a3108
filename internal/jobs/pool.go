package jobs

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work executed by the pool.
type Task func(ctx context.Context)

// Pool is a bounded fixed-size worker pool. Jobs run in parallel with
// each other; within one task execution is strictly sequential. The
// queue holds submitted-but-unstarted tasks.
type Pool struct {
	workers int
	queue   chan Task

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
}

// NewPool creates a pool with the given worker count and queue backlog.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		workers: workers,
		queue:   make(chan Task, queueSize),
	}
}

// Start launches the workers. Tasks submitted before Start wait in the
// queue. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		p.group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case task, ok := <-p.queue:
					if !ok {
						return nil
					}
					task(ctx)
				}
			}
		})
	}
}

// Submit enqueues a task. It fails when the backlog is full or the pool
// has been stopped, never blocks the caller.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return fmt.Errorf("worker pool is stopped")
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return fmt.Errorf("worker pool queue is full")
	}
}

// Stop drains the queue and waits for running tasks to finish. Queued
// tasks still execute; their own cancellation handles decide whether
// they do any work.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		started := p.started
		p.mu.Unlock()

		close(p.queue)
		if !started {
			return
		}

		_ = p.group.Wait()
		if p.cancel != nil {
			p.cancel()
		}
	})
}
