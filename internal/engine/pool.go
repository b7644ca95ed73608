package engine

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// task is one unit of record work.
type task func(ctx context.Context)

// Pool multiplexes record work over a fixed number of workers. It is a
// process-wide resource shared by all jobs: a single FIFO queue admits
// records in submission order across jobs, so a large job cannot starve a
// later small one beyond the tasks already queued ahead of it. FIFO was
// chosen over round-robin because it is deterministic under test.
type Pool struct {
	tasks  chan task
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines draining a queue of queueDepth pending
// tasks.
func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan task, queueDepth),
		group:  &errgroup.Group{},
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		p.group.Go(func() error {
			for t := range p.tasks {
				t(p.ctx)
			}
			return nil
		})
	}

	return p
}

// Submit enqueues a task, blocking while the queue is full. It returns
// ErrPoolClosed once Close has been called.
func (p *Pool) Submit(t task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- t:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Close stops admission, lets already-queued tasks drain, and waits for the
// workers to exit. Tasks bound their own work with per-record deadlines, so
// no separate forced-shutdown phase is needed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	_ = p.group.Wait()
	p.cancel()
}
