package executor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pooled runs jobs on a fixed set of long lived worker goroutines fed from
// an unbounded queue. The worker count bounds how many jobs run at once
// across every batch submitted to the pool.
type Pooled struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []task
	closed  bool
	workers int
	group   errgroup.Group
}

type task struct {
	ctx   context.Context
	index int
	job   func(ctx context.Context, i int)
	batch *batchState
}

// batchState tracks the jobs of one Execute call
type batchState struct {
	wg   sync.WaitGroup
	once sync.Once
	err  error
}

func (t task) run() {
	defer t.batch.wg.Done()

	if err := runJob(t.ctx, t.index, t.job); err != nil {
		t.batch.once.Do(func() {
			t.batch.err = err
		})
	}
}

// NewPooled starts a pool of the given number of workers
func NewPooled(workers int) (*Pooled, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be greater than zero, got %d", ErrInvalidConfig, workers)
	}

	p := &Pooled{
		workers: workers,
	}
	p.cond = sync.NewCond(&p.mu)

	for w := 0; w < workers; w++ {
		p.group.Go(p.work)
	}

	return p, nil
}

// Workers returns the number of workers in the pool
func (p *Pooled) Workers() int {
	return p.workers
}

// work returns nil once the pool is closed and drained. Job failures are
// reported to the Execute call owning the job, never to the group, so the
// group only tracks worker lifetime for Close.
func (p *Pooled) work() error {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		// closed and drained
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return nil
		}
		next := p.queue[0]
		p.queue[0] = task{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		next.run()
	}
}

// Execute enqueues all n jobs and waits for them to finish. Results must be
// written by the job into a slot owned by its index, see Map.
func (p *Pooled) Execute(ctx context.Context, n int, job func(ctx context.Context, i int)) error {
	state := &batchState{}
	state.wg.Add(n)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	for i := 0; i < n; i++ {
		p.queue = append(p.queue, task{
			ctx:   ctx,
			index: i,
			job:   job,
			batch: state,
		})
	}
	p.mu.Unlock()

	p.cond.Broadcast()

	state.wg.Wait()

	return state.err
}

// Close stops accepting new batches, lets the workers drain any queued
// jobs and waits for them to exit. Calling Close more than once is safe.
func (p *Pooled) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cond.Broadcast()

	return p.group.Wait()
}
