package actors

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool runs processes on a fixed set of workers with per-worker deques and work stealing.
type Pool struct {
	workers []*worker
	next    atomic.Uint64
	// processes queued or being ticked
	pending atomic.Int64

	mu      sync.Mutex
	cond    *sync.Cond
	stopped bool
}

type worker struct {
	id    int
	pool  *Pool
	deque Deque
	ticks atomic.Uint64
}

var _ Scheduler = new(Pool)

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	pool := &Pool{}
	pool.cond = sync.NewCond(&pool.mu)
	for i := range n {
		pool.workers = append(pool.workers, &worker{
			id:   i,
			pool: pool,
		})
	}
	return pool
}

func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

func (p *Pool) Enqueue(proc *Process) {
	proc.setState(StateReady)
	p.pending.Add(1)
	w := p.workers[p.next.Add(1)%uint64(len(p.workers))]
	w.deque.PushBack(proc)
	p.mu.Lock()
	p.cond.Signal()
	p.mu.Unlock()
}

func (p *Pool) Run(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = false
	p.mu.Unlock()

	group, ctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(ctx, p.wakeAll)
	defer stop()

	for _, w := range p.workers {
		group.Go(func() error {
			return w.run(ctx)
		})
	}
	err := group.Wait()

	// drop whatever is left after cancellation
	for _, w := range p.workers {
		for w.deque.PopFront() != nil {
			p.pending.Add(-1)
		}
	}

	return err
}

func (p *Pool) wakeAll() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) hasQueued() bool {
	for _, w := range p.workers {
		if w.deque.Len() > 0 {
			return true
		}
	}
	return false
}

func (w *worker) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		proc := w.deque.PopFront()
		if proc == nil {
			proc = w.steal()
		}
		if proc == nil {
			if done, err := w.idle(ctx); done {
				return err
			}
			continue
		}

		w.ticks.Add(1)
		switch proc.Tick(ctx) {
		case StatusYielded, StatusPreempted:
			proc.setState(StateReady)
			w.deque.PushBack(proc)
			w.pool.mu.Lock()
			w.pool.cond.Signal()
			w.pool.mu.Unlock()
			continue
		case StatusBlocked:
			if !proc.park() {
				proc.setState(StateReady)
				w.deque.PushBack(proc)
				continue
			}
		}

		if w.pool.pending.Add(-1) == 0 {
			w.pool.wakeAll()
		}
	}
}

func (w *worker) steal() *Process {
	workers := w.pool.workers
	for i := 1; i < len(workers); i++ {
		victim := workers[(w.id+i)%len(workers)]
		if proc := victim.deque.PopBack(); proc != nil {
			return proc
		}
	}
	return nil
}

// idle sleeps until work arrives. done reports that the worker should exit.
func (w *worker) idle(ctx context.Context) (done bool, err error) {
	pool := w.pool
	pool.mu.Lock()
	defer pool.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if pool.stopped {
			return true, nil
		}
		if pool.pending.Load() == 0 {
			// nothing queued or running, parked processes can never be woken
			pool.stopped = true
			pool.cond.Broadcast()
			return true, nil
		}
		if pool.hasQueued() {
			return false, nil
		}
		pool.cond.Wait()
	}
}
