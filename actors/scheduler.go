package actors

import (
	"context"
	"sync"
)

type Scheduler interface {
	// Enqueue marks p ready. A process is enqueued at most once at a time.
	Enqueue(p *Process)
	// Run ticks ready processes until none is ready or running, or ctx is done.
	Run(ctx context.Context) error
}

// SingleScheduler runs every process on the calling goroutine in FIFO order.
type SingleScheduler struct {
	mu    sync.Mutex
	queue Deque
}

var _ Scheduler = new(SingleScheduler)

func NewSingleScheduler() *SingleScheduler {
	return new(SingleScheduler)
}

func (s *SingleScheduler) Enqueue(p *Process) {
	p.setState(StateReady)
	s.queue.PushBack(p)
}

func (s *SingleScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := s.queue.PopFront()
		if p == nil {
			return nil
		}
		switch p.Tick(ctx) {
		case StatusYielded, StatusPreempted:
			s.Enqueue(p)
		case StatusBlocked:
			if !p.park() {
				s.Enqueue(p)
			}
		}
	}
}
