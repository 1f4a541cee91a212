package actors

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/reusee/tvm/vm"
)

type State int32

const (
	StateReady State = iota
	StateRunning
	StateWaiting
	StateExited
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateExited:
		return "exited"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Status is the outcome of one time slice.
type Status uint8

const (
	StatusYielded Status = iota + 1
	StatusPreempted
	StatusBlocked
	StatusExited
)

type Process struct {
	PID     PID
	runtime *Runtime
	vm      *vm.VM
	mailbox Mailbox
	budget  int
	spec    spawnSpec
	ctx     context.Context

	state   atomic.Int32
	running atomic.Bool

	// owned by the goroutine ticking the process
	links       map[PID]struct{}
	monitors    map[string]PID
	watchers    map[string]PID
	trapExit    bool
	supervisor  PID
	supervision *Supervision

	reason vm.Value
	done   chan struct{}
}

func (p *Process) State() State {
	return State(p.state.Load())
}

func (p *Process) setState(s State) {
	p.state.Store(int32(s))
}

// VM exposes the interpreter for inspection. It must not be touched while the process runs.
func (p *Process) VM() *vm.VM {
	return p.vm
}

// Done is closed after the process exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitReason is valid after Done is closed.
func (p *Process) ExitReason() vm.Value {
	<-p.done
	return p.reason
}

func (p *Process) Context() context.Context {
	return p.ctx
}

// Tick runs one time slice of at most budget reductions.
func (p *Process) Tick(ctx context.Context) Status {
	if !p.running.CompareAndSwap(false, true) {
		panic(fmt.Errorf("process %d ticked concurrently", p.PID))
	}
	defer p.running.Store(false)

	if p.State() == StateExited {
		return StatusExited
	}
	p.setState(StateRunning)

	if reason, exit := p.handleSignals(); exit {
		p.runtime.exit(p, reason, nil)
		return StatusExited
	}

	p.vm.Budget = p.budget
	p.vm.Context = ctx
	for intr, err := range p.vm.Run {
		if err != nil {
			p.runtime.exit(p, exitReason(err), err)
			return StatusExited
		}
		switch {

		case intr.Exit:
			p.runtime.exit(p, intr.Reason, nil)
			return StatusExited

		case intr.Yield:
			p.setState(StateReady)
			return StatusYielded

		case intr.Preempt:
			p.setState(StateReady)
			return StatusPreempted

		case intr.Block:
			if reason, exit := p.handleSignals(); exit {
				p.runtime.exit(p, reason, nil)
				return StatusExited
			}
			p.setState(StateWaiting)
			return StatusBlocked

		}
	}

	p.runtime.exit(p, vm.Normal, nil)
	return StatusExited
}

// park puts a blocked process to sleep. It reports false if a message is already pending.
func (p *Process) park() bool {
	return p.mailbox.Park()
}

func exitReason(err error) vm.Value {
	var uncaught *vm.Uncaught
	if errors.As(err, &uncaught) {
		return uncaught.Reason
	}
	return vm.Exception{
		Kind:    vm.RuntimeError.String(),
		Message: err.Error(),
	}
}

// handleSignals consumes runtime messages. It reports the reason when a linked exit kills the process.
// Any reason propagates, normal included, unless exits are trapped.
func (p *Process) handleSignals() (reason vm.Value, exit bool) {
	msgs := p.mailbox.Take(func(msg Message) bool {
		return isSystem(msg, p.trapExit)
	})
	for _, msg := range msgs {
		switch msg := msg.(type) {

		case Link:
			p.links[msg.From] = struct{}{}

		case Unlink:
			delete(p.links, msg.From)

		case Monitor:
			p.watchers[msg.Ref] = msg.From

		case Demonitor:
			delete(p.watchers, msg.Ref)

		case ChildExit:
			p.childExited(msg)

		case Exit:
			if _, ok := p.links[msg.From]; !ok {
				continue
			}
			delete(p.links, msg.From)
			if !exit {
				reason = msg.Reason
				exit = true
			}

		}
	}
	return
}
