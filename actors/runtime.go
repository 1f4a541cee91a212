package actors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"sync"
	"sync/atomic"

	"github.com/reusee/tvm/logs"
	"github.com/reusee/tvm/programs"
	"github.com/reusee/tvm/vm"
)

var ErrUnknownProgram = errors.New("unknown program")

type Options struct {
	Logger         *slog.Logger
	Programs       programs.Library
	IO             vm.IO
	Stdout         io.Writer
	Stderr         io.Writer
	Budget         int
	StackLimit     int
	CallDepthLimit int
	Policy         RestartPolicy
	// called on BREAKPOINT from the goroutine running the process
	OnBreakpoint func(*Process)
	// base context of process logging contexts
	Context context.Context
}

// Runtime owns the process table and routes messages between processes.
type Runtime struct {
	scheduler      Scheduler
	registry       *Registry
	programs       programs.Library
	io             vm.IO
	logger         *slog.Logger
	stdout         io.Writer
	stderr         io.Writer
	budget         int
	stackLimit     int
	callDepthLimit int
	policy         RestartPolicy
	onBreakpoint   func(*Process)
	ctx            context.Context

	nextPID atomic.Uint64
	mu      sync.RWMutex
	procs   map[PID]*Process
}

func NewRuntime(scheduler Scheduler, opts Options) *Runtime {
	r := &Runtime{
		scheduler:      scheduler,
		registry:       NewRegistry(),
		programs:       opts.Programs,
		io:             opts.IO,
		logger:         opts.Logger,
		stdout:         opts.Stdout,
		stderr:         opts.Stderr,
		budget:         opts.Budget,
		stackLimit:     opts.StackLimit,
		callDepthLimit: opts.CallDepthLimit,
		policy:         opts.Policy,
		onBreakpoint:   opts.OnBreakpoint,
		ctx:            opts.Context,
		procs:          make(map[PID]*Process),
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	if r.budget <= 0 {
		r.budget = 1000
	}
	if r.stackLimit <= 0 {
		r.stackLimit = vm.DefaultStackLimit
	}
	if r.callDepthLimit <= 0 {
		r.callDepthLimit = vm.DefaultCallDepthLimit
	}
	if r.policy == (RestartPolicy{}) {
		r.policy = DefaultRestartPolicy
	}
	if r.policy.Window <= 0 {
		r.policy.Window = DefaultRestartPolicy.Window
	}
	if r.ctx == nil {
		r.ctx = context.Background()
	}
	return r
}

func (r *Runtime) Registry() *Registry {
	return r.registry
}

func (r *Runtime) Run(ctx context.Context) error {
	return r.scheduler.Run(ctx)
}

// spawnSpec describes what a new process runs.
type spawnSpec struct {
	name  string
	code  []vm.Instr
	entry int
	// call enters entry as a function, so RET ends the process
	call     bool
	params   []string
	captured map[string]vm.Value
}

// Spawn starts a top-level process running code from its first instruction.
func (r *Runtime) Spawn(code []vm.Instr) *Process {
	return r.spawn(spawnSpec{
		code: code,
	}, nil, 0, "")
}

func (r *Runtime) SpawnProgram(name string) (*Process, error) {
	code, ok := r.programs.Program(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
	}
	return r.spawn(spawnSpec{
		name: name,
		code: code,
	}, nil, 0, ""), nil
}

// resolve turns a SPAWN operand into a spawn spec.
func (r *Runtime) resolve(target vm.Value, parent *Process) (spawnSpec, error) {
	switch target := target.(type) {
	case vm.Str:
		code, ok := r.programs.Program(string(target))
		if !ok {
			return spawnSpec{}, fmt.Errorf("%w: %s", ErrUnknownProgram, target)
		}
		return spawnSpec{
			name: string(target),
			code: code,
		}, nil
	case vm.Function:
		return r.callSpec(target.String(), parent, target.Addr, target.Params, nil)
	case vm.Closure:
		return r.callSpec(target.String(), parent, target.Addr, target.Params, maps.Clone(target.Captured))
	}
	return spawnSpec{}, fmt.Errorf("cannot spawn %s", vm.TypeName(target))
}

func (r *Runtime) callSpec(name string, parent *Process, addr int, params []string, captured map[string]vm.Value) (spawnSpec, error) {
	code := parent.vm.Code
	if addr < 0 || addr > len(code) {
		return spawnSpec{}, fmt.Errorf("entry %d out of range", addr)
	}
	if r.stackLimit > 0 && len(params) > r.stackLimit {
		return spawnSpec{}, fmt.Errorf("%d params exceed stack limit %d", len(params), r.stackLimit)
	}
	return spawnSpec{
		name:     name,
		code:     code,
		entry:    addr,
		call:     true,
		params:   params,
		captured: captured,
	}, nil
}

// spawn creates a process, binds register to it if not empty, then schedules it.
func (r *Runtime) spawn(spec spawnSpec, parent *Process, supervisor PID, register string) *Process {
	pid := PID(r.nextPID.Add(1))

	machine := vm.NewVM(spec.code)
	machine.IP = spec.entry
	machine.StackLimit = r.stackLimit
	machine.CallDepthLimit = r.callDepthLimit
	machine.IO = r.io
	machine.Stdout = r.stdout

	p := &Process{
		PID:        pid,
		runtime:    r,
		vm:         machine,
		budget:     r.budget,
		spec:       spec,
		links:      make(map[PID]struct{}),
		monitors:   make(map[string]PID),
		watchers:   make(map[string]PID),
		supervisor: supervisor,
		done:       make(chan struct{}),
	}
	machine.Host = p
	p.ctx = context.WithValue(r.ctx, logs.SpanKey, logs.Span(fmt.Sprintf("pid-%d", pid)))

	r.mu.Lock()
	r.procs[pid] = p
	r.mu.Unlock()

	args := []any{
		"pid", uint64(pid),
	}
	if spec.name != "" {
		args = append(args, "program", spec.name)
	}
	if parent != nil {
		args = append(args, "parent", uint64(parent.PID))
	}
	if supervisor != 0 {
		args = append(args, "supervisor", uint64(supervisor))
	}
	r.logger.DebugContext(p.ctx, "spawn", args...)

	if spec.call {
		// params are bound to null; resolve already bounds entry and param count
		if err := machine.Start(spec.entry, spec.params, spec.captured); err != nil {
			r.logger.ErrorContext(p.ctx, "start",
				"pid", uint64(pid),
				"error", err,
			)
		}
	}

	if register != "" {
		if err := r.registry.Register(register, pid, r.alive); err != nil {
			r.logger.WarnContext(p.ctx, "register",
				"pid", uint64(pid),
				"name", register,
				"error", err,
			)
		}
	}

	r.scheduler.Enqueue(p)
	return p
}

func (r *Runtime) Lookup(pid PID) *Process {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.procs[pid]
}

func (r *Runtime) alive(pid PID) bool {
	p := r.Lookup(pid)
	return p != nil && p.State() != StateExited
}

// NumProcesses counts processes that have not finished exiting.
func (r *Runtime) NumProcesses() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.procs)
}

// Send delivers msg. It reports false if the target does not exist or already exited.
func (r *Runtime) Send(to PID, msg Message) bool {
	p := r.Lookup(to)
	if p == nil {
		return false
	}
	ok, wake := p.mailbox.Push(msg)
	if wake {
		r.scheduler.Enqueue(p)
	}
	return ok
}

func (r *Runtime) SendNamed(name string, msg Message) bool {
	pid, ok := r.registry.Whereis(name)
	if !ok {
		return false
	}
	return r.Send(pid, msg)
}

// exit runs the exit sequence of p on the goroutine that ticked it.
func (r *Runtime) exit(p *Process, reason vm.Value, err error) {
	if reason == nil {
		reason = vm.Normal
	}
	p.setState(StateExited)
	p.reason = reason

	for _, msg := range p.mailbox.Close() {
		switch msg := msg.(type) {
		case Link:
			p.links[msg.From] = struct{}{}
		case Unlink:
			delete(p.links, msg.From)
		case Monitor:
			p.watchers[msg.Ref] = msg.From
		case Demonitor:
			delete(p.watchers, msg.Ref)
		}
	}

	// Names and the table entry go before anyone is notified: a process woken
	// by Exit or Down must already see WHEREIS return null and LINK fail.
	r.registry.RemovePID(p.PID)
	r.mu.Lock()
	delete(r.procs, p.PID)
	r.mu.Unlock()

	if err != nil {
		fmt.Fprintf(r.stderr, "process %d crashed: %s\n", uint64(p.PID), reason)
		r.logger.WarnContext(p.ctx, "process crashed",
			"pid", uint64(p.PID),
			"reason", reason.String(),
			"error", logs.WrapSpan(p.ctx, err),
		)
	} else {
		r.logger.DebugContext(p.ctx, "process exited",
			"pid", uint64(p.PID),
			"reason", reason.String(),
			"reductions", p.vm.Reductions,
		)
	}

	for pid := range p.links {
		r.Send(pid, Exit{
			From:   p.PID,
			Reason: vm.Clone(reason),
		})
	}
	for ref, pid := range p.watchers {
		r.Send(pid, Down{
			PID:    p.PID,
			Ref:    ref,
			Reason: vm.Clone(reason),
		})
	}
	if p.supervisor != 0 {
		r.Send(p.supervisor, ChildExit{
			PID:    p.PID,
			Reason: vm.Clone(reason),
		})
	}

	close(p.done)
}

func (r *Runtime) breakpoint(p *Process) {
	if r.onBreakpoint == nil {
		r.logger.DebugContext(p.ctx, "breakpoint",
			"pid", uint64(p.PID),
			"ip", p.vm.IP-1,
			"scope", p.vm.DumpScope(),
		)
		return
	}
	r.onBreakpoint(p)
}
