package actors

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/tvm/debugs"
	"github.com/reusee/tvm/hostio"
	"github.com/reusee/tvm/logs"
	"github.com/reusee/tvm/programs"
	"github.com/reusee/tvm/vm"
	"github.com/reusee/tvm/vmconfigs"
)

type Module struct {
	dscope.Module
	Configs vmconfigs.Module
	IO      hostio.Module
	Debugs  debugs.Module
}

type Stdout io.Writer

func (Module) Stdout() Stdout {
	return os.Stdout
}

type Stderr io.Writer

func (Module) Stderr() Stderr {
	return os.Stderr
}

// Library is empty unless a loaded program library is provided.
func (Module) Library() programs.Library {
	return programs.Library{}
}

func (Module) Scheduler(
	kind vmconfigs.SchedulerKind,
	workers vmconfigs.Workers,
	logger logs.Logger,
) Scheduler {
	switch kind {
	case vmconfigs.SchedulerPool:
		return NewPool(int(workers))
	case vmconfigs.SchedulerSingle:
	default:
		logger.Warn("unknown scheduler, using single",
			"scheduler", string(kind),
		)
	}
	return NewSingleScheduler()
}

// Breakpoint handles the BREAKPOINT opcode. Nil means logging only.
type Breakpoint func(*Process)

func (Module) Breakpoint(
	debug vmconfigs.Debug,
	tap debugs.Tap,
) Breakpoint {
	if !debug {
		return nil
	}
	return func(p *Process) {
		machine := p.VM()
		tap(
			p.Context(),
			fmt.Sprintf("breakpoint pid %d ip %d", uint64(p.PID), machine.IP-1),
			map[string]any{
				"pid":     p.PID,
				"ip":      machine.IP - 1,
				"globals": machine.Globals(),
				"locals":  machine.Locals(),
				"stack":   vm.List(machine.Operands()),
				"dump":    machine.DumpScope,
			},
		)
	}
}

// RunContext is the base context of process logging contexts.
type RunContext context.Context

func (Module) RunContext() RunContext {
	return context.Background()
}

func (Module) Runtime(
	scheduler Scheduler,
	library programs.Library,
	hostIO vm.IO,
	logger logs.Logger,
	stdout Stdout,
	stderr Stderr,
	budget vmconfigs.ReductionBudget,
	stackLimit vmconfigs.StackLimit,
	callDepthLimit vmconfigs.CallDepthLimit,
	maxRestarts vmconfigs.MaxRestarts,
	window vmconfigs.RestartWindow,
	breakpoint Breakpoint,
	ctx RunContext,
) *Runtime {
	return NewRuntime(scheduler, Options{
		Logger:         logger,
		Programs:       library,
		IO:             hostIO,
		Stdout:         stdout,
		Stderr:         stderr,
		Budget:         int(budget),
		StackLimit:     int(stackLimit),
		CallDepthLimit: int(callDepthLimit),
		Policy: RestartPolicy{
			MaxRestarts: int(maxRestarts),
			Window:      time.Duration(window),
		},
		OnBreakpoint: breakpoint,
		Context:      ctx,
	})
}
