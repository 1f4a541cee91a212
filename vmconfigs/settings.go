package vmconfigs

import (
	"runtime"
	"time"

	"github.com/reusee/tvm/cmds"
	"github.com/reusee/tvm/configs"
	"github.com/reusee/tvm/logs"
	"github.com/reusee/tvm/vars"
	"github.com/reusee/tvm/vm"
)

type SchedulerKind string

const (
	SchedulerSingle SchedulerKind = "single"
	SchedulerPool   SchedulerKind = "pool"
)

var schedulerFlag = cmds.Var[SchedulerKind]("-scheduler")

func (Module) SchedulerKind(
	loader configs.Loader,
) SchedulerKind {
	return vars.FirstNonZero(
		*schedulerFlag,
		configs.First[SchedulerKind](loader, "scheduler"),
		SchedulerSingle,
	)
}

type Workers int

var workersFlag = cmds.Var[int]("-workers")

func (Module) Workers(
	loader configs.Loader,
) Workers {
	return Workers(vars.FirstNonZero(
		*workersFlag,
		configs.First[int](loader, "workers"),
		runtime.NumCPU(),
	))
}

// ReductionBudget is the number of instructions a process runs before it is preempted.
type ReductionBudget int

const DefaultReductionBudget = 1000

var reductionsFlag = cmds.Var[int]("-reductions")

func (Module) ReductionBudget(
	loader configs.Loader,
) ReductionBudget {
	return ReductionBudget(vars.FirstNonZero(
		*reductionsFlag,
		configs.First[int](loader, "reductions"),
		DefaultReductionBudget,
	))
}

type MaxRestarts int

const DefaultMaxRestarts = 3

var maxRestartsFlag = cmds.Var[*int]("-max-restarts")

func (Module) MaxRestarts(
	loader configs.Loader,
) MaxRestarts {
	// zero is meaningful
	if *maxRestartsFlag != nil {
		return MaxRestarts(**maxRestartsFlag)
	}
	if n, ok := configs.Lookup[int](loader, "max_restarts"); ok {
		return MaxRestarts(n)
	}
	return DefaultMaxRestarts
}

type RestartWindow time.Duration

const DefaultRestartWindow = 60 * time.Second

var restartWindowFlag = cmds.Var[time.Duration]("-restart-window")

func (Module) RestartWindow(
	loader configs.Loader,
	logger logs.Logger,
) RestartWindow {
	if *restartWindowFlag != 0 {
		return RestartWindow(*restartWindowFlag)
	}
	if str := configs.First[string](loader, "restart_window"); str != "" {
		d, err := time.ParseDuration(str)
		if err == nil {
			return RestartWindow(d)
		}
		logger.Warn("bad restart_window", "value", str, "error", err)
	}
	return RestartWindow(DefaultRestartWindow)
}

type StackLimit int

var stackLimitFlag = cmds.Var[int]("-stack-limit")

func (Module) StackLimit(
	loader configs.Loader,
) StackLimit {
	return StackLimit(vars.FirstNonZero(
		*stackLimitFlag,
		configs.First[int](loader, "stack_limit"),
		vm.DefaultStackLimit,
	))
}

type CallDepthLimit int

func (Module) CallDepthLimit(
	loader configs.Loader,
) CallDepthLimit {
	return CallDepthLimit(vars.FirstNonZero(
		configs.First[int](loader, "call_depth_limit"),
		vm.DefaultCallDepthLimit,
	))
}

// IOConcurrency bounds in-flight network operations of the I/O collaborator.
type IOConcurrency int

var ioConcurrencyFlag = cmds.Var[int]("-io-concurrency")

func (Module) IOConcurrency(
	loader configs.Loader,
) IOConcurrency {
	return IOConcurrency(vars.FirstNonZero(
		*ioConcurrencyFlag,
		configs.First[int](loader, "io_concurrency"),
		64,
	))
}

type Debug bool

var debugFlag = cmds.Switch("-debug")

func (Module) Debug(
	loader configs.Loader,
) Debug {
	return Debug(*debugFlag || configs.First[bool](loader, "debug"))
}
