package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reusee/dscope"
	"github.com/reusee/tvm/actors"
	"github.com/reusee/tvm/cmds"
	"github.com/reusee/tvm/logs"
	"github.com/reusee/tvm/modes"
	"github.com/reusee/tvm/programs"
	"github.com/reusee/tvm/vars"
	"github.com/reusee/tvm/vm"
	"github.com/reusee/tvm/vmconfigs"
)

var (
	runFile   = cmds.Var[string]("run")
	listFile  = cmds.Var[string]("programs")
	entryName = cmds.Var[string]("-entry")
)

func main() {
	cmds.Execute(os.Args[1:])

	switch {
	case *listFile != "":
		os.Exit(list(*listFile))
	case *runFile != "":
		os.Exit(run(*runFile))
	}
	cmds.GlobalExecutor.PrintUsage()
	os.Exit(2)
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func list(path string) int {
	library, err := programs.Load(path)
	if err != nil {
		return fail(err)
	}
	for _, name := range library.Names() {
		code, _ := library.Program(name)
		fmt.Printf("%s (%d instructions)\n", name, len(code))
	}
	return 0
}

func run(path string) (status int) {
	library, err := programs.Load(path)
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scope := dscope.New(
		new(Module),
		modes.ForProduction(),
	).Fork(
		dscope.Provide(library),
	)

	scope.Call(func(
		newSpan logs.NewSpan,
	) {
		runCtx, _ := newSpan(ctx, "")
		scope = scope.Fork(
			dscope.Provide(actors.RunContext(runCtx)),
		)
	})

	scope.Call(func(
		logger logs.Logger,
		runtime *actors.Runtime,
		kind vmconfigs.SchedulerKind,
		budget vmconfigs.ReductionBudget,
		runCtx actors.RunContext,
	) {
		entry := vars.FirstNonZero(*entryName, "main")
		proc, err := runtime.SpawnProgram(entry)
		if err != nil {
			status = fail(err)
			return
		}
		logger.InfoContext(runCtx, "run",
			"file", path,
			"entry", entry,
			"scheduler", string(kind),
			"reductions", int(budget),
		)

		if err := runtime.Run(ctx); err != nil {
			status = fail(err)
			return
		}

		select {
		case <-proc.Done():
		default:
			logger.ErrorContext(runCtx, "deadlock",
				"pid", uint64(proc.PID),
				"state", proc.State().String(),
				"processes", runtime.NumProcesses(),
			)
			status = 1
			return
		}
		status = exitStatus(proc.ExitReason())
	})

	return
}

func exitStatus(reason vm.Value) int {
	switch reason := reason.(type) {
	case vm.Int:
		return int(reason)
	case vm.Str:
		if reason == vm.Normal {
			return 0
		}
	}
	return 1
}
