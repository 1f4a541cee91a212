package vmconfigs

import (
	"testing"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/tvm/configs"
	"github.com/reusee/tvm/modes"
	"github.com/reusee/tvm/vm"
)

func TestDefaults(t *testing.T) {
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Call(func(
		kind SchedulerKind,
		budget ReductionBudget,
		maxRestarts MaxRestarts,
		window RestartWindow,
		stackLimit StackLimit,
		workers Workers,
		debug Debug,
	) {
		if kind != SchedulerSingle {
			t.Fatalf("got %v", kind)
		}
		if budget != DefaultReductionBudget {
			t.Fatalf("got %v", budget)
		}
		if maxRestarts != DefaultMaxRestarts {
			t.Fatalf("got %v", maxRestarts)
		}
		if time.Duration(window) != DefaultRestartWindow {
			t.Fatalf("got %v", window)
		}
		if stackLimit != vm.DefaultStackLimit {
			t.Fatalf("got %v", stackLimit)
		}
		if workers <= 0 {
			t.Fatalf("got %v", workers)
		}
		if debug {
			t.Fatal()
		}
	})
}

func TestConfigFile(t *testing.T) {
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		dscope.Provide(configs.NewLoader([]string{"test.cue"}, schema)),
	).Call(func(
		kind SchedulerKind,
		workers Workers,
		maxRestarts MaxRestarts,
		window RestartWindow,
		debug Debug,
	) {
		if kind != SchedulerPool {
			t.Fatalf("got %v", kind)
		}
		if workers != 3 {
			t.Fatalf("got %v", workers)
		}
		if maxRestarts != 0 {
			t.Fatalf("got %v", maxRestarts)
		}
		if time.Duration(window) != 5*time.Second {
			t.Fatalf("got %v", window)
		}
		if !debug {
			t.Fatal()
		}
	})
}
