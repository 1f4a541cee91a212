package actors

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/reusee/tvm/programs"
	"github.com/reusee/tvm/vm"
)

func TestSendReceive(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{
			Programs: programs.Library{
				"child": vm.Code(
					vm.OpReceive,
					push(vm.Int(1)),
					vm.OpAdd,
					vm.OpPrint,
					vm.OpHalt,
				),
			},
		})
		main := r.runtime.Spawn(vm.Code(
			push(vm.Str("child")),
			vm.OpSpawn,
			push(vm.Int(42)),
			vm.OpSend,
			vm.OpHalt,
		))
		r.run(t)
		if out := r.out.String(); out != "43\n" {
			t.Fatalf("got %q", out)
		}
		if !exited(main) {
			t.Fatal("main not exited")
		}
		if reason := main.ExitReason(); reason != vm.Normal {
			t.Fatalf("got %v", reason)
		}
		if n := r.runtime.NumProcesses(); n != 0 {
			t.Fatalf("got %d", n)
		}
	})
}

func TestFIFOPerSender(t *testing.T) {
	sendSeq := func(prefix string) []any {
		var ret []any
		for i := 1; i <= 3; i++ {
			ret = append(ret,
				vm.OpLoad.Named("sink"),
				push(vm.Str(prefix+string(rune('0'+i)))),
				vm.OpSend,
			)
		}
		return append(ret, vm.OpHalt)
	}

	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		var sink []any
		for range 6 {
			sink = append(sink, vm.OpReceive, vm.OpPrint)
		}
		sink = append(sink, vm.OpHalt)
		r := newTestRun(newScheduler(), Options{
			Programs: programs.Library{
				"sink": vm.Code(sink...),
			},
		})

		main := []any{
			push(vm.Str("sink")),
			vm.OpSpawn,
			vm.OpStore.Named("sink"),
			vm.OpCapture.Named("sink"),
			vm.OpMakeLambda.At(12),
			vm.OpSpawn,
			vm.OpPop,
			vm.OpCapture.Named("sink"),
			vm.OpMakeLambda.At(22),
			vm.OpSpawn,
			vm.OpPop,
			vm.OpHalt,
		}
		main = append(main, sendSeq("a")...)
		main = append(main, sendSeq("b")...)
		r.runtime.Spawn(vm.Code(main...))
		r.run(t)

		lines := r.out.Lines()
		if len(lines) != 6 {
			t.Fatalf("got %q", r.out.String())
		}
		for _, prefix := range []string{"a", "b"} {
			last := -1
			for i := 1; i <= 3; i++ {
				idx := slices.Index(lines, prefix+string(rune('0'+i)))
				if idx <= last {
					t.Fatalf("out of order: %v", lines)
				}
				last = idx
			}
		}
	})
}

func TestSpawnClosure(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{})
		r.runtime.Spawn(vm.Code(
			push(vm.Int(5)),
			vm.OpStore.Named("x"),
			vm.OpCapture.Named("x"),
			vm.OpMakeLambda.At(9),
			push(vm.Int(999)),
			vm.OpStore.Named("x"),
			vm.OpSpawn,
			vm.OpPop,
			vm.OpHalt,
			// 9
			vm.OpLoad.Named("x"),
			push(vm.Int(3)),
			vm.OpAdd,
			vm.OpPrint,
			vm.OpHalt,
		))
		r.run(t)
		if out := r.out.String(); out != "8\n" {
			t.Fatalf("got %q", out)
		}
	})
}

func TestSpawnFunctionReturns(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{})
		main := r.runtime.Spawn(vm.Code(
			vm.OpMakeFunction.At(10, "p"),
			vm.OpSpawn,
			vm.OpStore.Named("c"),
			vm.OpLoad.Named("c"),
			vm.OpMonitor,
			vm.OpPop,
			vm.OpReceive,
			vm.OpGetField.Named("reason"),
			vm.OpPrint,
			vm.OpHalt,
			// 10
			vm.OpLoad.Named("p"),
			vm.OpPrint,
			push(vm.Str("hi")),
			vm.OpPrint,
			vm.OpRet,
			push(vm.Str("fell through")),
			vm.OpPrint,
		))
		r.run(t)
		if reason := main.ExitReason(); reason != vm.Normal {
			t.Fatalf("got %v", reason)
		}
		if out := r.out.String(); out != "null\nhi\nnormal\n" {
			t.Fatalf("got %q", out)
		}
	})
}

func TestSpawnFunctionBadEntry(t *testing.T) {
	r := newTestRun(NewSingleScheduler(), Options{})
	main := r.runtime.Spawn(vm.Code(
		push(vm.Function{Addr: 99}),
		vm.OpSpawn,
		vm.OpHalt,
	))
	r.run(t)
	exc, ok := main.ExitReason().(vm.Exception)
	if !ok {
		t.Fatalf("got %v", main.ExitReason())
	}
	if !strings.Contains(exc.Message, "out of range") {
		t.Fatalf("got %v", exc)
	}
}

func TestSpawnUnknownProgram(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{})
		main := r.runtime.Spawn(vm.Code(
			push(vm.Str("nope")),
			vm.OpSpawn,
			vm.OpHalt,
		))
		r.run(t)
		exc, ok := main.ExitReason().(vm.Exception)
		if !ok {
			t.Fatalf("got %v", main.ExitReason())
		}
		if exc.Kind != vm.RuntimeError.String() || !strings.Contains(exc.Message, "unknown program") {
			t.Fatalf("got %v", exc)
		}
	})

	r := newTestRun(NewSingleScheduler(), Options{})
	if _, err := r.runtime.SpawnProgram("nope"); !errors.Is(err, ErrUnknownProgram) {
		t.Fatalf("got %v", err)
	}
}

func TestPreemption(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{
			Budget: 5,
		})
		// the spinner reports in before spinning so its reductions are
		// never zero when main finishes
		spinner := r.runtime.Spawn(vm.Code(
			push(vm.Str("up")),
			vm.OpSend.With(vm.PID(2)),
			vm.OpNop,
			vm.OpJmp.At(2),
		))
		main := r.runtime.Spawn(vm.Code(
			vm.OpReceive,
			vm.OpPop,
			push(spinner.PID),
			vm.OpLink,
			vm.OpPop,
			push(vm.Int(0)),
			vm.OpStore.Named("i"),
			// 7
			vm.OpLoad.Named("i"),
			push(vm.Int(100)),
			vm.OpLt,
			vm.OpJz.At(16),
			vm.OpLoad.Named("i"),
			push(vm.Int(1)),
			vm.OpAdd,
			vm.OpStore.Named("i"),
			vm.OpJmp.At(7),
			// 16
			push(vm.Str("done")),
			vm.OpPrint,
			push(vm.Str("stop")),
			vm.OpExit,
		))
		if main.PID != 2 {
			t.Fatalf("got %v", main.PID)
		}
		r.run(t)
		if out := r.out.String(); out != "done\n" {
			t.Fatalf("got %q", out)
		}
		if reason := main.ExitReason(); reason != vm.Str("stop") {
			t.Fatalf("got %v", reason)
		}
		if reason := spinner.ExitReason(); reason != vm.Str("stop") {
			t.Fatalf("got %v", reason)
		}
		if spinner.VM().Reductions == 0 {
			t.Fatal("spinner never ran")
		}
		if main.VM().Reductions < 500 {
			t.Fatalf("got %d", main.VM().Reductions)
		}
	})
}

func TestYield(t *testing.T) {
	r := newTestRun(NewSingleScheduler(), Options{})
	for _, name := range []string{"a", "b"} {
		r.runtime.Spawn(vm.Code(
			push(vm.Str(name+"1")),
			vm.OpPrint,
			vm.OpYield,
			push(vm.Str(name+"2")),
			vm.OpPrint,
		))
	}
	r.run(t)
	if out := r.out.String(); out != "a1\nb1\na2\nb2\n" {
		t.Fatalf("got %q", out)
	}
}

func TestCrashIsolation(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		stderr := new(syncBuffer)
		r := newTestRun(newScheduler(), Options{
			Stderr: stderr,
		})
		crasher := r.runtime.Spawn(vm.Code(
			push(vm.Int(1)),
			push(vm.Int(0)),
			vm.OpDiv,
		))
		other := r.runtime.Spawn(vm.Code(
			vm.OpYield,
			push(vm.Str("alive")),
			vm.OpPrint,
		))
		r.run(t)
		exc, ok := crasher.ExitReason().(vm.Exception)
		if !ok || exc.Kind != vm.DivisionByZero.String() {
			t.Fatalf("got %v", crasher.ExitReason())
		}
		if other.ExitReason() != vm.Normal {
			t.Fatalf("got %v", other.ExitReason())
		}
		if out := r.out.String(); out != "alive\n" {
			t.Fatalf("got %q", out)
		}
		if !strings.HasPrefix(stderr.String(), "process 1 crashed: ") {
			t.Fatalf("got %q", stderr.String())
		}
	})
}

func TestDeadlock(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{})
		main := r.runtime.Spawn(vm.Code(
			vm.OpReceive,
		))
		r.run(t)
		if exited(main) {
			t.Fatal("should be blocked")
		}
		if main.State() != StateWaiting {
			t.Fatalf("got %v", main.State())
		}
	})
}

func TestExternalSend(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{})
		main := r.runtime.Spawn(vm.Code(
			vm.OpReceive,
			vm.OpPrint,
		))
		if !r.runtime.Send(main.PID, Data{Value: vm.Str("hello")}) {
			t.Fatal("send failed")
		}
		r.run(t)
		if out := r.out.String(); out != "hello\n" {
			t.Fatalf("got %q", out)
		}
		if r.runtime.Send(main.PID, Data{Value: vm.Str("again")}) {
			t.Fatal("send to exited process should fail")
		}
	})
}

func TestExternalSignal(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{})
		main := r.runtime.Spawn(vm.Code(
			vm.OpReceive,
			vm.OpDup,
			vm.OpPrint,
			push(vm.Str("hup")),
			vm.OpEq,
			vm.OpPrint,
		))
		if !r.runtime.Send(main.PID, Signal{Name: "hup"}) {
			t.Fatal("send failed")
		}
		r.run(t)
		if out := r.out.String(); out != "hup\ntrue\n" {
			t.Fatalf("got %q", out)
		}
	})
}

func TestIO(t *testing.T) {
	r := newTestRun(NewSingleScheduler(), Options{
		IO: vm.IOFunc(func(ctx context.Context, name string, args []vm.Value) (vm.Value, error) {
			if name != "double" {
				return nil, errors.New("unknown")
			}
			return vm.Int(args[0].(vm.Int) * 2), nil
		}),
	})
	r.runtime.Spawn(vm.Code(
		push(vm.Int(21)),
		vm.Instr{Op: vm.OpIO, Name: "double", N: 1},
		vm.OpPrint,
	))
	r.run(t)
	if out := r.out.String(); out != "42\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRegistryScenario(t *testing.T) {
	eachScheduler(t, func(t *testing.T, newScheduler func() Scheduler) {
		r := newTestRun(newScheduler(), Options{
			Programs: programs.Library{
				"svc": vm.Code(
					vm.OpRegister.Named("svc"),
					vm.OpPop,
					push(vm.Str("ready")),
					vm.OpSend.With(vm.PID(1)),
					vm.OpReceive,
					vm.OpPop,
					vm.OpHalt,
				),
			},
		})
		r.runtime.Spawn(vm.Code(
			push(vm.Str("svc")),
			vm.OpSpawn,
			vm.OpStore.Named("s"),
			vm.OpLoad.Named("s"),
			vm.OpMonitor,
			vm.OpPop,
			vm.OpReceive,
			vm.OpPop,
			vm.OpWhereis.Named("svc"),
			vm.OpLoad.Named("s"),
			vm.OpEq,
			vm.OpPrint,
			push(vm.Str("stop")),
			vm.OpSendNamed.Named("svc"),
			vm.OpReceive,
			vm.OpPop,
			vm.OpWhereis.Named("svc"),
			vm.OpPrint,
			vm.OpHalt,
		))
		r.run(t)
		if out := r.out.String(); out != "true\nnull\n" {
			t.Fatalf("got %q", out)
		}
		if _, ok := r.runtime.Registry().Whereis("svc"); ok {
			t.Fatal("name should be released")
		}
	})
}
