package actors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reusee/tvm/vm"
)

func TestPoolManyProcesses(t *testing.T) {
	pool := NewPool(4)
	r := newTestRun(pool, Options{
		Budget: 3,
	})
	var procs []*Process
	for range 100 {
		procs = append(procs, r.runtime.Spawn(vm.Code(
			push(vm.Int(0)),
			vm.OpStore.Named("i"),
			// 2
			vm.OpLoad.Named("i"),
			push(vm.Int(20)),
			vm.OpLt,
			vm.OpJz.At(11),
			vm.OpLoad.Named("i"),
			push(vm.Int(1)),
			vm.OpAdd,
			vm.OpStore.Named("i"),
			vm.OpJmp.At(2),
			// 11
			vm.OpLoad.Named("i"),
			vm.OpExit,
		)))
	}
	r.run(t)
	for _, p := range procs {
		if reason := p.ExitReason(); reason != vm.Int(20) {
			t.Fatalf("got %v", reason)
		}
	}
	var ticks uint64
	for _, w := range pool.workers {
		ticks += w.ticks.Load()
	}
	if ticks < 100 {
		t.Fatalf("got %d", ticks)
	}
	if n := r.runtime.NumProcesses(); n != 0 {
		t.Fatalf("got %d", n)
	}
}

func TestPoolCancel(t *testing.T) {
	pool := NewPool(2)
	r := newTestRun(pool, Options{})
	r.runtime.Spawn(vm.Code(
		vm.OpNop,
		vm.OpJmp.At(0),
	))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := r.runtime.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
}

func TestPoolEmpty(t *testing.T) {
	pool := NewPool(0)
	if pool.NumWorkers() != 1 {
		t.Fatalf("got %d", pool.NumWorkers())
	}
	if err := pool.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}
