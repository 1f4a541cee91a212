package actors

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reusee/tvm/vm"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Lines() []string {
	return strings.Fields(b.String())
}

// eachScheduler runs fn once per scheduler implementation.
func eachScheduler(t *testing.T, fn func(t *testing.T, newScheduler func() Scheduler)) {
	t.Run("single", func(t *testing.T) {
		fn(t, func() Scheduler {
			return NewSingleScheduler()
		})
	})
	t.Run("pool", func(t *testing.T) {
		fn(t, func() Scheduler {
			return NewPool(4)
		})
	})
}

type testRun struct {
	runtime *Runtime
	out     *syncBuffer
}

func newTestRun(scheduler Scheduler, opts Options) *testRun {
	out := new(syncBuffer)
	opts.Stdout = out
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	return &testRun{
		runtime: NewRuntime(scheduler, opts),
		out:     out,
	}
}

func (r *testRun) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.runtime.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func exited(p *Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

func push(v vm.Value) vm.Instr {
	return vm.OpPush.With(v)
}
