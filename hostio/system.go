package hostio

import (
	"context"
	"os"
	"time"

	"github.com/reusee/tvm/vm"
)

func getEnv(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	name, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	value, ok := os.LookupEnv(name)
	if !ok {
		return vm.Null{}, nil
	}
	return vm.Str(value), nil
}

func setEnv(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	name, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	value, err := str(args, 1)
	if err != nil {
		return nil, err
	}
	if err := os.Setenv(name, value); err != nil {
		return nil, wrap(err)
	}
	return vm.Bool(true), nil
}

// getTime returns unix milliseconds.
func getTime(_ *IO, _ context.Context, _ []vm.Value) (vm.Value, error) {
	return vm.Int(time.Now().UnixMilli()), nil
}

// formatTime formats unix milliseconds with a Go layout, RFC3339 if the layout is empty.
func formatTime(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	ms, err := integer(args, 0)
	if err != nil {
		return nil, err
	}
	layout, err := str(args, 1)
	if err != nil {
		return nil, err
	}
	if layout == "" {
		layout = time.RFC3339
	}
	return vm.Str(time.UnixMilli(ms).UTC().Format(layout)), nil
}

// sleep blocks the calling worker for the given milliseconds.
func sleep(_ *IO, ctx context.Context, args []vm.Value) (vm.Value, error) {
	ms, err := integer(args, 0)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return vm.Null{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
