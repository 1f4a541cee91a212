package hostio

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/reusee/tvm/vm"
)

func readFile(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	path, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap(err)
	}
	return vm.Str(content), nil
}

func writeFile(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	path, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	content, err := data(args, 1)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, wrap(err)
	}
	return vm.Bool(true), nil
}

func appendFile(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	path, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	content, err := data(args, 1)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, wrap(err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return nil, wrap(err)
	}
	if err := f.Close(); err != nil {
		return nil, wrap(err)
	}
	return vm.Bool(true), nil
}

func fileExists(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	path, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return vm.Bool(false), nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return vm.Bool(true), nil
}

func fileSize(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	path, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, wrap(err)
	}
	return vm.Int(info.Size()), nil
}

func deleteFile(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	path, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, wrap(err)
	}
	return vm.Bool(true), nil
}

func listDir(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	path, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, wrap(err)
	}
	ret := make(vm.List, 0, len(entries))
	for _, entry := range entries {
		ret = append(ret, vm.Str(entry.Name()))
	}
	return ret, nil
}
