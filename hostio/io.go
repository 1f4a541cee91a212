package hostio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/reusee/tvm/nets"
	"github.com/reusee/tvm/syncs"
	"github.com/reusee/tvm/vm"
)

var (
	ErrUnknownOperation = errors.New("unknown io operation")
	ErrBadArgument      = errors.New("bad argument")
	ErrUnknownHandle    = errors.New("unknown handle")
)

type Options struct {
	HTTPClient *http.Client
	Dialer     nets.Dialer
	// bound of in-flight network operations
	Concurrency int
	Logger      *slog.Logger
}

// IO implements vm.IO over the local filesystem, environment, clock and network.
type IO struct {
	client *http.Client
	dialer nets.Dialer
	sem    syncs.Semaphore
	logger *slog.Logger

	nextConn atomic.Uint64
	mu       sync.Mutex
	conns    map[string]net.Conn
}

var _ vm.IO = new(IO)

type operation func(io *IO, ctx context.Context, args []vm.Value) (vm.Value, error)

type opSpec struct {
	arity   int
	network bool
	fn      operation
}

var operations = map[string]opSpec{
	"read_file":      {1, false, readFile},
	"write_file":     {2, false, writeFile},
	"append_file":    {2, false, appendFile},
	"file_exists":    {1, false, fileExists},
	"file_size":      {1, false, fileSize},
	"delete_file":    {1, false, deleteFile},
	"list_dir":       {1, false, listDir},
	"get_env":        {1, false, getEnv},
	"set_env":        {2, false, setEnv},
	"get_time":       {0, false, getTime},
	"format_time":    {2, false, formatTime},
	"sleep":          {1, false, sleep},
	"http_get":       {1, true, httpGet},
	"http_post":      {2, true, httpPost},
	"tcp_connect":    {1, true, tcpConnect},
	"tcp_send":       {2, true, tcpSend},
	"tcp_recv":       {2, true, tcpRecv},
	"tcp_close":      {1, false, tcpClose},
	"json_parse":     {1, false, jsonParse},
	"json_stringify": {1, false, jsonStringify},
	"hash":           {1, false, hash},
}

func New(opts Options) *IO {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	dialer := opts.Dialer
	if dialer == nil {
		var direct net.Dialer
		dialer = nets.DialerFunc(direct.DialContext)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IO{
		client: client,
		dialer: dialer,
		sem:    syncs.NewSemaphore(concurrency),
		logger: logger,
		conns:  make(map[string]net.Conn),
	}
}

// Operations lists the supported operation names.
func Operations() []string {
	ret := make([]string, 0, len(operations))
	for name := range operations {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (i *IO) Call(ctx context.Context, name string, args []vm.Value) (vm.Value, error) {
	spec, ok := operations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	if len(args) != spec.arity {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrBadArgument, name, spec.arity, len(args))
	}
	if spec.network {
		if err := i.sem.AcquireContext(ctx); err != nil {
			return nil, err
		}
		defer i.sem.Release()
	}
	i.logger.DebugContext(ctx, "io", "op", name)
	return spec.fn(i, ctx, args)
}

// Close closes every open connection.
func (i *IO) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	var errs []error
	for id, conn := range i.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(i.conns, id)
	}
	return errors.Join(errs...)
}

func str(args []vm.Value, i int) (string, error) {
	switch v := args[i].(type) {
	case vm.Str:
		return string(v), nil
	case vm.Bytes:
		return string(v), nil
	}
	return "", fmt.Errorf("%w: argument %d: expected string, got %s", ErrBadArgument, i, vm.TypeName(args[i]))
}

func integer(args []vm.Value, i int) (int64, error) {
	switch v := args[i].(type) {
	case vm.Int:
		return int64(v), nil
	case vm.Float:
		return int64(v), nil
	}
	return 0, fmt.Errorf("%w: argument %d: expected int, got %s", ErrBadArgument, i, vm.TypeName(args[i]))
}

func data(args []vm.Value, i int) ([]byte, error) {
	switch v := args[i].(type) {
	case vm.Str:
		return []byte(v), nil
	case vm.Bytes:
		return v, nil
	}
	return nil, fmt.Errorf("%w: argument %d: expected string or bytes, got %s", ErrBadArgument, i, vm.TypeName(args[i]))
}
