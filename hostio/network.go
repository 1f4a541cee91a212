package hostio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/reusee/tvm/vm"
)

func httpGet(i *IO, ctx context.Context, args []vm.Value) (vm.Value, error) {
	url, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrap(err)
	}
	return i.do(req)
}

func httpPost(i *IO, ctx context.Context, args []vm.Value) (vm.Value, error) {
	url, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	body, err := data(args, 1)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, wrap(err)
	}
	return i.do(req)
}

func (i *IO) do(req *http.Request) (vm.Value, error) {
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap(err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: %s", req.Method, req.URL, resp.Status)
	}
	return vm.Str(body), nil
}

func tcpConnect(i *IO, ctx context.Context, args []vm.Value) (vm.Value, error) {
	addr, err := str(args, 0)
	if err != nil {
		return nil, err
	}
	conn, err := i.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, wrap(err)
	}
	id := fmt.Sprintf("conn-%d", i.nextConn.Add(1))
	i.mu.Lock()
	i.conns[id] = conn
	i.mu.Unlock()
	return vm.Handle{
		Kind: vm.HandleConnection,
		ID:   id,
	}, nil
}

func (i *IO) conn(v vm.Value) (string, error) {
	handle, ok := v.(vm.Handle)
	if !ok || handle.Kind != vm.HandleConnection {
		return "", fmt.Errorf("%w: expected connection, got %s", ErrBadArgument, vm.TypeName(v))
	}
	return handle.ID, nil
}

func tcpSend(i *IO, ctx context.Context, args []vm.Value) (vm.Value, error) {
	id, err := i.conn(args[0])
	if err != nil {
		return nil, err
	}
	content, err := data(args, 1)
	if err != nil {
		return nil, err
	}
	i.mu.Lock()
	conn, ok := i.conns[id]
	i.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, id)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	n, err := conn.Write(content)
	if err != nil {
		return nil, wrap(err)
	}
	return vm.Int(n), nil
}

// tcpRecv reads at most n bytes. An empty string means the peer closed the connection.
func tcpRecv(i *IO, ctx context.Context, args []vm.Value) (vm.Value, error) {
	id, err := i.conn(args[0])
	if err != nil {
		return nil, err
	}
	n, err := integer(args, 1)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 4096
	}
	i.mu.Lock()
	conn, ok := i.conns[id]
	i.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, id)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	buf := make([]byte, n)
	read, err := conn.Read(buf)
	if err == io.EOF {
		return vm.Str(""), nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return vm.Str(buf[:read]), nil
}

func tcpClose(i *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	id, err := i.conn(args[0])
	if err != nil {
		return nil, err
	}
	i.mu.Lock()
	conn, ok := i.conns[id]
	delete(i.conns, id)
	i.mu.Unlock()
	if !ok {
		return vm.Bool(false), nil
	}
	if err := conn.Close(); err != nil {
		return nil, wrap(err)
	}
	return vm.Bool(true), nil
}
