package hostio

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/reusee/tvm/vm"
)

func call(t *testing.T, i *IO, name string, args ...vm.Value) vm.Value {
	t.Helper()
	ret, err := i.Call(context.Background(), name, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return ret
}

func TestFiles(t *testing.T) {
	i := New(Options{})
	path := vm.Str(filepath.Join(t.TempDir(), "foo"))

	if ret := call(t, i, "file_exists", path); ret != vm.Bool(false) {
		t.Fatalf("got %v", ret)
	}
	call(t, i, "write_file", path, vm.Str("foo"))
	call(t, i, "append_file", path, vm.Bytes("bar"))
	if ret := call(t, i, "read_file", path); ret != vm.Str("foobar") {
		t.Fatalf("got %v", ret)
	}
	if ret := call(t, i, "file_size", path); ret != vm.Int(6) {
		t.Fatalf("got %v", ret)
	}
	if ret := call(t, i, "file_exists", path); ret != vm.Bool(true) {
		t.Fatalf("got %v", ret)
	}
	list := call(t, i, "list_dir", vm.Str(filepath.Dir(string(path))))
	if !vm.Equal(list, vm.List{vm.Str("foo")}) {
		t.Fatalf("got %v", list)
	}
	call(t, i, "delete_file", path)
	if ret := call(t, i, "file_exists", path); ret != vm.Bool(false) {
		t.Fatalf("got %v", ret)
	}
	if _, err := i.Call(context.Background(), "read_file", []vm.Value{path}); err == nil {
		t.Fatal("expected error")
	}
}

func TestArguments(t *testing.T) {
	i := New(Options{})
	_, err := i.Call(context.Background(), "nope", nil)
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("got %v", err)
	}
	_, err = i.Call(context.Background(), "read_file", nil)
	if !errors.Is(err, ErrBadArgument) {
		t.Fatalf("got %v", err)
	}
	_, err = i.Call(context.Background(), "read_file", []vm.Value{vm.Int(1)})
	if !errors.Is(err, ErrBadArgument) {
		t.Fatalf("got %v", err)
	}
}

func TestEnvAndTime(t *testing.T) {
	i := New(Options{})
	t.Setenv("TVM_HOSTIO_TEST", "")
	call(t, i, "set_env", vm.Str("TVM_HOSTIO_TEST"), vm.Str("42"))
	if ret := call(t, i, "get_env", vm.Str("TVM_HOSTIO_TEST")); ret != vm.Str("42") {
		t.Fatalf("got %v", ret)
	}
	if ret := call(t, i, "get_env", vm.Str("TVM_HOSTIO_NOT_SET")); ret != (vm.Null{}) {
		t.Fatalf("got %v", ret)
	}
	now, ok := call(t, i, "get_time").(vm.Int)
	if !ok || now <= 0 {
		t.Fatalf("got %v", now)
	}
	if ret := call(t, i, "format_time", vm.Int(0), vm.Str("")); ret != vm.Str("1970-01-01T00:00:00Z") {
		t.Fatalf("got %v", ret)
	}
	call(t, i, "sleep", vm.Int(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := i.Call(ctx, "sleep", []vm.Value{vm.Int(10000)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestJSON(t *testing.T) {
	i := New(Options{})
	v := call(t, i, "json_parse", vm.Str(`{"a": [1, 2.5, "x", true, null], "b": {"c": 3}}`))
	expected := vm.Object{
		"a": vm.List{vm.Int(1), vm.Float(2.5), vm.Str("x"), vm.Bool(true), vm.Null{}},
		"b": vm.Object{"c": vm.Int(3)},
	}
	if !vm.Equal(v, expected) {
		t.Fatalf("got %v", v)
	}
	text := call(t, i, "json_stringify", vm.Object{
		"b": vm.List{vm.Int(1), vm.Null{}},
		"a": vm.Str("x"),
	})
	if text != vm.Str(`{"a":"x","b":[1,null]}`) {
		t.Fatalf("got %v", text)
	}
	if _, err := i.Call(context.Background(), "json_parse", []vm.Value{vm.Str("{")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestHash(t *testing.T) {
	i := New(Options{})
	ret := call(t, i, "hash", vm.Str("abc"))
	if ret != vm.Str("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad") {
		t.Fatalf("got %v", ret)
	}
}

func TestHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			io.Copy(w, r.Body)
		case "/hello":
			w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	i := New(Options{
		HTTPClient: server.Client(),
	})
	if ret := call(t, i, "http_get", vm.Str(server.URL+"/hello")); ret != vm.Str("hello") {
		t.Fatalf("got %v", ret)
	}
	if ret := call(t, i, "http_post", vm.Str(server.URL+"/echo"), vm.Str("ping")); ret != vm.Str("ping") {
		t.Fatalf("got %v", ret)
	}
	if _, err := i.Call(context.Background(), "http_get", []vm.Value{vm.Str(server.URL + "/missing")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		n, _ := io.ReadFull(conn, buf)
		conn.Write(buf[:n])
	}()

	i := New(Options{
		Concurrency: 1,
	})
	defer i.Close()
	handle := call(t, i, "tcp_connect", vm.Str(ln.Addr().String()))
	if h, ok := handle.(vm.Handle); !ok || h.Kind != vm.HandleConnection {
		t.Fatalf("got %v", handle)
	}
	if ret := call(t, i, "tcp_send", handle, vm.Str("ping")); ret != vm.Int(4) {
		t.Fatalf("got %v", ret)
	}
	if ret := call(t, i, "tcp_recv", handle, vm.Int(4)); ret != vm.Str("ping") {
		t.Fatalf("got %v", ret)
	}
	if ret := call(t, i, "tcp_close", handle); ret != vm.Bool(true) {
		t.Fatalf("got %v", ret)
	}
	if ret := call(t, i, "tcp_close", handle); ret != vm.Bool(false) {
		t.Fatalf("got %v", ret)
	}
	if _, err := i.Call(context.Background(), "tcp_send", []vm.Value{handle, vm.Str("x")}); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("got %v", err)
	}
}
