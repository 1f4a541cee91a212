package cmds

import (
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	executor := NewExecutor()
	executor.Define("foo", Sub(map[string]*Command{
		"bar": Func(func() {
		}).Desc("BAR"),
		"baz": Sub(map[string]*Command{
			"qux": Func(func() {}).Desc("QUX"),
		}).Desc("BAZ"),
	}).Desc("FOO"))
	executor.PrintUsage()
}

func TestWriteUsage(t *testing.T) {
	executor := NewExecutor()
	executor.Define("run", Func(func(path string) {}).Desc("run programs"))
	executor.Define("-workers", Func(func(n int) {}).Desc("worker count"))
	buf := new(strings.Builder)
	executor.WriteUsage(buf)
	out := buf.String()
	if !strings.Contains(out, "run <string>\trun programs") {
		t.Fatalf("got %s", out)
	}
	if !strings.Contains(out, "-workers <int>\tworker count") {
		t.Fatalf("got %s", out)
	}
	if !strings.Contains(out, "-h (help, -help, --help)\tprint this usage") {
		t.Fatalf("got %s", out)
	}
}
