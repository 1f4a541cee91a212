package configs

import (
	"errors"
	"fmt"
	"testing"
)

var testSchema = `
scheduler?: "single" | "pool"
budgets?: [...int]
max_restarts?: int
`

func TestLoaderAssignFirst(t *testing.T) {
	loader := NewLoader([]string{"test.cue"}, testSchema)

	var scheduler string
	err := loader.AssignFirst("scheduler", &scheduler)
	if err != nil {
		t.Fatal(err)
	}
	if scheduler != "pool" {
		t.Fatalf("got %q", scheduler)
	}

	var budgets []int
	err = loader.AssignFirst("budgets", &budgets)
	if err != nil {
		t.Fatal(err)
	}
	if str := fmt.Sprintf("%v", budgets); str != "[1 2 3]" {
		t.Fatalf("got %s", str)
	}

	err = loader.AssignFirst("not", &budgets)
	if !errors.Is(err, ErrValueNotFound) {
		t.Fatalf("got %v", err)
	}

}

func TestLoaderIterCueValues(t *testing.T) {
	loader := NewLoader([]string{
		"test.cue",
		"test2.cue",
	}, testSchema)

	var strs []string
	for value, err := range loader.IterCueValues("scheduler") {
		if err != nil {
			t.Fatal(err)
		}
		var s string
		if err := value.Decode(&s); err != nil {
			t.Fatal(err)
		}
		strs = append(strs, s)
	}
	if str := fmt.Sprintf("%v", strs); str != "[pool single]" {
		t.Fatalf("got %q", str)
	}

}

func TestUnknownField(t *testing.T) {
	loader := NewLoader([]string{
		"bad.cue",
	}, testSchema)
	var str string
	err := loader.AssignFirst("unknown_field", &str)
	if err == nil {
		t.Fatal("should error")
	}
	t.Logf("%v", err)
}

func TestLookup(t *testing.T) {
	loader := NewLoader([]string{"test.cue"}, testSchema)

	n, ok := Lookup[int](loader, "max_restarts")
	if !ok {
		t.Fatal("should exist")
	}
	if n != 0 {
		t.Fatalf("got %d", n)
	}

	_, ok = Lookup[int](loader, "workers")
	if ok {
		t.Fatal("should not exist")
	}
}
