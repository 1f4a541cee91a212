package actors

import (
	"testing"

	"github.com/reusee/tvm/vm"
)

func TestMailbox(t *testing.T) {
	var m Mailbox
	if !m.Park() {
		t.Fatal("empty mailbox should park")
	}
	ok, wake := m.Push(Data{Value: vm.Int(1)})
	if !ok || !wake {
		t.Fatalf("got %v %v", ok, wake)
	}
	ok, wake = m.Push(Link{From: 2})
	if !ok || wake {
		t.Fatalf("got %v %v", ok, wake)
	}
	m.Push(Data{Value: vm.Int(3)})
	if m.Park() {
		t.Fatal("non-empty mailbox should not park")
	}

	signals := m.Take(func(msg Message) bool {
		return isSystem(msg, false)
	})
	if len(signals) != 1 || signals[0] != (Link{From: 2}) {
		t.Fatalf("got %v", signals)
	}
	msg, ok := m.Pop(func(Message) bool {
		return true
	})
	if !ok || msg.(Data).Value != vm.Int(1) {
		t.Fatalf("got %v", msg)
	}
	if m.Len() != 1 {
		t.Fatalf("got %d", m.Len())
	}

	left := m.Close()
	if len(left) != 1 {
		t.Fatalf("got %v", left)
	}
	if ok, _ := m.Push(Data{}); ok {
		t.Fatal("closed mailbox accepted a message")
	}
	if m.Park() {
		t.Fatal("closed mailbox should not park")
	}
}

func TestSystemMessages(t *testing.T) {
	exit := Exit{From: 1, Reason: vm.Str("boom")}
	if !isSystem(exit, false) {
		t.Fatal()
	}
	if isSystem(exit, true) {
		t.Fatal()
	}
	if isSystem(Down{}, false) {
		t.Fatal()
	}
	v := toValue(exit)
	if !vm.Equal(v, vm.Object{
		"type":   vm.Str("exit"),
		"from":   vm.PID(1),
		"reason": vm.Str("boom"),
	}) {
		t.Fatalf("got %v", v)
	}
	if toValue(Signal{Name: "hup"}) != vm.Str("hup") {
		t.Fatal()
	}
}
