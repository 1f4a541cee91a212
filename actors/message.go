package actors

import (
	"github.com/reusee/tvm/vm"
)

type PID = vm.PID

// Message is the closed set of mailbox entries.
type Message interface {
	message()
}

type (
	Data struct {
		Value vm.Value
	}
	// Signal is sent by the embedding host, never by bytecode. RECEIVE
	// delivers it as its name.
	Signal struct {
		Name string
	}
	Exit struct {
		From   PID
		Reason vm.Value
	}
	Link struct {
		From PID
	}
	Unlink struct {
		From PID
	}
	Monitor struct {
		From PID
		Ref  string
	}
	Demonitor struct {
		From PID
		Ref  string
	}
	Down struct {
		PID    PID
		Ref    string
		Reason vm.Value
	}
	ChildExit struct {
		PID    PID
		Reason vm.Value
	}
)

func (Data) message()      {}
func (Signal) message()    {}
func (Exit) message()      {}
func (Link) message()      {}
func (Unlink) message()    {}
func (Monitor) message()   {}
func (Demonitor) message() {}
func (Down) message()      {}
func (ChildExit) message() {}

// isSystem reports whether msg is handled by the runtime rather than RECEIVE.
func isSystem(msg Message, trapExit bool) bool {
	switch msg.(type) {
	case Link, Unlink, Monitor, Demonitor, ChildExit:
		return true
	case Exit:
		return !trapExit
	}
	return false
}

// toValue renders a deliverable message for RECEIVE.
func toValue(msg Message) vm.Value {
	switch msg := msg.(type) {
	case Data:
		return vm.Clone(msg.Value)
	case Signal:
		return vm.Str(msg.Name)
	case Down:
		return vm.Object{
			"type":   vm.Str("down"),
			"pid":    msg.PID,
			"ref":    vm.Str(msg.Ref),
			"reason": vm.Clone(msg.Reason),
		}
	case Exit:
		return vm.Object{
			"type":   vm.Str("exit"),
			"from":   msg.From,
			"reason": vm.Clone(msg.Reason),
		}
	}
	return vm.Null{}
}

func isNormal(reason vm.Value) bool {
	return vm.Equal(reason, vm.Normal)
}
