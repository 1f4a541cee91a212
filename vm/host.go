package vm

import "context"

// Host backs the concurrency opcodes. Every call is made from the goroutine running the VM.
type Host interface {
	Self() PID
	Spawn(target Value) (PID, error)
	Send(to PID, msg Value)
	SendNamed(name string, msg Value)
	Receive() (Value, bool)
	Register(name string) error
	Unregister(name string) bool
	Whereis(name string) (PID, bool)
	Link(pid PID) bool
	Unlink(pid PID)
	Monitor(pid PID) string
	Demonitor(ref string) bool
	TrapExit(on bool)
	StartSupervisor()
	SuperviseChild(name string, target Value, restart string) (PID, error)
	RestartChild(name string) (PID, bool, error)
	Breakpoint(v *VM)
}

// IO is the external collaborator behind the IO opcode.
type IO interface {
	Call(ctx context.Context, name string, args []Value) (Value, error)
}

type IOFunc func(ctx context.Context, name string, args []Value) (Value, error)

var _ IO = IOFunc(nil)

func (f IOFunc) Call(ctx context.Context, name string, args []Value) (Value, error) {
	return f(ctx, name, args)
}
