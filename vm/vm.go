package vm

import (
	"context"
	"io"
	"os"
)

const (
	DefaultStackSize      = 1024
	DefaultStackLimit     = 1 << 16
	DefaultCallDepthLimit = 10000
)

type VM struct {
	Code  []Instr
	IP    int
	Stack []Value
	SP    int
	// return addresses
	Calls []int
	// variable frames, index 0 is the global frame
	Frames   []Frame
	Handlers []Handler
	// pending CAPTURE set consumed by MAKE_LAMBDA
	Captures map[string]Value

	// remaining reductions of the current slice, 0 means unbounded
	Budget     int
	Reductions uint64

	StackLimit     int
	CallDepthLimit int

	Context context.Context
	Host    Host
	IO      IO
	Stdout  io.Writer
}

type Frame map[string]Value

// Handler records the depths to restore when an exception is caught.
type Handler struct {
	CatchAddr  int
	StackSize  int
	CallDepth  int
	FrameDepth int
}

func NewVM(code []Instr) *VM {
	return &VM{
		Code:           code,
		Stack:          make([]Value, DefaultStackSize),
		Calls:          make([]int, 0, 64),
		Frames:         []Frame{make(Frame)},
		StackLimit:     DefaultStackLimit,
		CallDepthLimit: DefaultCallDepthLimit,
	}
}

func (v *VM) Get(name string) (Value, bool) {
	if len(v.Frames) == 0 {
		return nil, false
	}
	if val, ok := v.Frames[len(v.Frames)-1][name]; ok {
		return val, true
	}
	val, ok := v.Frames[0][name]
	return val, ok
}

// Def binds name in the global frame.
func (v *VM) Def(name string, val Value) {
	if len(v.Frames) == 0 {
		v.Frames = append(v.Frames, make(Frame))
	}
	v.Frames[0][name] = val
}

func (v *VM) Globals() Frame {
	if len(v.Frames) == 0 {
		return nil
	}
	return v.Frames[0]
}

func (v *VM) Locals() Frame {
	if len(v.Frames) == 0 {
		return nil
	}
	return v.Frames[len(v.Frames)-1]
}

// Operands returns the live part of the operand stack.
func (v *VM) Operands() []Value {
	return v.Stack[:v.SP]
}

func (v *VM) stdout() io.Writer {
	if v.Stdout == nil {
		return os.Stdout
	}
	return v.Stdout
}

func (v *VM) context() context.Context {
	if v.Context == nil {
		return context.Background()
	}
	return v.Context
}

func (v *VM) push(val Value) error {
	if v.StackLimit > 0 && v.SP >= v.StackLimit {
		return v.fault(StackOverflow, "operand stack exceeds %d", v.StackLimit)
	}
	if v.SP >= len(v.Stack) {
		if err := v.growStack(); err != nil {
			return err
		}
	}
	v.Stack[v.SP] = val
	v.SP++
	return nil
}

func (v *VM) growStack() error {
	if v.StackLimit > 0 && len(v.Stack) >= v.StackLimit {
		return v.fault(StackOverflow, "operand stack exceeds %d", v.StackLimit)
	}
	newCap := len(v.Stack) * 2
	if newCap == 0 {
		newCap = 8
	}
	if v.StackLimit > 0 {
		newCap = min(newCap, v.StackLimit)
	}
	newStack := make([]Value, newCap)
	copy(newStack, v.Stack)
	v.Stack = newStack
	return nil
}

func (v *VM) pop() (Value, error) {
	if v.SP <= 0 {
		return nil, v.fault(StackUnderflow, "pop from empty stack")
	}
	v.SP--
	val := v.Stack[v.SP]
	v.Stack[v.SP] = nil
	return val, nil
}

func (v *VM) peek() (Value, error) {
	if v.SP <= 0 {
		return nil, v.fault(StackUnderflow, "peek at empty stack")
	}
	return v.Stack[v.SP-1], nil
}

func (v *VM) pop2() (a, b Value, err error) {
	b, err = v.pop()
	if err != nil {
		return
	}
	a, err = v.pop()
	return
}

func (v *VM) drop(n int) {
	if n <= 0 {
		return
	}
	if n > v.SP {
		n = v.SP
	}
	start := v.SP - n
	for i := 0; i < n; i++ {
		v.Stack[start+i] = nil
	}
	v.SP = start
}

func (v *VM) popN(n int) ([]Value, error) {
	if n < 0 || n > v.SP {
		return nil, v.fault(StackUnderflow, "need %d operands, have %d", n, v.SP)
	}
	ret := make([]Value, n)
	copy(ret, v.Stack[v.SP-n:v.SP])
	v.drop(n)
	return ret, nil
}

func (v *VM) jumpTarget(addr int) error {
	if addr < 0 || addr > len(v.Code) {
		return v.fault(UnknownLabel, "address %d out of range", addr)
	}
	return nil
}

// enter pushes a call frame and binds params from the operand stack, last param on top.
func (v *VM) enter(addr int, params []string, captured map[string]Value) error {
	if err := v.jumpTarget(addr); err != nil {
		return err
	}
	if v.CallDepthLimit > 0 && len(v.Calls) >= v.CallDepthLimit {
		return v.fault(StackOverflow, "call depth exceeds %d", v.CallDepthLimit)
	}
	frame := make(Frame, len(params)+len(captured))
	for i := len(params) - 1; i >= 0; i-- {
		arg, err := v.pop()
		if err != nil {
			return err
		}
		frame[params[i]] = arg
	}
	for name, val := range captured {
		if _, ok := frame[name]; ok {
			continue
		}
		frame[name] = Clone(val)
	}
	v.Calls = append(v.Calls, v.IP)
	v.Frames = append(v.Frames, frame)
	v.IP = addr
	return nil
}

// Start calls the function at addr as the entry of the program, binding each param to null.
// RET from it runs off the end of code.
func (v *VM) Start(addr int, params []string, captured map[string]Value) error {
	v.IP = len(v.Code)
	for range params {
		if err := v.push(Null{}); err != nil {
			return err
		}
	}
	return v.enter(addr, params, captured)
}

func (v *VM) leave() error {
	if len(v.Calls) == 0 {
		return v.fault(CallStackUnderflow, "return without call")
	}
	if len(v.Frames) <= 1 {
		return v.fault(NoVariableScope, "no frame to pop")
	}
	addr := v.Calls[len(v.Calls)-1]
	v.Calls = v.Calls[:len(v.Calls)-1]
	v.Frames[len(v.Frames)-1] = nil
	v.Frames = v.Frames[:len(v.Frames)-1]
	v.IP = addr
	return nil
}

// throw dispatches val to the innermost handler. It reports false if none is active.
func (v *VM) throw(val Value) bool {
	if len(v.Handlers) == 0 {
		return false
	}
	h := v.Handlers[len(v.Handlers)-1]
	v.Handlers = v.Handlers[:len(v.Handlers)-1]
	if v.SP > h.StackSize {
		v.drop(v.SP - h.StackSize)
	}
	if len(v.Calls) > h.CallDepth {
		v.Calls = v.Calls[:h.CallDepth]
	}
	if len(v.Frames) > h.FrameDepth {
		clear(v.Frames[h.FrameDepth:])
		v.Frames = v.Frames[:h.FrameDepth]
	}
	if err := v.push(val); err != nil {
		return false
	}
	v.IP = h.CatchAddr
	return true
}

func (v *VM) trace() []int {
	ret := make([]int, 0, len(v.Calls)+1)
	ret = append(ret, v.IP-1)
	for i := len(v.Calls) - 1; i >= 0; i-- {
		ret = append(ret, v.Calls[i]-1)
	}
	return ret
}
