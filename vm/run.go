package vm

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

func (v *VM) Run(yield func(*Interrupt, error) bool) {
	for {
		if v.IP < 0 || v.IP >= len(v.Code) {
			yield(InterruptExit(Normal), nil)
			return
		}

		inst := v.Code[v.IP]
		v.IP++
		v.Reductions++

		intr, err := v.step(inst)
		if err != nil {
			var val Value
			var uncaught *Uncaught
			var vmErr *Error
			switch {
			case errors.As(err, &uncaught):
				val = uncaught.Reason
			case errors.As(err, &vmErr):
				exc := vmErr.Exception()
				exc.Trace = v.trace()
				val = exc
			default:
				val = Exception{
					Kind:    RuntimeError.String(),
					Message: err.Error(),
					Trace:   v.trace(),
				}
			}
			if !v.throw(val) {
				yield(nil, &Uncaught{Reason: val})
				return
			}
			continue
		}

		if intr != nil {
			if !yield(intr, nil) {
				return
			}
			if intr.Exit {
				return
			}
			continue
		}

		if v.Budget > 0 {
			v.Budget--
			if v.Budget == 0 {
				if !yield(InterruptPreempt, nil) {
					return
				}
			}
		}
	}
}

func (v *VM) step(inst Instr) (*Interrupt, error) {
	switch inst.Op {

	case OpNop, OpCatch:

	case OpPush:
		arg := inst.Arg
		if arg == nil {
			arg = Null{}
		}
		return nil, v.push(Clone(arg))

	case OpPop:
		_, err := v.pop()
		return nil, err

	case OpDup:
		val, err := v.peek()
		if err != nil {
			return nil, err
		}
		return nil, v.push(Clone(val))

	case OpSwap:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		if err := v.push(b); err != nil {
			return nil, err
		}
		return nil, v.push(a)

	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		res, err := v.arith(inst.Op, a, b)
		if err != nil {
			return nil, err
		}
		return nil, v.push(res)

	case OpNeg:
		a, err := v.pop()
		if err != nil {
			return nil, err
		}
		switch a := a.(type) {
		case Int:
			return nil, v.push(-a)
		case Float:
			return nil, v.push(-a)
		}
		return nil, v.fault(TypeMismatch, "cannot negate %s", TypeName(a))

	case OpConcat:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		switch a := a.(type) {
		case List:
			if b, ok := b.(List); ok {
				return nil, v.push(append(a, b...))
			}
		case Bytes:
			if b, ok := b.(Bytes); ok {
				return nil, v.push(append(a, b...))
			}
		}
		return nil, v.push(Str(a.String() + b.String()))

	case OpEq:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		return nil, v.push(Bool(Equal(a, b)))

	case OpNe:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		return nil, v.push(Bool(!Equal(a, b)))

	case OpLt, OpLe, OpGt, OpGe:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		c, err := v.compare(a, b)
		if err != nil {
			return nil, err
		}
		var res bool
		switch inst.Op {
		case OpLt:
			res = c < 0
		case OpLe:
			res = c <= 0
		case OpGt:
			res = c > 0
		case OpGe:
			res = c >= 0
		}
		return nil, v.push(Bool(res))

	case OpNot:
		a, err := v.pop()
		if err != nil {
			return nil, err
		}
		return nil, v.push(Bool(!Truthy(a)))

	case OpAnd:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		return nil, v.push(Bool(Truthy(a) && Truthy(b)))

	case OpOr:
		a, b, err := v.pop2()
		if err != nil {
			return nil, err
		}
		return nil, v.push(Bool(Truthy(a) || Truthy(b)))

	case OpJmp:
		if err := v.jumpTarget(inst.Addr); err != nil {
			return nil, err
		}
		v.IP = inst.Addr

	case OpJz, OpJnz:
		cond, err := v.pop()
		if err != nil {
			return nil, err
		}
		if Truthy(cond) == (inst.Op == OpJnz) {
			if err := v.jumpTarget(inst.Addr); err != nil {
				return nil, err
			}
			v.IP = inst.Addr
		}

	case OpCall:
		return nil, v.enter(inst.Addr, inst.Params, nil)

	case OpRet:
		return nil, v.leave()

	case OpStore:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		if len(v.Frames) == 0 {
			return nil, v.fault(NoVariableScope, "store %s", inst.Name)
		}
		v.Frames[len(v.Frames)-1][inst.Name] = val

	case OpLoad:
		val, ok := v.Get(inst.Name)
		if !ok {
			return nil, v.fault(UndefinedVariable, "%s", inst.Name)
		}
		return nil, v.push(Clone(val))

	case OpDelete:
		if len(v.Frames) == 0 {
			return nil, v.fault(NoVariableScope, "delete %s", inst.Name)
		}
		frame := v.Frames[len(v.Frames)-1]
		if _, ok := frame[inst.Name]; !ok {
			return nil, v.fault(UndefinedVariable, "%s", inst.Name)
		}
		delete(frame, inst.Name)

	case OpMakeList:
		elems, err := v.popN(inst.N)
		if err != nil {
			return nil, err
		}
		return nil, v.push(List(elems))

	case OpLen:
		a, err := v.pop()
		if err != nil {
			return nil, err
		}
		switch a := a.(type) {
		case List:
			return nil, v.push(Int(len(a)))
		case Str:
			return nil, v.push(Int(len(a)))
		case Object:
			return nil, v.push(Int(len(a)))
		case Bytes:
			return nil, v.push(Int(len(a)))
		}
		return nil, v.fault(TypeMismatch, "len of %s", TypeName(a))

	case OpIndex:
		container, index, err := v.pop2()
		if err != nil {
			return nil, err
		}
		res, err := v.index(container, index)
		if err != nil {
			return nil, err
		}
		return nil, v.push(res)

	case OpAppend:
		list, elem, err := v.pop2()
		if err != nil {
			return nil, err
		}
		l, ok := list.(List)
		if !ok {
			return nil, v.fault(TypeMismatch, "append to %s", TypeName(list))
		}
		return nil, v.push(append(l, elem))

	case OpMakeObject:
		return nil, v.push(Object{})

	case OpSetField:
		target, val, err := v.pop2()
		if err != nil {
			return nil, err
		}
		obj, ok := target.(Object)
		if !ok {
			return nil, v.fault(TypeMismatch, "set field %s on %s", inst.Name, TypeName(target))
		}
		if obj == nil {
			obj = Object{}
		}
		obj[inst.Name] = val
		return nil, v.push(obj)

	case OpGetField:
		target, err := v.pop()
		if err != nil {
			return nil, err
		}
		obj, ok := target.(Object)
		if !ok {
			return nil, v.fault(TypeMismatch, "get field %s on %s", inst.Name, TypeName(target))
		}
		val, ok := obj[inst.Name]
		if !ok {
			val = Null{}
		}
		return nil, v.push(val)

	case OpHasField:
		target, err := v.pop()
		if err != nil {
			return nil, err
		}
		obj, ok := target.(Object)
		if !ok {
			return nil, v.fault(TypeMismatch, "has field %s on %s", inst.Name, TypeName(target))
		}
		_, has := obj[inst.Name]
		return nil, v.push(Bool(has))

	case OpDeleteField:
		target, err := v.pop()
		if err != nil {
			return nil, err
		}
		obj, ok := target.(Object)
		if !ok {
			return nil, v.fault(TypeMismatch, "delete field %s on %s", inst.Name, TypeName(target))
		}
		delete(obj, inst.Name)
		return nil, v.push(obj)

	case OpKeys:
		target, err := v.pop()
		if err != nil {
			return nil, err
		}
		obj, ok := target.(Object)
		if !ok {
			return nil, v.fault(TypeMismatch, "keys of %s", TypeName(target))
		}
		keys := obj.Keys()
		list := make(List, len(keys))
		for i, key := range keys {
			list[i] = Str(key)
		}
		return nil, v.push(list)

	case OpMakeFunction:
		if err := v.jumpTarget(inst.Addr); err != nil {
			return nil, err
		}
		return nil, v.push(Function{
			Addr:   inst.Addr,
			Params: inst.Params,
		})

	case OpCallFunction:
		callee, err := v.pop()
		if err != nil {
			return nil, err
		}
		switch fn := callee.(type) {
		case Function:
			return nil, v.enter(fn.Addr, fn.Params, nil)
		case Closure:
			return nil, v.enter(fn.Addr, fn.Params, fn.Captured)
		}
		return nil, v.fault(TypeMismatch, "call %s", TypeName(callee))

	case OpCapture:
		val, ok := v.Get(inst.Name)
		if !ok {
			return nil, v.fault(UndefinedVariable, "capture %s", inst.Name)
		}
		if v.Captures == nil {
			v.Captures = make(map[string]Value)
		}
		v.Captures[inst.Name] = Clone(val)

	case OpMakeLambda:
		if err := v.jumpTarget(inst.Addr); err != nil {
			return nil, err
		}
		captured := v.Captures
		v.Captures = nil
		if captured == nil {
			captured = map[string]Value{}
		}
		return nil, v.push(Closure{
			Addr:     inst.Addr,
			Params:   inst.Params,
			Captured: captured,
		})

	case OpTry:
		if err := v.jumpTarget(inst.Addr); err != nil {
			return nil, err
		}
		v.Handlers = append(v.Handlers, Handler{
			CatchAddr:  inst.Addr,
			StackSize:  v.SP,
			CallDepth:  len(v.Calls),
			FrameDepth: len(v.Frames),
		})

	case OpThrow:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		return nil, &Uncaught{Reason: val}

	case OpEndTry:
		if len(v.Handlers) == 0 {
			return nil, v.fault(RuntimeError, "no active handler")
		}
		v.Handlers = v.Handlers[:len(v.Handlers)-1]

	case OpPrint:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(v.stdout(), val.String()); err != nil {
			return nil, err
		}

	case OpDumpScope:
		if _, err := fmt.Fprintln(v.stdout(), v.DumpScope()); err != nil {
			return nil, err
		}

	case OpBreakpoint:
		if v.Host != nil {
			v.Host.Breakpoint(v)
		}

	case OpIO:
		if v.IO == nil {
			return nil, v.fault(RuntimeError, "io %s: no io collaborator", inst.Name)
		}
		args, err := v.popN(inst.N)
		if err != nil {
			return nil, err
		}
		res, err := v.IO.Call(v.context(), inst.Name, args)
		if err != nil {
			return nil, v.fault(RuntimeError, "io %s: %v", inst.Name, err)
		}
		if res == nil {
			res = Null{}
		}
		return nil, v.push(res)

	case OpHalt:
		return InterruptExit(Normal), nil

	case OpExit:
		reason, err := v.pop()
		if err != nil {
			return nil, err
		}
		return InterruptExit(reason), nil

	default:
		return v.stepHost(inst)
	}

	return nil, nil
}

func (v *VM) arith(op OpCode, a, b Value) (Value, error) {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			switch op {
			case OpAdd:
				return a + b, nil
			case OpSub:
				return a - b, nil
			case OpMul:
				return a * b, nil
			case OpDiv:
				if b == 0 {
					return nil, v.fault(DivisionByZero, "%d / 0", a)
				}
				return a / b, nil
			case OpMod:
				if b == 0 {
					return nil, v.fault(DivisionByZero, "%d %% 0", a)
				}
				return a % b, nil
			}
		case Float:
			return v.floatArith(op, Float(a), b)
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return v.floatArith(op, a, Float(b))
		case Float:
			return v.floatArith(op, a, b)
		}
	}
	return nil, v.fault(TypeMismatch, "%s %s %s", TypeName(a), op, TypeName(b))
}

func (v *VM) floatArith(op OpCode, a, b Float) (Value, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return nil, v.fault(DivisionByZero, "%v / 0", a)
		}
		return a / b, nil
	case OpMod:
		if b == 0 {
			return nil, v.fault(DivisionByZero, "%v %% 0", a)
		}
		return Float(math.Mod(float64(a), float64(b))), nil
	}
	return nil, v.fault(TypeMismatch, "float %s", op)
}

func (v *VM) compare(a, b Value) (int, error) {
	toFloat := func(x Value) (float64, bool) {
		switch x := x.(type) {
		case Int:
			return float64(x), true
		case Float:
			return float64(x), true
		}
		return 0, false
	}
	if ai, ok := a.(Int); ok {
		if bi, ok := b.(Int); ok {
			switch {
			case ai < bi:
				return -1, nil
			case ai > bi:
				return 1, nil
			}
			return 0, nil
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if as, ok := a.(Str); ok {
		if bs, ok := b.(Str); ok {
			return strings.Compare(string(as), string(bs)), nil
		}
	}
	return 0, v.fault(TypeMismatch, "compare %s with %s", TypeName(a), TypeName(b))
}

func (v *VM) index(container, index Value) (Value, error) {
	switch c := container.(type) {
	case List:
		i, ok := index.(Int)
		if !ok {
			return nil, v.fault(TypeMismatch, "list index %s", TypeName(index))
		}
		if i < 0 || int(i) >= len(c) {
			return nil, v.fault(IndexOutOfBounds, "index %d of list length %d", i, len(c))
		}
		return c[i], nil
	case Str:
		i, ok := index.(Int)
		if !ok {
			return nil, v.fault(TypeMismatch, "string index %s", TypeName(index))
		}
		if i < 0 || int(i) >= len(c) {
			return nil, v.fault(IndexOutOfBounds, "index %d of string length %d", i, len(c))
		}
		return c[i : i+1], nil
	case Bytes:
		i, ok := index.(Int)
		if !ok {
			return nil, v.fault(TypeMismatch, "bytes index %s", TypeName(index))
		}
		if i < 0 || int(i) >= len(c) {
			return nil, v.fault(IndexOutOfBounds, "index %d of bytes length %d", i, len(c))
		}
		return Int(c[i]), nil
	case Object:
		key, ok := index.(Str)
		if !ok {
			return nil, v.fault(TypeMismatch, "object key %s", TypeName(index))
		}
		val, ok := c[string(key)]
		if !ok {
			return Null{}, nil
		}
		return val, nil
	}
	return nil, v.fault(TypeMismatch, "index into %s", TypeName(container))
}

// DumpScope renders the current frame and the global frame.
func (v *VM) DumpScope() string {
	var b strings.Builder
	depth := len(v.Frames) - 1
	fmt.Fprintf(&b, "scope depth=%d", depth)
	if depth > 0 {
		b.WriteString(" locals=")
		b.WriteString(Object(v.Locals()).String())
	}
	b.WriteString(" globals=")
	b.WriteString(Object(v.Globals()).String())
	return b.String()
}
