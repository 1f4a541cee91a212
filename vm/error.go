package vm

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	StackUnderflow ErrorKind = iota + 1
	StackOverflow
	TypeMismatch
	UndefinedVariable
	IndexOutOfBounds
	CallStackUnderflow
	UnknownLabel
	NoVariableScope
	DivisionByZero
	RuntimeError
)

func (k ErrorKind) String() string {
	switch k {
	case StackUnderflow:
		return "StackUnderflow"
	case StackOverflow:
		return "StackOverflow"
	case TypeMismatch:
		return "TypeMismatch"
	case UndefinedVariable:
		return "UndefinedVariable"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case CallStackUnderflow:
		return "CallStackUnderflow"
	case UnknownLabel:
		return "UnknownLabel"
	case NoVariableScope:
		return "NoVariableScope"
	case DivisionByZero:
		return "DivisionByZero"
	case RuntimeError:
		return "RuntimeError"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error is an interpreter fault. TRY handlers see it as an Exception value.
type Error struct {
	Kind    ErrorKind
	Op      OpCode
	IP      int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d (%s): %s", e.Kind, e.IP, e.Op, e.Message)
}

func (e *Error) Exception() Exception {
	return Exception{
		Kind:    e.Kind.String(),
		Message: e.Message,
	}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Uncaught reports a thrown value no handler caught. Reason becomes the exit reason.
type Uncaught struct {
	Reason Value
}

func (u *Uncaught) Error() string {
	return "uncaught: " + u.Reason.String()
}

func (v *VM) fault(kind ErrorKind, format string, args ...any) *Error {
	ip := v.IP - 1
	var op OpCode
	if ip >= 0 && ip < len(v.Code) {
		op = v.Code[ip].Op
	}
	return &Error{
		Kind:    kind,
		Op:      op,
		IP:      ip,
		Message: fmt.Sprintf(format, args...),
	}
}
