package vm

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Value is the closed set of runtime values.
type Value interface {
	String() string
	value()
}

type (
	Int    int64
	Float  float64
	Str    string
	Bool   bool
	Null   struct{}
	List   []Value
	Object map[string]Value
	Bytes  []byte
	PID    uint64
)

type HandleKind uint8

const (
	HandleConnection HandleKind = iota + 1
	HandleStream
	HandleFuture
)

func (h HandleKind) String() string {
	switch h {
	case HandleConnection:
		return "connection"
	case HandleStream:
		return "stream"
	case HandleFuture:
		return "future"
	}
	return "handle"
}

// Handle refers to a resource owned by the I/O collaborator.
type Handle struct {
	Kind HandleKind
	ID   string
}

type Function struct {
	Addr   int
	Params []string
}

// Closure carries a frozen snapshot of captured variables.
type Closure struct {
	Addr     int
	Params   []string
	Captured map[string]Value
}

type Exception struct {
	Kind    string
	Message string
	Trace   []int
}

func (Int) value()       {}
func (Float) value()     {}
func (Str) value()       {}
func (Bool) value()      {}
func (Null) value()      {}
func (List) value()      {}
func (Object) value()    {}
func (Bytes) value()     {}
func (PID) value()       {}
func (Handle) value()    {}
func (Function) value()  {}
func (Closure) value()   {}
func (Exception) value() {}

func (i Int) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (f Float) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

func (s Str) String() string {
	return string(s)
}

func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

func (Null) String() string {
	return "null"
}

func (l List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoted(v))
	}
	b.WriteByte(']')
	return b.String()
}

func (o Object) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range o.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(quoted(o[key]))
	}
	b.WriteByte('}')
	return b.String()
}

// Keys returns field names in sorted order.
func (o Object) Keys() []string {
	keys := lo.Keys(o)
	slices.Sort(keys)
	return keys
}

func (b Bytes) String() string {
	return fmt.Sprintf("bytes(%d)", len(b))
}

func (p PID) String() string {
	return fmt.Sprintf("<pid %d>", uint64(p))
}

func (h Handle) String() string {
	return fmt.Sprintf("<%s %s>", h.Kind, h.ID)
}

func (f Function) String() string {
	return fmt.Sprintf("function@%d (%s)", f.Addr, strings.Join(f.Params, ", "))
}

func (c Closure) String() string {
	return fmt.Sprintf("closure@%d (%s) [captured: %d]", c.Addr, strings.Join(c.Params, ", "), len(c.Captured))
}

func (e Exception) String() string {
	if e.Kind == "" {
		return "Exception: " + e.Message
	}
	return "Exception(" + e.Kind + "): " + e.Message
}

func quoted(v Value) string {
	if s, ok := v.(Str); ok {
		return strconv.Quote(string(s))
	}
	return v.String()
}

// Clone returns a deep copy of aggregate values.
func Clone(v Value) Value {
	switch v := v.(type) {
	case List:
		if v == nil {
			return v
		}
		ret := make(List, len(v))
		for i, e := range v {
			ret[i] = Clone(e)
		}
		return ret
	case Object:
		if v == nil {
			return v
		}
		ret := make(Object, len(v))
		for k, e := range v {
			ret[k] = Clone(e)
		}
		return ret
	case Bytes:
		return slices.Clone(v)
	case Function:
		v.Params = slices.Clone(v.Params)
		return v
	case Closure:
		// captured snapshot is immutable and shared
		v.Params = slices.Clone(v.Params)
		return v
	case Exception:
		v.Trace = slices.Clone(v.Trace)
		return v
	}
	return v
}

// Truthy reports whether v counts as true for conditional jumps.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(v)
	case Int:
		return v != 0
	case Float:
		return v != 0
	case Str:
		return v != ""
	}
	return true
}

// Equal is structural equality. Ints and floats compare numerically.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			return a == b
		case Float:
			return Float(a) == b
		}
		return false
	case Float:
		switch b := b.(type) {
		case Int:
			return a == Float(b)
		case Float:
			return a == b
		}
		return false
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Null:
		_, ok := b.(Null)
		return ok
	case PID:
		b, ok := b.(PID)
		return ok && a == b
	case Bytes:
		b, ok := b.(Bytes)
		return ok && string(a) == string(b)
	case Handle:
		b, ok := b.(Handle)
		return ok && a == b
	case List:
		b, ok := b.(List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case Object:
		b, ok := b.(Object)
		if !ok || len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Function:
		b, ok := b.(Function)
		return ok && a.Addr == b.Addr && slices.Equal(a.Params, b.Params)
	case Closure:
		b, ok := b.(Closure)
		return ok && a.Addr == b.Addr && slices.Equal(a.Params, b.Params) && Equal(Object(a.Captured), Object(b.Captured))
	case Exception:
		b, ok := b.(Exception)
		return ok && a.Kind == b.Kind && a.Message == b.Message
	}
	return false
}

// TypeName names the variant of v.
func TypeName(v Value) string {
	switch v.(type) {
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "string"
	case Bool:
		return "bool"
	case Null:
		return "null"
	case List:
		return "list"
	case Object:
		return "object"
	case Bytes:
		return "bytes"
	case PID:
		return "pid"
	case Handle:
		return "handle"
	case Function:
		return "function"
	case Closure:
		return "closure"
	case Exception:
		return "exception"
	}
	return "unknown"
}
