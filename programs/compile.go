package programs

import (
	"fmt"

	"github.com/reusee/tvm/vm"
)

// Spec is one record of a program file. A record with only a label marks the next instruction.
type Spec struct {
	Op     string   `json:"op,omitempty"`
	Label  string   `json:"label,omitempty"`
	Int    *int64   `json:"int,omitempty"`
	Float  *float64 `json:"float,omitempty"`
	Str    *string  `json:"str,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
	Null   bool     `json:"null,omitempty"`
	Name   string   `json:"name,omitempty"`
	Target string   `json:"target,omitempty"`
	Addr   *int     `json:"addr,omitempty"`
	N      int      `json:"n,omitempty"`
	Params []string `json:"params,omitempty"`
	Mode   string   `json:"mode,omitempty"`
}

func (s Spec) literal() vm.Value {
	switch {
	case s.Int != nil:
		return vm.Int(*s.Int)
	case s.Float != nil:
		return vm.Float(*s.Float)
	case s.Str != nil:
		return vm.Str(*s.Str)
	case s.Bool != nil:
		return vm.Bool(*s.Bool)
	case s.Null:
		return vm.Null{}
	}
	return nil
}

var pushForms = map[string]func(Spec) (vm.Value, error){
	"PUSH": func(s Spec) (vm.Value, error) {
		if v := s.literal(); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("PUSH without value")
	},
	"PUSH_INT": func(s Spec) (vm.Value, error) {
		if s.Int == nil {
			return nil, fmt.Errorf("PUSH_INT without int")
		}
		return vm.Int(*s.Int), nil
	},
	"PUSH_FLOAT": func(s Spec) (vm.Value, error) {
		if s.Float != nil {
			return vm.Float(*s.Float), nil
		}
		if s.Int != nil {
			return vm.Float(*s.Int), nil
		}
		return nil, fmt.Errorf("PUSH_FLOAT without float")
	},
	"PUSH_STR": func(s Spec) (vm.Value, error) {
		if s.Str == nil {
			return nil, fmt.Errorf("PUSH_STR without str")
		}
		return vm.Str(*s.Str), nil
	},
	"PUSH_BOOL": func(s Spec) (vm.Value, error) {
		if s.Bool == nil {
			return nil, fmt.Errorf("PUSH_BOOL without bool")
		}
		return vm.Bool(*s.Bool), nil
	},
	"TRUE": func(Spec) (vm.Value, error) {
		return vm.Bool(true), nil
	},
	"FALSE": func(Spec) (vm.Value, error) {
		return vm.Bool(false), nil
	},
	"NULL": func(Spec) (vm.Value, error) {
		return vm.Null{}, nil
	},
	"PUSH_NULL": func(Spec) (vm.Value, error) {
		return vm.Null{}, nil
	},
}

// Compile resolves labels and decodes specs into instructions.
func Compile(specs []Spec) ([]vm.Instr, error) {
	labels := make(map[string]int)
	n := 0
	for _, spec := range specs {
		if spec.Label != "" {
			if _, ok := labels[spec.Label]; ok {
				return nil, fmt.Errorf("duplicated label %s", spec.Label)
			}
			labels[spec.Label] = n
		}
		if spec.Op != "" {
			n++
		}
	}

	code := make([]vm.Instr, 0, n)
	for _, spec := range specs {
		if spec.Op == "" {
			continue
		}
		inst, err := decode(spec)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", len(code), err)
		}
		switch {
		case spec.Target != "":
			addr, ok := labels[spec.Target]
			if !ok {
				return nil, &vm.Error{
					Kind:    vm.UnknownLabel,
					Op:      inst.Op,
					IP:      len(code),
					Message: spec.Target,
				}
			}
			inst.Addr = addr
		case spec.Addr != nil:
			inst.Addr = *spec.Addr
		}
		code = append(code, inst)
	}

	return code, nil
}

func decode(spec Spec) (inst vm.Instr, err error) {
	if form, ok := pushForms[spec.Op]; ok {
		value, err := form(spec)
		if err != nil {
			return inst, err
		}
		return vm.OpPush.With(value), nil
	}

	op, ok := vm.ParseOpCode(spec.Op)
	if !ok {
		return inst, fmt.Errorf("unknown opcode %s", spec.Op)
	}
	inst = vm.Instr{
		Op:     op,
		Name:   spec.Name,
		N:      spec.N,
		Params: spec.Params,
	}

	switch op {
	case vm.OpSend:
		if spec.Int != nil {
			inst.Arg = vm.PID(*spec.Int)
		}
	case vm.OpSuperviseChild:
		if spec.Mode != "" {
			inst.Arg = vm.Str(spec.Mode)
		}
	case vm.OpJmp, vm.OpJz, vm.OpJnz, vm.OpCall, vm.OpTry, vm.OpMakeFunction, vm.OpMakeLambda:
		if spec.Target == "" && spec.Addr == nil {
			return inst, fmt.Errorf("%s without target", op)
		}
	}

	return inst, nil
}
