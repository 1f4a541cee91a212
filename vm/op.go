package vm

import "fmt"

type OpCode uint8

const (
	OpNop OpCode = iota
	OpPush
	OpPop
	OpDup
	OpSwap

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpNot
	OpAnd
	OpOr

	OpJmp
	OpJz
	OpJnz
	OpCall
	OpRet

	OpStore
	OpLoad
	OpDelete

	OpMakeList
	OpLen
	OpIndex
	OpAppend
	OpMakeObject
	OpSetField
	OpGetField
	OpHasField
	OpDeleteField
	OpKeys

	OpMakeFunction
	OpCallFunction
	OpCapture
	OpMakeLambda

	OpTry
	OpCatch
	OpThrow
	OpEndTry

	OpPrint
	OpDumpScope
	OpBreakpoint
	OpIO
	OpHalt
	OpExit

	OpSpawn
	OpSelf
	OpSend
	OpSendNamed
	OpReceive
	OpYield
	OpRegister
	OpUnregister
	OpWhereis
	OpLink
	OpUnlink
	OpMonitor
	OpDemonitor
	OpTrapExit
	OpStartSupervisor
	OpSuperviseChild
	OpRestartChild

	numOpCodes
)

var opNames = [numOpCodes]string{
	OpNop:             "NOP",
	OpPush:            "PUSH",
	OpPop:             "POP",
	OpDup:             "DUP",
	OpSwap:            "SWAP",
	OpAdd:             "ADD",
	OpSub:             "SUB",
	OpMul:             "MUL",
	OpDiv:             "DIV",
	OpMod:             "MOD",
	OpNeg:             "NEG",
	OpConcat:          "CONCAT",
	OpEq:              "EQ",
	OpNe:              "NE",
	OpLt:              "LT",
	OpLe:              "LE",
	OpGt:              "GT",
	OpGe:              "GE",
	OpNot:             "NOT",
	OpAnd:             "AND",
	OpOr:              "OR",
	OpJmp:             "JMP",
	OpJz:              "JZ",
	OpJnz:             "JNZ",
	OpCall:            "CALL",
	OpRet:             "RET",
	OpStore:           "STORE",
	OpLoad:            "LOAD",
	OpDelete:          "DELETE",
	OpMakeList:        "MAKE_LIST",
	OpLen:             "LEN",
	OpIndex:           "INDEX",
	OpAppend:          "APPEND",
	OpMakeObject:      "MAKE_OBJECT",
	OpSetField:        "SET_FIELD",
	OpGetField:        "GET_FIELD",
	OpHasField:        "HAS_FIELD",
	OpDeleteField:     "DELETE_FIELD",
	OpKeys:            "KEYS",
	OpMakeFunction:    "MAKE_FUNCTION",
	OpCallFunction:    "CALL_FUNCTION",
	OpCapture:         "CAPTURE",
	OpMakeLambda:      "MAKE_LAMBDA",
	OpTry:             "TRY",
	OpCatch:           "CATCH",
	OpThrow:           "THROW",
	OpEndTry:          "END_TRY",
	OpPrint:           "PRINT",
	OpDumpScope:       "DUMP_SCOPE",
	OpBreakpoint:      "BREAKPOINT",
	OpIO:              "IO",
	OpHalt:            "HALT",
	OpExit:            "EXIT",
	OpSpawn:           "SPAWN",
	OpSelf:            "SELF",
	OpSend:            "SEND",
	OpSendNamed:       "SEND_NAMED",
	OpReceive:         "RECEIVE",
	OpYield:           "YIELD",
	OpRegister:        "REGISTER",
	OpUnregister:      "UNREGISTER",
	OpWhereis:         "WHEREIS",
	OpLink:            "LINK",
	OpUnlink:          "UNLINK",
	OpMonitor:         "MONITOR",
	OpDemonitor:       "DEMONITOR",
	OpTrapExit:        "TRAP_EXIT",
	OpStartSupervisor: "START_SUPERVISOR",
	OpSuperviseChild:  "SUPERVISE_CHILD",
	OpRestartChild:    "RESTART_CHILD",
}

var opsByName = func() map[string]OpCode {
	ret := make(map[string]OpCode, numOpCodes)
	for op, name := range opNames {
		ret[name] = OpCode(op)
	}
	return ret
}()

func (o OpCode) String() string {
	if o < numOpCodes {
		return opNames[o]
	}
	return fmt.Sprintf("OP(%d)", uint8(o))
}

func ParseOpCode(name string) (OpCode, bool) {
	op, ok := opsByName[name]
	return op, ok
}

// Instr is one decoded instruction. Operands unused by an opcode are zero.
type Instr struct {
	Op     OpCode
	Arg    Value
	Name   string
	Addr   int
	N      int
	Params []string
}

func (o OpCode) With(arg Value) Instr {
	return Instr{
		Op:  o,
		Arg: arg,
	}
}

func (o OpCode) Named(name string) Instr {
	return Instr{
		Op:   o,
		Name: name,
	}
}

func (o OpCode) At(addr int, params ...string) Instr {
	return Instr{
		Op:     o,
		Addr:   addr,
		Params: params,
	}
}

func (o OpCode) Count(n int) Instr {
	return Instr{
		Op: o,
		N:  n,
	}
}

func (i Instr) String() string {
	switch i.Op {
	case OpPush:
		return fmt.Sprintf("%s %s", i.Op, quoted(i.Arg))
	case OpJmp, OpJz, OpJnz, OpTry:
		return fmt.Sprintf("%s %d", i.Op, i.Addr)
	case OpCall, OpMakeFunction, OpMakeLambda:
		return fmt.Sprintf("%s %d %v", i.Op, i.Addr, i.Params)
	case OpMakeList:
		return fmt.Sprintf("%s %d", i.Op, i.N)
	case OpIO:
		return fmt.Sprintf("%s %s %d", i.Op, i.Name, i.N)
	}
	if i.Name != "" {
		return fmt.Sprintf("%s %s", i.Op, i.Name)
	}
	return i.Op.String()
}

// Code builds an instruction list. Items are Instr or bare OpCode.
func Code(items ...any) []Instr {
	ret := make([]Instr, 0, len(items))
	for _, item := range items {
		switch item := item.(type) {
		case Instr:
			ret = append(ret, item)
		case OpCode:
			ret = append(ret, Instr{Op: item})
		default:
			panic(fmt.Errorf("bad instruction: %T", item))
		}
	}
	return ret
}
