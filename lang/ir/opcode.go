// Package ir implements the control-flow graph and IR builder: basic blocks
// whose bodies are three-address IR operations on typed Vars, minted on the
// fly as the core parser walks the grammar. Nothing in this package
// inspects tokens or the symbol-table namespaces directly; it only ever
// sees the Vars and types.Types the core hands it.
package ir

import (
	"fmt"

	"github.com/cc89front/cc89front/lang/types"
)

// OpCode names a three-address IR operation: the binary arithmetic/bitwise
// opcodes plus the three normalized comparisons (EQ/GT/GE).
type OpCode int

const ( //nolint:revive
	NOP OpCode = iota

	ADD
	SUB
	MUL
	DIV
	MOD
	SHL
	SHR
	AND
	OR
	XOR

	EQ // normalized equality: ==
	GT // normalized greater-than: >
	GE // normalized greater-or-equal: >=

	NEG        // unary -
	COMPLEMENT // unary ~
	LOGNOT     // unary !

	ASSIGN
	ADDR  // &v
	CAST
	CALL
	PARAM  // stage one call argument before CALL
	RETURN

	VA_START
	VA_ARG
)

var opNames = [...]string{
	NOP: "nop", ADD: "add", SUB: "sub", MUL: "mul", DIV: "div", MOD: "mod",
	SHL: "shl", SHR: "shr", AND: "and", OR: "or", XOR: "xor",
	EQ: "eq", GT: "gt", GE: "ge",
	NEG: "neg", COMPLEMENT: "compl", LOGNOT: "lognot",
	ASSIGN: "assign", ADDR: "addr", CAST: "cast", CALL: "call",
	PARAM: "param", RETURN: "return",
	VA_START: "va_start", VA_ARG: "va_arg",
}

func (op OpCode) String() string {
	if int(op) >= 0 && int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("OpCode(%d)", int(op))
}

// Instr is one three-address IR operation: it names an opcode, up to two
// operand Vars, and the Result Var it writes.
type Instr struct {
	Op     OpCode
	Result *Var
	Arg1   *Var
	Arg2   *Var

	// CastType is set only for CAST.
	CastType *types.Type

	// Args holds the full argument list for CALL, for inspection convenience
	// (each argument was also separately emitted as a preceding PARAM
	// instruction, per call-lowering protocol).
	Args []*Var
}

func (in *Instr) String() string {
	switch in.Op {
	case ASSIGN:
		return fmt.Sprintf("%s = %s", in.Result, in.Arg1)
	case CALL:
		return fmt.Sprintf("%s = call %s(%d args)", in.Result, in.Arg1, len(in.Args))
	case PARAM:
		return fmt.Sprintf("param %s", in.Arg1)
	case RETURN:
		if in.Arg1 == nil {
			return "return"
		}
		return fmt.Sprintf("return %s", in.Arg1)
	case NEG, COMPLEMENT, LOGNOT, ADDR, CAST:
		return fmt.Sprintf("%s = %s %s", in.Result, in.Op, in.Arg1)
	default:
		if in.Arg2 != nil {
			return fmt.Sprintf("%s = %s %s, %s", in.Result, in.Op, in.Arg1, in.Arg2)
		}
		return fmt.Sprintf("%s %s", in.Op, in.Arg1)
	}
}
