package ir

import "github.com/cc89front/cc89front/lang/types"

// foldBinary attempts to compute a IMMEDIATE op b at parse time. ok is false
// when op isn't foldable between these two operand kinds (e.g. either isn't
// IMMEDIATE, or it's a pointer/float combination not handled here).
// EvalExpr only appends an instruction when folding fails, so constant
// expressions never reach the IR as instructions at all.
func foldBinary(op OpCode, a, b *Var, resultType *types.Type) (*Var, bool) {
	if !a.IsImmediate() || !b.IsImmediate() {
		return nil, false
	}
	if types.IsFloating(resultType) || types.IsFloating(a.Type) || types.IsFloating(b.Type) {
		return foldFloatBinary(op, a, b, resultType)
	}
	if types.IsPointer(a.Type) || types.IsPointer(b.Type) {
		// Pointer constant folding (e.g. null-pointer arithmetic) is not
		// attempted; the result must still be IMMEDIATE-shaped for a constant
		// expression, but this never requires folding pointer arithmetic,
		// only integer/float, so conservatively refuse.
		return nil, false
	}

	x, y := a.ImmInt, b.ImmInt
	var r int64
	switch op {
	case ADD:
		r = x + y
	case SUB:
		r = x - y
	case MUL:
		r = x * y
	case DIV:
		if y == 0 {
			return nil, false
		}
		r = x / y
	case MOD:
		if y == 0 {
			return nil, false
		}
		r = x % y
	case SHL:
		r = x << uint(y)
	case SHR:
		r = x >> uint(y)
	case AND:
		r = x & y
	case OR:
		r = x | y
	case XOR:
		r = x ^ y
	case EQ:
		r = boolToInt(x == y)
	case GT:
		r = boolToInt(x > y)
	case GE:
		r = boolToInt(x >= y)
	default:
		return nil, false
	}
	return VarInt(r, resultType), true
}

func foldFloatBinary(op OpCode, a, b *Var, resultType *types.Type) (*Var, bool) {
	x, y := asFloat(a), asFloat(b)
	if types.IsInteger(resultType) {
		// comparisons between floats still yield an int result
		var r int64
		switch op {
		case EQ:
			r = boolToInt(x == y)
		case GT:
			r = boolToInt(x > y)
		case GE:
			r = boolToInt(x >= y)
		default:
			return nil, false
		}
		return VarInt(r, resultType), true
	}
	var r float64
	switch op {
	case ADD:
		r = x + y
	case SUB:
		r = x - y
	case MUL:
		r = x * y
	case DIV:
		if y == 0 {
			return nil, false
		}
		r = x / y
	default:
		return nil, false
	}
	return VarFloat(r, resultType), true
}

func asFloat(v *Var) float64 {
	if types.IsFloating(v.Type) {
		return v.ImmFloat
	}
	return float64(v.ImmInt)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// foldUnary attempts to compute a constant unary operation.
func foldUnary(op OpCode, a *Var, resultType *types.Type) (*Var, bool) {
	if !a.IsImmediate() {
		return nil, false
	}
	if types.IsFloating(resultType) {
		switch op {
		case NEG:
			return VarFloat(-asFloat(a), resultType), true
		}
		return nil, false
	}
	switch op {
	case NEG:
		return VarInt(-a.ImmInt, resultType), true
	case COMPLEMENT:
		return VarInt(^a.ImmInt, resultType), true
	case LOGNOT:
		return VarInt(boolToInt(a.ImmInt == 0), resultType), true
	}
	return nil, false
}
