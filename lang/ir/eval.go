package ir

import "github.com/cc89front/cc89front/lang/types"

// ResultType computes the type an OpCode applied to a, b would produce,
// implementing C's usual arithmetic conversions plus the pointer-arithmetic
// special cases: pointer arithmetic scaling is the type layer's
// responsibility, not the caller's.
func ResultType(op OpCode, a, b *types.Type) *types.Type {
	switch op {
	case EQ, GT, GE:
		return types.BasicInt
	case ADD, SUB:
		switch {
		case types.IsPointer(a) && types.IsInteger(b):
			return a
		case types.IsPointer(b) && types.IsInteger(a) && op == ADD:
			return b
		case types.IsPointer(a) && types.IsPointer(b) && op == SUB:
			return types.BasicLong
		}
	}
	return usualArithmeticConversion(a, b)
}

// usualArithmeticConversion implements the (simplified, C89-scoped) ranking
// of arithmetic types: double > float > wider integer > same-width unsigned.
func usualArithmeticConversion(a, b *types.Type) *types.Type {
	if a.Kind == types.Double || b.Kind == types.Double {
		return types.BasicDouble
	}
	if a.Kind == types.Float || b.Kind == types.Float {
		return types.BasicFloat
	}
	wa, wb := promoteWidth(a.Width), promoteWidth(b.Width)
	switch {
	case wa > wb:
		return widen(a, wa)
	case wb > wa:
		return widen(b, wb)
	default:
		if types.IsUnsigned(a) || types.IsUnsigned(b) {
			return &types.Type{Kind: types.Unsigned, Width: wa}
		}
		return &types.Type{Kind: types.Signed, Width: wa}
	}
}

// promoteWidth applies C's integer promotion: anything narrower than int is
// promoted to int width.
func promoteWidth(w int) int {
	if w < 32 {
		return 32
	}
	return w
}

func widen(t *types.Type, width int) *types.Type {
	if types.IsUnsigned(t) {
		return &types.Type{Kind: types.Unsigned, Width: width}
	}
	return &types.Type{Kind: types.Signed, Width: width}
}

// pointeeSize returns the element size to scale an index by for pointer
// arithmetic on a pointer/array type t.
func pointeeSize(t *types.Type) int {
	return types.SizeOf(t.Inner)
}

// scaleIndex multiplies idx (an integer operand) by the pointee size of
// ptrType, folding when possible, emitting a MUL instruction into b
// otherwise. `a[b]` lowers to `*(a + b)`, and scaling the index by the
// pointee size happens here rather than at each call site.
func scaleIndex(b *Block, ptrType *types.Type, idx *Var) *Var {
	size := pointeeSize(ptrType)
	if size == 1 {
		return idx
	}
	scale := VarInt(int64(size), types.BasicLong)
	return EvalExpr(b, MUL, idx, scale)
}

// EvalExpr appends (or, if both operands are IMMEDIATE and the operation
// folds cleanly, does NOT append) a binary IR operation to b and returns
// the result Var. This is the single choke point constant folding runs
// through, so every arithmetic expression benefits from it uniformly.
func EvalExpr(b *Block, op OpCode, a, x *Var) *Var {
	// pointer +/- integer: scale the integer side first.
	switch op {
	case ADD:
		if types.IsPointer(a.Type) && types.IsInteger(x.Type) {
			x = scaleIndex(b, a.Type, x)
		} else if types.IsPointer(x.Type) && types.IsInteger(a.Type) {
			a = scaleIndex(b, x.Type, a)
		}
	case SUB:
		if types.IsPointer(a.Type) && types.IsInteger(x.Type) {
			x = scaleIndex(b, a.Type, x)
		}
	}

	rt := ResultType(op, a.Type, x.Type)
	if folded, ok := foldBinary(op, a, x, rt); ok {
		b.Expr = folded
		return folded
	}
	result := &Var{Kind: DirectKind, Type: rt}
	in := &Instr{Op: op, Result: result, Arg1: a, Arg2: x}
	b.Emit(in)
	result.Symbol = nil
	b.Expr = result
	return result
}

// EvalUnary appends (or folds) a unary IR operation.
func EvalUnary(b *Block, op OpCode, a *Var) *Var {
	rt := a.Type
	if folded, ok := foldUnary(op, a, rt); ok {
		b.Expr = folded
		return folded
	}
	result := &Var{Kind: DirectKind, Type: rt}
	b.Emit(&Instr{Op: op, Result: result, Arg1: a})
	b.Expr = result
	return result
}

// EvalAssign stores value into target (which must be an lvalue Var) and
// yields value itself, matching C's assignment-expression semantics: the
// overall expression evaluates to the assigned value.
func EvalAssign(b *Block, target, value *Var) *Var {
	b.Emit(&Instr{Op: ASSIGN, Result: target, Arg1: value})
	b.Expr = value
	return value
}

// EvalDeref constructs the DerefKind lvalue *v. It never appends an
// instruction by itself: the load/store it implies is realized by
// whichever op consumes it (EvalAssign as a store, EvalExpr's operand
// read as an implicit load at codegen time).
func EvalDeref(b *Block, v *Var) *Var {
	return VarDeref(v, types.Deref(v.Type))
}

// EvalAddr computes &v. Per C semantics &*p == p, so taking the address of
// a DerefKind lvalue just returns its base pointer, with no IR emitted.
func EvalAddr(b *Block, v *Var) *Var {
	if v.Kind == DerefKind {
		return v.Base
	}
	result := &Var{Kind: DirectKind, Type: types.NewPointer(v.Type)}
	b.Emit(&Instr{Op: ADDR, Result: result, Arg1: v})
	b.Expr = result
	return result
}

// EvalCast converts v to type t, folding the conversion when v is
// IMMEDIATE.
func EvalCast(b *Block, v *Var, t *types.Type) *Var {
	if v.IsImmediate() {
		switch {
		case types.IsFloating(t) && !types.IsFloating(v.Type):
			return VarFloat(float64(v.ImmInt), t)
		case !types.IsFloating(t) && types.IsFloating(v.Type):
			return VarInt(int64(v.ImmFloat), t)
		case types.IsFloating(t):
			return VarFloat(v.ImmFloat, t)
		default:
			return VarInt(truncate(v.ImmInt, t), t)
		}
	}
	result := &Var{Kind: DirectKind, Type: t}
	b.Emit(&Instr{Op: CAST, Result: result, Arg1: v, CastType: t})
	b.Expr = result
	return result
}

func truncate(v int64, t *types.Type) int64 {
	if t.Width >= 64 || t.Width == 0 {
		return v
	}
	mask := int64(1)<<uint(t.Width) - 1
	v &= mask
	if !types.IsUnsigned(t) && v&(int64(1)<<uint(t.Width-1)) != 0 {
		v -= int64(1) << uint(t.Width)
	}
	return v
}

// Param stages one call argument, emitted in left-to-right order before
// the matching EvalCall.
func Param(b *Block, arg *Var) {
	b.Emit(&Instr{Op: PARAM, Arg1: arg})
}

// EvalCall appends a CALL instruction and returns its result Var (nil Type
// void when retType is void).
func EvalCall(b *Block, callee *Var, args []*Var, retType *types.Type) *Var {
	var result *Var
	if !types.IsVoid(retType) {
		result = &Var{Kind: DirectKind, Type: retType}
	}
	b.Emit(&Instr{Op: CALL, Result: result, Arg1: callee, Args: args})
	if result != nil {
		b.Expr = result
	}
	return result
}

// EvalReturn appends a RETURN instruction; v is nil for `return;` in a void
// function.
func EvalReturn(b *Block, v *Var, retType *types.Type) {
	b.Emit(&Instr{Op: RETURN, Arg1: v})
}

// EvalConditional implements the ternary operator's merge step: it mints a
// fresh temporary of type t, assigns tVal into it at the tail of tBlock and
// fVal at the tail of fBlock (both of which then fall through to the
// `next` block the caller is responsible for wiring), and returns the
// temporary as the ternary's value.
func EvalConditional(cfg *CFG, tBlock, fBlock *Block, tVal, fVal *Var, t *types.Type) *Var {
	tmp := cfg.CreateVar(t)
	EvalAssign(tBlock, tmp, EvalCast(tBlock, tVal, t))
	EvalAssign(fBlock, tmp, EvalCast(fBlock, fVal, t))
	return tmp
}

// evalNeqZero normalizes v to a {0,1} int via `!(v == 0)`, computed as
// `(v == 0) XOR 1` rather than adding a fourth comparison opcode, keeping
// the IR's comparison set to the EQ/GT/GE trio.
func evalNeqZero(b *Block, v *Var) *Var {
	eq := EvalExpr(b, EQ, v, VarInt(0, v.Type))
	return EvalExpr(b, XOR, eq, VarInt(1, types.BasicInt))
}

// EvalLogicalAnd wires `left && right`'s short-circuit branch targets and
// returns the merge block plus its {0,1} int result.
// leftBlock/leftVal is the already-parsed left operand; rightHead is a
// block the caller created and parsed the right operand into, yielding
// rightTail/rightVal (rightHead == rightTail unless the right operand
// itself branched).
func EvalLogicalAnd(cfg *CFG, leftBlock *Block, leftVal *Var, rightHead, rightTail *Block, rightVal *Var) (*Block, *Var) {
	result := cfg.CreateVar(types.BasicInt)
	zeroBlock := cfg.NewBlock()
	merge := cfg.NewBlock()

	leftBlock.Expr = leftVal
	leftBlock.Branch(zeroBlock, rightHead)

	EvalAssign(zeroBlock, result, VarInt(0, types.BasicInt))
	zeroBlock.JumpTo(merge)

	norm := evalNeqZero(rightTail, rightVal)
	EvalAssign(rightTail, result, norm)
	rightTail.JumpTo(merge)

	merge.Expr = result
	return merge, result
}

// EvalLogicalOr is EvalLogicalAnd's dual for `left || right`.
func EvalLogicalOr(cfg *CFG, leftBlock *Block, leftVal *Var, rightHead, rightTail *Block, rightVal *Var) (*Block, *Var) {
	result := cfg.CreateVar(types.BasicInt)
	oneBlock := cfg.NewBlock()
	merge := cfg.NewBlock()

	leftBlock.Expr = leftVal
	leftBlock.Branch(rightHead, oneBlock)

	EvalAssign(oneBlock, result, VarInt(1, types.BasicInt))
	oneBlock.JumpTo(merge)

	norm := evalNeqZero(rightTail, rightVal)
	EvalAssign(rightTail, result, norm)
	rightTail.JumpTo(merge)

	merge.Expr = result
	return merge, result
}

// EvalBuiltinVaStart emits the IR for __builtin_va_start(ap, last_named).
func EvalBuiltinVaStart(b *Block, ap *Var) {
	b.Emit(&Instr{Op: VA_START, Arg1: ap})
}

// EvalBuiltinVaArg emits the IR for __builtin_va_arg(ap, type) and returns
// a fresh Var of the requested type.
func EvalBuiltinVaArg(cfg *CFG, b *Block, ap *Var, t *types.Type) *Var {
	result := cfg.CreateVar(t)
	b.Emit(&Instr{Op: VA_ARG, Result: result, Arg1: ap})
	return result
}
