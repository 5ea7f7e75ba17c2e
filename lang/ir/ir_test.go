package ir_test

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/require"

	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/types"
)

func TestOpCodeString(t *testing.T) {
	for op := ir.NOP; op <= ir.VA_ARG; op++ {
		s := op.String()
		require.NotContains(t, s, "OpCode(")
	}
}

func TestCFGCreateVar(t *testing.T) {
	cfg := ir.NewCFG(nil)
	v := cfg.CreateVar(types.BasicInt)
	require.Equal(t, ir.DirectKind, v.Kind)
	require.Len(t, cfg.Locals, 1)
	require.Equal(t, "%t0", cfg.Locals[0].Name)
}

func TestBlockJumpInvariant(t *testing.T) {
	cfg := ir.NewCFG(nil)
	target := cfg.NewBlock()
	cfg.Head.JumpTo(target)
	require.True(t, cfg.Head.Terminated())
	require.Nil(t, cfg.Head.Jump[1])

	cond := cfg.NewBlock()
	t1, t2 := cfg.NewBlock(), cfg.NewBlock()
	cond.Branch(t1, t2)
	require.NotNil(t, cond.Jump[0])
	require.NotNil(t, cond.Jump[1])
}

func TestEvalExprConstantFolding(t *testing.T) {
	b := &ir.Block{}
	a := ir.VarInt(2, types.BasicInt)
	x := ir.VarInt(3, types.BasicInt)
	result := ir.EvalExpr(b, ir.ADD, a, x)
	require.True(t, result.IsImmediate())
	require.Equal(t, int64(5), result.ImmInt)
	require.Empty(t, b.Code, "constant expression must not append IR")
}

func TestEvalExprEmitsWhenNotConstant(t *testing.T) {
	b := &ir.Block{}
	sym := &symtab.Symbol{Name: "x", Type: types.BasicInt}
	v := ir.VarDirect(sym)
	x := ir.VarInt(1, types.BasicInt)
	result := ir.EvalExpr(b, ir.ADD, v, x)
	require.False(t, result.IsImmediate())
	require.Len(t, b.Code, 1)
	require.Equal(t, ir.ADD, b.Code[0].Op)
}

func TestEvalExprDivisionByZeroNotFolded(t *testing.T) {
	b := &ir.Block{}
	a := ir.VarInt(1, types.BasicInt)
	x := ir.VarInt(0, types.BasicInt)
	result := ir.EvalExpr(b, ir.DIV, a, x)
	require.False(t, result.IsImmediate())
	require.Len(t, b.Code, 1)
}

func TestEvalPointerArithmeticScaling(t *testing.T) {
	b := &ir.Block{}
	elem := types.BasicInt
	ptrType := types.NewPointer(elem)
	sym := &symtab.Symbol{Name: "p", Type: ptrType}
	p := ir.VarDirect(sym)
	idx := ir.VarInt(3, types.BasicInt)
	result := ir.EvalExpr(b, ir.ADD, p, idx)
	require.False(t, result.IsImmediate())
	// scaling emits a MUL before the pointer ADD
	require.Len(t, b.Code, 2)
	require.Equal(t, ir.MUL, b.Code[0].Op)
	require.Equal(t, int64(4), b.Code[0].Arg2.ImmInt) // sizeof(int)
	require.Equal(t, ir.ADD, b.Code[1].Op)
}

func TestEvalAddrOfDerefIsIdentity(t *testing.T) {
	b := &ir.Block{}
	sym := &symtab.Symbol{Name: "p", Type: types.NewPointer(types.BasicInt)}
	p := ir.VarDirect(sym)
	deref := ir.EvalDeref(b, p)
	require.Empty(t, b.Code)
	addr := ir.EvalAddr(b, deref)
	require.Same(t, p, addr)
	require.Empty(t, b.Code, "&*p must not emit any IR")
}

func TestEvalCastConstantFolds(t *testing.T) {
	b := &ir.Block{}
	v := ir.VarInt(65, types.BasicInt)
	result := ir.EvalCast(b, v, types.BasicDouble)
	require.True(t, result.IsImmediate())
	require.Equal(t, 65.0, result.ImmFloat)
	require.Empty(t, b.Code)
}

func TestEvalLogicalAndWiring(t *testing.T) {
	cfg := ir.NewCFG(nil)
	left := cfg.Head
	leftVal := ir.VarInt(1, types.BasicInt) // non-constant in practice, fine for wiring test
	rightHead := cfg.NewBlock()
	rightVal := ir.VarInt(1, types.BasicInt)

	merge, result := ir.EvalLogicalAnd(cfg, left, leftVal, rightHead, rightHead, rightVal)

	require.NotNil(t, result)
	require.True(t, left.Terminated())
	require.NotNil(t, left.Jump[1])
	require.Equal(t, rightHead, left.Jump[1])
	require.True(t, rightHead.Terminated())
	require.Equal(t, merge, rightHead.Jump[0])
}

func TestDumpCFGRoundtripsBlockIDs(t *testing.T) {
	cfg := ir.NewCFG(nil)
	out, err := ir.Dump(cfg)
	require.NoError(t, err)
	require.Contains(t, string(out), "head: 0")
}

// Dump must be a pure function of the CFG: dumping the same graph twice
// should never disagree, since the parse CLI command relies on that to produce
// reproducible output across runs.
func TestDumpCFGIsDeterministic(t *testing.T) {
	cfg := ir.NewCFG(nil)
	sym := &symtab.Symbol{Name: "x", Type: types.BasicInt}
	cfg.RegisterLocal(sym)
	cond := cfg.NewBlock()
	t1, t2 := cfg.NewBlock(), cfg.NewBlock()
	cfg.Head.JumpTo(cond)
	cond.Expr = ir.VarDirect(sym)
	cond.Branch(t1, t2)

	first, err := ir.Dump(cfg)
	require.NoError(t, err)
	second, err := ir.Dump(cfg)
	require.NoError(t, err)

	if patch := diff.Diff(string(first), string(second)); patch != "" {
		t.Errorf("dump output is not deterministic:\n%s", patch)
	}
}
