package parser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/parser"
	"github.com/cc89front/cc89front/lang/scanner"
	"github.com/cc89front/cc89front/lang/token"
)

func parseSource(t *testing.T, src string) ([]*ir.CFG, error) {
	t.Helper()
	fs, lex, err := scanner.ScanBytes(token.NewFileSet(), "test.c", []byte(src))
	require.NoError(t, err)
	return parser.Parse(context.Background(), fs, lex)
}

func mustParse(t *testing.T, src string) []*ir.CFG {
	t.Helper()
	cfgs, err := parseSource(t, src)
	require.NoError(t, err)
	return cfgs
}

func TestParseEmptyFunction(t *testing.T) {
	cfgs := mustParse(t, "void f(void) { }")
	require.Len(t, cfgs, 1)
	require.Equal(t, "f", cfgs[0].Fn.Name)
}

func TestParseSimpleArithmeticFunction(t *testing.T) {
	cfgs := mustParse(t, `
		int add(int a, int b) {
			int c;
			c = a + b;
			return c;
		}
	`)
	require.Len(t, cfgs, 1)
	cfg := cfgs[0]
	require.Len(t, cfg.Params, 2)
	require.Len(t, cfg.Locals, 2) // __func__, c
}

func TestConstantExpressionArraySizeDoesNotEmitIR(t *testing.T) {
	cfgs := mustParse(t, `
		void f(void) {
			int a[2 + 3];
		}
	`)
	require.Len(t, cfgs, 1)
	// the array-size constant expression must fold entirely at parse time:
	// no ADD instruction should appear anywhere in the function's IR.
	for _, b := range cfgs[0].Blocks {
		for _, in := range b.Code {
			require.NotEqual(t, ir.ADD, in.Op)
		}
	}
}

func TestIfConstantConditionPrunesDeadArm(t *testing.T) {
	cfgs := mustParse(t, `
		int f(void) {
			if (0) {
				return 1;
			} else {
				return 2;
			}
		}
	`)
	require.Len(t, cfgs, 1)
	// only the else arm is reachable; its `return 2` must appear somewhere
	// in the CFG, and the dead then-arm's `return 1` must not.
	foundTwo, foundOne := false, false
	for _, b := range cfgs[0].Blocks {
		for _, in := range b.Code {
			if in.Op == ir.RETURN && in.Arg1 != nil {
				if in.Arg1.ImmInt == 2 {
					foundTwo = true
				}
				if in.Arg1.ImmInt == 1 {
					foundOne = true
				}
			}
		}
	}
	require.True(t, foundTwo, "else arm must be reachable")
	require.False(t, foundOne, "then arm must be pruned")
}

func TestWhileLoopWiring(t *testing.T) {
	cfgs := mustParse(t, `
		void f(void) {
			int i;
			i = 0;
			while (i) {
				i = i - 1;
			}
		}
	`)
	require.Len(t, cfgs, 1)
	// a non-constant while loop must produce at least one block with a
	// conditional branch (two live successors).
	found := false
	for _, b := range cfgs[0].Blocks {
		if b.Jump[0] != nil && b.Jump[1] != nil {
			found = true
		}
	}
	require.True(t, found)
}

func TestSwitchLowersToComparisonChain(t *testing.T) {
	cfgs := mustParse(t, `
		void f(int x) {
			switch (x) {
			case 1:
				x = 10;
				break;
			case 2:
				x = 20;
				break;
			default:
				x = 0;
			}
		}
	`)
	require.Len(t, cfgs, 1)
	eqCount := 0
	for _, b := range cfgs[0].Blocks {
		for _, in := range b.Code {
			if in.Op == ir.EQ {
				eqCount++
			}
		}
	}
	require.Equal(t, 2, eqCount, "one EQ comparison per case label")
}

func TestGotoForwardReference(t *testing.T) {
	cfgs := mustParse(t, `
		void f(void) {
			goto done;
			done:
			return;
		}
	`)
	require.Len(t, cfgs, 1)
}

func TestPointerArithmeticLowering(t *testing.T) {
	cfgs := mustParse(t, `
		int f(int *p) {
			return p[3];
		}
	`)
	require.Len(t, cfgs, 1)
	mulFound := false
	for _, b := range cfgs[0].Blocks {
		for _, in := range b.Code {
			if in.Op == ir.MUL {
				mulFound = true
			}
		}
	}
	require.True(t, mulFound, "indexing a pointer must scale by element size")
}

func TestStructMemberAccess(t *testing.T) {
	cfgs := mustParse(t, `
		struct point { int x; int y; };
		int f(struct point *p) {
			return p->y;
		}
	`)
	require.Len(t, cfgs, 1)
}

func TestLeadingUnaryOperators(t *testing.T) {
	cfgs := mustParse(t, `
		int f(int x, int *p) {
			int a = -x;
			int b = !x;
			int c = ~x;
			int *q = &x;
			int d = *p;
			++x;
			--x;
			return a + b + c + d + *q;
		}
	`)
	require.Len(t, cfgs, 1)
	ops := map[ir.OpCode]bool{}
	for _, b := range cfgs[0].Blocks {
		for _, in := range b.Code {
			ops[in.Op] = true
		}
	}
	require.True(t, ops[ir.NEG], "unary minus must emit NEG")
	require.True(t, ops[ir.LOGNOT], "unary ! must emit LOGNOT")
	require.True(t, ops[ir.COMPLEMENT], "unary ~ must emit COMPLEMENT")
	require.True(t, ops[ir.ADDR], "unary & must emit ADDR")
}

func TestUndeclaredIdentifierIsFatal(t *testing.T) {
	_, err := parseSource(t, `
		void f(void) { x = 1; }
	`)
	require.Error(t, err)
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
}

func TestArrayInitializerZeroFillsRemainder(t *testing.T) {
	cfgs := mustParse(t, `
		void f(void) {
			int a[4] = {1, 2};
		}
	`)
	require.Len(t, cfgs, 1)
	assignCount := 0
	for _, b := range cfgs[0].Blocks {
		for _, in := range b.Code {
			if in.Op == ir.ASSIGN {
				assignCount++
			}
		}
	}
	// 2 explicit elements + 2 zero-filled + 1 for __func__'s prologue assign.
	require.Equal(t, 5, assignCount)
}

func TestTernaryWiring(t *testing.T) {
	cfgs := mustParse(t, `
		int f(int c) {
			return c ? 1 : 2;
		}
	`)
	require.Len(t, cfgs, 1)
	branching := false
	for _, b := range cfgs[0].Blocks {
		if b.Jump[0] != nil && b.Jump[1] != nil {
			branching = true
		}
	}
	require.True(t, branching)
}

func TestLogicalAndShortCircuitWiring(t *testing.T) {
	cfgs := mustParse(t, `
		int f(int a, int b) {
			return a && b;
		}
	`)
	require.Len(t, cfgs, 1)
	branching := 0
	for _, b := range cfgs[0].Blocks {
		if b.Jump[0] != nil && b.Jump[1] != nil {
			branching++
		}
	}
	require.Positive(t, branching)
}

func TestTypedefResolution(t *testing.T) {
	cfgs := mustParse(t, `
		typedef int myint;
		myint f(myint x) {
			return x;
		}
	`)
	require.Len(t, cfgs, 1)
}

func TestFileScopeInitializerMustBeConstant(t *testing.T) {
	_, err := parseSource(t, `
		int g(void);
		int x = g();
	`)
	require.Error(t, err)
}

func TestStaticLocalSurvivesScope(t *testing.T) {
	cfgs := mustParse(t, `
		void f(void) {
			static int counter = 0;
			counter = counter + 1;
		}
	`)
	require.Len(t, cfgs, 1)
	found := false
	for _, sym := range cfgs[0].Locals {
		if sym.Name == "counter" {
			found = true
		}
	}
	require.True(t, found)
}

func TestFileScopeStructInitializerZeroFillsRemainder(t *testing.T) {
	cfgs := mustParse(t, `
		struct s { int a; int b; };
		struct s g = {1};
	`)
	require.Len(t, cfgs, 1)
	assignCount := 0
	for _, in := range cfgs[0].Head.Code {
		if in.Op == ir.ASSIGN {
			assignCount++
		}
	}
	// 1 explicit member + 1 zero-filled member.
	require.Equal(t, 2, assignCount)
}

func TestStaticLocalStructInitializerZeroFillsRemainder(t *testing.T) {
	cfgs := mustParse(t, `
		struct s { int a; int b; };
		void f(void) {
			static struct s t = {1};
		}
	`)
	require.Len(t, cfgs, 1)
	assignCount := 0
	for _, in := range cfgs[0].Head.Code {
		if in.Op == ir.ASSIGN {
			assignCount++
		}
	}
	// __func__ prologue assign + 1 explicit member + 1 zero-filled member.
	require.Equal(t, 3, assignCount)
}
