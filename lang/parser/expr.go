package parser

import (
	"golang.org/x/exp/slices"

	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/scanner"
	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/token"
	"github.com/cc89front/cc89front/lang/types"
)

var typeNameLeaderTokens = []token.Token{
	token.STRUCT, token.UNION, token.ENUM, token.CONST, token.VOLATILE,
}

// Every production in this file shares the same contract: it takes the
// current block and returns the block in which evaluation continues,
// alongside the Var holding the expression's value.

// parseExpression parses the comma operator: evaluate left, discard,
// evaluate right; the overall value is the right.
func (p *Parser) parseExpression(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseAssignment(b)
	for {
		if _, ok := p.accept(token.COMMA); !ok {
			return block, v
		}
		block, v = p.parseAssignment(block)
	}
}

// parseConstantExpression parses a conditional-expression into a fresh head
// block and requires that no IR was appended and the result is IMMEDIATE.
func (p *Parser) parseConstantExpression() *ir.Var {
	head := p.cfg.NewBlock()
	tail, v := p.parseConditional(head)
	if tail != head || len(head.Code) != 0 || !v.IsImmediate() {
		p.fatal(p.pos(), "must be computable at compile time")
	}
	return v
}

var assignOps = map[token.Token]ir.OpCode{
	token.MUL_ASSIGN:   ir.MUL,
	token.DIV_ASSIGN:   ir.DIV,
	token.MOD_ASSIGN:   ir.MOD,
	token.PLUS_ASSIGN:  ir.ADD,
	token.MINUS_ASSIGN: ir.SUB,
	token.AND_ASSIGN:   ir.AND,
	token.OR_ASSIGN:    ir.OR,
	token.XOR_ASSIGN:   ir.XOR,
}

// parseAssignment implements the assignment production: after
// parsing the LHS as a conditional-expression, a compound-assignment
// operator first computes the binary op on (target, rhs) then assigns;
// plain `=` assigns directly. The overall expression yields the assigned
// value.
func (p *Parser) parseAssignment(b *ir.Block) (*ir.Block, *ir.Var) {
	lblock, lval := p.parseConditional(b)

	tok := p.peek().Kind
	if tok == token.ASSIGN {
		p.next()
		rblock, rval := p.parseAssignment(lblock)
		if !lval.Lvalue {
			p.fatal(p.pos(), "left-hand side of assignment must be an lvalue")
		}
		rval = ir.EvalCast(rblock, rval, lval.Type)
		return rblock, ir.EvalAssign(rblock, lval, rval)
	}
	if op, ok := assignOps[tok]; ok {
		p.next()
		rblock, rval := p.parseAssignment(lblock)
		if !lval.Lvalue {
			p.fatal(p.pos(), "left-hand side of assignment must be an lvalue")
		}
		binVal := ir.EvalExpr(rblock, op, lval, rval)
		binVal = ir.EvalCast(rblock, binVal, lval.Type)
		return rblock, ir.EvalAssign(rblock, lval, binVal)
	}
	return lblock, lval
}

// parseConditional implements the ternary operator: three successor blocks
// are minted, the current block branches to them, both sides route into
// `next`, whose Expr is EvalConditional's result.
func (p *Parser) parseConditional(b *ir.Block) (*ir.Block, *ir.Var) {
	condBlock, condVal := p.parseLogicalOr(b)
	if _, ok := p.accept(token.QUESTION); !ok {
		return condBlock, condVal
	}

	tBlock := p.cfg.NewBlock()
	fBlock := p.cfg.NewBlock()
	next := p.cfg.NewBlock()
	condBlock.Expr = condVal
	condBlock.Branch(fBlock, tBlock)

	tTail, tVal := p.parseExpression(tBlock)
	p.expect(token.COLON)
	fTail, fVal := p.parseConditional(fBlock)

	tTail.JumpTo(next)
	fTail.JumpTo(next)

	resultType := conditionalResultType(tVal.Type, fVal.Type)
	result := ir.EvalConditional(p.cfg, tTail, fTail, tVal, fVal, resultType)
	next.Expr = result
	return next, result
}

func conditionalResultType(a, b *types.Type) *types.Type {
	if types.IsPointer(a) || types.IsPointer(b) {
		if types.IsPointer(a) {
			return a
		}
		return b
	}
	return ir.ResultType(ir.NOP, a, b)
}

func (p *Parser) parseLogicalOr(b *ir.Block) (*ir.Block, *ir.Var) {
	leftBlock, leftVal := p.parseLogicalAnd(b)
	if _, ok := p.accept(token.LOGICAL_OR); !ok {
		return leftBlock, leftVal
	}
	rightHead := p.cfg.NewBlock()
	rightTail, rightVal := p.parseLogicalOr(rightHead)
	return ir.EvalLogicalOr(p.cfg, leftBlock, leftVal, rightHead, rightTail, rightVal)
}

func (p *Parser) parseLogicalAnd(b *ir.Block) (*ir.Block, *ir.Var) {
	leftBlock, leftVal := p.parseBitOr(b)
	if _, ok := p.accept(token.LOGICAL_AND); !ok {
		return leftBlock, leftVal
	}
	rightHead := p.cfg.NewBlock()
	rightTail, rightVal := p.parseLogicalAnd(rightHead)
	return ir.EvalLogicalAnd(p.cfg, leftBlock, leftVal, rightHead, rightTail, rightVal)
}

func (p *Parser) parseBitOr(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseBitXor(b)
	for {
		if _, ok := p.accept(token.PIPE); !ok {
			return block, v
		}
		rb, rv := p.parseBitXor(block)
		block = rb
		v = ir.EvalExpr(block, ir.OR, v, rv)
	}
}

func (p *Parser) parseBitXor(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseBitAnd(b)
	for {
		if _, ok := p.accept(token.CARET); !ok {
			return block, v
		}
		rb, rv := p.parseBitAnd(block)
		block = rb
		v = ir.EvalExpr(block, ir.XOR, v, rv)
	}
}

func (p *Parser) parseBitAnd(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseEquality(b)
	for {
		if _, ok := p.accept(token.AMPERSAND); !ok {
			return block, v
		}
		rb, rv := p.parseEquality(block)
		block = rb
		v = ir.EvalExpr(block, ir.AND, v, rv)
	}
}

// parseEquality normalizes `==`/`!=` to EQ: `!= -> EQ(0, EQ(lhs, rhs))`.
func (p *Parser) parseEquality(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseRelational(b)
	for {
		tok := p.peek().Kind
		if tok != token.EQ && tok != token.NEQ {
			return block, v
		}
		p.next()
		rb, rv := p.parseRelational(block)
		block = rb
		eq := ir.EvalExpr(block, ir.EQ, v, rv)
		if tok == token.NEQ {
			v = ir.EvalExpr(block, ir.EQ, ir.VarInt(0, types.BasicInt), eq)
		} else {
			v = eq
		}
	}
}

// parseRelational normalizes `<`/`>`/`<=`/`>=` to GT/GE.
func (p *Parser) parseRelational(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseShift(b)
	for {
		tok := p.peek().Kind
		if tok != token.LT && tok != token.GT && tok != token.LEQ && tok != token.GEQ {
			return block, v
		}
		p.next()
		rb, rv := p.parseShift(block)
		block = rb
		switch tok {
		case token.LT:
			v = ir.EvalExpr(block, ir.GT, rv, v)
		case token.GT:
			v = ir.EvalExpr(block, ir.GT, v, rv)
		case token.LEQ:
			v = ir.EvalExpr(block, ir.GE, rv, v)
		case token.GEQ:
			v = ir.EvalExpr(block, ir.GE, v, rv)
		}
	}
}

func (p *Parser) parseShift(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseAdditive(b)
	for {
		tok := p.peek().Kind
		var op ir.OpCode
		switch tok {
		case token.LSHIFT:
			op = ir.SHL
		case token.RSHIFT:
			op = ir.SHR
		default:
			return block, v
		}
		p.next()
		rb, rv := p.parseAdditive(block)
		block = rb
		v = ir.EvalExpr(block, op, v, rv)
	}
}

func (p *Parser) parseAdditive(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseMultiplicative(b)
	v = decayArray(v)
	for {
		tok := p.peek().Kind
		var op ir.OpCode
		switch tok {
		case token.PLUS:
			op = ir.ADD
		case token.MINUS:
			op = ir.SUB
		default:
			return block, v
		}
		p.next()
		rb, rv := p.parseMultiplicative(block)
		block = rb
		rv = decayArray(rv)
		v = ir.EvalExpr(block, op, v, rv)
	}
}

func (p *Parser) parseMultiplicative(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parseCast(b)
	for {
		tok := p.peek().Kind
		var op ir.OpCode
		switch tok {
		case token.STAR:
			op = ir.MUL
		case token.SLASH:
			op = ir.DIV
		case token.PERCENT:
			op = ir.MOD
		default:
			return block, v
		}
		p.next()
		rb, rv := p.parseCast(block)
		block = rb
		v = ir.EvalExpr(block, op, v, rv)
	}
}

// decayArray realizes the array-to-pointer decay most expression contexts
// apply: the Var's address bits are unchanged, only its type becomes
// pointer-to-element.
func decayArray(v *ir.Var) *ir.Var {
	if v == nil || !types.IsArray(v.Type) {
		return v
	}
	return v.WithOffset(0, types.Decay(v.Type))
}

// isTypeNameStart reports whether tok can begin a type-name, used for the
// two-token cast/sizeof lookahead.
func (p *Parser) isTypeNameStart(tok scanner.Tok) bool {
	if token.IsTypeSpecifierKeyword(tok.Kind) {
		return true
	}
	if slices.Contains(typeNameLeaderTokens, tok.Kind) {
		return true
	}
	if tok.Kind == token.IDENTIFIER {
		if sym, ok := p.identNS.Lookup(tok.Lexeme); ok && sym.SymType == symtab.Typedef {
			return true
		}
	}
	return false
}

// parseTypeName parses a specifier-qualifier-list followed by an optional
// abstract declarator, as used by sizeof, casts and __builtin_va_arg.
func (p *Parser) parseTypeName() *types.Type {
	base, _ := p.parseDeclarationSpecifiers(false)
	_, build := p.parseDeclarator()
	return build(base)
}

// parseCast implements two-token-lookahead cast
// disambiguation.
func (p *Parser) parseCast(b *ir.Block) (*ir.Block, *ir.Var) {
	if p.peek().Kind == token.LPAREN && p.isTypeNameStart(p.peekN(2)) {
		p.next()
		t := p.parseTypeName()
		p.expect(token.RPAREN)
		cb, v := p.parseCast(b)
		return cb, ir.EvalCast(cb, v, t)
	}
	return p.parseUnary(b)
}

// parseUnary implements &, *, !, ~, unary +/-, prefix ++/--, and sizeof.
func (p *Parser) parseUnary(b *ir.Block) (*ir.Block, *ir.Var) {
	tok := p.peek()
	switch tok.Kind {
	case token.AMPERSAND:
		p.next()
		cb, v := p.parseCast(b)
		return cb, ir.EvalAddr(cb, v)
	case token.STAR:
		p.next()
		cb, v := p.parseCast(b)
		return cb, ir.EvalDeref(cb, decayArray(v))
	case token.NOT:
		p.next()
		cb, v := p.parseCast(b)
		return cb, ir.EvalUnary(cb, ir.LOGNOT, v)
	case token.TILDE:
		p.next()
		cb, v := p.parseCast(b)
		return cb, ir.EvalUnary(cb, ir.COMPLEMENT, v)
	case token.PLUS:
		p.next()
		cb, v := p.parseCast(b)
		cp := *v
		cp.Lvalue = false
		return cb, &cp
	case token.MINUS:
		p.next()
		cb, v := p.parseCast(b)
		return cb, ir.EvalUnary(cb, ir.NEG, v)
	case token.INCREMENT, token.DECREMENT:
		p.next()
		cb, v := p.parseUnary(b)
		op := ir.ADD
		if tok.Kind == token.DECREMENT {
			op = ir.SUB
		}
		newVal := ir.EvalExpr(cb, op, v, ir.VarInt(1, types.BasicInt))
		return cb, ir.EvalAssign(cb, v, newVal)
	case token.SIZEOF:
		return p.parseSizeof(b)
	default:
		return p.parsePostfix(b)
	}
}

func (p *Parser) parseSizeof(b *ir.Block) (*ir.Block, *ir.Var) {
	sizeofPos := p.next().Pos // sizeof

	var t *types.Type
	if p.peek().Kind == token.LPAREN && p.isTypeNameStart(p.peekN(2)) {
		p.next()
		t = p.parseTypeName()
		p.expect(token.RPAREN)
	} else {
		// parse the operand into a throwaway block so no IR escapes into b:
		// sizeof never evaluates its operand.
		throwaway := p.cfg.NewBlock()
		_, v := p.parseUnary(throwaway)
		t = v.Type
	}
	if types.IsFunction(t) || !types.IsComplete(t) {
		p.fatal(sizeofPos, "sizeof applied to an incomplete or function type")
	}
	return b, ir.VarInt(int64(types.SizeOf(t)), types.BasicUnsignedLong)
}

// parsePostfix implements `[`, `(`, `.`, `->`, `++`, `--`.
func (p *Parser) parsePostfix(b *ir.Block) (*ir.Block, *ir.Var) {
	block, v := p.parsePrimary(b)
	for {
		switch p.peek().Kind {
		case token.LBRACKET:
			p.next()
			ib, idx := p.parseExpression(block)
			p.expect(token.RBRACKET)
			block = ib
			base := decayArray(v)
			addr := ir.EvalExpr(block, ir.ADD, base, idx)
			v = ir.EvalDeref(block, addr)
		case token.LPAREN:
			block, v = p.parseCallArgs(block, v)
		case token.DOT:
			p.next()
			name := p.expect(token.IDENTIFIER).Lexeme
			v = p.memberAccess(v, name, false)
		case token.ARROW:
			p.next()
			name := p.expect(token.IDENTIFIER).Lexeme
			v = p.memberAccess(v, name, true)
		case token.INCREMENT, token.DECREMENT:
			op := ir.ADD
			if p.peek().Kind == token.DECREMENT {
				op = ir.SUB
			}
			p.next()
			tmp := p.cfg.CreateVar(v.Type)
			ir.EvalAssign(block, tmp, v)
			newVal := ir.EvalExpr(block, op, v, ir.VarInt(1, types.BasicInt))
			ir.EvalAssign(block, v, newVal)
			v = tmp
		default:
			return block, v
		}
	}
}

func (p *Parser) memberAccess(v *ir.Var, name string, arrow bool) *ir.Var {
	pos := p.pos()
	t := v.Type
	base := v
	if arrow {
		if !types.IsPointer(t) {
			p.fatal(pos, "member reference -> requires a pointer to struct/union")
		}
		t = t.Inner
		base = ir.EvalDeref(nil, v)
	}
	if !types.IsStructOrUnion(t) {
		p.fatal(pos, "request for member %q in non-aggregate type", name)
	}
	m, ok := types.FindTypeMember(t, name)
	if !ok {
		p.fatal(pos, "no member named %q", name)
	}
	return base.WithOffset(m.Offset, m.Type)
}

// parseCallArgs parses the `(args)` postfix operator and emits the
// PARAM/CALL instruction sequence.
func (p *Parser) parseCallArgs(block *ir.Block, callee *ir.Var) (*ir.Block, *ir.Var) {
	pos := p.pos()
	p.next() // (

	var fnType *types.Type
	switch {
	case types.IsPointer(callee.Type) && types.IsFunction(callee.Type.Inner):
		fnType = callee.Type.Inner
		callee = ir.EvalDeref(nil, callee)
	case types.IsFunction(callee.Type):
		fnType = callee.Type
	default:
		p.fatal(pos, "called object is not a function")
	}

	var args []*ir.Var
	if p.peek().Kind != token.RPAREN {
		for {
			ab, v := p.parseAssignment(block)
			block = ab
			args = append(args, decayArray(v))
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
			if p.peek().Kind == token.RPAREN {
				p.fatal(p.pos(), "expected expression after ','")
			}
		}
	}
	p.expect(token.RPAREN)

	if len(args) < len(fnType.Params) {
		p.fatal(pos, "too few arguments to call")
	}
	if !fnType.Vararg && len(args) > len(fnType.Params) {
		p.fatal(pos, "too many arguments to call")
	}
	for _, a := range args {
		ir.Param(block, a)
	}
	result := ir.EvalCall(block, callee, args, fnType.Return)
	return block, result
}

// parsePrimary implements primary-expression, including the
// two builtin pseudo-call interceptions.
func (p *Parser) parsePrimary(b *ir.Block) (*ir.Block, *ir.Var) {
	tok := p.peek()
	switch tok.Kind {
	case token.IDENTIFIER:
		if tok.Lexeme == "__builtin_va_start" && p.peekN(2).Kind == token.LPAREN {
			return p.parseBuiltinVaStart(b)
		}
		if tok.Lexeme == "__builtin_va_arg" && p.peekN(2).Kind == token.LPAREN {
			return p.parseBuiltinVaArg(b)
		}
		sym, ok := p.identNS.Lookup(tok.Lexeme)
		if !ok {
			p.fatal(tok.Pos, "undeclared identifier %q", tok.Lexeme)
		}
		p.next()
		if sym.SymType == symtab.EnumValue {
			return b, ir.VarInt(int64(sym.EnumValue), sym.Type)
		}
		return b, ir.VarDirect(sym)
	case token.INTEGER_CONSTANT:
		p.next()
		t := types.BasicInt
		if tok.IsUnsigned {
			t = types.BasicUnsignedInt
		}
		return b, ir.VarInt(tok.IntValue, t)
	case token.STRING:
		p.next()
		return b, ir.VarString(tok.StringValue)
	case token.LPAREN:
		p.next()
		inner, v := p.parseExpression(b)
		p.expect(token.RPAREN)
		return inner, v
	default:
		p.fatal(tok.Pos, "expected expression, found %s", tok.Kind)
		panic("unreachable")
	}
}

func (p *Parser) parseBuiltinVaStart(b *ir.Block) (*ir.Block, *ir.Var) {
	p.next() // __builtin_va_start
	p.expect(token.LPAREN)
	block, ap := p.parseAssignment(b)
	p.expect(token.COMMA)
	last := p.expect(token.IDENTIFIER)
	if p.fn == nil || p.fn.lastParam == nil || p.fn.lastParam.Name != last.Lexeme {
		p.fatal(last.Pos, "second argument to __builtin_va_start must be the last named parameter")
	}
	p.expect(token.RPAREN)
	ir.EvalBuiltinVaStart(block, ap)
	return block, nil
}

func (p *Parser) parseBuiltinVaArg(b *ir.Block) (*ir.Block, *ir.Var) {
	p.next() // __builtin_va_arg
	p.expect(token.LPAREN)
	block, ap := p.parseAssignment(b)
	p.expect(token.COMMA)
	t := p.parseTypeName()
	p.expect(token.RPAREN)
	return block, ir.EvalBuiltinVaArg(p.cfg, block, ap, t)
}
