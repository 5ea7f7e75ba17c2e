package parser

import (
	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/token"
	"github.com/cc89front/cc89front/lang/types"
)

// parseInitializer dispatches on t's shape (array / struct-or-union /
// scalar) and emits the assignments that store into target, which must
// already address the object being initialized, plus zero-fill assignments
// for any elements/members a partial braced list leaves unmentioned, so
// every byte of the target object ends up covered by either an explicit
// assignment or a zero-fill one. mustBeConstant enforces file-scope's
// "initializer must be computable at compile time".
func (p *Parser) parseInitializer(b *ir.Block, t *types.Type, target *ir.Var, mustBeConstant bool) *ir.Block {
	switch {
	case types.IsArray(t) && isCharType(t.Inner) && p.peek().Kind == token.STRING:
		return p.parseStringInitializer(b, t, target)
	case types.IsArray(t):
		block, _ := p.parseArrayInitializer(b, t, target, mustBeConstant)
		return block
	case types.IsStructOrUnion(t):
		return p.parseAggregateInitializer(b, t, target, mustBeConstant)
	default:
		return p.parseScalarInitializer(b, t, target, mustBeConstant)
	}
}

func isCharType(t *types.Type) bool {
	return types.IsInteger(t) && types.SizeOf(t) == 1
}

func (p *Parser) parseScalarInitializer(b *ir.Block, t *types.Type, target *ir.Var, mustBeConstant bool) *ir.Block {
	pos := p.pos()
	// C89 tolerates a single extra brace pair around a scalar initializer.
	braced := false
	if _, ok := p.accept(token.LBRACE); ok {
		braced = true
	}
	block, v := p.parseAssignment(b)
	if braced {
		p.accept(token.COMMA)
		p.expect(token.RBRACE)
	}
	v = ir.EvalCast(block, v, t)
	if mustBeConstant && !v.IsImmediate() {
		p.fatal(pos, "initializer element is not computable at compile time")
	}
	ir.EvalAssign(block, target, v)
	return block
}

func (p *Parser) parseStringInitializer(b *ir.Block, t *types.Type, target *ir.Var) *ir.Block {
	tok := p.next()
	s := tok.StringValue
	if t.Length == 0 {
		t.Length = len(s) + 1
	} else if len(s)+1 > t.Length {
		p.fatal(tok.Pos, "initializer string too long for array of length %d", t.Length)
	}
	ir.EvalAssign(b, target, ir.VarString(s))
	return b
}

// parseArrayInitializer parses a braced element list, patching t.Length in
// place when the array was declared incomplete: an incomplete array's size
// is patched from the initializer-list length.
func (p *Parser) parseArrayInitializer(b *ir.Block, t *types.Type, target *ir.Var, mustBeConstant bool) (*ir.Block, int) {
	p.expect(token.LBRACE)
	elemSize := types.SizeOf(t.Inner)
	block := b
	count := 0
	for p.peek().Kind != token.RBRACE {
		if t.Length > 0 && count >= t.Length {
			p.fatal(p.pos(), "excess elements in array initializer")
		}
		elemTarget := target.WithOffset(count*elemSize, t.Inner)
		block = p.parseInitializer(block, t.Inner, elemTarget, mustBeConstant)
		count++
		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
		if p.peek().Kind == token.RBRACE {
			break
		}
	}
	p.expect(token.RBRACE)

	if t.Length == 0 {
		t.Length = count
	} else {
		for i := count; i < t.Length; i++ {
			elemTarget := target.WithOffset(i*elemSize, t.Inner)
			block = p.zeroInitialize(block, t.Inner, elemTarget)
		}
	}
	return block, count
}

// parseAggregateInitializer parses a braced member list. For a union, only
// the first member may be initialized.
func (p *Parser) parseAggregateInitializer(b *ir.Block, t *types.Type, target *ir.Var, mustBeConstant bool) *ir.Block {
	p.expect(token.LBRACE)
	members := types.Members(t)
	block := b
	if !types.IsStruct(t) && len(members) > 0 && types.SizeOf(members[0].Type) < types.SizeOf(t) {
		// the first member does not cover the whole union: zero the object
		// first so the bytes past that member are covered too.
		whole := types.NewArray(types.BasicChar, types.SizeOf(t))
		block = p.zeroInitialize(block, whole, target.WithOffset(0, whole))
	}
	i := 0
	for p.peek().Kind != token.RBRACE {
		if i >= len(members) {
			p.fatal(p.pos(), "excess elements in initializer")
		}
		m := members[i]
		memberTarget := target.WithOffset(m.Offset, m.Type)
		block = p.parseInitializer(block, m.Type, memberTarget, mustBeConstant)
		i++
		if types.IsStruct(t) {
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
			if p.peek().Kind == token.RBRACE {
				break
			}
		} else {
			break // union: first member only
		}
	}
	p.expect(token.RBRACE)

	if types.IsStruct(t) {
		for ; i < len(members); i++ {
			m := members[i]
			memberTarget := target.WithOffset(m.Offset, m.Type)
			block = p.zeroInitialize(block, m.Type, memberTarget)
		}
	}
	return block
}

// copyAggregate recurses t's shape, emitting the member-wise eval_assigns
// that copy src into dst — used to pass a struct/union by value at a
// `return` site, since the front end has no single aggregate-move op.
func (p *Parser) copyAggregate(b *ir.Block, t *types.Type, dst, src *ir.Var) *ir.Block {
	switch {
	case types.IsArray(t):
		elemSize := types.SizeOf(t.Inner)
		for i := 0; i < t.Length; i++ {
			off := i * elemSize
			b = p.copyAggregate(b, t.Inner, dst.WithOffset(off, t.Inner), src.WithOffset(off, t.Inner))
		}
		return b
	case types.IsStructOrUnion(t):
		for _, m := range types.Members(t) {
			b = p.copyAggregate(b, m.Type, dst.WithOffset(m.Offset, m.Type), src.WithOffset(m.Offset, m.Type))
		}
		return b
	default:
		ir.EvalAssign(b, dst, src)
		return b
	}
}

// zeroInitialize recurses t's shape, emitting the assignments that zero-fill
// target, needed wherever an object's partial initializer leaves a tail
// unmentioned.
func (p *Parser) zeroInitialize(b *ir.Block, t *types.Type, target *ir.Var) *ir.Block {
	switch {
	case types.IsArray(t):
		elemSize := types.SizeOf(t.Inner)
		for i := 0; i < t.Length; i++ {
			et := target.WithOffset(i*elemSize, t.Inner)
			b = p.zeroInitialize(b, t.Inner, et)
		}
		return b
	case types.IsStructOrUnion(t):
		for _, m := range types.Members(t) {
			mt := target.WithOffset(m.Offset, m.Type)
			b = p.zeroInitialize(b, m.Type, mt)
		}
		return b
	case types.IsPointer(t):
		ir.EvalAssign(b, target, ir.VarNullPointer())
		return b
	case types.IsFloating(t):
		ir.EvalAssign(b, target, ir.VarFloat(0, t))
		return b
	default:
		ir.EvalAssign(b, target, ir.VarZero(t.Width))
		return b
	}
}
