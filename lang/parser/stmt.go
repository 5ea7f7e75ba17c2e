package parser

import (
	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/token"
	"github.com/cc89front/cc89front/lang/types"
)

// parseStatement parses one statement, weaving blocks into the CFG as
// needed, and returns the block execution continues in after it; nil if
// the statement unconditionally left its block terminated (e.g. return,
// goto, break/continue).
func (p *Parser) parseStatement(b *ir.Block) *ir.Block {
	switch p.peek().Kind {
	case token.LBRACE:
		return p.parseCompoundStatement(b)
	case token.IF:
		return p.parseIf(b)
	case token.WHILE:
		return p.parseWhile(b)
	case token.DO:
		return p.parseDoWhile(b)
	case token.FOR:
		return p.parseFor(b)
	case token.SWITCH:
		return p.parseSwitch(b)
	case token.CASE:
		return p.parseCase(b)
	case token.DEFAULT:
		return p.parseDefault(b)
	case token.BREAK:
		p.next()
		p.expect(token.SEMICOLON)
		target := p.breakTarget()
		if target == nil {
			p.fatal(p.pos(), "break statement not within a loop or switch")
		}
		b.JumpTo(target)
		return nil
	case token.CONTINUE:
		p.next()
		p.expect(token.SEMICOLON)
		target := p.continueTarget()
		if target == nil {
			p.fatal(p.pos(), "continue statement not within a loop")
		}
		b.JumpTo(target)
		return nil
	case token.RETURN:
		return p.parseReturn(b)
	case token.GOTO:
		return p.parseGoto(b)
	case token.SEMICOLON:
		p.next()
		return b
	default:
		if p.peek().Kind == token.IDENTIFIER && p.peekN(2).Kind == token.COLON {
			return p.parseLabeledStatement(b)
		}
		eb, _ := p.parseExpression(b)
		p.expect(token.SEMICOLON)
		return eb
	}
}

// parseCompoundStatement implements `{ (declaration | statement)* }`,
// pushing/popping both namespaces in lock-step.
func (p *Parser) parseCompoundStatement(b *ir.Block) *ir.Block {
	p.expect(token.LBRACE)
	p.identNS.PushScope()
	p.tagNS.PushScope()
	cur := b
	for p.peek().Kind != token.RBRACE {
		if cur == nil {
			// statement after an unconditional jump is unreachable; still
			// parse it (for declarations opening further scopes) into a fresh
			// orphan block so the grammar keeps advancing.
			cur = p.cfg.NewBlock()
		}
		if p.startsDeclaration() {
			cur = p.parseLocalDeclaration(cur)
		} else {
			cur = p.parseStatement(cur)
		}
	}
	p.expect(token.RBRACE)
	p.tagNS.PopScope()
	p.identNS.PopScope()
	return cur
}

// startsDeclaration implements statement/declaration leader
// disambiguation: a typedef-bound identifier starts a declaration; so does
// any other token that cannot start a statement.
func (p *Parser) startsDeclaration() bool {
	tok := p.peek()
	switch tok.Kind {
	case token.LBRACE, token.IF, token.WHILE, token.DO, token.FOR,
		token.SWITCH, token.CASE, token.DEFAULT, token.BREAK,
		token.CONTINUE, token.RETURN, token.GOTO:
		return false
	case token.IDENTIFIER, token.INTEGER_CONSTANT, token.STRING,
		token.STAR, token.LPAREN, token.AMPERSAND, token.NOT, token.TILDE,
		token.PLUS, token.MINUS, token.INCREMENT, token.DECREMENT,
		token.SIZEOF, token.SEMICOLON:
		if tok.Kind == token.IDENTIFIER {
			sym, ok := p.identNS.Lookup(tok.Lexeme)
			return ok && sym.SymType == symtab.Typedef
		}
		return false
	default:
		return true
	}
}

// parseIf implements if/else, pruning the untaken arm at parse time when
// the condition folds to a compile-time constant. The untaken arm is still
// parsed, into a throwaway block, so its syntax is validated and any
// declarations it introduces go out of scope normally; its IR just never
// reaches the live CFG path.
func (p *Parser) parseIf(b *ir.Block) *ir.Block {
	p.next() // if
	p.expect(token.LPAREN)
	condBlock, condVal := p.parseExpression(b)
	p.expect(token.RPAREN)

	if condVal.IsImmediate() {
		taken := condVal.ImmInt != 0 || condVal.ImmFloat != 0
		if taken {
			thenCont := p.parseStatement(condBlock)
			if _, ok := p.accept(token.ELSE); ok {
				p.parseStatement(p.cfg.NewBlock()) // dead arm, parsed and discarded
			}
			return thenCont
		}
		p.parseStatement(p.cfg.NewBlock()) // dead arm, parsed and discarded
		if _, ok := p.accept(token.ELSE); ok {
			return p.parseStatement(condBlock)
		}
		return condBlock
	}

	tBlock := p.cfg.NewBlock()
	fBlock := p.cfg.NewBlock()
	condBlock.Expr = condVal
	condBlock.Branch(fBlock, tBlock)

	thenCont := p.parseStatement(tBlock)

	var elseCont *ir.Block = fBlock
	if _, ok := p.accept(token.ELSE); ok {
		elseCont = p.parseStatement(fBlock)
	}

	if thenCont == nil && elseCont == nil {
		return nil
	}
	merge := p.cfg.NewBlock()
	if thenCont != nil {
		thenCont.JumpTo(merge)
	}
	if elseCont != nil {
		elseCont.JumpTo(merge)
	}
	return merge
}

// parseWhile implements the pre-test loop, pruning an always-false
// condition to a no-op and an always-true one to an unconditional jump into
// the body.
func (p *Parser) parseWhile(b *ir.Block) *ir.Block {
	p.next() // while
	p.expect(token.LPAREN)
	head := p.cfg.NewBlock()
	b.JumpTo(head)
	condBlock, condVal := p.parseExpression(head)
	p.expect(token.RPAREN)

	after := p.cfg.NewBlock()
	if condVal.IsImmediate() && condVal.ImmInt == 0 && condVal.ImmFloat == 0 {
		condBlock.JumpTo(after)
		p.pushLoop(after, head)
		p.parseStatement(p.cfg.NewBlock())
		p.popLoop()
		return after
	}

	bodyHead := p.cfg.NewBlock()
	if condVal.IsImmediate() {
		condBlock.JumpTo(bodyHead)
	} else {
		condBlock.Expr = condVal
		condBlock.Branch(after, bodyHead)
	}

	p.pushLoop(after, head)
	bodyCont := p.parseStatement(bodyHead)
	p.popLoop()
	if bodyCont != nil {
		bodyCont.JumpTo(head)
	}
	return after
}

// parseDoWhile implements the post-test loop.
func (p *Parser) parseDoWhile(b *ir.Block) *ir.Block {
	p.next() // do
	bodyHead := p.cfg.NewBlock()
	b.JumpTo(bodyHead)

	condHead := p.cfg.NewBlock()
	after := p.cfg.NewBlock()

	p.pushLoop(after, condHead)
	bodyCont := p.parseStatement(bodyHead)
	p.popLoop()
	if bodyCont != nil {
		bodyCont.JumpTo(condHead)
	}

	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	condBlock, condVal := p.parseExpression(condHead)
	p.expect(token.RPAREN)
	p.expect(token.SEMICOLON)

	condBlock.Expr = condVal
	condBlock.Branch(after, bodyHead)
	return after
}

// parseFor implements the three-clause loop. The init-clause may be either
// an expression-statement or a declaration.
func (p *Parser) parseFor(b *ir.Block) *ir.Block {
	p.next() // for
	p.expect(token.LPAREN)

	cur := b
	if p.peek().Kind != token.SEMICOLON {
		if p.startsDeclaration() {
			cur = p.parseLocalDeclaration(cur)
		} else {
			cur, _ = p.parseExpression(cur)
			p.expect(token.SEMICOLON)
		}
	} else {
		p.next()
	}

	condHead := p.cfg.NewBlock()
	cur.JumpTo(condHead)

	var condBlock *ir.Block
	var condVal *ir.Var
	hasCond := p.peek().Kind != token.SEMICOLON
	if hasCond {
		condBlock, condVal = p.parseExpression(condHead)
	} else {
		condBlock = condHead
	}
	p.expect(token.SEMICOLON)

	postHead := p.cfg.NewBlock()
	// Parse the post-expression now but wire it after the body; capture the
	// token stream position is not needed since post has no branches of its
	// own (three-address IR, straight line), so parsing it directly into
	// postHead and using its tail below is correct either way.
	var postTail *ir.Block
	if p.peek().Kind != token.RPAREN {
		postTail, _ = p.parseExpression(postHead)
	} else {
		postTail = postHead
	}
	p.expect(token.RPAREN)

	after := p.cfg.NewBlock()
	bodyHead := p.cfg.NewBlock()
	if hasCond {
		condBlock.Expr = condVal
		condBlock.Branch(after, bodyHead)
	} else {
		condBlock.JumpTo(bodyHead)
	}

	p.pushLoop(after, postHead)
	bodyCont := p.parseStatement(bodyHead)
	p.popLoop()
	if bodyCont != nil {
		bodyCont.JumpTo(postHead)
	}
	postTail.JumpTo(condHead)

	return after
}

// parseSwitch lowers switch/case/default to an EQ-comparison chain: the
// body is parsed first to collect its case/default labels (as a flat list
// of already-live
// blocks, since case/default parse their own label blocks in source order),
// then a chain of `EQ` comparisons is emitted ahead of the body to route
// control into the matching case.
func (p *Parser) parseSwitch(b *ir.Block) *ir.Block {
	p.next() // switch
	p.expect(token.LPAREN)
	block, ctrl := p.parseExpression(b)
	p.expect(token.RPAREN)

	after := p.cfg.NewBlock()
	sw := &switchCtx{}
	p.pushSwitch(sw)
	bodyHead := p.cfg.NewBlock()
	p.pushLoop(after, p.continueTarget())
	bodyCont := p.parseStatement(bodyHead)
	p.popLoop()
	p.popSwitch()
	if bodyCont != nil {
		bodyCont.JumpTo(after)
	}

	// Emit the dispatch chain in source order ahead of the body.
	cur := block
	for _, c := range sw.cases {
		next := p.cfg.NewBlock()
		eq := ir.EvalExpr(cur, ir.EQ, ctrl, c.value)
		cur.Expr = eq
		cur.Branch(next, c.label)
		cur = next
	}
	if sw.defaultLabel != nil {
		cur.JumpTo(sw.defaultLabel)
	} else {
		cur.JumpTo(after)
	}

	return after
}

// parseCase implements a `case` label inside a switch: it mints a fresh
// block, records it in the innermost switch's case table, and continues
// parsing statements into it (case labels do not introduce their own
// scope).
func (p *Parser) parseCase(b *ir.Block) *ir.Block {
	pos := p.pos()
	p.next() // case
	if p.curSwitch == nil {
		p.fatal(pos, "case label not within a switch statement")
	}
	v := p.parseConstantExpression()
	p.expect(token.COLON)

	label := p.cfg.NewBlock()
	b.JumpTo(label)
	p.curSwitch.cases = append(p.curSwitch.cases, switchCase{value: v, label: label})
	return p.parseStatement(label)
}

func (p *Parser) parseDefault(b *ir.Block) *ir.Block {
	pos := p.pos()
	p.next() // default
	if p.curSwitch == nil {
		p.fatal(pos, "default label not within a switch statement")
	}
	if p.curSwitch.defaultLabel != nil {
		p.fatal(pos, "multiple default labels in one switch")
	}
	p.expect(token.COLON)

	label := p.cfg.NewBlock()
	b.JumpTo(label)
	p.curSwitch.defaultLabel = label
	return p.parseStatement(label)
}

// parseReturn implements `return expression? ;`, casting to the enclosing
// function's return type — or, for a struct/union return type, copying the
// result member-wise into a fresh temporary instead, since there is no
// single IR op for an aggregate move.
func (p *Parser) parseReturn(b *ir.Block) *ir.Block {
	p.next() // return
	if p.fn == nil {
		p.fatal(p.pos(), "return statement outside of a function")
	}
	if _, ok := p.accept(token.SEMICOLON); ok {
		if !types.IsVoid(p.fn.retType) {
			p.fatal(p.pos(), "non-void function must return a value")
		}
		ir.EvalReturn(b, nil, p.fn.retType)
		return nil
	}
	block, v := p.parseExpression(b)
	p.expect(token.SEMICOLON)
	if types.IsVoid(p.fn.retType) {
		p.fatal(p.pos(), "void function must not return a value")
	}
	if types.IsStructOrUnion(p.fn.retType) {
		tmp := p.cfg.CreateVar(p.fn.retType)
		block = p.copyAggregate(block, p.fn.retType, tmp, v)
		ir.EvalReturn(block, tmp, p.fn.retType)
		return nil
	}
	v = ir.EvalCast(block, v, p.fn.retType)
	ir.EvalReturn(block, v, p.fn.retType)
	return nil
}

// parseGoto implements `goto label ;`. A forward reference to a label not
// yet seen is recorded as a fixup and resolved once the enclosing function
// finishes parsing ("per-function label map + forward fixup
// list").
func (p *Parser) parseGoto(b *ir.Block) *ir.Block {
	p.next() // goto
	name := p.expect(token.IDENTIFIER).Lexeme
	pos := p.pos()
	p.expect(token.SEMICOLON)

	if p.fn == nil {
		p.fatal(pos, "goto statement outside of a function")
	}
	if target, ok := p.fn.labels[name]; ok {
		b.JumpTo(target)
		return nil
	}
	p.fn.gotoFixups = append(p.fn.gotoFixups, gotoFixup{pos: pos, name: name, block: b})
	return nil
}

// parseLabeledStatement implements `identifier : statement`, minting the
// label's block and resolving any goto fixups already recorded against it.
func (p *Parser) parseLabeledStatement(b *ir.Block) *ir.Block {
	name := p.next().Lexeme
	p.next() // :

	if p.fn == nil {
		p.fatal(p.pos(), "label outside of a function")
	}
	if _, exists := p.fn.labels[name]; exists {
		p.fatal(p.pos(), "duplicate label %q", name)
	}

	label := p.cfg.NewBlock()
	b.JumpTo(label)
	p.fn.labels[name] = label

	return p.parseStatement(label)
}

// resolveGotoFixups wires every goto recorded before its target label was
// seen; called once a function body finishes parsing.
func (p *Parser) resolveGotoFixups() {
	for _, fx := range p.fn.gotoFixups {
		target, ok := p.fn.labels[fx.name]
		if !ok {
			p.fatal(fx.pos, "goto to undefined label %q", fx.name)
		}
		fx.block.JumpTo(target)
	}
}
