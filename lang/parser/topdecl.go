package parser

import (
	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/token"
	"github.com/cc89front/cc89front/lang/types"
)

// parseTopLevelDecl parses one top-level declaration or definition: a fresh
// CFG is started, declaration-specifiers are parsed once, and each
// comma-separated declarator is dispatched per the (symtype, linkage)
// decision table. It reports whether a CFG worth keeping was produced — a
// bare declaration with no initializer needs none.
func (p *Parser) parseTopLevelDecl() (*ir.CFG, bool) {
	p.cfg = ir.NewCFG(nil)
	base, storage := p.parseDeclarationSpecifiers(true)

	if _, ok := p.accept(token.SEMICOLON); ok {
		// a standalone struct/union/enum declaration with no declarator.
		return nil, false
	}

	produced := false
	for {
		pos := p.pos()
		name, build := p.parseDeclarator()
		t := build(base)
		if name == "" {
			p.fatal(pos, "declarator requires a name at file scope")
		}

		switch {
		case storage == token.TYPEDEF:
			p.identNS.Add(name, t, symtab.Typedef, symtab.LinkNone)

		case p.peek().Kind == token.LBRACE && types.IsFunction(t):
			return p.parseFunctionDefinition(pos, name, t, storage), true

		default:
			symType, linkage := topLevelSymTypeLinkage(storage, t)
			sym, ok := p.identNS.LookupCurrent(name)
			if !ok {
				sym = p.identNS.Add(name, t, symType, linkage)
			}
			if _, ok := p.accept(token.ASSIGN); ok {
				sym.SymType = symtab.Definition
				p.cfg.Head = p.parseInitializer(p.cfg.Head, t, ir.VarDirect(sym), true)
				produced = true
			}
		}

		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
	}
	p.expect(token.SEMICOLON)
	return p.cfg, produced
}

// topLevelSymTypeLinkage implements the file-scope (symtype, linkage)
// decision table.
func topLevelSymTypeLinkage(storage token.Token, t *types.Type) (symtab.SymType, symtab.Linkage) {
	switch storage {
	case token.EXTERN:
		return symtab.Declaration, symtab.LinkExtern
	case token.STATIC:
		return symtab.Tentative, symtab.LinkIntern
	default:
		return symtab.Tentative, symtab.LinkExtern
	}
}

// parseFunctionDefinition parses a function body following its declarator:
// the identifier namespace is pushed, __func__ is synthesized into the
// CFG's prologue block, named parameters are registered, the compound
// statement is parsed, and any pending goto fixups are resolved before the
// namespace pops.
func (p *Parser) parseFunctionDefinition(pos token.Pos, name string, t *types.Type, storage token.Token) *ir.CFG {
	linkage := symtab.LinkExtern
	if storage == token.STATIC {
		linkage = symtab.LinkIntern
	}
	sym := p.identNS.Add(name, t, symtab.Definition, linkage)

	p.cfg = ir.NewCFG(sym)
	p.fn = &funcContext{
		sym:     sym,
		retType: t.Return,
		vararg:  t.Vararg,
		labels:  map[string]*ir.Block{},
	}

	p.identNS.PushScope()
	p.tagNS.PushScope()

	funcNameType := types.NewArray(types.BasicChar.Qualify(types.QualConst), len(name)+1)
	funcSym := &symtab.Symbol{Name: "__func__", Type: funcNameType, SymType: symtab.Definition, Linkage: symtab.LinkNone}
	p.identNS.AddSymbol(funcSym)
	p.cfg.RegisterLocal(funcSym)
	ir.EvalAssign(p.cfg.Head, ir.VarDirect(funcSym), ir.VarString(name))

	for _, param := range t.Params {
		if param.Name == "" {
			p.fatal(pos, "parameter name required in a function definition")
		}
		psym := p.identNS.Add(param.Name, param.Type, symtab.Definition, symtab.LinkNone)
		p.cfg.RegisterParam(psym)
		p.fn.lastParam = psym
	}

	body := p.cfg.NewBlock()
	p.cfg.Head.JumpTo(body)
	p.cfg.Body = body

	bodyCont := p.parseCompoundStatement(body)
	if bodyCont != nil {
		// Falling off the end of a function without an explicit return is
		// undefined behavior for a non-void return type in C89; this front
		// end only needs every block to end in a jump, not a meaningful
		// value.
		ir.EvalReturn(bodyCont, nil, t.Return)
	}

	p.resolveGotoFixups()

	p.tagNS.PopScope()
	p.identNS.PopScope()
	p.fn = nil

	return p.cfg
}

// parseLocalDeclaration parses a block-scope declaration:
// `static` objects are registered with FileScopeStorage (their initializer,
// if any, must still be a compile-time constant, evaluated once into the
// CFG's prologue block) while plain automatic objects may be initialized by
// a runtime expression evaluated in place. Either way, zero-fill is emitted
// for any elements/members a partial initializer left unmentioned.
func (p *Parser) parseLocalDeclaration(b *ir.Block) *ir.Block {
	base, storage := p.parseDeclarationSpecifiers(true)
	if _, ok := p.accept(token.SEMICOLON); ok {
		return b
	}

	block := b
	for {
		pos := p.pos()
		name, build := p.parseDeclarator()
		t := build(base)
		if name == "" {
			p.fatal(pos, "declarator requires a name")
		}

		switch storage {
		case token.TYPEDEF:
			p.identNS.Add(name, t, symtab.Typedef, symtab.LinkNone)

		case token.EXTERN:
			p.identNS.Add(name, t, symtab.Declaration, symtab.LinkExtern)

		case token.STATIC:
			sym := p.identNS.Add(name, t, symtab.Definition, symtab.LinkIntern)
			sym.FileScopeStorage = true
			p.cfg.RegisterLocal(sym)
			if _, ok := p.accept(token.ASSIGN); ok {
				p.cfg.Head = p.parseInitializer(p.cfg.Head, t, ir.VarDirect(sym), true)
			}

		default:
			sym := p.identNS.Add(name, t, symtab.Definition, symtab.LinkNone)
			p.cfg.RegisterLocal(sym)
			if _, ok := p.accept(token.ASSIGN); ok {
				block = p.parseInitializer(block, t, ir.VarDirect(sym), false)
			}
		}

		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
	}
	p.expect(token.SEMICOLON)
	return block
}
