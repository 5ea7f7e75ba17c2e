// Package parser implements the C89/C90 front end's core: a recursive-
// descent parser that simultaneously resolves identifiers, synthesizes
// types, folds constant expressions and emits a per-translation-unit CFG of
// basic blocks containing three-address IR.
package parser

import (
	"context"
	"fmt"

	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/scanner"
	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/token"
	"github.com/cc89front/cc89front/lang/types"
)

// Error is a single diagnostic raised by the core. A fatal error is
// returned as a value rather than terminating the process.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// switchCtx is one active switch statement's case table.
type switchCtx struct {
	defaultLabel *ir.Block
	cases        []switchCase
}

type switchCase struct {
	value *ir.Var
	label *ir.Block
}

// loopTargets is the break/continue pair threaded through nested
// loops/switches, modeled as an explicit stack owned by the Parser rather
// than global mutable state.
type loopTargets struct {
	breakTarget    *ir.Block
	continueTarget *ir.Block
}

// funcContext tracks the state scoped to the function definition currently
// being parsed: its declared parameters (for __builtin_va_start's "last
// named parameter" check), its return type, and its label table for goto
// resolution.
type funcContext struct {
	sym        *symtab.Symbol
	retType    *types.Type
	lastParam  *symtab.Symbol
	vararg     bool
	labels     map[string]*ir.Block
	gotoFixups []gotoFixup
}

type gotoFixup struct {
	pos   token.Pos
	name  string
	block *ir.Block
}

// Parser holds all of the core's process-wide mutable state as explicit
// fields of one value, passed explicitly rather than kept as package
// globals.
type Parser struct {
	lex *scanner.Lexer
	fs  *token.FileSet

	identNS *symtab.Namespace // ns_ident
	tagNS   *symtab.Namespace // ns_tag

	cfg   *ir.CFG
	block *ir.Block // the block productions currently append to

	loops     []loopTargets
	curSwitch *switchCtx // innermost active switch context
	switches  []*switchCtx

	fn *funcContext // non-nil only while parsing a function body
}

// NewParser returns a Parser ready to consume lex, reporting positions
// against fs.
func NewParser(fs *token.FileSet, lex *scanner.Lexer) *Parser {
	return &Parser{
		lex:     lex,
		fs:      fs,
		identNS: symtab.NewNamespace(),
		tagNS:   symtab.NewNamespace(),
	}
}

// fatal raises a fatal diagnostic, caught by Parse's recover and turned
// into a single returned error rather than a process exit.
func (p *Parser) fatal(pos token.Pos, format string, args ...any) {
	panic(&Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}) //nolint:forbidigo
}

func (p *Parser) pos() token.Pos { return p.lex.Peek().Pos }

func (p *Parser) peek() scanner.Tok   { return p.lex.Peek() }
func (p *Parser) peekN(n int) scanner.Tok { return p.lex.PeekN(n) }
func (p *Parser) next() scanner.Tok   { return p.lex.Next() }

// expect consumes the current token if it matches kind, else raises a fatal
// error.
func (p *Parser) expect(kind token.Token) scanner.Tok {
	t := p.peek()
	if t.Kind != kind {
		p.fatal(t.Pos, "expected %s, found %s", kind, t.Kind)
	}
	return p.next()
}

// accept consumes and returns (tok, true) if the current token matches kind.
func (p *Parser) accept(kind token.Token) (scanner.Tok, bool) {
	if p.peek().Kind == kind {
		return p.next(), true
	}
	return scanner.Tok{}, false
}

// Parse drives the top-level declaration loop, committing one CFG per
// top-level declaration-or-definition. It returns every committed CFG plus
// the first fatal error encountered, if any: parsing stops at the first
// fatal error, with no recovery or best-effort continuation.
func Parse(ctx context.Context, fs *token.FileSet, lex *scanner.Lexer) (cfgs []*ir.CFG, err error) {
	p := NewParser(fs, lex)
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *Error:
				err = e
			case *scanner.LexError:
				err = &Error{Pos: e.Pos, Msg: e.Msg}
			default:
				panic(r)
			}
		}
	}()

	for p.peek().Kind != token.END {
		cfg, produced := p.parseTopLevelDecl()
		if produced {
			cfgs = append(cfgs, cfg)
		}
	}
	return cfgs, nil
}

// pushLoop/popLoop implement the break/continue target stack.
func (p *Parser) pushLoop(brk, cont *ir.Block) {
	p.loops = append(p.loops, loopTargets{breakTarget: brk, continueTarget: cont})
}

func (p *Parser) popLoop() {
	p.loops = p.loops[:len(p.loops)-1]
}

func (p *Parser) breakTarget() *ir.Block {
	if len(p.loops) == 0 {
		return nil
	}
	return p.loops[len(p.loops)-1].breakTarget
}

func (p *Parser) continueTarget() *ir.Block {
	if len(p.loops) == 0 {
		return nil
	}
	return p.loops[len(p.loops)-1].continueTarget
}

func (p *Parser) pushSwitch(sc *switchCtx) {
	p.switches = append(p.switches, sc)
	p.curSwitch = sc
}

func (p *Parser) popSwitch() {
	p.switches = p.switches[:len(p.switches)-1]
	if len(p.switches) == 0 {
		p.curSwitch = nil
	} else {
		p.curSwitch = p.switches[len(p.switches)-1]
	}
}
