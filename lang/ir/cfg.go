package ir

import (
	"fmt"

	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/types"
)

// CFG is the control-flow graph under construction for one
// translation-unit-level declaration or definition. The core parser keeps
// exactly one *CFG live at a time, as a field of its Parser value rather
// than as process-global state.
type CFG struct {
	Blocks []*Block
	Head   *Block // entry block; __func__ and other synthetic prologue IR lands here
	Body   *Block // first block of user code, distinct from Head when a prologue exists
	Fn     *symtab.Symbol

	Locals []*symtab.Symbol
	Params []*symtab.Symbol

	nextTemp int
}

// NewCFG starts a fresh CFG for fn (nil for a plain file-scope initializer,
// which still needs a CFG to hold its IR into Head).
func NewCFG(fn *symtab.Symbol) *CFG {
	c := &CFG{Fn: fn}
	head := c.NewBlock()
	c.Head = head
	c.Body = head
	return c
}

// NewBlock mints a fresh, empty block.
func (c *CFG) NewBlock() *Block {
	b := &Block{ID: len(c.Blocks)}
	c.Blocks = append(c.Blocks, b)
	return b
}

// RegisterLocal records sym as a local variable of the function under
// construction (cfg_register_local).
func (c *CFG) RegisterLocal(sym *symtab.Symbol) {
	c.Locals = append(c.Locals, sym)
}

// RegisterParam records sym as a named parameter of the function under
// construction (cfg_register_param).
func (c *CFG) RegisterParam(sym *symtab.Symbol) {
	c.Params = append(c.Params, sym)
}

// CreateVar mints a fresh compiler-temporary of type t, registers it as a
// local and returns a DirectKind Var referring to it.
func (c *CFG) CreateVar(t *types.Type) *Var {
	sym := &symtab.Symbol{
		Name:    fmt.Sprintf("%%t%d", c.nextTemp),
		Type:    t,
		SymType: symtab.Definition,
	}
	c.nextTemp++
	c.RegisterLocal(sym)
	return VarDirect(sym)
}
