// Package symtab implements two independently-scoped namespaces (ordinary
// identifiers and struct/union/enum tags), each a stack of scopes pushed
// and popped in lock-step with the core parser's compound statements.
package symtab

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/cc89front/cc89front/lang/types"
)

// SymType is the kind of entity a Symbol denotes.
type SymType int

const (
	Declaration SymType = iota // `extern` prototype / object with no storage yet
	Tentative                  // file-scope object awaiting a definition
	Definition                  // an object or function with a body/storage
	Typedef
	EnumValue
)

func (s SymType) String() string {
	switch s {
	case Declaration:
		return "DECLARATION"
	case Tentative:
		return "TENTATIVE"
	case Definition:
		return "DEFINITION"
	case Typedef:
		return "TYPEDEF"
	case EnumValue:
		return "ENUM_VALUE"
	}
	return fmt.Sprintf("SymType(%d)", int(s))
}

// Linkage is the cross-translation-unit visibility of a Symbol.
type Linkage int

const (
	LinkNone Linkage = iota
	LinkIntern
	LinkExtern
)

func (l Linkage) String() string {
	switch l {
	case LinkNone:
		return "NONE"
	case LinkIntern:
		return "INTERN"
	case LinkExtern:
		return "EXTERN"
	}
	return fmt.Sprintf("Linkage(%d)", int(l))
}

// Symbol is an entry in a Namespace.
type Symbol struct {
	Name    string
	Type    *types.Type
	SymType SymType
	Linkage Linkage
	Depth   int // 0 = file scope, >=1 = block scope

	EnumValue int // valid when SymType == EnumValue, or (for a tag) a redefinition sentinel

	// FileScopeStorage marks a block-scope `static` object whose storage
	// slot is allocated from the file-scope arena rather than destroyed when
	// its namespace entry is popped.
	FileScopeStorage bool
}

// scope is one level of a Namespace's stack: a name -> *Symbol map of the
// symbols declared directly in it.
type scope struct {
	names *swiss.Map[string, *Symbol]
}

func newScope() *scope {
	return &scope{names: swiss.NewMap[string, *Symbol](8)}
}

// Namespace is a scoped stack of symbol tables. Two independent instances
// exist in a Parser: one for ordinary identifiers and one for
// struct/union/enum tags.
type Namespace struct {
	scopes []*scope
}

// NewNamespace returns a Namespace with only the file-scope (depth 0) level
// pushed.
func NewNamespace() *Namespace {
	return &Namespace{scopes: []*scope{newScope()}}
}

// CurrentDepth is 0 at file scope, and the nesting depth of compound
// statements otherwise.
func (n *Namespace) CurrentDepth() int { return len(n.scopes) - 1 }

// PushScope opens a new, empty scope.
func (n *Namespace) PushScope() {
	n.scopes = append(n.scopes, newScope())
}

// PopScope discards the innermost scope and every symbol declared in it.
// Callers must never call PopScope at file scope (CurrentDepth() == 0);
// invariant is that every PushScope is matched symmetrically.
func (n *Namespace) PopScope() {
	if len(n.scopes) <= 1 {
		panic("symtab: PopScope called at file scope")
	}
	n.scopes = n.scopes[:len(n.scopes)-1]
}

// Lookup searches from the innermost scope outward and returns the first
// match, or (nil, false).
func (n *Namespace) Lookup(name string) (*Symbol, bool) {
	for i := len(n.scopes) - 1; i >= 0; i-- {
		if sym, ok := n.scopes[i].names.Get(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupCurrent looks up name only in the innermost scope, for detecting
// redeclarations within the same block.
func (n *Namespace) LookupCurrent(name string) (*Symbol, bool) {
	return n.scopes[len(n.scopes)-1].names.Get(name)
}

// Add registers a new Symbol in the innermost scope at the namespace's
// current depth. It does not check for redeclaration; the core parser is
// responsible for that policy, since the legality of a redeclaration
// depends on symtype/linkage rules the type/declaration layer owns, not
// this collaborator.
func (n *Namespace) Add(name string, t *types.Type, st SymType, lk Linkage) *Symbol {
	sym := &Symbol{Name: name, Type: t, SymType: st, Linkage: lk, Depth: n.CurrentDepth()}
	n.scopes[len(n.scopes)-1].names.Put(name, sym)
	return sym
}

// AddSymbol inserts an already-constructed Symbol (its Depth is overwritten
// to the namespace's current depth) — used when the core needs to mutate
// fields (e.g. EnumValue, FileScopeStorage) before insertion.
func (n *Namespace) AddSymbol(sym *Symbol) *Symbol {
	sym.Depth = n.CurrentDepth()
	n.scopes[len(n.scopes)-1].names.Put(sym.Name, sym)
	return sym
}
