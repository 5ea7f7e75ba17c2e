package ir

import (
	"fmt"

	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/types"
)

// VarKind discriminates the three operand shapes a Var can take.
type VarKind int

const (
	DirectKind VarKind = iota
	DerefKind
	ImmediateKind
)

// Var is an IR operand descriptor.
type Var struct {
	Kind   VarKind
	Type   *types.Type
	Symbol *symtab.Symbol // valid when Kind == DirectKind
	Base   *Var           // valid when Kind == DerefKind: the pointer value being dereferenced
	Offset int            // byte offset added to the symbol/base address (member access)

	ImmInt    int64
	ImmFloat  float64
	ImmString string

	Lvalue bool
}

func (v *Var) String() string {
	switch v.Kind {
	case ImmediateKind:
		switch {
		case types.IsFloating(v.Type):
			return fmt.Sprintf("%g", v.ImmFloat)
		case v.Type != nil && types.IsArray(v.Type):
			return fmt.Sprintf("%q", v.ImmString)
		default:
			return fmt.Sprintf("%d", v.ImmInt)
		}
	case DerefKind:
		return fmt.Sprintf("*(%s+%d)", v.Base, v.Offset)
	default:
		name := "<temp>"
		if v.Symbol != nil {
			name = v.Symbol.Name
		}
		if v.Offset != 0 {
			return fmt.Sprintf("%s+%d", name, v.Offset)
		}
		return name
	}
}

// VarDirect returns an lvalue Var referring directly to sym.
func VarDirect(sym *symtab.Symbol) *Var {
	return &Var{Kind: DirectKind, Type: sym.Type, Symbol: sym, Lvalue: true}
}

// WithOffset returns a copy of v (which must be DirectKind or DerefKind)
// shifted by delta bytes and retyped to t — used for `.`/`->` member access
// and array indexing.
func (v *Var) WithOffset(delta int, t *types.Type) *Var {
	cp := *v
	cp.Offset += delta
	cp.Type = t
	return &cp
}

// VarInt returns an IMMEDIATE integer operand of type t.
func VarInt(value int64, t *types.Type) *Var {
	return &Var{Kind: ImmediateKind, Type: t, ImmInt: value}
}

// VarFloat returns an IMMEDIATE floating operand of type t.
func VarFloat(value float64, t *types.Type) *Var {
	return &Var{Kind: ImmediateKind, Type: t, ImmFloat: value}
}

// VarString returns an IMMEDIATE operand for a string literal, typed as an
// array of char sized to include the trailing NUL.
func VarString(s string) *Var {
	t := types.NewArray(types.BasicChar, len(s)+1)
	return &Var{Kind: ImmediateKind, Type: t, ImmString: s}
}

// VarZero returns the IMMEDIATE zero value of an integer of the given bit
// width, used by the initializer lowering pass to zero-fill scalars.
func VarZero(width int) *Var {
	return &Var{Kind: ImmediateKind, Type: &types.Type{Kind: types.Signed, Width: width}, ImmInt: 0}
}

// VarNullPointer returns the IMMEDIATE null-pointer constant, used for
// zero-filling pointer members.
func VarNullPointer() *Var {
	return &Var{Kind: ImmediateKind, Type: types.NewPointer(types.BasicVoid), ImmInt: 0}
}

// VarDeref wraps base (a pointer-valued Var) into a DerefKind lvalue of
// type t.
func VarDeref(base *Var, t *types.Type) *Var {
	return &Var{Kind: DerefKind, Type: t, Base: base, Lvalue: true}
}

// IsImmediate reports whether v is a compile-time constant.
func (v *Var) IsImmediate() bool { return v.Kind == ImmediateKind }
