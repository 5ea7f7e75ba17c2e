// Package types implements the C type algebra: it constructs and queries
// the type tree (Type), computes layout (SizeOf, member offsets) and
// exposes the basic-type constants and predicates the core parser calls. It
// never inspects tokens or the CFG.
package types

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Kind discriminates the variants of Type.
type Kind int

const (
	Void Kind = iota
	Signed
	Unsigned
	Float
	Double
	Pointer
	Array
	Function
	Struct
	Union
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	case Float:
		return "float"
	case Double:
		return "double"
	case Pointer:
		return "pointer"
	case Array:
		return "array"
	case Function:
		return "function"
	case Struct:
		return "struct"
	case Union:
		return "union"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Qualifier is an orthogonal bitmask carried alongside a Type: const and
// volatile apply independently of Kind and of each other.
type Qualifier uint8

const (
	QualConst Qualifier = 1 << iota
	QualVolatile
)

// Type is a node in the type tree. Types stay alive for as long as any
// Symbol or Var references them, via the garbage collector rather than an
// explicit arena.
type Type struct {
	Kind  Kind
	Quals Qualifier

	Width int // bit width, for Signed/Unsigned/Float/Double/Pointer

	Inner *Type // Pointer element type, Array element type

	Length int // Array: element count; 0 means incomplete

	Return  *Type
	Params  []*Param
	Vararg  bool

	Tag     string // struct/union tag name, "" if anonymous
	members *memberSet
}

// Param is one parameter of a Function type; Name may be empty for an
// abstract declarator (e.g. in a type-name used by sizeof/cast).
type Param struct {
	Name string
	Type *Type
}

// memberSet is the shared, mutable backing store for a struct/union's
// members. TypeTaggedCopy returns a new *Type that points at the same
// memberSet, so completing a previously-incomplete tag (struct/union tags
// may be declared with size 0 and become complete only once `{ ... }` is
// parsed) is visible through every alias of that tag.
type memberSet struct {
	members  []*Member
	byName   *swiss.Map[string, *Member]
	size     int
	complete bool
}

// Member is one field of a Struct/Union type.
type Member struct {
	Name   string
	Type   *Type
	Offset int
}

// basic type constructors

func basic(kind Kind, width int) *Type { return &Type{Kind: kind, Width: width} }

// Canonical basic types.
var (
	BasicVoid           = basic(Void, 0)
	BasicChar           = basic(Signed, 8)
	BasicUnsignedChar    = basic(Unsigned, 8)
	BasicShort          = basic(Signed, 16)
	BasicUnsignedShort   = basic(Unsigned, 16)
	BasicInt            = basic(Signed, 32)
	BasicUnsignedInt     = basic(Unsigned, 32)
	BasicLong           = basic(Signed, 32)
	BasicUnsignedLong    = basic(Unsigned, 32)
	BasicLongLong       = basic(Signed, 64)
	BasicUnsignedLongLong = basic(Unsigned, 64)
	BasicFloat          = basic(Float, 32)
	BasicDouble         = basic(Double, 64)
)

// PointerWidth is the byte width of every pointer type this front end
// synthesizes: a 64-bit target, so a null void-pointer constant is 8 bytes
// wide.
const PointerWidth = 8

// TypeInit constructs a new Type of the given kind. For Struct/Union it
// allocates a fresh, incomplete memberSet (size 0); for Pointer it sets the
// pointer width. Every other field (inner type, tag, length) comes from opts.
func TypeInit(kind Kind, opts ...func(*Type)) *Type {
	t := &Type{Kind: kind}
	switch kind {
	case Struct, Union:
		t.members = &memberSet{byName: swiss.NewMap[string, *Member](4)}
	case Pointer:
		t.Width = PointerWidth * 8
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func WithInner(inner *Type) func(*Type) { return func(t *Type) { t.Inner = inner } }
func WithTag(tag string) func(*Type)    { return func(t *Type) { t.Tag = tag } }
func WithLength(n int) func(*Type)      { return func(t *Type) { t.Length = n; t.Kind = Array } }

// NewPointer returns a pointer-to-inner type.
func NewPointer(inner *Type) *Type {
	return TypeInit(Pointer, WithInner(inner))
}

// NewArray returns an array-of-inner type with the given element count (0
// for an incomplete array).
func NewArray(inner *Type, length int) *Type {
	return &Type{Kind: Array, Inner: inner, Length: length}
}

// NewFunction returns a function type.
func NewFunction(ret *Type, params []*Param, vararg bool) *Type {
	return &Type{Kind: Function, Return: ret, Params: params, Vararg: vararg}
}

// Qualify returns a copy of t (sharing any Struct/Union memberSet) with q
// bits added. Used by the declarator parser for `const`/`volatile`.
func (t *Type) Qualify(q Qualifier) *Type {
	cp := *t
	cp.Quals |= q
	return &cp
}

func (t *Type) IsConst() bool    { return t.Quals&QualConst != 0 }
func (t *Type) IsVolatile() bool { return t.Quals&QualVolatile != 0 }

// Unwrapped strips qualifiers, returning the same underlying Type shape
// (kind/members/etc.) with Quals cleared.
func (t *Type) Unwrapped() *Type {
	if t.Quals == 0 {
		return t
	}
	cp := *t
	cp.Quals = 0
	return &cp
}

// TypeTaggedCopy returns a qualifier-mutable alias of a tag's canonical
// type: a new *Type sharing the same memberSet, so later TypeAddMember
// calls against either alias are visible through both.
func TypeTaggedCopy(t *Type) *Type {
	cp := *t
	return &cp
}

// TypeAddMember appends a named member to a struct/union type, updating the
// aggregate's size in place. It is an error to call this on anything but a
// Struct/Union type.
func TypeAddMember(t *Type, name string, memberType *Type) (*Member, error) {
	if t.Kind != Struct && t.Kind != Union {
		return nil, fmt.Errorf("cannot add member to non-aggregate type %s", t.Kind)
	}
	if !IsComplete(memberType) {
		return nil, fmt.Errorf("member %q has incomplete type", name)
	}
	ms := t.members
	sz := SizeOf(memberType)
	m := &Member{Name: name, Type: memberType}
	switch t.Kind {
	case Struct:
		m.Offset = alignUp(ms.size, alignOf(memberType))
		ms.size = m.Offset + sz
	case Union:
		m.Offset = 0
		if sz > ms.size {
			ms.size = sz
		}
	}
	ms.members = append(ms.members, m)
	ms.byName.Put(name, m)
	ms.complete = true
	return m, nil
}

// MarkComplete flags a struct/union type as complete even with zero
// members.
func MarkComplete(t *Type) {
	if t.members != nil {
		t.members.complete = true
	}
}

// IsComplete reports whether t has a known size: every type is complete
// except void, a function type, an incomplete array (Length == 0) or an
// un-defined struct/union tag.
func IsComplete(t *Type) bool {
	switch t.Kind {
	case Void, Function:
		return false
	case Array:
		return t.Length > 0 && IsComplete(t.Inner)
	case Struct, Union:
		return t.members != nil && t.members.complete
	}
	return true
}

func alignOf(t *Type) int {
	switch t.Kind {
	case Struct, Union:
		max := 1
		for _, m := range Members(t) {
			if a := alignOf(m.Type); a > max {
				max = a
			}
		}
		return max
	case Array:
		return alignOf(t.Inner)
	default:
		w := SizeOf(t)
		if w == 0 {
			return 1
		}
		return w
	}
}

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}

// SizeOf computes the byte size of t. Calling it on a function type or an
// incomplete type is a programming error in the collaborator's contract;
// the core parser is responsible for rejecting those cases (sizeof on a
// function or incomplete type is itself an error) before relying on a size.
func SizeOf(t *Type) int {
	switch t.Kind {
	case Void:
		return 0
	case Signed, Unsigned, Float, Double, Pointer:
		return t.Width / 8
	case Array:
		return t.Length * SizeOf(t.Inner)
	case Struct, Union:
		if t.members == nil {
			return 0
		}
		return t.members.size
	case Function:
		return 0
	}
	return 0
}

func IsVoid(t *Type) bool          { return t.Kind == Void }
func IsInteger(t *Type) bool       { return t.Kind == Signed || t.Kind == Unsigned }
func IsFloating(t *Type) bool      { return t.Kind == Float || t.Kind == Double }
func IsArithmetic(t *Type) bool    { return IsInteger(t) || IsFloating(t) }
func IsPointer(t *Type) bool       { return t.Kind == Pointer }
func IsFunction(t *Type) bool      { return t.Kind == Function }
func IsStructOrUnion(t *Type) bool { return t.Kind == Struct || t.Kind == Union }
func IsStruct(t *Type) bool        { return t.Kind == Struct }
func IsArray(t *Type) bool         { return t.Kind == Array }
func IsVararg(t *Type) bool        { return t.Kind == Function && t.Vararg }
func IsTagged(t *Type) bool        { return (t.Kind == Struct || t.Kind == Union) && t.Tag != "" }
func IsUnsigned(t *Type) bool      { return t.Kind == Unsigned }

// Scalar reports whether t decays to a single machine word comparable to
// zero (an arithmetic or pointer type).
func Scalar(t *Type) bool { return IsArithmetic(t) || IsPointer(t) }

// NMembers, GetMember and FindTypeMember implement aggregate
// accessors.

func NMembers(t *Type) int {
	if t.members == nil {
		return 0
	}
	return len(t.members.members)
}

func Members(t *Type) []*Member {
	if t.members == nil {
		return nil
	}
	return t.members.members
}

func GetMember(t *Type, i int) *Member {
	return t.members.members[i]
}

func FindTypeMember(t *Type, name string) (*Member, bool) {
	if t.members == nil {
		return nil, false
	}
	return t.members.byName.Get(name)
}

// Deref returns the pointee type of a pointer type.
func Deref(t *Type) *Type {
	return t.Inner
}

// Decay returns the type an expression of type t decays to in most
// expression contexts (array -> pointer-to-element); non-array types are
// returned unchanged.
func Decay(t *Type) *Type {
	if t.Kind == Array {
		return NewPointer(t.Inner)
	}
	return t
}

// Compatible reports whether a and b describe the same shape, e.g. for a
// redeclaration tag-kind check that verifies the previously recorded kind
// matches.
func Compatible(a, b *Type) bool {
	return a.Kind == b.Kind
}

func (t *Type) String() string {
	switch t.Kind {
	case Pointer:
		return t.Inner.String() + "*"
	case Array:
		if t.Length == 0 {
			return t.Inner.String() + "[]"
		}
		return fmt.Sprintf("%s[%d]", t.Inner.String(), t.Length)
	case Struct:
		return "struct " + t.Tag
	case Union:
		return "union " + t.Tag
	case Function:
		return "function"
	default:
		return t.Kind.String()
	}
}
