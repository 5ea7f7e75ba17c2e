package parser

import (
	"golang.org/x/exp/slices"

	"github.com/cc89front/cc89front/lang/symtab"
	"github.com/cc89front/cc89front/lang/token"
	"github.com/cc89front/cc89front/lang/types"
)

var storageClassTokens = []token.Token{
	token.EXTERN, token.STATIC, token.AUTO, token.REGISTER, token.TYPEDEF,
}

// Specifier bitmask bits.
const (
	bitVoid     = 0x001
	bitChar     = 0x002
	bitShort    = 0x004
	bitInt      = 0x008
	bitSigned   = 0x010
	bitUnsigned = 0x020
	bitLong     = 0x040
	bitLong2    = 0x080
	bitFloat    = 0x100
	bitDouble   = 0x200
)

// canonicalBasicTypes maps every legal specifier-bitmask combination to its
// basic type via a fixed table.
var canonicalBasicTypes = map[int]*types.Type{
	bitVoid: types.BasicVoid,

	bitChar:             types.BasicChar,
	bitChar | bitSigned: types.BasicChar,
	bitChar | bitUnsigned: types.BasicUnsignedChar,

	bitShort:                       types.BasicShort,
	bitShort | bitInt:              types.BasicShort,
	bitShort | bitSigned:           types.BasicShort,
	bitShort | bitInt | bitSigned:  types.BasicShort,
	bitShort | bitUnsigned:         types.BasicUnsignedShort,
	bitShort | bitInt | bitUnsigned: types.BasicUnsignedShort,

	bitInt:              types.BasicInt,
	bitSigned:            types.BasicInt,
	bitInt | bitSigned:   types.BasicInt,
	bitUnsigned:          types.BasicUnsignedInt,
	bitInt | bitUnsigned: types.BasicUnsignedInt,

	bitLong:                      types.BasicLong,
	bitLong | bitInt:             types.BasicLong,
	bitLong | bitSigned:          types.BasicLong,
	bitLong | bitInt | bitSigned: types.BasicLong,
	bitLong | bitUnsigned:          types.BasicUnsignedLong,
	bitLong | bitInt | bitUnsigned: types.BasicUnsignedLong,

	bitLong | bitLong2:                       types.BasicLongLong,
	bitLong | bitLong2 | bitInt:              types.BasicLongLong,
	bitLong | bitLong2 | bitSigned:           types.BasicLongLong,
	bitLong | bitLong2 | bitInt | bitSigned:  types.BasicLongLong,
	bitLong | bitLong2 | bitUnsigned:         types.BasicUnsignedLongLong,
	bitLong | bitLong2 | bitInt | bitUnsigned: types.BasicUnsignedLongLong,

	bitFloat:  types.BasicFloat,
	bitDouble: types.BasicDouble,
	// long double is not distinguished from double by this type algebra.
	bitLong | bitDouble: types.BasicDouble,
}

// specifiers accumulates the unordered multiset of declaration-specifier
// tokens seen so far.
type specifiers struct {
	mask      int
	quals     types.Qualifier
	storage   token.Token // 0 (ILLEGAL) means none
	aggregate *types.Type // set when a struct/union/enum/typedef replaced the basic-type mask
}

// parseDeclarationSpecifiers parses declaration-specifiers and returns the
// resulting type plus the storage class token (ILLEGAL if none). If
// allowStorageClass is false, any storage-class keyword is an error
// (specifier-qualifier-list context, e.g. parameter/type-name parsing).
func (p *Parser) parseDeclarationSpecifiers(allowStorageClass bool) (*types.Type, token.Token) {
	var s specifiers
	for {
		tok := p.peek()
		switch {
		case token.IsTypeSpecifierKeyword(tok.Kind):
			if s.aggregate != nil {
				p.fatal(tok.Pos, "cannot mix basic type specifier with struct/union/enum/typedef")
			}
			bit := specifierBit(tok.Kind)
			if bit == bitLong && s.mask&bitLong != 0 {
				bit = bitLong2
			}
			if s.mask&bit != 0 {
				p.fatal(tok.Pos, "duplicate specifier %s", tok.Kind)
			}
			s.mask |= bit
			p.next()

		case tok.Kind == token.CONST || tok.Kind == token.VOLATILE:
			q := types.QualConst
			if tok.Kind == token.VOLATILE {
				q = types.QualVolatile
			}
			if s.quals&q != 0 {
				p.fatal(tok.Pos, "duplicate qualifier %s", tok.Kind)
			}
			s.quals |= q
			p.next()

		case isStorageClass(tok.Kind):
			if !allowStorageClass {
				p.fatal(tok.Pos, "storage class not allowed here")
			}
			if s.storage != token.ILLEGAL {
				p.fatal(tok.Pos, "multiple storage classes")
			}
			s.storage = tok.Kind
			p.next()

		case tok.Kind == token.STRUCT || tok.Kind == token.UNION:
			if s.mask != 0 || s.aggregate != nil {
				p.fatal(tok.Pos, "cannot mix struct/union with other type specifiers")
			}
			s.aggregate = p.parseStructOrUnion(tok.Kind)

		case tok.Kind == token.ENUM:
			if s.mask != 0 || s.aggregate != nil {
				p.fatal(tok.Pos, "cannot mix enum with other type specifiers")
			}
			s.aggregate = p.parseEnum()

		case tok.Kind == token.IDENTIFIER && s.mask == 0 && s.aggregate == nil:
			if sym, ok := p.identNS.Lookup(tok.Lexeme); ok && sym.SymType == symtab.Typedef {
				s.aggregate = sym.Type
				p.next()
			} else {
				goto done
			}

		default:
			goto done
		}
	}
done:
	t := s.aggregate
	if t == nil {
		canon, ok := canonicalBasicTypes[s.mask]
		if !ok {
			if s.mask == 0 {
				p.fatal(p.pos(), "missing type specifier")
			}
			p.fatal(p.pos(), "invalid combination of type specifiers")
		}
		t = canon
	}
	if s.quals != 0 {
		t = t.Qualify(s.quals)
	}
	return t, s.storage
}

func specifierBit(tok token.Token) int {
	switch tok {
	case token.VOID:
		return bitVoid
	case token.CHAR:
		return bitChar
	case token.SHORT:
		return bitShort
	case token.INT:
		return bitInt
	case token.SIGNED:
		return bitSigned
	case token.UNSIGNED:
		return bitUnsigned
	case token.LONG:
		return bitLong
	case token.FLOAT:
		return bitFloat
	case token.DOUBLE:
		return bitDouble
	}
	return 0
}

func isStorageClass(tok token.Token) bool {
	return slices.Contains(storageClassTokens, tok)
}

// declBuild composes the declarator chain lazily, over the eventual base
// type (the type synthesized from declaration-specifiers). This realizes
// "chain of Pointer/Array/Function nodes ... spliced" using
// function composition instead of a mutable linked chain, since nothing
// here needs the chain's nodes to outlive the single composition call.
type declBuild func(base *types.Type) *types.Type

// parseDeclarator parses `pointer* direct-declarator` and returns the
// declared name (empty for an abstract declarator, legal in parameter lists
// and type-names) plus its declBuild.
func (p *Parser) parseDeclarator() (string, declBuild) {
	var quals []types.Qualifier
	for {
		if _, ok := p.accept(token.STAR); !ok {
			break
		}
		var q types.Qualifier
		for {
			tok := p.peek()
			if tok.Kind == token.CONST {
				q |= types.QualConst
				p.next()
			} else if tok.Kind == token.VOLATILE {
				q |= types.QualVolatile
				p.next()
			} else {
				break
			}
		}
		quals = append(quals, q)
	}

	name, directBuild := p.parseDirectDeclarator()

	build := func(base *types.Type) *types.Type {
		t := base
		for _, q := range quals {
			t = types.NewPointer(t)
			if q != 0 {
				t = t.Qualify(q)
			}
		}
		return directBuild(t)
	}
	return name, build
}

// suffix is one `[size]` or `(params)` trailer parsed by
// parseDirectDeclarator.
type suffix func(inner *types.Type) *types.Type

func (p *Parser) parseDirectDeclarator() (string, declBuild) {
	var name string
	var inner declBuild

	switch p.peek().Kind {
	case token.IDENTIFIER:
		name = p.next().Lexeme
		inner = func(base *types.Type) *types.Type { return base }
	case token.LPAREN:
		p.next()
		innerName, innerBuild := p.parseDeclarator()
		p.expect(token.RPAREN)
		name = innerName
		inner = innerBuild
	default:
		// abstract declarator with no identifier (sizeof/cast type-name, or
		// an unnamed parameter).
		inner = func(base *types.Type) *types.Type { return base }
	}

	suffixes := p.parseSuffixes()
	directBuild := func(base *types.Type) *types.Type {
		t := base
		for i := len(suffixes) - 1; i >= 0; i-- {
			t = suffixes[i](t)
		}
		return t
	}

	// Compose: inner(directBuild(base)) only differs from directBuild(inner(base))
	// when inner came from a parenthesized declarator (inner != identity);
	// for the plain-identifier case inner is identity so both forms coincide.
	build := func(base *types.Type) *types.Type {
		return inner(directBuild(base))
	}
	return name, build
}

func (p *Parser) parseSuffixes() []suffix {
	var suffixes []suffix
	for {
		switch p.peek().Kind {
		case token.LBRACKET:
			p.next()
			length := 0
			if p.peek().Kind != token.RBRACKET {
				v := p.parseConstantExpression()
				if !types.IsInteger(v.Type) {
					p.fatal(p.pos(), "array size must be an integer constant expression")
				}
				length = int(v.ImmInt)
				if length < 1 {
					p.fatal(p.pos(), "array size must be >= 1")
				}
			}
			p.expect(token.RBRACKET)
			ln := length
			suffixes = append(suffixes, func(inner *types.Type) *types.Type {
				return types.NewArray(inner, ln)
			})
		case token.LPAREN:
			p.next()
			params, vararg := p.parseParameterList()
			p.expect(token.RPAREN)
			suffixes = append(suffixes, func(inner *types.Type) *types.Type {
				return types.NewFunction(inner, params, vararg)
			})
		default:
			return suffixes
		}
	}
}

// parseParameterList parses a parenthesized parameter-type-list (the
// parens themselves are consumed by the caller).
func (p *Parser) parseParameterList() ([]*types.Param, bool) {
	if p.peek().Kind == token.RPAREN {
		return nil, false
	}
	if p.peek().Kind == token.VOID && p.peekN(2).Kind == token.RPAREN {
		p.next()
		return nil, false
	}

	var params []*types.Param
	for {
		if p.peek().Kind == token.DOTS {
			p.next()
			return params, true
		}
		base, _ := p.parseDeclarationSpecifiers(false)
		name, build := p.parseDeclarator()
		t := build(base)
		// a parameter of array or function type decays to pointer.
		if types.IsArray(t) {
			t = types.NewPointer(t.Inner)
		} else if types.IsFunction(t) {
			t = types.NewPointer(t)
		}
		params = append(params, &types.Param{Name: name, Type: t})
		if _, ok := p.accept(token.COMMA); !ok {
			return params, false
		}
	}
}

// parseStructOrUnion implements struct-or-union-declaration.
func (p *Parser) parseStructOrUnion(kind token.Token) *types.Type {
	p.next() // struct | union

	tagKind := types.Struct
	if kind == token.UNION {
		tagKind = types.Union
	}

	var tagName string
	var tagSym *symtab.Symbol
	if p.peek().Kind == token.IDENTIFIER {
		tagName = p.next().Lexeme
		if sym, ok := p.tagNS.Lookup(tagName); ok {
			if sym.Type.Kind != tagKind {
				p.fatal(p.pos(), "%q previously declared as a different tag kind", tagName)
			}
			tagSym = sym
		}
	}

	if tagSym == nil {
		t := types.TypeInit(tagKind, types.WithTag(tagName))
		tagSym = &symtab.Symbol{Name: tagName, Type: t, SymType: symtab.Typedef}
		if tagName != "" {
			p.tagNS.AddSymbol(tagSym)
		}
	}

	if p.peek().Kind == token.LBRACE {
		if types.IsComplete(tagSym.Type) {
			p.fatal(p.pos(), "redefinition of %q", tagName)
		}
		p.next()
		p.identNS.PushScope()
		for p.peek().Kind != token.RBRACE {
			base, _ := p.parseDeclarationSpecifiers(false)
			for {
				name, build := p.parseDeclarator()
				memberType := build(base)
				if name == "" {
					p.fatal(p.pos(), "struct/union member requires a name")
				}
				if !types.IsComplete(memberType) {
					p.fatal(p.pos(), "member %q has incomplete type", name)
				}
				if _, err := types.TypeAddMember(tagSym.Type, name, memberType); err != nil {
					p.fatal(p.pos(), "%s", err)
				}
				if _, ok := p.accept(token.COMMA); !ok {
					break
				}
			}
			p.expect(token.SEMICOLON)
		}
		types.MarkComplete(tagSym.Type)
		p.expect(token.RBRACE)
		p.identNS.PopScope()
	}

	return types.TypeTaggedCopy(tagSym.Type)
}

// parseEnum implements enum-declaration.
func (p *Parser) parseEnum() *types.Type {
	p.next() // enum

	var tagName string
	var tagSym *symtab.Symbol
	if p.peek().Kind == token.IDENTIFIER {
		tagName = p.next().Lexeme
		if sym, ok := p.tagNS.Lookup(tagName); ok {
			tagSym = sym
		}
	}

	if p.peek().Kind != token.LBRACE {
		if tagSym == nil {
			p.fatal(p.pos(), "undefined enum %q", tagName)
		}
		return tagSym.Type
	}

	if tagSym != nil && tagSym.EnumValue != 0 {
		p.fatal(p.pos(), "redefinition of enum %q", tagName)
	}

	p.next() // {
	enumType := types.BasicInt.Qualify(0)
	if tagSym == nil {
		tagSym = &symtab.Symbol{Name: tagName, Type: enumType, SymType: symtab.Typedef}
	} else {
		tagSym.Type = enumType
	}
	tagSym.EnumValue = 1
	if tagName != "" {
		p.tagNS.AddSymbol(tagSym)
	}

	counter := 0
	for {
		name := p.expect(token.IDENTIFIER).Lexeme
		if _, ok := p.accept(token.ASSIGN); ok {
			v := p.parseConstantExpression()
			if !types.IsInteger(v.Type) {
				p.fatal(p.pos(), "enumerator value must be an integer constant expression")
			}
			counter = int(v.ImmInt)
		}
		sym := p.identNS.Add(name, enumType, symtab.EnumValue, symtab.LinkNone)
		sym.EnumValue = counter
		counter++
		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
		if p.peek().Kind == token.RBRACE {
			break
		}
	}
	p.expect(token.RBRACE)
	return tagSym.Type
}
