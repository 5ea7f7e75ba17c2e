// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner implements the lexer that turns C source bytes into a
// stream of lang/token.Token values, and the small ring-buffer cursor
// (Lexer) that the core parser consumes through Peek/PeekN/Next/Consume. It
// is a collaborator of the core parser, not part of it.
package scanner

import (
	"context"
	"fmt"
	"go/scanner"
	gotoken "go/token"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cc89front/cc89front/lang/token"
)

// Error and ErrorList are reused directly from the standard library's
// go/scanner instead of hand-rolling a parallel diagnostics type.
type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

var PrintError = scanner.PrintError

// Tok is a single scanned token with its decoded literal value.
type Tok struct {
	Kind   token.Token
	Lexeme string
	Pos    token.Pos

	IntValue    int64
	IsUnsigned  bool
	StringValue string
}

// ScanFile tokenizes the named file in its entirety and returns the ring
// buffer the parser will consume, along with the FileSet the Pos values are
// relative to. The returned error, if non-nil, is a *scanner.ErrorList.
func ScanFile(ctx context.Context, name string) (*token.FileSet, *Lexer, error) {
	src, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, err
	}
	fs := token.NewFileSet()
	return ScanBytes(fs, name, src)
}

// ScanBytes tokenizes src, registering it as a new file named name in fs.
func ScanBytes(fs *token.FileSet, name string, src []byte) (*token.FileSet, *Lexer, error) {
	file := fs.AddFile(name, len(src))
	var el ErrorList
	var sc lexScanner
	sc.init(file, src, func(pos token.Position, msg string) {
		el.Add(gotoken.Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}, msg)
	})

	var toks []Tok
	for {
		t := sc.scan()
		toks = append(toks, t)
		if t.Kind == token.END {
			break
		}
	}
	el.Sort()
	var err error
	if len(el) > 0 {
		err = &el
	}
	return fs, NewLexer(toks), err
}

// lexScanner is the byte-level cursor: a one-rune lookahead cursor over an
// in-memory buffer that classifies characters by hand rather than via
// regexp/text-scanner.
type lexScanner struct {
	file *token.File
	src  []byte
	err  func(token.Position, string)

	cur rune
	off int
	roff int
}

func (s *lexScanner) init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *lexScanner) peekByte() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *lexScanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}
	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.errorf(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *lexScanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *lexScanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *lexScanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}

func (s *lexScanner) skipWhitespaceAndComments() {
	for {
		switch {
		case s.cur == ' ' || s.cur == '\t' || s.cur == '\n' || s.cur == '\r':
			s.advance()
		case s.cur == '/' && s.peekByte() == '/':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peekByte() == '*':
			s.advance()
			s.advance()
			for !(s.cur == '*' && s.peekByte() == '/') && s.cur != -1 {
				s.advance()
			}
			if s.cur != -1 {
				s.advance()
				s.advance()
			}
		default:
			return
		}
	}
}

func (s *lexScanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// scan returns the next token, dispatching over C's (comparatively small)
// punctuator and keyword set.
func (s *lexScanner) scan() Tok {
	s.skipWhitespaceAndComments()
	pos := s.file.Pos(s.off)
	start := s.off

	switch {
	case isLetter(s.cur):
		lit := s.ident()
		return Tok{Kind: token.LookupIdent(lit), Lexeme: lit, Pos: pos}

	case isDigit(s.cur) || (s.cur == '.' && isDigit(rune(s.peekByte()))):
		return s.number(pos, start)

	case s.cur == '"':
		return s.stringLiteral(pos)

	case s.cur == '\'':
		return s.charLiteral(pos)
	}

	cur := s.cur
	s.advance()
	switch cur {
	case -1:
		return Tok{Kind: token.END, Pos: pos}
	case '{':
		return Tok{Kind: token.LBRACE, Lexeme: "{", Pos: pos}
	case '}':
		return Tok{Kind: token.RBRACE, Lexeme: "}", Pos: pos}
	case '(':
		return Tok{Kind: token.LPAREN, Lexeme: "(", Pos: pos}
	case ')':
		return Tok{Kind: token.RPAREN, Lexeme: ")", Pos: pos}
	case '[':
		return Tok{Kind: token.LBRACKET, Lexeme: "[", Pos: pos}
	case ']':
		return Tok{Kind: token.RBRACKET, Lexeme: "]", Pos: pos}
	case ';':
		return Tok{Kind: token.SEMICOLON, Lexeme: ";", Pos: pos}
	case ',':
		return Tok{Kind: token.COMMA, Lexeme: ",", Pos: pos}
	case '?':
		return Tok{Kind: token.QUESTION, Lexeme: "?", Pos: pos}
	case '~':
		return Tok{Kind: token.TILDE, Lexeme: "~", Pos: pos}
	case ':':
		return Tok{Kind: token.COLON, Lexeme: ":", Pos: pos}
	case '.':
		if s.cur == '.' && s.peekByte() == '.' {
			s.advance()
			s.advance()
			return Tok{Kind: token.DOTS, Lexeme: "...", Pos: pos}
		}
		return Tok{Kind: token.DOT, Lexeme: ".", Pos: pos}
	case '-':
		switch {
		case s.advanceIf('>'):
			return Tok{Kind: token.ARROW, Lexeme: "->", Pos: pos}
		case s.advanceIf('-'):
			return Tok{Kind: token.DECREMENT, Lexeme: "--", Pos: pos}
		case s.advanceIf('='):
			return Tok{Kind: token.MINUS_ASSIGN, Lexeme: "-=", Pos: pos}
		}
		return Tok{Kind: token.MINUS, Lexeme: "-", Pos: pos}
	case '+':
		switch {
		case s.advanceIf('+'):
			return Tok{Kind: token.INCREMENT, Lexeme: "++", Pos: pos}
		case s.advanceIf('='):
			return Tok{Kind: token.PLUS_ASSIGN, Lexeme: "+=", Pos: pos}
		}
		return Tok{Kind: token.PLUS, Lexeme: "+", Pos: pos}
	case '*':
		if s.advanceIf('=') {
			return Tok{Kind: token.MUL_ASSIGN, Lexeme: "*=", Pos: pos}
		}
		return Tok{Kind: token.STAR, Lexeme: "*", Pos: pos}
	case '/':
		if s.advanceIf('=') {
			return Tok{Kind: token.DIV_ASSIGN, Lexeme: "/=", Pos: pos}
		}
		return Tok{Kind: token.SLASH, Lexeme: "/", Pos: pos}
	case '%':
		if s.advanceIf('=') {
			return Tok{Kind: token.MOD_ASSIGN, Lexeme: "%=", Pos: pos}
		}
		return Tok{Kind: token.PERCENT, Lexeme: "%", Pos: pos}
	case '&':
		switch {
		case s.advanceIf('&'):
			return Tok{Kind: token.LOGICAL_AND, Lexeme: "&&", Pos: pos}
		case s.advanceIf('='):
			return Tok{Kind: token.AND_ASSIGN, Lexeme: "&=", Pos: pos}
		}
		return Tok{Kind: token.AMPERSAND, Lexeme: "&", Pos: pos}
	case '|':
		switch {
		case s.advanceIf('|'):
			return Tok{Kind: token.LOGICAL_OR, Lexeme: "||", Pos: pos}
		case s.advanceIf('='):
			return Tok{Kind: token.OR_ASSIGN, Lexeme: "|=", Pos: pos}
		}
		return Tok{Kind: token.PIPE, Lexeme: "|", Pos: pos}
	case '^':
		if s.advanceIf('=') {
			return Tok{Kind: token.XOR_ASSIGN, Lexeme: "^=", Pos: pos}
		}
		return Tok{Kind: token.CARET, Lexeme: "^", Pos: pos}
	case '!':
		if s.advanceIf('=') {
			return Tok{Kind: token.NEQ, Lexeme: "!=", Pos: pos}
		}
		return Tok{Kind: token.NOT, Lexeme: "!", Pos: pos}
	case '=':
		if s.advanceIf('=') {
			return Tok{Kind: token.EQ, Lexeme: "==", Pos: pos}
		}
		return Tok{Kind: token.ASSIGN, Lexeme: "=", Pos: pos}
	case '<':
		switch {
		case s.advanceIf('<'):
			return Tok{Kind: token.LSHIFT, Lexeme: "<<", Pos: pos}
		case s.advanceIf('='):
			return Tok{Kind: token.LEQ, Lexeme: "<=", Pos: pos}
		}
		return Tok{Kind: token.LT, Lexeme: "<", Pos: pos}
	case '>':
		switch {
		case s.advanceIf('>'):
			return Tok{Kind: token.RSHIFT, Lexeme: ">>", Pos: pos}
		case s.advanceIf('='):
			return Tok{Kind: token.GEQ, Lexeme: ">=", Pos: pos}
		}
		return Tok{Kind: token.GT, Lexeme: ">", Pos: pos}
	default:
		s.errorf(start, "illegal character %#U", cur)
		return Tok{Kind: token.ILLEGAL, Lexeme: string(cur), Pos: pos}
	}
}

func (s *lexScanner) number(pos token.Pos, start int) Tok {
	base := 10
	if s.cur == '0' && (s.peekByte() == 'x' || s.peekByte() == 'X') {
		base = 16
		s.advance()
		s.advance()
		for isHexDigit(s.cur) {
			s.advance()
		}
	} else {
		if s.cur == '0' {
			base = 8
		}
		for isDigit(s.cur) {
			s.advance()
		}
	}
	digits := string(s.src[start:s.off])
	isUnsigned := false
	for s.cur == 'u' || s.cur == 'U' || s.cur == 'l' || s.cur == 'L' {
		if s.cur == 'u' || s.cur == 'U' {
			isUnsigned = true
		}
		s.advance()
	}
	lit := string(s.src[start:s.off])

	digitsForParse := digits
	if base == 8 && digitsForParse == "0" {
		base = 10 // bare "0" is decimal zero, not malformed octal
	}
	if base == 16 {
		digitsForParse = digitsForParse[2:]
	} else if base == 8 && len(digitsForParse) > 1 {
		digitsForParse = digitsForParse[1:]
	}
	v, err := strconv.ParseUint(digitsForParse, base, 64)
	if err != nil {
		s.errorf(start, "invalid integer constant %q", lit)
	}
	return Tok{Kind: token.INTEGER_CONSTANT, Lexeme: lit, Pos: pos, IntValue: int64(v), IsUnsigned: isUnsigned}
}

func (s *lexScanner) stringLiteral(pos token.Pos) Tok {
	s.advance() // opening quote
	var sb strings.Builder
	start := s.off
	for s.cur != '"' && s.cur != -1 {
		if s.cur == '\\' {
			s.advance()
			sb.WriteRune(s.escape())
			continue
		}
		sb.WriteRune(s.cur)
		s.advance()
	}
	lit := string(s.src[start:s.off])
	if s.cur == '"' {
		s.advance()
	} else {
		s.errorf(start, "unterminated string literal")
	}
	return Tok{Kind: token.STRING, Lexeme: lit, Pos: pos, StringValue: sb.String()}
}

func (s *lexScanner) charLiteral(pos token.Pos) Tok {
	// A char constant lexes as an INTEGER_CONSTANT rather than a dedicated
	// token kind, since the primary-expression grammar only distinguishes
	// integer constants and string literals.
	s.advance() // opening quote
	var v rune
	if s.cur == '\\' {
		s.advance()
		v = s.escape()
	} else {
		v = s.cur
		s.advance()
	}
	if s.cur == '\'' {
		s.advance()
	} else {
		s.errorf(s.off, "multi-character character constant not supported")
	}
	return Tok{Kind: token.INTEGER_CONSTANT, Lexeme: string(v), Pos: pos, IntValue: int64(v)}
}

func (s *lexScanner) escape() rune {
	c := s.cur
	s.advance()
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\', '\'', '"':
		return c
	default:
		return c
	}
}
