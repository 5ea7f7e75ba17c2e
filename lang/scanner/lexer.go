package scanner

import (
	"fmt"

	"github.com/cc89front/cc89front/lang/token"
)

// Lexer is the token-source cursor the core parser is built against: a
// small ring buffer over a pre-scanned token slice supporting two-token
// lookahead via Peek/PeekN/Next/Consume.
type Lexer struct {
	toks []Tok
	pos  int
}

// NewLexer wraps a fully-scanned token slice (its last element must be a
// token.END) into a Lexer cursor.
func NewLexer(toks []Tok) *Lexer {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.END {
		toks = append(toks, Tok{Kind: token.END})
	}
	return &Lexer{toks: toks}
}

// Peek returns the token under the cursor without advancing it.
func (l *Lexer) Peek() Tok { return l.PeekN(1) }

// PeekN returns the token n positions ahead of the cursor (n >= 1); PeekN(1)
// is equivalent to Peek. Past end of input it keeps returning token.END.
func (l *Lexer) PeekN(n int) Tok {
	idx := l.pos + n - 1
	if idx >= len(l.toks) {
		return l.toks[len(l.toks)-1]
	}
	return l.toks[idx]
}

// Next consumes and returns the token under the cursor, advancing it.
func (l *Lexer) Next() Tok {
	t := l.Peek()
	if l.pos < len(l.toks)-1 {
		l.pos++
	}
	return t
}

// Consume requires that the token under the cursor has the given kind,
// advances past it and returns it; it panics with a *LexError otherwise.
// lang/parser.Parse recovers such a panic and returns it as a
// *parser.Error; there is no recovery from a mismatch.
func (l *Lexer) Consume(kind token.Token) Tok {
	t := l.Peek()
	if t.Kind != kind {
		panic(&LexError{Pos: t.Pos, Msg: fmt.Sprintf("expected %s, got %s", kind, t.Kind)}) //nolint:forbidigo
	}
	return l.Next()
}

// LexError is raised (via panic, caught by lang/parser.Parse) when Consume's
// expectation fails.
type LexError struct {
	Pos token.Pos
	Msg string
}

func (e *LexError) Error() string { return e.Msg }
