package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/cc89front/cc89front/lang/scanner"
	"github.com/cc89front/cc89front/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, c.env, args...)
}

// TokenizeFiles runs the scanner phase over each named file in turn and
// prints its token stream, one token per line. It keeps going after a file
// that fails to scan so a multi-file invocation reports every error it can.
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, cfg EnvConfig, files ...string) error {
	var lastErr error
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := tokenizeFile(stdio, cfg, name); err != nil {
			scanner.PrintError(stdio.Stderr, err)
			lastErr = err
		}
	}
	return lastErr
}

func tokenizeFile(stdio mainer.Stdio, cfg EnvConfig, name string) error {
	info, err := os.Stat(name)
	if err != nil {
		return err
	}
	if int64(cfg.MaxTranslationUnitBytes) > 0 && info.Size() > int64(cfg.MaxTranslationUnitBytes) {
		return fmt.Errorf("%s: file of %d bytes exceeds the %d byte limit", name, info.Size(), cfg.MaxTranslationUnitBytes)
	}

	// a returned *scanner.ErrorList does not stop scanning; the lexer still
	// carries every token the file produced, so print them all before
	// propagating the error.
	fs, lex, err := scanner.ScanFile(context.Background(), name)
	for {
		tok := lex.Next()
		fmt.Fprintf(stdio.Stdout, "%s: %s", fs.Position(tok.Pos), tok.Kind)
		if lit := literalOf(tok); lit != "" {
			fmt.Fprintf(stdio.Stdout, " %s", lit)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok.Kind == token.END {
			break
		}
	}
	return err
}

func literalOf(tok scanner.Tok) string {
	switch tok.Kind {
	case token.IDENTIFIER:
		return tok.Lexeme
	case token.STRING:
		return tok.StringValue
	case token.INTEGER_CONSTANT:
		return tok.Lexeme
	default:
		return ""
	}
}
