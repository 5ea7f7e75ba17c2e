package maincmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"gopkg.in/yaml.v3"

	"github.com/cc89front/cc89front/lang/ir"
	"github.com/cc89front/cc89front/lang/parser"
	"github.com/cc89front/cc89front/lang/scanner"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(ctx, stdio, c.env, args...)
}

// ParseFiles runs the scanner then parser phases over each named file and
// prints the resulting per-function CFGs, one translation unit after
// another.
func ParseFiles(ctx context.Context, stdio mainer.Stdio, cfg EnvConfig, files ...string) error {
	var lastErr error
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := parseFile(ctx, stdio, cfg, name); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", name, err)
			lastErr = err
		}
	}
	return lastErr
}

func parseFile(ctx context.Context, stdio mainer.Stdio, cfg EnvConfig, name string) error {
	info, err := os.Stat(name)
	if err != nil {
		return err
	}
	if int64(cfg.MaxTranslationUnitBytes) > 0 && info.Size() > int64(cfg.MaxTranslationUnitBytes) {
		return fmt.Errorf("file of %d bytes exceeds the %d byte limit", info.Size(), cfg.MaxTranslationUnitBytes)
	}

	fs, lex, err := scanner.ScanFile(ctx, name)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}

	cfgs, err := parser.Parse(ctx, fs, lex)
	if err != nil {
		return err
	}

	for _, c := range cfgs {
		if err := dumpCFG(stdio, cfg, c); err != nil {
			return err
		}
	}
	return nil
}

// dumpCFG prints c in cfg.DumpFormat. Both formats start from ir.Dump's YAML
// bytes, which already flatten Block successors down to their integer IDs
// rather than the pointer graph itself. Re-encoding that flattened form as
// JSON is safe where marshaling *ir.CFG directly would not be, since a
// loop's back-edge makes the block pointer graph cyclic.
func dumpCFG(stdio mainer.Stdio, cfg EnvConfig, c *ir.CFG) error {
	b, err := ir.Dump(c)
	if err != nil {
		return err
	}
	if cfg.DumpFormat != "json" {
		stdio.Stdout.Write(b)
		return nil
	}

	var generic interface{}
	if err := yaml.Unmarshal(b, &generic); err != nil {
		return err
	}
	out, err := json.MarshalIndent(normalizeForJSON(generic), "", "  ")
	if err != nil {
		return err
	}
	stdio.Stdout.Write(out)
	fmt.Fprintln(stdio.Stdout)
	return nil
}

// normalizeForJSON recursively walks the map[string]interface{} and
// []interface{} values yaml.v3 decodes the dump into, rebuilding them as
// plain values for encoding/json; any other value is returned unchanged.
func normalizeForJSON(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = normalizeForJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = normalizeForJSON(val)
		}
		return out
	default:
		return vv
	}
}
