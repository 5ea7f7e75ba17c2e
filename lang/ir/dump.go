package ir

import (
	"gopkg.in/yaml.v3"
)

// Dump renders a CFG as the YAML structure the `parse` CLI command prints.
// It flattens Blocks into plain values so
// the encoder never has to chase the Var/Symbol pointer graph.
func Dump(c *CFG) ([]byte, error) {
	return yaml.Marshal(dumpCFG(c))
}

type cfgDump struct {
	Function string      `yaml:"function,omitempty"`
	Head     int         `yaml:"head"`
	Body     int         `yaml:"body"`
	Locals   []string    `yaml:"locals,omitempty"`
	Params   []string    `yaml:"params,omitempty"`
	Blocks   []blockDump `yaml:"blocks"`
}

type blockDump struct {
	ID   int      `yaml:"id"`
	Code []string `yaml:"code,omitempty"`
	Expr string   `yaml:"expr,omitempty"`
	Jump []int    `yaml:"jump,omitempty"`
}

func dumpCFG(c *CFG) cfgDump {
	d := cfgDump{Head: c.Head.ID, Body: c.Body.ID}
	if c.Fn != nil {
		d.Function = c.Fn.Name
	}
	for _, sym := range c.Locals {
		d.Locals = append(d.Locals, sym.Name)
	}
	for _, sym := range c.Params {
		d.Params = append(d.Params, sym.Name)
	}
	for _, b := range c.Blocks {
		d.Blocks = append(d.Blocks, dumpBlock(b))
	}
	return d
}

func dumpBlock(b *Block) blockDump {
	bd := blockDump{ID: b.ID}
	for _, in := range b.Code {
		bd.Code = append(bd.Code, in.String())
	}
	if b.Expr != nil {
		bd.Expr = b.Expr.String()
	}
	switch {
	case b.Jump[0] != nil && b.Jump[1] != nil:
		bd.Jump = []int{b.Jump[0].ID, b.Jump[1].ID}
	case b.Jump[0] != nil:
		bd.Jump = []int{b.Jump[0].ID}
	}
	return bd
}
