// Package circuitfile loads a structured, declarative circuit
// description into the astmod.Module list the Graph Builder consumes.
// It is deliberately not a Wire-language parser: statement expressions
// are described as a YAML expression tree mirroring astmod.Expr's own
// shape, not as free-form source text, so the lexer/parser the core
// spec excludes is never reimplemented here.
package circuitfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/wire/astmod"
)

type yamlPort struct {
	Name  string `yaml:"name"`
	Width int    `yaml:"width"`
}

type yamlLit struct {
	Value uint64 `yaml:"value"`
	Width int    `yaml:"width"`
}

type yamlCall struct {
	Callee string     `yaml:"callee"`
	Args   []yamlExpr `yaml:"args"`
}

type yamlMember struct {
	Base  *yamlExpr `yaml:"base"`
	Field string    `yaml:"field"`
}

type yamlIndex struct {
	Base *yamlExpr `yaml:"base"`
	I    int       `yaml:"i"`
}

type yamlSlice struct {
	Base *yamlExpr `yaml:"base"`
	Lo   int       `yaml:"lo"`
	Hi   int       `yaml:"hi"`
}

// yamlExpr mirrors astmod.Expr's sum type; exactly one field is set per
// node, matching the YAML one-of-these-keys convention the rest of the
// schema uses.
type yamlExpr struct {
	Ident  string      `yaml:"ident,omitempty"`
	Lit    *yamlLit    `yaml:"lit,omitempty"`
	Call   *yamlCall   `yaml:"call,omitempty"`
	Member *yamlMember `yaml:"member,omitempty"`
	Index  *yamlIndex  `yaml:"index,omitempty"`
	Slice  *yamlSlice  `yaml:"slice,omitempty"`
}

type yamlStatement struct {
	Target string   `yaml:"target"`
	Expr   yamlExpr `yaml:"expr"`
}

type yamlModule struct {
	Name       string          `yaml:"name"`
	Inputs     []yamlPort      `yaml:"inputs"`
	Outputs    []yamlPort      `yaml:"outputs"`
	Statements []yamlStatement `yaml:"statements"`
}

type yamlRoot struct {
	Modules []yamlModule `yaml:"modules"`
}

// Load reads a circuit description file from disk.
func Load(path string) ([]astmod.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("circuitfile: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse converts raw YAML bytes into a module list without touching the
// filesystem, for embedded circuit fixtures.
func Parse(data []byte) ([]astmod.Module, error) {
	var root yamlRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("circuitfile: parse: %w", err)
	}
	modules := make([]astmod.Module, 0, len(root.Modules))
	for _, m := range root.Modules {
		mod, err := m.toModule()
		if err != nil {
			return nil, err
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

func (m yamlModule) toModule() (astmod.Module, error) {
	mod := astmod.Module{Name: m.Name}
	for _, p := range m.Inputs {
		mod.Inputs = append(mod.Inputs, astmod.Port{Name: p.Name, Width: p.Width})
	}
	for _, p := range m.Outputs {
		mod.Outputs = append(mod.Outputs, astmod.Port{Name: p.Name, Width: p.Width})
	}
	for _, s := range m.Statements {
		expr, err := s.Expr.toExpr()
		if err != nil {
			return astmod.Module{}, fmt.Errorf("circuitfile: module %s statement %s: %w", m.Name, s.Target, err)
		}
		mod.Statements = append(mod.Statements, astmod.Statement{Target: s.Target, Expr: expr})
	}
	return mod, nil
}

func baseExpr(e *yamlExpr) (astmod.Expr, error) {
	if e == nil {
		return astmod.Expr{}, fmt.Errorf("circuitfile: missing base expression")
	}
	return e.toExpr()
}

func (e yamlExpr) toExpr() (astmod.Expr, error) {
	switch {
	case e.Ident != "":
		return astmod.Ident(e.Ident), nil
	case e.Lit != nil:
		return astmod.Lit(e.Lit.Value, e.Lit.Width), nil
	case e.Call != nil:
		args := make([]astmod.Expr, 0, len(e.Call.Args))
		for _, a := range e.Call.Args {
			ae, err := a.toExpr()
			if err != nil {
				return astmod.Expr{}, err
			}
			args = append(args, ae)
		}
		return astmod.Call(e.Call.Callee, args...), nil
	case e.Member != nil:
		base, err := baseExpr(e.Member.Base)
		if err != nil {
			return astmod.Expr{}, err
		}
		return astmod.Member(base, e.Member.Field), nil
	case e.Index != nil:
		base, err := baseExpr(e.Index.Base)
		if err != nil {
			return astmod.Expr{}, err
		}
		return astmod.IndexOf(base, e.Index.I), nil
	case e.Slice != nil:
		base, err := baseExpr(e.Slice.Base)
		if err != nil {
			return astmod.Expr{}, err
		}
		return astmod.SliceOf(base, e.Slice.Lo, e.Slice.Hi), nil
	default:
		return astmod.Expr{}, fmt.Errorf("circuitfile: empty expression")
	}
}
