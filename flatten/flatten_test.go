package flatten_test

import (
	"fmt"
	"testing"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/flatten"
	"github.com/sarchlab/wire/graph"
)

func buildGraphs(t *testing.T, modules []astmod.Module) map[string]*graph.Graph {
	t.Helper()
	graphs, err := graph.NewBuilder(modules).BuildAll(modules)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	return graphs
}

func TestFlattenBareNand(t *testing.T) {
	m := astmod.Module{
		Name:    "m",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}, {Name: "b", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "out", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("b"))},
		},
	}
	graphs := buildGraphs(t, []astmod.Module{m})

	nl, err := flatten.Flatten(graphs, "m", flatten.DefaultConfig())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if _, ok := nl.InputIndex["a"]; !ok {
		t.Errorf("missing input index for a")
	}
	if _, ok := nl.OutputIndex["out"]; !ok {
		t.Errorf("missing output index for out")
	}

	foundNand := false
	for _, n := range nl.Nodes {
		if n.Kind == flatten.FlatNand {
			foundNand = true
		}
	}
	if !foundNand {
		t.Errorf("expected a FlatNand node in the flattened netlist")
	}
}

func TestFlattenInlinesModuleCall(t *testing.T) {
	inv := astmod.Module{
		Name:    "inv",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "out", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("a"))},
		},
	}
	top := astmod.Module{
		Name:    "top",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "c", Expr: astmod.Call("inv", astmod.Ident("a"))},
			{Target: "out", Expr: astmod.Member(astmod.Ident("c"), "out")},
		},
	}
	graphs := buildGraphs(t, []astmod.Module{inv, top})

	nl, err := flatten.Flatten(graphs, "top", flatten.DefaultConfig())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if _, ok := nl.OutputIndex["out"]; !ok {
		t.Fatalf("missing output index for out")
	}
}

// chainOfInverters builds a module computing 20 chained NAND-based
// inverters (nand(x,x)) over a single input bit: enough primitive nodes
// to clear MinNodeCountForLUT while staying within MaxLUTInputBits, and
// with an even inverter count so out == a.
func chainOfInverters(name string) astmod.Module {
	stmts := []astmod.Statement{
		{Target: "n1", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("a"))},
	}
	for i := 2; i <= 20; i++ {
		prev := astmod.Ident(stmt(i - 1))
		stmts = append(stmts, astmod.Statement{Target: stmt(i), Expr: astmod.Call("nand", prev, prev)})
	}
	stmts = append(stmts, astmod.Statement{Target: "out", Expr: astmod.Ident(stmt(20))})
	return astmod.Module{
		Name:       name,
		Inputs:     []astmod.Port{{Name: "a", Width: 1}},
		Outputs:    []astmod.Port{{Name: "out", Width: 1}},
		Statements: stmts,
	}
}

func stmt(i int) string { return fmt.Sprintf("n%d", i) }

// TestFlattenMemoizesPureCombinationalSubmodule covers spec §4.2's LUT
// memoization path and property 9 (LUT equivalence): a callee with ≥20
// primitive nodes, ≤8 input bits, no dff/ram is replaced by a single lut
// node whose table matches direct simulation of the callee.
func TestFlattenMemoizesPureCombinationalSubmodule(t *testing.T) {
	inv := chainOfInverters("inv20")
	top := astmod.Module{
		Name:    "top",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "c", Expr: astmod.Call("inv20", astmod.Ident("a"))},
			{Target: "out", Expr: astmod.Member(astmod.Ident("c"), "out")},
		},
	}
	graphs := buildGraphs(t, []astmod.Module{inv, top})

	nl, err := flatten.Flatten(graphs, "top", flatten.DefaultConfig())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	var lut *flatten.FlatNode
	for i := range nl.Nodes {
		if nl.Nodes[i].Kind == flatten.FlatLut {
			lut = &nl.Nodes[i]
		}
		if nl.Nodes[i].Kind == flatten.FlatNand {
			t.Fatalf("expected the 20-inverter chain to be memoized into a lut, found an inlined nand instead")
		}
	}
	if lut == nil {
		t.Fatalf("expected a lut node, found none")
	}

	// 20 inversions of a is a, for both values of a.
	if got := lut.Table[0]; got != 0 {
		t.Errorf("lut.Table[0] = %d, want 0 (20 inversions of 0 is 0)", got)
	}
	if got := lut.Table[1]; got != 1 {
		t.Errorf("lut.Table[1] = %d, want 1 (20 inversions of 1 is 1)", got)
	}
}

func TestFlattenUnknownTopIsError(t *testing.T) {
	m := astmod.Module{Name: "m", Outputs: []astmod.Port{{Name: "out", Width: 1}}}
	graphs := buildGraphs(t, []astmod.Module{m})
	if _, err := flatten.Flatten(graphs, "nope", flatten.DefaultConfig()); err == nil {
		t.Errorf("expected an error for an unknown top module")
	}
}
