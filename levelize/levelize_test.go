package levelize_test

import (
	"testing"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/flatten"
	"github.com/sarchlab/wire/graph"
	"github.com/sarchlab/wire/levelize"
)

func TestLevelizeOrdersChainedNands(t *testing.T) {
	m := astmod.Module{
		Name:    "chain",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "n1", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("a"))},
			{Target: "n2", Expr: astmod.Call("nand", astmod.Ident("n1"), astmod.Ident("n1"))},
			{Target: "out", Expr: astmod.Call("nand", astmod.Ident("n2"), astmod.Ident("n2"))},
		},
	}
	graphs, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	nl, err := flatten.Flatten(graphs, "chain", flatten.DefaultConfig())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	plan := levelize.Levelize(nl)
	if plan.HasCycle {
		t.Fatalf("did not expect a cycle in a pure chain")
	}

	pos := map[int]int{}
	for i, n := range plan.Combinational {
		pos[n.Out] = i
	}
	outIdx := nl.OutputIndex["out"]
	if len(plan.Combinational) < 3 {
		t.Fatalf("expected at least 3 combinational nodes, got %d", len(plan.Combinational))
	}
	if pos[outIdx] != len(plan.Combinational)-1 {
		t.Errorf("expected the final nand to be ordered last, got position %d of %d", pos[outIdx], len(plan.Combinational))
	}
}

// TestLevelizeLutNodeDoesNotClobberWireZeroProducer guards against a lut
// node's zero-value Out field (lut drives Outputs[], not a single Out)
// being mistaken for a real producer of wire index 0. A lut node whose
// own Outputs never include wire 0 must never be treated as the
// producer of wire 0, even though Out == 0 is its Go zero value.
func TestLevelizeLutNodeDoesNotClobberWireZeroProducer(t *testing.T) {
	nl := &flatten.Netlist{
		// Wires 3 and 4 are never any node's Out, so the levelizer
		// treats them as fixed roots (inputs).
		NumWires:  5,
		WireWidth: []int{1, 1, 1, 1, 1},
		Nodes: []flatten.FlatNode{
			// Wire 0 is a plain nand fed by the two root wires.
			{Kind: flatten.FlatNand, Out: 0, Width: 1, Mask: 1, Args: []int{3, 4}},
			// A lut node that depends on wire 0 but produces wires 1
			// and 2, never wire 0 itself.
			{
				Kind: flatten.FlatLut, Args: []int{0}, InputWidth: 1,
				Outputs: []int{1, 2}, OutputWidths: []int{1, 1},
				Table: []uint32{0, 3},
			},
		},
	}

	plan := levelize.Levelize(nl)
	if plan.HasCycle {
		t.Fatalf("lut depending on wire 0 must not register as wire 0's own producer and create a false cycle")
	}
	if len(plan.Combinational) != 2 {
		t.Fatalf("expected 2 combinational nodes, got %d", len(plan.Combinational))
	}
	if plan.Combinational[0].Kind != flatten.FlatNand || plan.Combinational[1].Kind != flatten.FlatLut {
		t.Errorf("expected the nand producing wire 0 to be ordered before the lut consuming it, got %v then %v",
			plan.Combinational[0].Kind, plan.Combinational[1].Kind)
	}
}

func TestLevelizeDffIsSequential(t *testing.T) {
	m := astmod.Module{
		Name:    "m",
		Inputs:  []astmod.Port{{Name: "d", Width: 1}, {Name: "clk", Width: 1}},
		Outputs: []astmod.Port{{Name: "q", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "q", Expr: astmod.Call("dff", astmod.Ident("d"), astmod.Ident("clk"))},
		},
	}
	graphs, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	nl, err := flatten.Flatten(graphs, "m", flatten.DefaultConfig())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	plan := levelize.Levelize(nl)
	if len(plan.Sequential) != 1 {
		t.Errorf("expected exactly 1 sequential node, got %d", len(plan.Sequential))
	}
	if len(plan.Combinational) != 0 {
		t.Errorf("expected 0 combinational nodes, got %d", len(plan.Combinational))
	}
}
