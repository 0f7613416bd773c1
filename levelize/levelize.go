// Package levelize implements the Levelizer (spec §4.3): it partitions a
// flattened netlist into sequential, memory, and combinational buckets
// and computes a legal, stable execution order for the combinational
// bucket so every evaluator strategy can run it as one straight pass.
package levelize

import (
	"sort"

	"github.com/sarchlab/wire/flatten"
)

// Plan is the levelizer's output: the three node buckets plus any
// combinational feedback it detected along the way.
type Plan struct {
	Sequential    []flatten.FlatNode
	Memory        []flatten.FlatNode
	Combinational []flatten.FlatNode

	// HasCycle is true when at least one combinational node's inputs
	// transitively depend on its own output without passing through a
	// register. The evaluator uses this to force the extra
	// re-publish-and-evaluate pass spec §4.4 step 4 calls for.
	HasCycle bool
}

// Levelize computes a Plan for nl. It never fails: a malformed or
// cyclic netlist still yields a usable, merely suboptimal, order.
func Levelize(nl *flatten.Netlist) *Plan {
	producer := make(map[int]*flatten.FlatNode, nl.NumWires)

	plan := &Plan{}
	for i := range nl.Nodes {
		n := &nl.Nodes[i]
		switch n.Kind {
		case flatten.FlatDff:
			plan.Sequential = append(plan.Sequential, *n)
		case flatten.FlatRam, flatten.FlatRom:
			plan.Memory = append(plan.Memory, *n)
		case flatten.FlatLut:
			// A lut node has no single Out wire; it drives every wire in
			// Outputs, so each of those needs its own producer entry.
			plan.Combinational = append(plan.Combinational, *n)
			for _, out := range n.Outputs {
				producer[out] = n
			}
		default:
			plan.Combinational = append(plan.Combinational, *n)
			producer[n.Out] = n
		}
	}

	level := make(map[int]int, nl.NumWires)
	onStack := map[int]bool{}

	var levelOf func(wire int) int
	levelOf = func(wire int) int {
		if lv, ok := level[wire]; ok {
			return lv
		}
		n, ok := producer[wire]
		if !ok {
			// Root: a dff/ram/rom output, an external input, or a wire
			// nothing ever writes.
			level[wire] = 0
			return 0
		}
		if onStack[wire] {
			plan.HasCycle = true
			return 0
		}
		onStack[wire] = true
		depth := 0
		for _, arg := range n.Args {
			if d := levelOf(arg) + 1; d > depth {
				depth = d
			}
		}
		delete(onStack, wire)
		level[wire] = depth
		return depth
	}

	// nodeLevel is the sort key for one combinational node: the level of
	// its single output wire, or the deepest of its several output wires
	// for a lut node.
	nodeLevel := func(n *flatten.FlatNode) int {
		if n.Kind != flatten.FlatLut {
			return levelOf(n.Out)
		}
		depth := 0
		for _, out := range n.Outputs {
			if d := levelOf(out); d > depth {
				depth = d
			}
		}
		return depth
	}

	for i := range plan.Combinational {
		nodeLevel(&plan.Combinational[i])
	}

	sort.SliceStable(plan.Combinational, func(i, j int) bool {
		return nodeLevel(&plan.Combinational[i]) < nodeLevel(&plan.Combinational[j])
	})

	if plan.HasCycle {
		flatten.Trace("levelize: combinational feedback detected, evaluator will force a second publish/evaluate pass every step",
			"combinational_nodes", len(plan.Combinational))
	}

	return plan
}
