// Package flatten implements the Flattener (spec §4.2): it replaces
// every module-instance node in a per-module graph.Graph with the
// inlined contents of its callee, producing a single netlist of
// dense-indexed wires and primitive-only nodes.
//
// The forward-reference problem spec §9 calls out — "alu.result" may be
// referenced before "alu = alu8(...)" is processed — is solved by index
// sharing rather than a later fixup pass: before recursing into a call,
// the caller resolves the callee's output port through the callee's own
// (already fully built) alias chain to find the real producer wire, and
// forces that wire to share the caller's pre-allocated index. When the
// callee is later (or concurrently, for the top module) walked, its
// Phase 0 wire registration consults that forced map before allocating
// anything fresh.
package flatten

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/graph"
)

// LevelTrace is a custom slog level between Info and Warn for structural
// compiler decisions (LUT memoization, combinational cycle detection)
// that are too frequent for Info but too useful to bury at Debug.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs msg at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// Config holds the tunables spec §3 names.
type Config struct {
	MaxLUTInputBits    int
	MinNodeCountForLUT int
}

// DefaultConfig matches spec §3's defaults.
func DefaultConfig() Config {
	return Config{MaxLUTInputBits: 8, MinNodeCountForLUT: 20}
}

// Kind discriminates the flat, post-flatten node sum type.
type Kind int

const (
	FlatConst Kind = iota
	FlatNand
	FlatIndex
	FlatSlice
	FlatConcat
	FlatDff
	FlatRam
	FlatRom
	FlatLut
)

func (k Kind) String() string {
	return [...]string{"const", "nand", "index", "slice", "concat", "dff", "ram", "rom", "lut"}[k]
}

// FlatNode is one primitive in the flattened netlist, wired by dense
// integer wire index.
type FlatNode struct {
	Kind  Kind
	Out   int
	Width int
	Mask  uint32

	Args []int // meaning depends on Kind, see per-kind comments below

	// const
	ConstValue uint32

	// index
	Idx int

	// slice
	Lo, Hi int

	// concat: Args[i] has width Widths[i]; Args[0] is the high bits
	Widths []int

	// ram/rom: Args = [addr, data, write, clk] (ram) or [addr] (rom);
	// RamRomID indexes into Netlist.RAMAddrWidth/ROMAddrWidth and the
	// evaluator's backing byte-slice table.
	AddrWidth int
	RamRomID  int

	// lut: Args are the input wires in declared order (first input in
	// the low bits when packed); Outputs are the output wires in
	// declared order (consecutive bit fields, declared order).
	InputWidth   int
	OutputWidths []int
	Outputs      []int
	Table        []uint32
}

// Netlist is the flattened, dense-indexed form the Levelizer and every
// Evaluator strategy consume.
type Netlist struct {
	TopModule string
	NumWires  int
	WireWidth []int
	WireName  map[string]int // declared/synthetic name -> wire index (debug + probes)

	Nodes []FlatNode

	InputIndex  map[string]int // top module's input port name -> wire index
	OutputIndex map[string]int // top module's output port name -> wire index

	RAMAddrWidth []int // size = 1<<addrWidth bytes, indexed by RamRomID
	ROMAddrWidth []int
	RAMName      []string // by RamRomID, for node_id-keyed access
	ROMName      []string
}

// Mask returns the bitmask for a width-w value.
func Mask(w int) uint32 {
	if w >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << uint(w)) - 1
}

type flattener struct {
	graphs map[string]*graph.Graph
	cfg    Config
	nl     *Netlist

	seqCache map[string]bool
}

// Flatten lowers the module named top (and everything it transitively
// instantiates) into one flat Netlist.
func Flatten(graphs map[string]*graph.Graph, top string, cfg Config) (*Netlist, error) {
	f := &flattener{
		graphs:   graphs,
		cfg:      cfg,
		seqCache: map[string]bool{},
		nl: &Netlist{
			TopModule:   top,
			WireName:    map[string]int{},
			InputIndex:  map[string]int{},
			OutputIndex: map[string]int{},
		},
	}

	topGraph, ok := graphs[top]
	if !ok {
		return nil, fmt.Errorf("flatten: unknown top module %q", top)
	}

	localIndex, err := f.inline("", topGraph, nil, nil)
	if err != nil {
		return nil, err
	}

	for _, p := range normalizedPorts(topGraph.Module.Inputs) {
		idx, ok := localIndex[p.Name]
		if !ok {
			idx = f.alloc(qualify("", p.Name), p.Width)
			localIndex[p.Name] = idx
		}
		f.nl.InputIndex[p.Name] = idx
	}
	for _, p := range normalizedPorts(topGraph.Module.Outputs) {
		resolved := topGraph.Resolve(p.Name)
		idx, ok := localIndex[resolved]
		if !ok {
			// Never referenced by any statement: stays at its
			// zero-initialized default.
			idx = f.alloc(qualify("", "__unbound_"+p.Name), p.Width)
		}
		f.nl.OutputIndex[p.Name] = idx
	}

	return f.nl, nil
}

func normalizedPorts(ports []astmod.Port) []astmod.Port {
	out := make([]astmod.Port, len(ports))
	for i, p := range ports {
		if p.Width == 0 {
			p.Width = 1
		}
		out[i] = p
	}
	return out
}

func (f *flattener) alloc(name string, width int) int {
	idx := f.nl.NumWires
	f.nl.NumWires++
	f.nl.WireWidth = append(f.nl.WireWidth, width)
	if name != "" {
		f.nl.WireName[name] = idx
	}
	return idx
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// inline flattens one instantiation of g under the given name prefix.
// inputVals gives the global wire index for each of g's input ports, in
// declared order (nil for the top module, whose inputs are fresh
// wires). preset forces specific g-local wire names (already resolved
// through g's own alias chain by the caller) to specific global
// indices, implementing the index-sharing described in the package doc.
func (f *flattener) inline(prefix string, g *graph.Graph, inputVals []int, preset map[string]int) (map[string]int, error) {
	local := map[string]int{}

	inputs := normalizedPorts(g.Module.Inputs)
	for i, p := range inputs {
		if inputVals != nil && i < len(inputVals) {
			local[p.Name] = inputVals[i]
		}
	}

	names := sortedWidthNames(g)

	// Phase 0, pass 1: non-dotted names.
	for _, name := range names {
		if strings.Contains(name, ".") {
			continue
		}
		f.phase0Allocate(prefix, g, local, preset, name)
	}

	// Phase 0, pass 2: dotted (field-access) names, with call-site
	// index sharing per spec §4.2 step 1.
	for _, name := range names {
		if !strings.Contains(name, ".") {
			continue
		}
		f.phase0AllocateDotted(prefix, g, local, preset, name)
	}

	// Phase 1: module nodes first, depth-first.
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Kind != graph.KindModule {
			continue
		}
		if err := f.inlineCall(prefix, g, local, n); err != nil {
			return nil, err
		}
	}

	// Phase 2: every other primitive.
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Kind == graph.KindModule || n.Kind == graph.KindInput {
			continue
		}
		if err := f.emitPrimitive(prefix, g, local, n); err != nil {
			return nil, err
		}
	}

	return local, nil
}

func sortedWidthNames(g *graph.Graph) []string {
	names := make([]string, 0, len(g.Widths))
	for n := range g.Widths {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *flattener) phase0Allocate(prefix string, g *graph.Graph, local, preset map[string]int, name string) {
	if _, ok := local[name]; ok {
		return
	}
	if preset != nil {
		if idx, ok := preset[name]; ok {
			local[name] = idx
			return
		}
	}

	if target := g.Resolve(name); target != name {
		// name is itself an alias (most commonly a declared port assigned
		// by pure member access, e.g. "cout = fa3.cout"): share the
		// resolved target's wire instead of allocating a dead one, so
		// get_wire(name) and get_all_wires() stay consistent with
		// get_wire(target) per spec's alias transparency property. The
		// target may be a dotted name pass 1 hasn't reached yet, so force
		// its allocation here rather than waiting for pass 2.
		if strings.Contains(target, ".") {
			f.phase0AllocateDotted(prefix, g, local, preset, target)
		} else {
			f.phase0Allocate(prefix, g, local, preset, target)
		}
		if idx, ok := local[target]; ok {
			local[name] = idx
			f.nl.WireName[qualify(prefix, name)] = idx
			return
		}
	}

	width, ok := g.Widths[name]
	if !ok {
		width = 1
	}
	local[name] = f.alloc(qualify(prefix, name), width)
}

func (f *flattener) phase0AllocateDotted(prefix string, g *graph.Graph, local, preset map[string]int, name string) {
	if _, ok := local[name]; ok {
		return
	}
	if preset != nil {
		if idx, ok := preset[name]; ok {
			local[name] = idx
			return
		}
	}

	base, field := splitDotted(name)
	resolvedBase := g.Resolve(base)
	prodNode := findNode(g, resolvedBase)

	fieldWidth := 0
	if prodNode != nil && prodNode.Kind == graph.KindModule {
		calleeG := f.graphs[prodNode.Callee]
		if calleeG != nil {
			// The graph may have recorded a forward reference at the
			// default width 1; the callee's port declares the real one.
			for _, p := range normalizedPorts(calleeG.Module.Outputs) {
				if p.Name == field {
					fieldWidth = p.Width
				}
			}
		}
		firstOutput := firstOutputName(calleeG, prodNode)
		if field != "" && field == firstOutput {
			// Case (i): share with the call's direct output wire,
			// which Phase 0 pass 1 already allocated.
			if idx, ok := local[prodNode.Out]; ok {
				local[name] = idx
				return
			}
		}
		// Case (ii): fresh pre-registered field wire; flatten of the
		// callee will be told (via preset, built in inlineCall) to
		// fill this index.
	}

	width, ok := g.Widths[name]
	if !ok {
		width = 1
	}
	if fieldWidth > 0 {
		width = fieldWidth
	}
	local[name] = f.alloc(qualify(prefix, name), width)
}

func splitDotted(name string) (base, field string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

func findNode(g *graph.Graph, out string) *graph.Node {
	for i := range g.Nodes {
		if g.Nodes[i].Out == out {
			return &g.Nodes[i]
		}
	}
	return nil
}

func firstOutputName(calleeG *graph.Graph, callNode *graph.Node) string {
	if calleeG != nil {
		ports := normalizedPorts(calleeG.Module.Outputs)
		if len(ports) > 0 {
			return ports[0].Name
		}
		return ""
	}
	if len(callNode.Outputs) > 0 {
		return callNode.Outputs[0]
	}
	return ""
}

func (f *flattener) inlineCall(prefix string, g *graph.Graph, local map[string]int, n *graph.Node) error {
	calleeG, ok := f.graphs[n.Callee]
	if !ok {
		// Unknown sub-module: not a flatten-time error (§4.2). Its
		// outputs stay at their pre-allocated, never-written indices,
		// which default to 0.
		return nil
	}

	inputVals := make([]int, len(n.Args))
	for i, argName := range n.Args {
		idx, ok := f.resolveArg(g, local, argName)
		if !ok {
			idx = f.alloc("", 1)
		}
		inputVals[i] = idx
	}

	newPrefix := qualify(prefix, fmt.Sprintf("call%d", n.CallID))

	if f.tryMemoize(newPrefix, calleeG, inputVals, g, local, n) {
		return nil
	}

	preset := f.buildPreset(g, local, calleeG, n)
	_, err := f.inline(newPrefix, calleeG, inputVals, preset)
	return err
}

// buildPreset computes, for each output port of calleeG, the resolved
// terminal wire name within calleeG's own namespace and forces it to
// share the caller-side index already allocated for that output.
func (f *flattener) buildPreset(g *graph.Graph, local map[string]int, calleeG *graph.Graph, n *graph.Node) map[string]int {
	preset := map[string]int{}
	ports := normalizedPorts(calleeG.Module.Outputs)
	targets := callerOutputTargets(local, n, ports)
	for i, p := range ports {
		if targets[i] < 0 {
			continue
		}
		resolved := calleeG.Resolve(p.Name)
		preset[resolved] = targets[i]
	}
	return preset
}

// callerOutputTargets returns, for each of calleeG's declared output
// ports, the caller-side global wire index that the call's result
// should land in (the same index Phase 0 pre-registered for n.Out or
// n.Out+"."+field), or -1 if that output was never referenced.
func callerOutputTargets(local map[string]int, n *graph.Node, ports []astmod.Port) []int {
	targets := make([]int, len(ports))
	for i, p := range ports {
		idx, ok := -1, false
		if i == 0 {
			if v, found := local[n.Out]; found {
				idx, ok = v, true
			}
		}
		if !ok {
			if v, found := local[n.Out+"."+p.Name]; found {
				idx, ok = v, true
			}
		}
		if !ok {
			targets[i] = -1
		} else {
			targets[i] = idx
		}
	}
	return targets
}

func (f *flattener) resolveArg(g *graph.Graph, local map[string]int, name string) (int, bool) {
	if idx, ok := local[name]; ok {
		return idx, true
	}
	if alias, ok := g.Aliases[name]; ok {
		return f.resolveArg(g, local, alias)
	}
	if strings.Contains(name, ".") {
		base, field := splitDotted(name)
		resolvedBase := g.Resolve(base)
		if resolvedBase != base {
			return f.resolveArg(g, local, resolvedBase+"."+field)
		}
	}
	return 0, false
}

func (f *flattener) emitPrimitive(prefix string, g *graph.Graph, local map[string]int, n *graph.Node) error {
	out, ok := local[n.Out]
	if !ok {
		out = f.alloc(qualify(prefix, n.Out), n.Width)
		local[n.Out] = out
	}

	args := make([]int, len(n.Args))
	for i, a := range n.Args {
		idx, ok := f.resolveArg(g, local, a)
		if !ok {
			idx = f.alloc("", 1)
		}
		args[i] = idx
	}

	switch n.Kind {
	case graph.KindConst:
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatConst, Out: out, Width: n.Width, Mask: Mask(n.Width),
			ConstValue: uint32(n.ConstValue) & Mask(n.Width),
		})
	case graph.KindNand:
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatNand, Out: out, Width: n.Width, Mask: Mask(n.Width), Args: args,
		})
	case graph.KindIndex:
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatIndex, Out: out, Width: 1, Mask: 1, Args: args, Idx: n.Idx,
		})
	case graph.KindSlice:
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatSlice, Out: out, Width: n.Width, Mask: Mask(n.Width), Args: args, Lo: n.Lo, Hi: n.Hi,
		})
	case graph.KindConcat:
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatConcat, Out: out, Width: n.Width, Mask: Mask(n.Width), Args: args, Widths: append([]int(nil), n.Widths...),
		})
	case graph.KindDff:
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatDff, Out: out, Width: 1, Mask: 1, Args: args,
		})
	case graph.KindRam:
		id := len(f.nl.RAMAddrWidth)
		f.nl.RAMAddrWidth = append(f.nl.RAMAddrWidth, n.AddrWidth)
		f.nl.RAMName = append(f.nl.RAMName, n.Out)
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatRam, Out: out, Width: 8, Mask: 0xFF, Args: args, AddrWidth: n.AddrWidth, RamRomID: id,
		})
	case graph.KindRom:
		id := len(f.nl.ROMAddrWidth)
		f.nl.ROMAddrWidth = append(f.nl.ROMAddrWidth, n.AddrWidth)
		f.nl.ROMName = append(f.nl.ROMName, n.Out)
		f.nl.Nodes = append(f.nl.Nodes, FlatNode{
			Kind: FlatRom, Out: out, Width: 8, Mask: 0xFF, Args: args, AddrWidth: n.AddrWidth, RamRomID: id,
		})
	default:
		return fmt.Errorf("flatten: unexpected node kind %v for %q", n.Kind, n.Out)
	}
	return nil
}

// hasSeqOrRAM reports whether name's module, or anything it
// transitively instantiates, contains a dff or ram node. Results are
// cached per module name; a module referencing itself (which would
// otherwise never terminate, and indicates a malformed netlist anyway)
// is treated as sequential so memoization is skipped for it.
func (f *flattener) hasSeqOrRAM(name string, visiting map[string]bool) bool {
	if v, ok := f.seqCache[name]; ok {
		return v
	}
	if visiting[name] {
		return true
	}
	g, ok := f.graphs[name]
	if !ok {
		f.seqCache[name] = false
		return false
	}
	visiting[name] = true
	defer delete(visiting, name)

	result := false
	for i := range g.Nodes {
		n := &g.Nodes[i]
		switch n.Kind {
		case graph.KindDff, graph.KindRam:
			result = true
		case graph.KindModule:
			if f.hasSeqOrRAM(n.Callee, visiting) {
				result = true
			}
		}
		if result {
			break
		}
	}
	f.seqCache[name] = result
	return result
}

// tryMemoize attempts to replace the call n (target calleeG, with
// caller-resolved input wires inputVals) with a single lut FlatNode, as
// described in spec §4.2's memoization path. It returns false — leaving
// the call untouched for ordinary recursive inlining — whenever the
// callee is ineligible or the table build fails for any reason.
func (f *flattener) tryMemoize(prefix string, calleeG *graph.Graph, inputVals []int, callerG *graph.Graph, callerLocal map[string]int, n *graph.Node) bool {
	if f.hasSeqOrRAM(n.Callee, map[string]bool{}) {
		return false
	}

	inPorts := normalizedPorts(calleeG.Module.Inputs)
	outPorts := normalizedPorts(calleeG.Module.Outputs)

	inputBits := 0
	for _, p := range inPorts {
		inputBits += p.Width
	}
	outputBits := 0
	for _, p := range outPorts {
		outputBits += p.Width
	}
	if inputBits == 0 || inputBits > f.cfg.MaxLUTInputBits {
		return false
	}
	if outputBits == 0 || outputBits > 32 {
		return false
	}

	primCount := 0
	for i := range calleeG.Nodes {
		if calleeG.Nodes[i].Kind != graph.KindInput {
			primCount++
		}
	}
	if primCount < f.cfg.MinNodeCountForLUT {
		return false
	}

	// Every output needs a home for the table-unpack step even if the
	// caller never referenced it.
	targets := callerOutputTargets(callerLocal, n, outPorts)
	for i, t := range targets {
		if t < 0 {
			targets[i] = f.alloc("", outPorts[i].Width)
		}
	}

	table, ok := buildLUTTable(f.graphs, calleeG, f.cfg, inPorts, outPorts, inputBits)
	if !ok {
		return false
	}

	outWidths := make([]int, len(outPorts))
	for i, p := range outPorts {
		outWidths[i] = p.Width
	}

	f.nl.Nodes = append(f.nl.Nodes, FlatNode{
		Kind:         FlatLut,
		Args:         append([]int(nil), inputVals...),
		InputWidth:   inputBits,
		Outputs:      targets,
		OutputWidths: outWidths,
		Table:        table,
	})
	Trace("flatten: memoized callee into a lut",
		"callee", n.Callee, "primitive_nodes", primCount, "input_bits", inputBits, "output_bits", outputBits)
	return true
}

// buildLUTTable exhaustively simulates calleeG in isolation for every
// input combination and packs the results into a table indexed by the
// packed input word. Both inputs and outputs are packed with the first
// declared port in the low bits, matching the unpack convention the
// levelized evaluator uses for lut nodes at runtime.
func buildLUTTable(graphs map[string]*graph.Graph, calleeG *graph.Graph, cfg Config, inPorts, outPorts []astmod.Port, inputBits int) ([]uint32, bool) {
	sub, err := Flatten(graphs, calleeG.Module.Name, cfg)
	if err != nil {
		return nil, false
	}
	for _, n := range sub.Nodes {
		if n.Kind == FlatDff || n.Kind == FlatRam || n.Kind == FlatRom {
			return nil, false
		}
	}

	size := 1 << uint(inputBits)
	table := make([]uint32, size)

	wires := make([]uint32, sub.NumWires)
	for combo := 0; combo < size; combo++ {
		for i := range wires {
			wires[i] = 0
		}

		offset := 0
		for _, p := range inPorts {
			idx, ok := sub.InputIndex[p.Name]
			if !ok {
				return nil, false
			}
			mask := Mask(p.Width)
			wires[idx] = (uint32(combo) >> uint(offset)) & mask
			offset += p.Width
		}

		evalCombinational(sub, wires)

		packed := uint32(0)
		outOffset := 0
		for _, p := range outPorts {
			idx, ok := sub.OutputIndex[p.Name]
			if !ok {
				return nil, false
			}
			packed |= (wires[idx] & Mask(p.Width)) << uint(outOffset)
			outOffset += p.Width
		}
		table[combo] = packed
	}
	return table, true
}

// evalCombinational runs a purely combinational netlist (no dff/ram) to
// a fixed point, bounded the way the interpreter strategy is (spec
// §4.5 item 1 / §9): a small constant number of passes is always
// sufficient for an acyclic circuit, and a legal but oscillating one
// simply settles wherever the bound leaves it.
func evalCombinational(nl *Netlist, wires []uint32) {
	const maxPasses = 100
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for i := range nl.Nodes {
			if stepNode(&nl.Nodes[i], wires) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func stepNode(n *FlatNode, wires []uint32) bool {
	var result uint32
	switch n.Kind {
	case FlatConst:
		result = n.ConstValue
	case FlatNand:
		result = (^(wires[n.Args[0]] & wires[n.Args[1]])) & n.Mask
	case FlatIndex:
		result = (wires[n.Args[0]] >> uint(n.Idx)) & 1
	case FlatSlice:
		result = (wires[n.Args[0]] >> uint(n.Lo)) & n.Mask
	case FlatConcat:
		shift := 0
		for i := len(n.Args) - 1; i >= 0; i-- {
			w := n.Widths[i]
			result |= (wires[n.Args[i]] & Mask(w)) << uint(shift)
			shift += w
		}
	default:
		return false
	}
	if wires[n.Out] != result {
		wires[n.Out] = result
		return true
	}
	return false
}
