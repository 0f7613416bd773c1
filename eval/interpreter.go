package eval

import (
	"strings"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/graph"
)

// Interpreter is the naive, per-module-graph strategy (spec §4.5 item 1):
// the baseline correctness reference the Flattener's output is checked
// against. It never flattens anything; instead it resolves every wire
// read on demand, recursing into the callee graph for each module
// instance. Because resolution is pull-based rather than push-based,
// there is no separate "publish" or "re-evaluate" pass to manage: a read
// always reflects the current latched/memory state, so the levelized
// strategy's second combinational pass after a state change has no
// analogue here — it is simply unnecessary.
//
// Edge handling still needs care: every dff/ram's next value is computed
// from old state in one sweep of the whole instance tree, then all of
// them are latched in a second sweep, so that one register's update
// within a step can never leak into the value another register reads
// for the same step.
type Interpreter struct {
	graphs map[string]*graph.Graph
	topG   *graph.Graph

	instances map[string]*instanceState
}

type instanceState struct {
	wires      map[string]uint32
	dffState   map[string]uint32
	dffPrevClk map[string]uint32
	ram        map[string][]byte
	ramPrevClk map[string]uint32
	rom        map[string][]byte
}

func newInstanceState(g *graph.Graph) *instanceState {
	st := &instanceState{
		wires:      map[string]uint32{},
		dffState:   map[string]uint32{},
		dffPrevClk: map[string]uint32{},
		ram:        map[string][]byte{},
		ramPrevClk: map[string]uint32{},
		rom:        map[string][]byte{},
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		switch n.Kind {
		case graph.KindDff:
			st.dffState[n.Out] = 0
			st.dffPrevClk[n.Out] = 0
		case graph.KindRam:
			st.ram[n.Out] = make([]byte, 1<<uint(n.AddrWidth))
			st.ramPrevClk[n.Out] = 0
		case graph.KindRom:
			st.rom[n.Out] = make([]byte, 1<<uint(n.AddrWidth))
		}
	}
	return st
}

// NewInterpreter builds an interpreter rooted at the module named top.
func NewInterpreter(graphs map[string]*graph.Graph, top string) *Interpreter {
	return &Interpreter{
		graphs:    graphs,
		topG:      graphs[top],
		instances: map[string]*instanceState{},
	}
}

func (it *Interpreter) instance(path string, g *graph.Graph) *instanceState {
	st, ok := it.instances[path]
	if !ok {
		st = newInstanceState(g)
		it.instances[path] = st
	}
	return st
}

func qualifyPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func findNodeIn(g *graph.Graph, out string) *graph.Node {
	for i := range g.Nodes {
		if g.Nodes[i].Out == out {
			return &g.Nodes[i]
		}
	}
	return nil
}

func portsOf(ports []astmod.Port) []astmod.Port {
	out := make([]astmod.Port, len(ports))
	for i, p := range ports {
		if p.Width == 0 {
			p.Width = 1
		}
		out[i] = p
	}
	return out
}

func maskOf(w int) uint32 {
	if w <= 0 {
		return 0
	}
	if w >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<uint(w) - 1
}

// resolveNamed evaluates name within instance path (whose graph is g) by
// walking aliases, dotted field access into module calls, and primitive
// node formulas, recursing as needed. visiting guards against a
// combinational cycle turning into infinite recursion; on a cycle it
// returns 0, mirroring the "combinational fixed-point failure is
// silently accepted" policy of spec §4.4.
func (it *Interpreter) resolveNamed(path string, g *graph.Graph, name string, visiting map[string]bool) uint32 {
	key := path + "\x00" + name
	if visiting[key] {
		return 0
	}
	visiting[key] = true
	defer delete(visiting, key)

	st := it.instance(path, g)

	if v, ok := st.wires[name]; ok {
		return v
	}
	if alias, ok := g.Aliases[name]; ok {
		return it.resolveNamed(path, g, alias, visiting)
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		base, field := name[:i], name[i+1:]
		resolvedBase := g.Resolve(base)
		if bn := findNodeIn(g, resolvedBase); bn != nil && bn.Kind == graph.KindModule {
			return it.callModule(path, g, bn, field, visiting)
		}
		return 0
	}

	n := findNodeIn(g, name)
	if n == nil {
		return 0
	}
	switch n.Kind {
	case graph.KindConst:
		return uint32(n.ConstValue) & maskOf(n.Width)
	case graph.KindNand:
		a := it.resolveNamed(path, g, n.Args[0], visiting)
		b := it.resolveNamed(path, g, n.Args[1], visiting)
		return (^(a & b)) & maskOf(n.Width)
	case graph.KindIndex:
		v := it.resolveNamed(path, g, n.Args[0], visiting)
		return (v >> uint(n.Idx)) & 1
	case graph.KindSlice:
		v := it.resolveNamed(path, g, n.Args[0], visiting)
		return (v >> uint(n.Lo)) & maskOf(n.Hi-n.Lo+1)
	case graph.KindConcat:
		var result uint32
		shift := 0
		for i := len(n.Args) - 1; i >= 0; i-- {
			v := it.resolveNamed(path, g, n.Args[i], visiting)
			w := n.Widths[i]
			result |= (v & maskOf(w)) << uint(shift)
			shift += w
		}
		return result
	case graph.KindDff:
		return st.dffState[name]
	case graph.KindRam:
		addr := it.resolveNamed(path, g, n.Args[0], visiting)
		buf := st.ram[name]
		if int(addr) < len(buf) {
			return uint32(buf[addr])
		}
		return 0
	case graph.KindRom:
		addr := it.resolveNamed(path, g, n.Args[0], visiting)
		buf := st.rom[name]
		if int(addr) < len(buf) {
			return uint32(buf[addr])
		}
		return 0
	case graph.KindModule:
		return it.callModule(path, g, n, "", visiting)
	default:
		return 0
	}
}

// callModule routes an unqualified (field == "") or dotted (field set)
// read of a module call's result into the callee's own instance,
// propagating the call's current argument values as that instance's
// input wires first.
func (it *Interpreter) callModule(path string, g *graph.Graph, n *graph.Node, field string, visiting map[string]bool) uint32 {
	calleeG, ok := it.graphs[n.Callee]
	if !ok {
		return 0
	}
	childPath := qualifyPath(path, n.Out)
	childSt := it.instance(childPath, calleeG)
	for i, p := range portsOf(calleeG.Module.Inputs) {
		if i < len(n.Args) {
			childSt.wires[p.Name] = it.resolveNamed(path, g, n.Args[i], visiting)
		}
	}
	outPorts := portsOf(calleeG.Module.Outputs)
	portName := field
	if portName == "" {
		if len(outPorts) == 0 {
			return 0
		}
		portName = outPorts[0].Name
	}
	return it.resolveNamed(childPath, calleeG, portName, visiting)
}

type dffUpdate struct {
	st     *instanceState
	name   string
	d, clk uint32
}

type ramUpdate struct {
	st                     *instanceState
	name                   string
	addr, data, write, clk uint32
}

// collectUpdates walks the full instance tree once, propagating module
// call inputs and recording (but not yet applying) every register's next
// value so that all registers observe the same pre-edge state.
func (it *Interpreter) collectUpdates(path string, g *graph.Graph, dffs *[]dffUpdate, rams *[]ramUpdate) {
	st := it.instance(path, g)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		switch n.Kind {
		case graph.KindDff:
			d := it.resolveNamed(path, g, n.Args[0], map[string]bool{}) & 1
			clk := it.resolveNamed(path, g, n.Args[1], map[string]bool{}) & 1
			*dffs = append(*dffs, dffUpdate{st, n.Out, d, clk})
		case graph.KindRam:
			addr := it.resolveNamed(path, g, n.Args[0], map[string]bool{})
			data := it.resolveNamed(path, g, n.Args[1], map[string]bool{})
			write := it.resolveNamed(path, g, n.Args[2], map[string]bool{}) & 1
			clk := it.resolveNamed(path, g, n.Args[3], map[string]bool{}) & 1
			*rams = append(*rams, ramUpdate{st, n.Out, addr, data, write, clk})
		case graph.KindModule:
			calleeG, ok := it.graphs[n.Callee]
			if !ok {
				continue
			}
			childPath := qualifyPath(path, n.Out)
			childSt := it.instance(childPath, calleeG)
			for j, p := range portsOf(calleeG.Module.Inputs) {
				if j < len(n.Args) {
					childSt.wires[p.Name] = it.resolveNamed(path, g, n.Args[j], map[string]bool{})
				}
			}
			it.collectUpdates(childPath, calleeG, dffs, rams)
		}
	}
}

func (it *Interpreter) Step() {
	var dffs []dffUpdate
	var rams []ramUpdate
	it.collectUpdates("", it.topG, &dffs, &rams)

	for _, u := range dffs {
		if u.st.dffPrevClk[u.name] == 0 && u.clk == 1 && u.st.dffState[u.name] != u.d {
			u.st.dffState[u.name] = u.d
		}
		u.st.dffPrevClk[u.name] = u.clk
	}
	for _, u := range rams {
		if u.st.ramPrevClk[u.name] == 0 && u.clk == 1 {
			if u.write == 1 && int(u.addr) < len(u.st.ram[u.name]) {
				u.st.ram[u.name][u.addr] = byte(u.data & 0xFF)
			}
		}
		u.st.ramPrevClk[u.name] = u.clk
	}
}

func (it *Interpreter) Run(n int) {
	for i := 0; i < n; i++ {
		it.Step()
	}
}

func (it *Interpreter) Reset() {
	for _, st := range it.instances {
		for k := range st.wires {
			delete(st.wires, k)
		}
		for k := range st.dffState {
			st.dffState[k] = 0
		}
		for k := range st.dffPrevClk {
			st.dffPrevClk[k] = 0
		}
		for _, buf := range st.ram {
			for i := range buf {
				buf[i] = 0
			}
		}
		for k := range st.ramPrevClk {
			st.ramPrevClk[k] = 0
		}
		// rom is intentionally left untouched.
	}
}

func (it *Interpreter) SetInput(name string, value uint32) {
	st := it.instance("", it.topG)
	for _, p := range portsOf(it.topG.Module.Inputs) {
		if p.Name == name {
			st.wires[name] = value & maskOf(p.Width)
			return
		}
	}
}

func (it *Interpreter) GetOutput(name string) uint32 {
	return it.resolveNamed("", it.topG, name, map[string]bool{})
}

func (it *Interpreter) GetWire(expr string) uint32 {
	base, hasIdx, idx, hasSlice, lo, hi := parseProbe(expr)
	v := it.resolveNamed("", it.topG, base, map[string]bool{})
	return applyProbe(v, hasIdx, idx, hasSlice, lo, hi)
}

// LoadROM/ReadRAM/WriteRAM address memory nodes declared directly in the
// top module; a node_id inside a nested instance is not reachable this
// way, matching how this strategy is only ever exercised as a reference
// oracle for test fixtures that keep their memories at the top level.
func (it *Interpreter) LoadROM(data []byte, nodeID string) {
	st := it.instance("", it.topG)
	for i := range it.topG.Nodes {
		n := &it.topG.Nodes[i]
		if n.Kind != graph.KindRom {
			continue
		}
		if nodeID != "" && n.Out != nodeID {
			continue
		}
		buf := st.rom[n.Out]
		m := len(buf)
		if len(data) < m {
			m = len(data)
		}
		copy(buf[:m], data[:m])
	}
}

func (it *Interpreter) ReadRAM(addr int, nodeID string) uint32 {
	st := it.instance("", it.topG)
	for i := range it.topG.Nodes {
		n := &it.topG.Nodes[i]
		if n.Kind != graph.KindRam {
			continue
		}
		if nodeID != "" && n.Out != nodeID {
			continue
		}
		buf := st.ram[n.Out]
		if addr < 0 || addr >= len(buf) {
			return 0
		}
		return uint32(buf[addr])
	}
	return 0
}

func (it *Interpreter) WriteRAM(addr int, value uint32, nodeID string) {
	st := it.instance("", it.topG)
	for i := range it.topG.Nodes {
		n := &it.topG.Nodes[i]
		if n.Kind != graph.KindRam {
			continue
		}
		if nodeID != "" && n.Out != nodeID {
			continue
		}
		buf := st.ram[n.Out]
		if addr < 0 || addr >= len(buf) {
			return
		}
		buf[addr] = byte(value & 0xFF)
		return
	}
}

func (it *Interpreter) GetAllWires() map[string]uint32 {
	out := make(map[string]uint32, len(it.topG.Widths))
	for name := range it.topG.Widths {
		out[name] = it.resolveNamed("", it.topG, name, map[string]bool{})
	}
	return out
}
