package eval

import (
	"github.com/sarchlab/wire/flatten"
	"github.com/sarchlab/wire/levelize"
)

// Levelized is the production default strategy (spec §4.5 item 2): dense
// typed wire storage, per-node precomputed masks, and a precomputed
// combinational execution order from the Levelizer.
type Levelized struct {
	nl   *flatten.Netlist
	plan *levelize.Plan

	wires      []uint32
	seqState   []uint32
	seqPrevClk []uint32
	ramPrevClk []uint32
	ram        [][]byte
	rom        [][]byte
}

// NewLevelized builds a Levelized evaluator for nl.
func NewLevelized(nl *flatten.Netlist) *Levelized {
	l := &Levelized{
		nl:         nl,
		plan:       levelize.Levelize(nl),
		wires:      make([]uint32, nl.NumWires),
		seqPrevClk: make([]uint32, 0),
	}
	l.seqState = make([]uint32, len(l.plan.Sequential))
	l.seqPrevClk = make([]uint32, len(l.plan.Sequential))

	l.ram = make([][]byte, len(nl.RAMAddrWidth))
	for i, w := range nl.RAMAddrWidth {
		l.ram[i] = make([]byte, 1<<uint(w))
	}
	l.rom = make([][]byte, len(nl.ROMAddrWidth))
	for i, w := range nl.ROMAddrWidth {
		l.rom[i] = make([]byte, 1<<uint(w))
	}
	l.ramPrevClk = make([]uint32, len(nl.RAMAddrWidth))

	return l
}

func (l *Levelized) publish() {
	for i := range l.plan.Sequential {
		n := &l.plan.Sequential[i]
		l.wires[n.Out] = l.seqState[i]
	}
	for i := range l.plan.Memory {
		n := &l.plan.Memory[i]
		addr := l.wires[n.Args[0]]
		switch n.Kind {
		case flatten.FlatRam:
			buf := l.ram[n.RamRomID]
			if int(addr) < len(buf) {
				l.wires[n.Out] = uint32(buf[addr])
			} else {
				l.wires[n.Out] = 0
			}
		case flatten.FlatRom:
			buf := l.rom[n.RamRomID]
			if int(addr) < len(buf) {
				l.wires[n.Out] = uint32(buf[addr])
			} else {
				l.wires[n.Out] = 0
			}
		}
	}
}

func (l *Levelized) combinational() {
	for i := range l.plan.Combinational {
		n := &l.plan.Combinational[i]
		if n.Kind == flatten.FlatLut {
			l.evalLut(n)
			continue
		}
		l.wires[n.Out] = l.evalNode(n)
	}
}

func (l *Levelized) evalNode(n *flatten.FlatNode) uint32 {
	switch n.Kind {
	case flatten.FlatConst:
		return n.ConstValue
	case flatten.FlatNand:
		return (^(l.wires[n.Args[0]] & l.wires[n.Args[1]])) & n.Mask
	case flatten.FlatIndex:
		return (l.wires[n.Args[0]] >> uint(n.Idx)) & 1
	case flatten.FlatSlice:
		return (l.wires[n.Args[0]] >> uint(n.Lo)) & n.Mask
	case flatten.FlatConcat:
		var result uint32
		shift := 0
		for i := len(n.Args) - 1; i >= 0; i-- {
			w := n.Widths[i]
			result |= (l.wires[n.Args[i]] & flatten.Mask(w)) << uint(shift)
			shift += w
		}
		return result
	default:
		return 0
	}
}

func (l *Levelized) evalLut(n *flatten.FlatNode) {
	var packed uint32
	offset := 0
	for _, a := range n.Args {
		w := l.nl.WireWidth[a]
		packed |= (l.wires[a] & flatten.Mask(w)) << uint(offset)
		offset += w
	}
	if int(packed) >= len(n.Table) {
		return
	}
	word := n.Table[packed]
	offset = 0
	for i, out := range n.Outputs {
		w := n.OutputWidths[i]
		l.wires[out] = (word >> uint(offset)) & flatten.Mask(w)
		offset += w
	}
}

// edge runs the edge phase (spec §4.4 step 3) and reports whether any
// latched state changed.
func (l *Levelized) edge() bool {
	changed := false
	for i := range l.plan.Sequential {
		n := &l.plan.Sequential[i]
		d := l.wires[n.Args[0]] & 1
		clk := l.wires[n.Args[1]] & 1
		if l.seqPrevClk[i] == 0 && clk == 1 && l.seqState[i] != d {
			l.seqState[i] = d
			changed = true
		}
		l.seqPrevClk[i] = clk
	}
	for i := range l.plan.Memory {
		n := &l.plan.Memory[i]
		if n.Kind != flatten.FlatRam {
			continue
		}
		addr := l.wires[n.Args[0]]
		data := l.wires[n.Args[1]]
		write := l.wires[n.Args[2]] & 1
		clk := l.wires[n.Args[3]] & 1
		id := n.RamRomID
		if l.ramPrevClk[id] == 0 && clk == 1 {
			if write == 1 && int(addr) < len(l.ram[id]) {
				l.ram[id][addr] = byte(data & 0xFF)
			}
			changed = true
		}
		l.ramPrevClk[id] = clk
	}
	return changed
}

// Step implements spec §4.4's four-step algorithm.
func (l *Levelized) Step() {
	l.publish()
	l.combinational()
	changed := l.edge()
	if changed || l.plan.HasCycle {
		l.publish()
		l.combinational()
	}
}

func (l *Levelized) Run(n int) {
	for i := 0; i < n; i++ {
		l.Step()
	}
}

func (l *Levelized) Reset() {
	for i := range l.wires {
		l.wires[i] = 0
	}
	for i := range l.seqState {
		l.seqState[i] = 0
		l.seqPrevClk[i] = 0
	}
	for i := range l.ramPrevClk {
		l.ramPrevClk[i] = 0
	}
	for _, buf := range l.ram {
		for i := range buf {
			buf[i] = 0
		}
	}
	// ROM is intentionally left untouched.
}

func (l *Levelized) SetInput(name string, value uint32) {
	idx, ok := l.nl.InputIndex[name]
	if !ok {
		return
	}
	l.wires[idx] = value & flatten.Mask(l.nl.WireWidth[idx])
}

func (l *Levelized) GetOutput(name string) uint32 {
	idx, ok := l.nl.OutputIndex[name]
	if !ok {
		return 0
	}
	return l.wires[idx]
}

func (l *Levelized) GetWire(expr string) uint32 {
	base, hasIdx, idx, hasSlice, lo, hi := parseProbe(expr)
	wireIdx, ok := l.lookupWire(base)
	if !ok {
		return 0
	}
	return applyProbe(l.wires[wireIdx], hasIdx, idx, hasSlice, lo, hi)
}

func (l *Levelized) lookupWire(name string) (int, bool) {
	if idx, ok := l.nl.WireName[name]; ok {
		return idx, true
	}
	if idx, ok := l.nl.InputIndex[name]; ok {
		return idx, true
	}
	if idx, ok := l.nl.OutputIndex[name]; ok {
		return idx, true
	}
	return 0, false
}

func (l *Levelized) LoadROM(data []byte, nodeID string) {
	for i, name := range l.nl.ROMName {
		if nodeID != "" && name != nodeID {
			continue
		}
		n := len(l.rom[i])
		if len(data) < n {
			n = len(data)
		}
		copy(l.rom[i][:n], data[:n])
	}
}

func (l *Levelized) ReadRAM(addr int, nodeID string) uint32 {
	for i, name := range l.nl.RAMName {
		if nodeID != "" && name != nodeID {
			continue
		}
		if addr < 0 || addr >= len(l.ram[i]) {
			return 0
		}
		return uint32(l.ram[i][addr])
	}
	return 0
}

func (l *Levelized) WriteRAM(addr int, value uint32, nodeID string) {
	for i, name := range l.nl.RAMName {
		if nodeID != "" && name != nodeID {
			continue
		}
		if addr < 0 || addr >= len(l.ram[i]) {
			return
		}
		l.ram[i][addr] = byte(value & 0xFF)
		return
	}
}

func (l *Levelized) GetAllWires() map[string]uint32 {
	out := make(map[string]uint32, len(l.nl.WireName))
	for name, idx := range l.nl.WireName {
		out[name] = l.wires[idx]
	}
	return out
}
