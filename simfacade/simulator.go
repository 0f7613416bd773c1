package simfacade

import (
	"log/slog"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/xid"

	"github.com/sarchlab/wire/eval"
	"github.com/sarchlab/wire/flatten"
)

// Simulator is the compiled, runnable handle build() hands back: a
// chosen evaluator strategy plus the bookkeeping needed to identify and
// inspect a running instance. It implements eval.Strategy directly by
// delegating to whichever strategy it was built with.
type Simulator struct {
	id       xid.ID
	top      string
	netlist  *flatten.Netlist
	strategy eval.Strategy
	log      *slog.Logger
}

// InstanceID uniquely identifies this simulator instance, for logging
// and for an embedding server to key concurrently running simulators by.
func (s *Simulator) InstanceID() string { return s.id.String() }

// TopModule returns the name of the module this instance was flattened
// from.
func (s *Simulator) TopModule() string { return s.top }

func (s *Simulator) SetInput(name string, value uint32) {
	s.strategy.SetInput(name, value)
}

func (s *Simulator) GetOutput(name string) uint32 {
	return s.strategy.GetOutput(name)
}

func (s *Simulator) GetWire(probe string) uint32 {
	return s.strategy.GetWire(probe)
}

func (s *Simulator) Step() {
	s.strategy.Step()
}

func (s *Simulator) Run(n int) {
	s.strategy.Run(n)
}

func (s *Simulator) Reset() {
	s.log.Debug("reset", "instance", s.id.String())
	s.strategy.Reset()
}

func (s *Simulator) LoadROM(data []byte, nodeID string) {
	s.strategy.LoadROM(data, nodeID)
}

func (s *Simulator) ReadRAM(addr int, nodeID string) uint32 {
	return s.strategy.ReadRAM(addr, nodeID)
}

func (s *Simulator) WriteRAM(addr int, value uint32, nodeID string) {
	s.strategy.WriteRAM(addr, value, nodeID)
}

func (s *Simulator) GetAllWires() map[string]uint32 {
	return s.strategy.GetAllWires()
}

// DumpWires renders every named wire and its current value as a table,
// sorted by name, for CLI and debug output.
func (s *Simulator) DumpWires() string {
	wires := s.strategy.GetAllWires()
	names := make([]string, 0, len(wires))
	for name := range wires {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetTitle("Wires: " + s.top)
	t.AppendHeader(table.Row{"Wire", "Value"})
	for _, name := range names {
		t.AppendRow(table.Row{name, wires[name]})
	}
	return t.Render()
}
