// Package eval implements the Evaluator (spec §4.4) and its interchangeable
// strategies (spec §4.5): Interpreter (a naive, per-module-graph baseline),
// Levelized (the dense-array production default), and JIT (a compiled
// closure-chain routine). All three satisfy the same Strategy contract and
// must be observationally equivalent for any fixed netlist and input trace.
package eval

// Strategy is the single interface every evaluator implementation
// satisfies (spec §9: "one trait"). Strategy selection is a
// construction-time choice; callers never switch strategies on a live
// instance.
type Strategy interface {
	SetInput(name string, value uint32)
	GetOutput(name string) uint32
	GetWire(probe string) uint32
	Step()
	Run(n int)
	Reset()
	LoadROM(data []byte, nodeID string)
	ReadRAM(addr int, nodeID string) uint32
	WriteRAM(addr int, value uint32, nodeID string)
	GetAllWires() map[string]uint32
}
