// Package wire is the root of a gate-level hardware description
// language simulator: a two-input NAND gate, an edge-triggered D
// flip-flop, and optional synchronous RAM/ROM blocks are the only
// structural primitives, with modules composed hierarchically on top of
// them plus bit-indexing, slicing, concatenation, and constants.
//
// The pipeline lives one package per stage:
//
//	astmod      the parsed-module AST the core consumes
//	graph       Graph Builder: per-module lowering, alias resolution
//	flatten     Flattener: recursive inlining to a flat netlist, LUT memoization
//	levelize    Levelizer: topological ordering of combinational nodes
//	eval        Evaluator: interpreter, levelized, and JIT strategies
//	simfacade   the Simulator handle external drivers use
//	circuitfile a YAML loader standing in for a real lexer/parser
//	verify      cross-strategy differential checking and structural lint
//
// This file carries no code of its own; it exists so the module root has
// a documented entry point, the way a reader would expect from any of
// the packages one level down.
package wire
