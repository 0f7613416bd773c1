// Package simfacade is the State & I/O façade (spec §2, §4.4): it owns
// the compiled pipeline (Graph Builder → Flattener → chosen Evaluator
// strategy) and is the one thing external drivers — a CLI, an embedding
// HTTP server, a CPU-testing harness — ever touch directly.
package simfacade

import (
	"log/slog"

	"github.com/rs/xid"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/eval"
	"github.com/sarchlab/wire/flatten"
	"github.com/sarchlab/wire/graph"
	"github.com/sarchlab/wire/wireerr"
)

// StrategyKind selects an eval.Strategy implementation at construction
// time (spec §9: "strategy selection is a construction-time choice, not
// runtime polymorphism on the hot path").
type StrategyKind int

const (
	StrategyLevelized StrategyKind = iota
	StrategyInterpreter
	StrategyJIT
)

// Builder assembles a Simulator. Every With... method returns a modified
// copy, following this codebase's usual fluent-builder idiom.
type Builder struct {
	modules   []astmod.Module
	top       string
	strategy  StrategyKind
	lutConfig flatten.Config
	logger    *slog.Logger
}

// NewBuilder starts a Builder from a parsed module list.
func NewBuilder(modules []astmod.Module) Builder {
	return Builder{
		modules:   modules,
		strategy:  StrategyLevelized,
		lutConfig: flatten.DefaultConfig(),
		logger:    slog.Default(),
	}
}

// WithTop selects the top-level module by name; if never called, the
// last module in the list is used (spec §6's build() default).
func (b Builder) WithTop(name string) Builder {
	b.top = name
	return b
}

// WithStrategy chooses the evaluator implementation.
func (b Builder) WithStrategy(s StrategyKind) Builder {
	b.strategy = s
	return b
}

// WithLUTConfig overrides the Flattener's memoization thresholds.
func (b Builder) WithLUTConfig(cfg flatten.Config) Builder {
	b.lutConfig = cfg
	return b
}

// WithLogger overrides the structured logger the Simulator reports
// through (spec's ambient logging, not part of the simulation contract).
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build runs the full compilation pipeline and produces a Simulator, or
// the single typed build error spec §7 calls for.
func (b Builder) Build() (*Simulator, error) {
	if len(b.modules) == 0 {
		return nil, wireerr.New(wireerr.NoModules, "", "", "no modules supplied to build()")
	}

	top := b.top
	if top == "" {
		top = b.modules[len(b.modules)-1].Name
	}

	graphs, err := graph.NewBuilder(b.modules).BuildAll(b.modules)
	if err != nil {
		return nil, err
	}
	if _, ok := graphs[top]; !ok {
		return nil, wireerr.Newf(wireerr.UnknownPrimitive, top, "", "top module %q not found among parsed modules", top)
	}

	nl, err := flatten.Flatten(graphs, top, b.lutConfig)
	if err != nil {
		return nil, err
	}

	var strategy eval.Strategy
	switch b.strategy {
	case StrategyInterpreter:
		strategy = eval.NewInterpreter(graphs, top)
	case StrategyJIT:
		strategy = eval.NewJIT(nl)
	default:
		strategy = eval.NewLevelized(nl)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Simulator{
		id:       xid.New(),
		top:      top,
		netlist:  nl,
		strategy: strategy,
		log:      logger.With("component", "simfacade", "top", top),
	}, nil
}
