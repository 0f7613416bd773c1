// Command wiresim loads a circuit description, runs it for a fixed
// number of cycles, and dumps the resulting wire state.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/circuitfile"
	"github.com/sarchlab/wire/examples"
	"github.com/sarchlab/wire/simfacade"
)

func main() {
	path := flag.String("circuit", "", "path to a circuit YAML file")
	example := flag.String("example", "", "load a built-in fixture instead of -circuit: nand, dff, adder4")
	top := flag.String("top", "", "top-level module name (defaults to the last module in the file)")
	cycles := flag.Int("cycles", 1, "number of simulation steps to run")
	strategy := flag.String("strategy", "levelized", "evaluator strategy: levelized, interpreter, jit")
	bench := flag.Bool("bench", false, "report wall-clock time and resident set size (RSS) after the run")
	flag.Parse()

	atexit.Register(func() { slog.Debug("wiresim exiting") })

	if *path == "" && *example == "" {
		fmt.Fprintln(os.Stderr, "wiresim: one of -circuit or -example is required")
		atexit.Exit(2)
		return
	}

	modules, err := loadModules(*path, *example)
	if err != nil {
		slog.Error("failed to load circuit", "path", *path, "example", *example, "error", err)
		atexit.Exit(1)
		return
	}

	kind := parseStrategy(*strategy)
	sim, err := simfacade.NewBuilder(modules).WithTop(*top).WithStrategy(kind).Build()
	if err != nil {
		slog.Error("failed to build simulator", "error", err)
		atexit.Exit(1)
		return
	}

	start := time.Now()
	sim.Run(*cycles)
	elapsed := time.Since(start)

	fmt.Println(sim.DumpWires())

	if *bench {
		reportBench(sim.TopModule(), *cycles, elapsed)
	}

	atexit.Exit(0)
}

func loadModules(path, example string) ([]astmod.Module, error) {
	if path != "" {
		return circuitfile.Load(path)
	}
	switch example {
	case "nand":
		return examples.NAND()
	case "dff":
		return examples.DFFLatch()
	case "adder4":
		return examples.RippleAdder4()
	default:
		return nil, fmt.Errorf("wiresim: unknown -example %q (want nand, dff, or adder4)", example)
	}
}

func parseStrategy(s string) simfacade.StrategyKind {
	switch s {
	case "interpreter":
		return simfacade.StrategyInterpreter
	case "jit":
		return simfacade.StrategyJIT
	default:
		return simfacade.StrategyLevelized
	}
}

func reportBench(top string, cycles int, elapsed time.Duration) {
	fmt.Printf("bench: %s ran %d cycles in %s (%.0f cycles/s)\n",
		top, cycles, elapsed, float64(cycles)/elapsed.Seconds())

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("bench: could not sample process stats", "error", err)
		return
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		fmt.Printf("bench: RSS %.1f MiB\n", float64(mem.RSS)/(1024*1024))
	}
}
