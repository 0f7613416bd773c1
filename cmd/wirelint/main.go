// Command wirelint loads a circuit description, runs the static lint
// checks, and optionally replays a differential trace across two or
// more evaluator strategies.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sarchlab/wire/circuitfile"
	"github.com/sarchlab/wire/simfacade"
	"github.com/sarchlab/wire/verify"
)

func main() {
	path := flag.String("circuit", "", "path to a circuit YAML file")
	top := flag.String("top", "", "top-level module name (defaults to the last module in the file)")
	out := flag.String("out", "", "write the report to this file instead of stdout")
	differential := flag.Bool("differential", false, "also cross-check levelized, jit and interpreter strategies with all-zero inputs held for -cycles steps")
	cycles := flag.Int("cycles", 4, "number of steps in the differential trace, if enabled")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "wirelint: -circuit is required")
		os.Exit(2)
	}

	modules, err := circuitfile.Load(*path)
	if err != nil {
		log.Fatalf("wirelint: %v", err)
	}

	var kinds []simfacade.StrategyKind
	var trace []verify.Step
	if *differential {
		kinds = []simfacade.StrategyKind{simfacade.StrategyLevelized, simfacade.StrategyJIT, simfacade.StrategyInterpreter}
		for i := 0; i < *cycles; i++ {
			trace = append(trace, verify.Step{})
		}
	}

	report, err := verify.GenerateReport(modules, *top, trace, kinds)
	if err != nil {
		log.Fatalf("wirelint: %v", err)
	}

	if *out == "" {
		report.WriteReport(os.Stdout)
		return
	}
	if err := report.SaveReportToFile(*out); err != nil {
		log.Fatalf("wirelint: %v", err)
	}
}
