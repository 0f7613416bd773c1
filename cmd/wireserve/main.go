// Command wireserve embeds a compiled circuit behind a small HTTP API
// so an external driver (a test harness, another service) can feed
// inputs and read wire state without linking against this module.
package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/sarchlab/wire/circuitfile"
	"github.com/sarchlab/wire/simfacade"
)

func main() {
	path := flag.String("circuit", "", "path to a circuit YAML file")
	top := flag.String("top", "", "top-level module name (defaults to the last module in the file)")
	strategy := flag.String("strategy", "levelized", "evaluator strategy: levelized, interpreter, jit")
	addr := flag.String("addr", ":8089", "listen address")
	flag.Parse()

	if *path == "" {
		log.Fatal("wireserve: -circuit is required")
	}

	modules, err := circuitfile.Load(*path)
	if err != nil {
		log.Fatalf("wireserve: %v", err)
	}

	kind := simfacade.StrategyLevelized
	switch *strategy {
	case "interpreter":
		kind = simfacade.StrategyInterpreter
	case "jit":
		kind = simfacade.StrategyJIT
	}

	sim, err := simfacade.NewBuilder(modules).WithTop(*top).WithStrategy(kind).Build()
	if err != nil {
		log.Fatalf("wireserve: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	srv := newServer(sim, logger)

	logger.Info("wireserve listening", "addr", *addr, "top", sim.TopModule(), "instance", sim.InstanceID())
	log.Fatal(http.ListenAndServe(*addr, srv.routes()))
}
