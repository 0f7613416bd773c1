package verify

import (
	"fmt"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/flatten"
	"github.com/sarchlab/wire/graph"
	"github.com/sarchlab/wire/levelize"
)

// RunLint performs static structural checks across every parsed module's
// graph, plus one compiled check (combinational cycle detection) against
// the chosen top module. It never fails the build — these are warnings
// a circuit author would want surfaced, not the typed build() errors
// spec §7 defines.
func RunLint(modules []astmod.Module, top string) ([]Issue, error) {
	graphs, err := graph.NewBuilder(modules).BuildAll(modules)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for name, g := range graphs {
		issues = append(issues, lintUnknownModules(name, g, graphs)...)
		issues = append(issues, lintUnusedInputs(name, g)...)
	}

	if top == "" && len(modules) > 0 {
		top = modules[len(modules)-1].Name
	}
	if nl, err := flatten.Flatten(graphs, top, flatten.DefaultConfig()); err == nil {
		plan := levelize.Levelize(nl)
		if plan.HasCycle {
			issues = append(issues, Issue{
				Type:    IssueCombinationalCycle,
				Module:  top,
				Message: "combinational feedback detected that does not pass through a register",
			})
		}
	}

	return issues, nil
}

func lintUnknownModules(moduleName string, g *graph.Graph, graphs map[string]*graph.Graph) []Issue {
	var issues []Issue
	for _, n := range g.Nodes {
		if n.Kind != graph.KindModule {
			continue
		}
		if _, ok := graphs[n.Callee]; !ok {
			issues = append(issues, Issue{
				Type:    IssueUnknownModule,
				Module:  moduleName,
				Node:    n.Out,
				Message: fmt.Sprintf("call to undefined module %q", n.Callee),
			})
		}
	}
	return issues
}

func lintUnusedInputs(moduleName string, g *graph.Graph) []Issue {
	referenced := map[string]bool{}
	for _, n := range g.Nodes {
		for _, a := range n.Args {
			referenced[a] = true
		}
	}
	for alias, target := range g.Aliases {
		if referenced[alias] {
			referenced[target] = true
		}
	}

	var issues []Issue
	for _, port := range g.Module.Inputs {
		if !referenced[port.Name] {
			issues = append(issues, Issue{
				Type:    IssueUnusedInput,
				Module:  moduleName,
				Node:    port.Name,
				Message: fmt.Sprintf("input port %q is never read", port.Name),
			})
		}
	}
	return issues
}
