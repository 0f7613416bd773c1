package verify

import (
	"testing"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/simfacade"
)

func halfAdder() astmod.Module {
	return astmod.Module{
		Name:    "half_adder",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}, {Name: "b", Width: 1}},
		Outputs: []astmod.Port{{Name: "sum", Width: 1}, {Name: "carry", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "n1", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("b"))},
			{Target: "n2", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("n1"))},
			{Target: "n3", Expr: astmod.Call("nand", astmod.Ident("b"), astmod.Ident("n1"))},
			{Target: "sum", Expr: astmod.Call("nand", astmod.Ident("n2"), astmod.Ident("n3"))},
			{Target: "carry", Expr: astmod.Call("nand", astmod.Ident("n1"), astmod.Ident("n1"))},
		},
	}
}

func TestRunLintClean(t *testing.T) {
	modules := []astmod.Module{halfAdder()}
	issues, err := RunLint(modules, "half_adder")
	if err != nil {
		t.Fatalf("RunLint: %v", err)
	}
	for _, iss := range issues {
		t.Errorf("unexpected lint issue: %+v", iss)
	}
}

func TestRunLintUnusedInput(t *testing.T) {
	m := astmod.Module{
		Name:    "dangling",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}, {Name: "unused", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "out", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("a"))},
		},
	}
	issues, err := RunLint([]astmod.Module{m}, "dangling")
	if err != nil {
		t.Fatalf("RunLint: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Type == IssueUnusedInput && iss.Node == "unused" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an IssueUnusedInput for %q, got %+v", "unused", issues)
	}
}

func TestRunLintUnknownModule(t *testing.T) {
	m := astmod.Module{
		Name:    "top",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "c", Expr: astmod.Call("missing_module", astmod.Ident("a"))},
			{Target: "out", Expr: astmod.Member(astmod.Ident("c"), "out")},
		},
	}
	issues, err := RunLint([]astmod.Module{m}, "top")
	if err != nil {
		t.Fatalf("RunLint: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Type == IssueUnknownModule {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an IssueUnknownModule, got %+v", issues)
	}
}

func TestRunDifferentialAgreesAcrossStrategies(t *testing.T) {
	modules := []astmod.Module{halfAdder()}
	trace := []Step{
		{{Name: "a", Value: 0}, {Name: "b", Value: 0}},
		{{Name: "a", Value: 1}, {Name: "b", Value: 0}},
		{{Name: "a", Value: 1}, {Name: "b", Value: 1}},
	}
	kinds := []simfacade.StrategyKind{simfacade.StrategyLevelized, simfacade.StrategyJIT, simfacade.StrategyInterpreter}

	divergences, err := RunDifferential(modules, "half_adder", trace, kinds)
	if err != nil {
		t.Fatalf("RunDifferential: %v", err)
	}
	for _, d := range divergences {
		t.Errorf("unexpected divergence at step %d (%s vs %s): %s", d.StepIndex, d.Baseline, d.Other, d.Diff)
	}
}

func TestGenerateReport(t *testing.T) {
	modules := []astmod.Module{halfAdder()}
	report, err := GenerateReport(modules, "half_adder", nil, nil)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if report.ModuleName != "half_adder" {
		t.Errorf("ModuleName = %q, want half_adder", report.ModuleName)
	}
	if len(report.Divergences) != 0 {
		t.Errorf("expected no divergences without a trace, got %d", len(report.Divergences))
	}
}
