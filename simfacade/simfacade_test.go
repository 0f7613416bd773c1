package simfacade_test

import (
	"strings"
	"testing"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/simfacade"
	"github.com/sarchlab/wire/wireerr"
)

func TestBuildRejectsEmptyModuleList(t *testing.T) {
	_, err := simfacade.NewBuilder(nil).Build()
	if err == nil {
		t.Fatal("expected an error building from an empty module list")
	}
	if wireerr.CodeOf(err) != wireerr.NoModules {
		t.Errorf("expected NoModules, got %v", err)
	}
}

func TestBuildDefaultsTopToLastModule(t *testing.T) {
	a := astmod.Module{Name: "a", Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{{Target: "out", Expr: astmod.Lit(1, 1)}}}
	b := astmod.Module{Name: "b", Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{{Target: "out", Expr: astmod.Lit(0, 1)}}}

	sim, err := simfacade.NewBuilder([]astmod.Module{a, b}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sim.TopModule() != "b" {
		t.Errorf("TopModule() = %q, want %q", sim.TopModule(), "b")
	}
}

func TestDumpWiresRendersTable(t *testing.T) {
	m := astmod.Module{
		Name:    "m",
		Inputs:  []astmod.Port{{Name: "a", Width: 1}, {Name: "b", Width: 1}},
		Outputs: []astmod.Port{{Name: "out", Width: 1}},
		Statements: []astmod.Statement{
			{Target: "out", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("b"))},
		},
	}
	sim, err := simfacade.NewBuilder([]astmod.Module{m}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sim.SetInput("a", 1)
	sim.SetInput("b", 1)
	sim.Step()

	out := sim.DumpWires()
	if !strings.Contains(out, "out") {
		t.Errorf("DumpWires output missing wire name: %s", out)
	}
}
