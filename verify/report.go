package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/simfacade"
)

// VerificationReport bundles the lint findings and, if a trace and at
// least two strategies were supplied, the differential simulation
// findings for one top module.
type VerificationReport struct {
	ModuleName  string
	Issues      []Issue
	Divergences []Divergence
}

// GenerateReport runs RunLint unconditionally and RunDifferential only
// when the caller supplied a replay trace and more than one strategy.
func GenerateReport(modules []astmod.Module, top string, trace []Step, kinds []simfacade.StrategyKind) (*VerificationReport, error) {
	issues, err := RunLint(modules, top)
	if err != nil {
		return nil, err
	}

	var divergences []Divergence
	if len(trace) > 0 && len(kinds) >= 2 {
		divergences, err = RunDifferential(modules, top, trace, kinds)
		if err != nil {
			return nil, err
		}
	}

	return &VerificationReport{
		ModuleName:  top,
		Issues:      issues,
		Divergences: divergences,
	}, nil
}

// WriteReport renders the report as two tables: lint issues, then
// cross-strategy divergences.
func (r *VerificationReport) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "Verification report for module %q\n\n", r.ModuleName)

	it := table.NewWriter()
	it.SetTitle("Lint Issues")
	it.AppendHeader(table.Row{"Type", "Module", "Node", "Message"})
	if len(r.Issues) == 0 {
		it.AppendRow(table.Row{"-", "-", "-", "no issues found"})
	}
	for _, iss := range r.Issues {
		it.AppendRow(table.Row{iss.Type, iss.Module, iss.Node, iss.Message})
	}
	fmt.Fprintln(w, it.Render())
	fmt.Fprintln(w)

	dt := table.NewWriter()
	dt.SetTitle("Cross-Strategy Divergences")
	dt.AppendHeader(table.Row{"Step", "Baseline", "Other", "Diff"})
	if len(r.Divergences) == 0 {
		dt.AppendRow(table.Row{"-", "-", "-", "strategies agree on every step"})
	}
	for _, d := range r.Divergences {
		dt.AppendRow(table.Row{d.StepIndex, d.Baseline, d.Other, d.Diff})
	}
	fmt.Fprintln(w, dt.Render())
}

// SaveReportToFile renders the report and writes it to filename.
func (r *VerificationReport) SaveReportToFile(filename string) error {
	var buf bytes.Buffer
	r.WriteReport(&buf)
	return os.WriteFile(filename, buf.Bytes(), 0o644)
}
