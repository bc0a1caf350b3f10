package analysis

import (
	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// Result is everything a run produced.
type Result struct {
	// Units are in the order their paths were given.
	Units       []types.UnitResult
	Graph       *graph.Graph
	Diagnostics []types.Diagnostic
}

// Triple is one resolved import of one unit.
type Triple struct {
	Unit       string
	Record     types.ImportRecord
	Resolution types.ResolvedModule
}

// Assemble rebuilds a result from units produced by an earlier run, such
// as those loaded from an import cache.
func Assemble(units []types.UnitResult, diagnostics ...types.Diagnostic) *Result {
	g := graph.New()
	for _, u := range units {
		g.AddUnit(u)
	}
	return &Result{
		Units:       units,
		Graph:       g,
		Diagnostics: collectDiagnostics(diagnostics, units),
	}
}

// Triples returns every resolved import, unit by unit in record order.
func (r *Result) Triples() []Triple {
	var out []Triple
	for _, u := range r.Units {
		for _, imp := range u.Imports {
			out = append(out, Triple{Unit: u.Path, Record: imp.Record, Resolution: imp.Resolution})
		}
	}
	return out
}

// Findings returns the usage findings of all units, unit by unit and by line.
func (r *Result) Findings() []types.UsageFinding {
	var out []types.UsageFinding
	for _, u := range r.Units {
		out = append(out, u.Findings...)
	}
	return out
}

// Failed reports whether any unit could not be parsed or read.
func (r *Result) Failed() bool {
	for _, u := range r.Units {
		if u.Failed() {
			return true
		}
	}
	return false
}

// FailedUnits returns the paths of units that were skipped.
func (r *Result) FailedUnits() []string {
	var out []string
	for _, u := range r.Units {
		if u.Failed() {
			out = append(out, u.Path)
		}
	}
	return out
}
