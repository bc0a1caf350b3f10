// Package output renders the results of a run: plain listings, Graphviz
// dot, CSV rows, JSON documents and a summary table.
package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// WriteImports lists every analyzed module followed by the modules it
// depends on, one per indented line.
func WriteImports(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	for _, n := range g.Units() {
		fmt.Fprintf(bw, "%s:\n", n.Label)
		targets := g.Targets(n.Identity)
		labels := make([]string, len(targets))
		for i, t := range targets {
			labels[i] = t.Label
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(bw, "  %s\n", label)
		}
	}
	return bw.Flush()
}

// WriteNames lists every name each unit imports, in source order.
func WriteNames(w io.Writer, units []types.UnitResult) error {
	bw := bufio.NewWriter(w)
	for _, u := range byModule(units) {
		fmt.Fprintf(bw, "%s:\n", u.Module)
		for _, rec := range u.Records {
			fmt.Fprintf(bw, "  %s\n", rec.DisplayName())
		}
	}
	return bw.Flush()
}

// WriteUnused reports imports whose binding is never referenced, as
// "path:line: name not used". A comment on the import line suppresses the
// report unless all is set. Wildcards and re-imports are never reported.
func WriteUnused(w io.Writer, units []types.UnitResult, all bool) error {
	bw := bufio.NewWriter(w)
	for _, u := range byModule(units) {
		for _, f := range sortedFindings(u.Findings) {
			if f.Used || f.IsWildcard || f.IsDuplicate() {
				continue
			}
			if f.Suppressed && !all {
				continue
			}
			fmt.Fprintf(bw, "%s:%d: %s not used\n", u.Path, f.Line, f.Binding)
		}
	}
	return bw.Flush()
}

// WriteDuplicates reports bindings imported again before any use. With
// verbose set, each report is followed by the location of the earlier
// import. Commented import lines are skipped.
func WriteDuplicates(w io.Writer, units []types.UnitResult, verbose bool) error {
	bw := bufio.NewWriter(w)
	for _, u := range units {
		for _, f := range u.Findings {
			if !f.IsDuplicate() || f.Suppressed {
				continue
			}
			fmt.Fprintf(bw, "%s:%d: %s imported again\n", u.Path, f.Line, f.Binding)
			if verbose {
				fmt.Fprintf(bw, "%s:%d:   (location of previous import)\n", u.Path, f.DuplicateOfLine)
			}
		}
	}
	return bw.Flush()
}

// WriteDiagnostics prints one diagnostic per line.
func WriteDiagnostics(w io.Writer, diagnostics []types.Diagnostic) error {
	bw := bufio.NewWriter(w)
	for _, d := range diagnostics {
		fmt.Fprintln(bw, d.String())
	}
	return bw.Flush()
}

func byModule(units []types.UnitResult) []types.UnitResult {
	out := make([]types.UnitResult, 0, len(units))
	for _, u := range units {
		if !u.Failed() {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Module < out[j].Module
	})
	return out
}

func sortedFindings(findings []types.UsageFinding) []types.UsageFinding {
	out := append([]types.UsageFinding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}
