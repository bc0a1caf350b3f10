package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// Summary holds the counters shown by WriteSummary.
type Summary struct {
	Units       int
	Failed      int
	Records     int
	Doctest     int
	Internal    int
	External    int
	Builtin     int
	Unresolved  int
	Unused      int
	Duplicates  int
	Modules     int
	Edges       int
	SourceBytes uint64
	Elapsed     time.Duration
}

// Summarize counts the units of a run and the graph presented for it.
func Summarize(units []types.UnitResult, g *graph.Graph) Summary {
	s := Summary{Units: len(units), Modules: g.Len(), Edges: g.EdgeCount()}
	for _, u := range units {
		if u.Failed() {
			s.Failed++
		}
		s.Records += len(u.Records)
		for _, rec := range u.Records {
			if rec.IsDoctest {
				s.Doctest++
			}
		}
		for _, imp := range u.Imports {
			switch graph.OriginOf(imp.Resolution) {
			case graph.OriginInternal:
				s.Internal++
			case graph.OriginExternal:
				s.External++
			case graph.OriginBuiltin:
				s.Builtin++
			case graph.OriginUnresolved:
				s.Unresolved++
			}
		}
		for _, f := range u.Findings {
			switch {
			case f.IsDuplicate():
				s.Duplicates++
			case !f.Used && !f.IsWildcard:
				s.Unused++
			}
		}
	}
	return s
}

// WriteSummary renders s as a two-column table.
func WriteSummary(w io.Writer, s Summary) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Metric", "Value"})

	count := func(n int) string { return humanize.Comma(int64(n)) }
	tbl.AppendRows([]table.Row{
		{"Units", count(s.Units)},
		{"Failed units", count(s.Failed)},
		{"Import records", count(s.Records)},
		{"  from doctests", count(s.Doctest)},
		{"Internal imports", count(s.Internal)},
		{"External imports", count(s.External)},
		{"Builtin imports", count(s.Builtin)},
		{"Unresolved imports", count(s.Unresolved)},
		{"Unused names", count(s.Unused)},
		{"Duplicate imports", count(s.Duplicates)},
		{"Graph modules", count(s.Modules)},
		{"Graph edges", count(s.Edges)},
	})
	if s.SourceBytes > 0 {
		tbl.AppendRow(table.Row{"Source size", humanize.Bytes(s.SourceBytes)})
	}
	if s.Elapsed > 0 {
		tbl.AppendRow(table.Row{"Elapsed", s.Elapsed.Round(time.Millisecond).String()})
	}
	tbl.AppendFooter(table.Row{"Total", fmt.Sprintf("%d modules", s.Modules)})

	tbl.Render()
	return nil
}
