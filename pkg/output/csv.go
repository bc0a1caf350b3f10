package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// CSVHeader names the columns written by WriteCSV.
var CSVHeader = []string{"unit", "module", "line", "imported", "binding", "depth", "doctest", "target", "origin", "reason"}

// WriteCSV writes one row per resolved import, unit by unit in record order.
func WriteCSV(w io.Writer, units []types.UnitResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, u := range units {
		for _, imp := range u.Imports {
			rec, res := imp.Record, imp.Resolution
			row := []string{
				u.Path,
				u.Module,
				strconv.Itoa(rec.Line),
				rec.DisplayName(),
				rec.Binding,
				strconv.Itoa(rec.Depth),
				strconv.FormatBool(rec.IsDoctest),
				res.NodeName(),
				graph.OriginOf(res).String(),
				res.UnresolvedReason,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
