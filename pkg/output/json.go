package output

import (
	"encoding/json"
	"io"

	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// Node is the JSON form of a graph node.
type Node struct {
	Identity string `json:"identity"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Origin   string `json:"origin"`
	Path     string `json:"path,omitempty"`
}

// Unit is the JSON form of one analyzed source unit.
type Unit struct {
	Path       string                 `json:"path"`
	Module     string                 `json:"module"`
	Imports    []types.ResolvedImport `json:"imports"`
	Findings   []types.UsageFinding   `json:"findings,omitempty"`
	ParseError string                 `json:"parse_error,omitempty"`
}

// Document is everything WriteJSON emits.
type Document struct {
	Modules     []Node             `json:"modules"`
	Edges       []graph.NamedEdge  `json:"edges"`
	Units       []Unit             `json:"units"`
	Diagnostics []types.Diagnostic `json:"diagnostics"`
}

// NewDocument collects the graph and per-unit data of a run.
func NewDocument(g *graph.Graph, units []types.UnitResult, diagnostics []types.Diagnostic) Document {
	doc := Document{
		Modules:     make([]Node, 0, g.Len()),
		Edges:       g.Edges(),
		Units:       make([]Unit, 0, len(units)),
		Diagnostics: diagnostics,
	}
	for _, n := range g.StableOrder() {
		doc.Modules = append(doc.Modules, Node{
			Identity: n.Identity,
			Label:    n.Label,
			Kind:     n.Kind.String(),
			Origin:   n.Origin.String(),
			Path:     n.Path,
		})
	}
	for _, u := range units {
		doc.Units = append(doc.Units, Unit{
			Path:       u.Path,
			Module:     u.Module,
			Imports:    u.Imports,
			Findings:   u.Findings,
			ParseError: u.ParseError,
		})
	}
	if doc.Diagnostics == nil {
		doc.Diagnostics = []types.Diagnostic{}
	}
	return doc
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
