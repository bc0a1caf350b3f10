package types

import (
	"fmt"
	"strings"
)

// Wildcard is the binding name recorded for "from X import *".
const Wildcard = "*"

// ImportShape is the syntactic form an import record came from.
type ImportShape int

const (
	// ShapePlain is "import a.b.c [as x]".
	ShapePlain ImportShape = iota
	// ShapeFrom is "from a.b import c [as x]".
	ShapeFrom
	// ShapeRelative is "from .[.]*[a.b] import c [as x]".
	ShapeRelative
	// ShapeWildcard is "from [.]*a.b import *", relative or not.
	ShapeWildcard
)

func (s ImportShape) String() string {
	switch s {
	case ShapePlain:
		return "import"
	case ShapeFrom:
		return "from"
	case ShapeRelative:
		return "relative"
	case ShapeWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// ImportRecord is one imported name occurring in a source unit.
type ImportRecord struct {
	Shape ImportShape `json:"shape" msgpack:"shape"`
	// Module is the "from" part without leading dots. Empty for plain imports
	// and for bare relative imports ("from . import x").
	Module string `json:"module,omitempty" msgpack:"module"`
	// Name is the name after "import" in a from-import, "*" for wildcards.
	Name string `json:"name,omitempty" msgpack:"name"`
	// ImportedName is the full dotted name as written, without leading dots:
	// "a.b.c" for "import a.b.c", "a.b.c" for "from a.b import c",
	// "a.b" for "from a.b import *".
	ImportedName string `json:"imported_name" msgpack:"imported"`
	Binding      string `json:"binding" msgpack:"binding"`
	Level        int    `json:"level,omitempty" msgpack:"level"`
	Unit         string `json:"unit" msgpack:"unit"`
	Line         int    `json:"line" msgpack:"line"`
	Depth        int    `json:"depth" msgpack:"depth"`
	IsDoctest    bool   `json:"is_doctest,omitempty" msgpack:"doctest"`
}

// IsRelative reports whether the record has a positive up-level count.
func (r ImportRecord) IsRelative() bool {
	return r.Level > 0
}

// IsWildcard reports whether the record binds every public name of a module.
func (r ImportRecord) IsWildcard() bool {
	return r.Shape == ShapeWildcard
}

// ModulePart returns the dotted name of the module the statement refers to:
// the imported name itself for plain imports, the "from" part otherwise.
func (r ImportRecord) ModulePart() string {
	if r.Shape == ShapePlain {
		return r.ImportedName
	}
	return r.Module
}

// DisplayName renders the imported name the way it was written, including
// leading dots for relative imports and ".*" for wildcards.
func (r ImportRecord) DisplayName() string {
	name := r.ImportedName
	if r.Shape == ShapeWildcard {
		if name == "" {
			name = Wildcard
		} else {
			name += "." + Wildcard
		}
	}
	return strings.Repeat(".", r.Level) + name
}

// FirstSegment returns the first dotted segment of the imported name.
func (r ImportRecord) FirstSegment() string {
	name := r.ImportedName
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// ResolvedModule is the outcome of resolving one ImportRecord.
type ResolvedModule struct {
	// Identity is the canonical dotted module path; empty when unresolved.
	Identity string `json:"identity,omitempty" msgpack:"identity"`
	// Requested is the literal module name that was looked up. Unresolved
	// imports are represented in the graph under this name.
	Requested        string `json:"requested" msgpack:"requested"`
	IsBuiltin        bool   `json:"is_builtin,omitempty" msgpack:"builtin"`
	IsExternal       bool   `json:"is_external,omitempty" msgpack:"external"`
	IsPackage        bool   `json:"is_package,omitempty" msgpack:"package"`
	UnresolvedReason string `json:"unresolved_reason,omitempty" msgpack:"reason"`
}

// Resolved reports whether resolution produced an identity.
func (m ResolvedModule) Resolved() bool {
	return m.UnresolvedReason == ""
}

// NodeName is the graph node name for this resolution: the identity when
// resolved, the requested name otherwise.
func (m ResolvedModule) NodeName() string {
	if m.Resolved() {
		return m.Identity
	}
	return m.Requested
}

// Unresolved builds a failed resolution for the requested name.
func Unresolved(requested, reason string) ResolvedModule {
	return ResolvedModule{Requested: requested, UnresolvedReason: reason}
}

// ResolvedImport pairs a record with its resolution.
type ResolvedImport struct {
	Record     ImportRecord   `json:"record" msgpack:"record"`
	Resolution ResolvedModule `json:"resolution" msgpack:"resolution"`
}

// UsageFinding describes whether one import binding is referenced.
type UsageFinding struct {
	Unit       string `json:"unit" msgpack:"unit"`
	Binding    string `json:"binding" msgpack:"binding"`
	Line       int    `json:"line" msgpack:"line"`
	Used       bool   `json:"used" msgpack:"used"`
	Suppressed bool   `json:"suppressed,omitempty" msgpack:"suppressed"`
	// DuplicateOfLine is the line of the earlier, still unused import of
	// the same binding. Zero when the binding is not a duplicate.
	DuplicateOfLine int  `json:"duplicate_of_line,omitempty" msgpack:"dup"`
	IsWildcard      bool `json:"is_wildcard,omitempty" msgpack:"wildcard"`
}

// IsDuplicate reports whether the finding re-imports a still unused binding.
func (f UsageFinding) IsDuplicate() bool {
	return f.DuplicateOfLine > 0
}

// DiagnosticKind classifies non-fatal problems found during a run.
type DiagnosticKind int

const (
	// DiagUnresolved is an import that could not be resolved.
	DiagUnresolved DiagnosticKind = iota
	// DiagParse is a unit whose primary syntax could not be parsed.
	DiagParse
	// DiagArchive is a search path entry that is neither a directory nor a zip archive.
	DiagArchive
	// DiagRead is a unit that could not be read or decoded.
	DiagRead
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagUnresolved:
		return "unresolved"
	case DiagParse:
		return "parse"
	case DiagArchive:
		return "archive"
	case DiagRead:
		return "read"
	default:
		return "unknown"
	}
}

// Diagnostic is a message for the side channel, printed as "unit:line: message".
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" msgpack:"kind"`
	Unit    string         `json:"unit" msgpack:"unit"`
	Line    int            `json:"line,omitempty" msgpack:"line"`
	Message string         `json:"message" msgpack:"message"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.Unit, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Unit, d.Message)
}

// UnitResult is everything one source unit contributes to a run.
type UnitResult struct {
	Path      string `json:"path" msgpack:"path"`
	Module    string `json:"module" msgpack:"module"`
	IsPackage bool   `json:"is_package,omitempty" msgpack:"package"`
	// Records holds every import found, including ones nested deeper than
	// the configured maximum depth.
	Records []ImportRecord `json:"records" msgpack:"records"`
	// Imports holds the records that take part in the graph, resolved.
	Imports     []ResolvedImport `json:"imports" msgpack:"imports"`
	Findings    []UsageFinding   `json:"findings,omitempty" msgpack:"findings"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty" msgpack:"diagnostics"`
	// ParseError is set when the unit's primary syntax failed to parse.
	ParseError string `json:"parse_error,omitempty" msgpack:"parse_error"`
}

// Failed reports whether the unit was skipped because it did not parse.
func (u UnitResult) Failed() bool {
	return u.ParseError != ""
}
