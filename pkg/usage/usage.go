// Package usage decides, for every import binding of a unit, whether the bound
// name is referenced later in the same unit.
package usage

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-find-imports/pkg/extractor"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// Options controls which imports take part in the analysis.
type Options struct {
	// MaxDepth excludes records nested MaxDepth or more blocks deep. Zero means no limit.
	MaxDepth int
}

// InDepth reports whether a record at the given depth is analyzed.
func (o Options) InDepth(depth int) bool {
	return o.MaxDepth <= 0 || depth < o.MaxDepth
}

type bindingState struct {
	used bool
}

type binding struct {
	line  int
	state *bindingState
}

// scope is a namespace: the module, a function body or a doctest session.
type scope struct {
	parent   *scope
	bindings map[string]*binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, bindings: make(map[string]*binding)}
}

func (s *scope) lookup(name string) *binding {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			return b
		}
	}
	return nil
}

// use marks name as referenced in this scope and every enclosing one.
func (s *scope) use(name string) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			b.state.used = true
		}
	}
}

type finding struct {
	types.UsageFinding
	state *bindingState
}

// Analyzer walks a parsed unit in source order, tracking import bindings
// per scope.
type Analyzer struct {
	unit     *extractor.Unit
	opts     Options
	top      *scope
	findings []*finding
}

// Analyze returns one finding per analyzed import record of the unit, sorted by line.
func Analyze(unit *extractor.Unit, opts Options) []types.UsageFinding {
	a := &Analyzer{unit: unit, opts: opts}
	a.top = newScope(nil)
	a.walk(unit.Root(), extractor.PrimarySource, a.top)

	out := make([]types.UsageFinding, 0, len(a.findings))
	for _, f := range a.findings {
		uf := f.UsageFinding
		uf.Used = f.state.used
		out = append(out, uf)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Line < out[j].Line
	})
	return out
}

func (a *Analyzer) text(source int, n *sitter.Node) string {
	content := a.unit.Source(source)
	start, end := n.StartByte(), n.EndByte()
	if end > uint32(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}

func (a *Analyzer) walk(node *sitter.Node, source int, sc *scope) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "import_statement", "import_from_statement":
		for _, rec := range a.unit.StatementRecords(source, node) {
			a.addImport(rec, sc)
		}
		return
	case "future_import_statement", "global_statement", "nonlocal_statement", "comment":
		return
	case "module", "class_definition":
		a.walkExamples(node, source)
	case "function_definition":
		a.walkExamples(node, source)
		sc = newScope(sc)
	case "identifier":
		sc.use(a.text(source, node))
		return
	case "attribute", "dotted_name":
		if a.walkChain(node, source, sc) {
			return
		}
	case "keyword_argument":
		a.walk(node.ChildByFieldName("value"), source, sc)
		return
	case "parameters", "lambda_parameters":
		a.walkParameters(node, source, sc)
		return
	case "except_clause":
		a.walkExceptClause(node, source, sc)
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if a.isDefinitionName(node, child) {
			continue
		}
		a.walk(child, source, sc)
	}
}

// isDefinitionName reports whether child is the name being defined by a
// function or class definition.
func (a *Analyzer) isDefinitionName(parent, child *sitter.Node) bool {
	switch parent.Type() {
	case "function_definition", "class_definition":
		name := parent.ChildByFieldName("name")
		return name != nil && name.StartByte() == child.StartByte() && name.EndByte() == child.EndByte()
	}
	return false
}

// walkExamples analyzes the doctest examples of a docstring owner. Each
// session gets its own scope whose parent is the module scope.
func (a *Analyzer) walkExamples(owner *sitter.Node, source int) {
	for _, ex := range a.unit.ExamplesOf(source, owner) {
		a.walk(ex.Tree.RootNode(), ex.Index, newScope(a.top))
	}
}

// walkChain marks every dotted prefix of an attribute chain rooted at a
// plain name: "a.b.c" uses "a", "a.b" and "a.b.c". It returns false when
// the chain is rooted at another expression, which is then walked normally.
func (a *Analyzer) walkChain(node *sitter.Node, source int, sc *scope) bool {
	if node.Type() == "dotted_name" {
		var parts []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			parts = append(parts, a.text(source, node.NamedChild(i)))
		}
		a.usePrefixes(parts, sc)
		return true
	}

	var parts []string
	cur := node
	for cur != nil && cur.Type() == "attribute" {
		attr := cur.ChildByFieldName("attribute")
		if attr == nil {
			return false
		}
		parts = append(parts, a.text(source, attr))
		cur = cur.ChildByFieldName("object")
	}
	if cur == nil {
		return false
	}
	if cur.Type() != "identifier" {
		a.walk(cur, source, sc)
		return true
	}

	parts = append(parts, a.text(source, cur))
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	a.usePrefixes(parts, sc)
	return true
}

func (a *Analyzer) usePrefixes(parts []string, sc *scope) {
	for i := range parts {
		sc.use(strings.Join(parts[:i+1], "."))
	}
}

// walkParameters skips parameter names and walks defaults and annotations.
func (a *Analyzer) walkParameters(node *sitter.Node, source int, sc *scope) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		param := node.NamedChild(i)
		switch param.Type() {
		case "default_parameter":
			a.walk(param.ChildByFieldName("value"), source, sc)
		case "typed_parameter":
			a.walk(param.ChildByFieldName("type"), source, sc)
		case "typed_default_parameter":
			a.walk(param.ChildByFieldName("type"), source, sc)
			a.walk(param.ChildByFieldName("value"), source, sc)
		}
	}
}

// walkExceptClause skips the name bound by "except E as name".
func (a *Analyzer) walkExceptClause(node *sitter.Node, source int, sc *scope) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "as_pattern" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				if part.Type() == "as_pattern_target" {
					continue
				}
				a.walk(part, source, sc)
			}
			continue
		}
		a.walk(child, source, sc)
	}
}

// bindingKey is the name a record binds for duplicate tracking. Wildcards
// bind no referenceable name, so they are keyed by the module they expand.
func bindingKey(rec types.ImportRecord) string {
	if rec.IsWildcard() {
		return rec.DisplayName()
	}
	return rec.Binding
}

func (a *Analyzer) addImport(rec types.ImportRecord, sc *scope) {
	if !a.opts.InDepth(rec.Depth) {
		return
	}

	f := &finding{
		UsageFinding: types.UsageFinding{
			Unit:       rec.Unit,
			Binding:    rec.Binding,
			Line:       rec.Line,
			Suppressed: a.unit.HasComment(rec.Line),
			IsWildcard: rec.IsWildcard(),
		},
	}
	if rec.IsWildcard() {
		f.Binding = rec.DisplayName()
	}

	key := bindingKey(rec)
	if prev := sc.lookup(key); prev != nil && !prev.state.used {
		// The earlier binding keeps tracking references for both imports.
		f.DuplicateOfLine = prev.line
		f.state = prev.state
		a.findings = append(a.findings, f)
		return
	}

	f.state = &bindingState{}
	sc.bindings[key] = &binding{line: rec.Line, state: f.state}
	a.findings = append(a.findings, f)
}
