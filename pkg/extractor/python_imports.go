// Package extractor finds import statements in Python source units,
// including the ones inside doctest examples.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-find-imports/internal/log"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// ErrSyntax is returned when the primary syntax of a unit cannot be parsed.
var ErrSyntax = errors.New("syntax error")

// SyntaxError locates the first parse error of a unit.
type SyntaxError struct {
	Path string
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: invalid syntax", e.Path, e.Line)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// PythonImportParser parses Python import statements using tree-sitter.
// A parser is not safe for concurrent use; give each worker its own.
type PythonImportParser struct {
	parser *sitter.Parser
	logger log.Logger
}

// NewPythonImportParser creates a new Python import parser.
func NewPythonImportParser(logger log.Logger) *PythonImportParser {
	if logger == nil {
		logger = log.Discard()
	}
	return &PythonImportParser{parser: NewPythonParser(), logger: logger}
}

// Parse builds a Unit from Python source. The returned unit owns syntax
// trees and must be closed by the caller.
func (p *PythonImportParser) Parse(ctx context.Context, path string, content []byte) (*Unit, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return nil, &SyntaxError{Path: path, Line: line}
	}

	unit := newUnit(path, content, tree)
	w := &importWalker{parser: p, ctx: ctx, unit: unit, source: PrimarySource, content: content}
	w.walkNode(root, 0)

	return unit, nil
}

// ParseImportsFromBytes is a convenience wrapper returning only the records.
func (p *PythonImportParser) ParseImportsFromBytes(path string, content []byte) ([]types.ImportRecord, error) {
	unit, err := p.Parse(context.Background(), path, content)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	return unit.Records, nil
}

// importWalker visits one syntax tree: the unit itself or a doctest example.
type importWalker struct {
	parser  *PythonImportParser
	ctx     context.Context
	unit    *Unit
	source  int
	content []byte
	// lineOffset converts rows of this tree into unit lines.
	lineOffset int
	baseDepth  int
}

func (w *importWalker) line(n *sitter.Node) int {
	return w.lineOffset + int(n.StartPoint().Row) + 1
}

// walkNode recursively walks the tree in source order. depth counts the
// block constructs entered so far.
func (w *importWalker) walkNode(node *sitter.Node, depth int) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "import_statement":
		w.addStatement(node, w.parseImportStatement(node, depth))
		w.markComments(node)
		return
	case "import_from_statement":
		w.addStatement(node, w.parseImportFromStatement(node, depth))
		w.markComments(node)
		return
	case "future_import_statement":
		w.markComments(node)
		return
	case "comment":
		w.unit.comments[w.line(node)] = true
		return
	case "module":
		w.collectExamples(node, node, depth)
	case "class_definition", "function_definition":
		if body := node.ChildByFieldName("body"); body != nil {
			w.collectExamples(node, body, depth+1)
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		childDepth := depth
		if child.Type() == "block" {
			childDepth++
		}
		w.walkNode(child, childDepth)
	}
}

func (w *importWalker) addStatement(stmt *sitter.Node, records []types.ImportRecord) {
	key := keyOf(w.source, stmt)
	for _, rec := range records {
		w.unit.statements[key] = append(w.unit.statements[key], len(w.unit.Records))
		w.unit.Records = append(w.unit.Records, rec)
	}
}

// markComments records comments nested inside a parenthesized import list.
func (w *importWalker) markComments(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "comment" {
			w.unit.comments[w.line(child)] = true
		}
	}
}

func (w *importWalker) record(shape types.ImportShape, depth int, at *sitter.Node) types.ImportRecord {
	return types.ImportRecord{
		Shape:     shape,
		Unit:      w.unit.Path,
		Line:      w.line(at),
		Depth:     w.baseDepth + depth,
		IsDoctest: w.source != PrimarySource,
	}
}

// parseImportStatement parses "import x.y" and "import x.y as z".
// Each listed name becomes its own record, placed on the line of the name.
func (w *importWalker) parseImportStatement(node *sitter.Node, depth int) []types.ImportRecord {
	var records []types.ImportRecord

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		var name, alias string
		switch child.Type() {
		case "dotted_name":
			name = w.nodeText(child)
		case "aliased_import":
			name, alias = w.parseAliasedImport(child)
		default:
			continue
		}
		if name == "" {
			continue
		}

		rec := w.record(types.ShapePlain, depth, child)
		rec.ImportedName = name
		rec.Binding = name
		if alias != "" {
			rec.Binding = alias
		}
		records = append(records, rec)
	}

	return records
}

// parseImportFromStatement parses "from m import a, b as c", "from m import *"
// and their relative forms. Children before the "import" keyword make up the
// module part, the ones after it the imported names.
func (w *importWalker) parseImportFromStatement(node *sitter.Node, depth int) []types.ImportRecord {
	var (
		module     string
		level      int
		pastImport bool
		records    []types.ImportRecord
	)

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "import":
			pastImport = true
		case "relative_import":
			level, module = w.parseRelativeImport(child)
		case "dotted_name":
			if !pastImport {
				module = w.nodeText(child)
				continue
			}
			name := w.nodeText(child)
			records = append(records, w.fromRecord(module, level, name, name, depth, child))
		case "aliased_import":
			name, alias := w.parseAliasedImport(child)
			if alias == "" {
				alias = name
			}
			records = append(records, w.fromRecord(module, level, name, alias, depth, child))
		case "wildcard_import":
			rec := w.record(types.ShapeWildcard, depth, child)
			rec.Module = module
			rec.Level = level
			rec.Name = types.Wildcard
			rec.ImportedName = module
			rec.Binding = types.Wildcard
			records = append(records, rec)
		}
	}

	// tree-sitter reports "from __future__ import x" as its own node type, but
	// older grammars fall back to a plain from-import.
	if level == 0 && module == "__future__" {
		return nil
	}
	return records
}

func (w *importWalker) fromRecord(module string, level int, name, binding string, depth int, at *sitter.Node) types.ImportRecord {
	shape := types.ShapeFrom
	if level > 0 {
		shape = types.ShapeRelative
	}

	rec := w.record(shape, depth, at)
	rec.Module = module
	rec.Level = level
	rec.Name = name
	rec.Binding = binding
	rec.ImportedName = name
	if module != "" {
		rec.ImportedName = module + "." + name
	}
	return rec
}

// parseAliasedImport splits "name as alias".
func (w *importWalker) parseAliasedImport(node *sitter.Node) (string, string) {
	name := w.nodeText(node.ChildByFieldName("name"))
	alias := w.nodeText(node.ChildByFieldName("alias"))
	return name, alias
}

// parseRelativeImport returns the number of leading dots and the module
// after them, if any.
func (w *importWalker) parseRelativeImport(node *sitter.Node) (int, string) {
	var level int
	var module string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "import_prefix":
			level = strings.Count(w.nodeText(child), ".")
		case "dotted_name":
			module = w.nodeText(child)
		}
	}

	return level, module
}

// collectExamples parses the doctest examples in the docstring of owner and
// walks each of them. Examples that fail to parse are skipped.
func (w *importWalker) collectExamples(owner, body *sitter.Node, depth int) {
	doc := docstringNode(body)
	if doc == nil {
		return
	}
	text, ok := docstringText(w.nodeText(doc))
	if !ok || !strings.Contains(text, promptPS1) {
		return
	}

	docLine := w.line(doc)
	ownerKey := keyOf(w.source, owner)

	for _, found := range findDocExamples(text) {
		source := []byte(found.source)
		tree, err := w.parser.parser.ParseCtx(w.ctx, nil, source)
		if err != nil {
			w.parser.logger.Debug("skipping doctest example", "unit", w.unit.Path, "line", docLine+found.line, "error", err)
			continue
		}
		if tree.RootNode().HasError() {
			w.parser.logger.Debug("skipping doctest example", "unit", w.unit.Path, "line", docLine+found.line, "error", ErrSyntax)
			tree.Close()
			continue
		}

		example := &Example{
			Index:  len(w.unit.Examples),
			Line:   docLine + found.line,
			Source: source,
			Tree:   tree,
			Depth:  w.baseDepth + depth,
		}
		w.unit.Examples = append(w.unit.Examples, example)
		w.unit.docOwners[ownerKey] = append(w.unit.docOwners[ownerKey], example.Index)

		nested := &importWalker{
			parser:     w.parser,
			ctx:        w.ctx,
			unit:       w.unit,
			source:     example.Index,
			content:    source,
			lineOffset: example.Line - 1,
			baseDepth:  example.Depth,
		}
		nested.walkNode(tree.RootNode(), 0)
	}
}

// nodeText extracts the text content of a node from the source.
func (w *importWalker) nodeText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= uint32(len(w.content)) || end > uint32(len(w.content)) {
		return ""
	}
	return string(w.content[start:end])
}

// firstErrorLine returns the 1-based line of the first error or missing node.
func firstErrorLine(node *sitter.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		return firstErrorLine(child)
	}
	return int(node.StartPoint().Row) + 1
}
