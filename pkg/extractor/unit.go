package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-find-imports/pkg/types"
)

// PrimarySource identifies the unit's own syntax tree, as opposed to one of
// its doctest examples.
const PrimarySource = -1

// nodeKey locates a node inside the primary tree or inside one example tree.
type nodeKey struct {
	source int
	start  uint32
	end    uint32
}

func keyOf(source int, n *sitter.Node) nodeKey {
	return nodeKey{source: source, start: n.StartByte(), end: n.EndByte()}
}

// Example is one interactive-session block found in a docstring and parsed
// as a nested syntax tree.
type Example struct {
	Index int
	// Line is the unit line holding the first source line of the example.
	Line   int
	Source []byte
	Tree   *sitter.Tree
	// Depth is the nesting depth of the docstring that holds the example.
	Depth int
}

// Unit is a parsed source unit: its syntax tree, the doctest examples found
// in its docstrings and the import records extracted from both.
type Unit struct {
	Path     string
	Content  []byte
	Tree     *sitter.Tree
	Records  []types.ImportRecord
	Examples []*Example

	comments   map[int]bool
	statements map[nodeKey][]int
	docOwners  map[nodeKey][]int
}

func newUnit(path string, content []byte, tree *sitter.Tree) *Unit {
	return &Unit{
		Path:       path,
		Content:    content,
		Tree:       tree,
		comments:   make(map[int]bool),
		statements: make(map[nodeKey][]int),
		docOwners:  make(map[nodeKey][]int),
	}
}

// Root returns the root node of the unit's primary syntax tree.
func (u *Unit) Root() *sitter.Node {
	return u.Tree.RootNode()
}

// Source returns the text a node of the given source belongs to.
func (u *Unit) Source(source int) []byte {
	if source == PrimarySource {
		return u.Content
	}
	return u.Examples[source].Source
}

// LineOffset returns the number of unit lines preceding row 0 of the given source.
func (u *Unit) LineOffset(source int) int {
	if source == PrimarySource {
		return 0
	}
	return u.Examples[source].Line - 1
}

// StatementRecords returns the records produced by an import statement node.
func (u *Unit) StatementRecords(source int, stmt *sitter.Node) []types.ImportRecord {
	idx := u.statements[keyOf(source, stmt)]
	records := make([]types.ImportRecord, 0, len(idx))
	for _, i := range idx {
		records = append(records, u.Records[i])
	}
	return records
}

// ExamplesOf returns the doctest examples found in the docstring of a
// module, class or function node.
func (u *Unit) ExamplesOf(source int, owner *sitter.Node) []*Example {
	idx := u.docOwners[keyOf(source, owner)]
	examples := make([]*Example, 0, len(idx))
	for _, i := range idx {
		examples = append(examples, u.Examples[i])
	}
	return examples
}

// HasComment reports whether a comment starts on the given unit line.
func (u *Unit) HasComment(line int) bool {
	return u.comments[line]
}

// Close releases the syntax trees held by the unit.
func (u *Unit) Close() {
	for _, ex := range u.Examples {
		ex.Tree.Close()
	}
	if u.Tree != nil {
		u.Tree.Close()
	}
}
