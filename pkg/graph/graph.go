// Package graph aggregates resolved imports into a module dependency graph
// and derives package-level, external-only and condensed views of it.
package graph

import (
	"sort"

	"github.com/l3aro/go-find-imports/pkg/types"
)

// Origin says where a module comes from. Lower values take precedence
// when nodes are merged.
type Origin int

const (
	OriginInternal Origin = iota
	OriginExternal
	OriginBuiltin
	OriginUnresolved
)

func (o Origin) String() string {
	switch o {
	case OriginInternal:
		return "internal"
	case OriginExternal:
		return "external"
	case OriginBuiltin:
		return "builtin"
	case OriginUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Kind distinguishes packages from plain modules.
type Kind int

const (
	KindModule Kind = iota
	KindPackage
)

func (k Kind) String() string {
	if k == KindPackage {
		return "package"
	}
	return "module"
}

// ModuleNode is one vertex of the graph.
type ModuleNode struct {
	Identity string `json:"identity"`
	Label    string `json:"label"`
	Kind     Kind   `json:"-"`
	Origin   Origin `json:"-"`
	// Unit is set for nodes standing for at least one analyzed source unit.
	Unit bool   `json:"unit"`
	Path string `json:"path,omitempty"`
}

// IsInternal reports whether the module belongs to the analyzed corpus.
func (n ModuleNode) IsInternal() bool {
	return n.Origin == OriginInternal
}

// Edge is a dependency between two nodes, by arena index.
type Edge struct {
	From int
	To   int
}

// Graph is an append-only arena of modules with deduplicated edges.
// It is not safe for concurrent use; one goroutine owns it while building.
type Graph struct {
	nodes []ModuleNode
	index map[string]int
	edges map[Edge]struct{}
	out   [][]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
		edges: make(map[Edge]struct{}),
	}
}

// OriginOf classifies a resolution.
func OriginOf(res types.ResolvedModule) Origin {
	switch {
	case !res.Resolved():
		return OriginUnresolved
	case res.IsBuiltin:
		return OriginBuiltin
	case res.IsExternal:
		return OriginExternal
	default:
		return OriginInternal
	}
}

// AddUnit adds the node of a source unit and one edge per resolved import.
// Units that failed to read or parse contribute nothing.
func (g *Graph) AddUnit(unit types.UnitResult) {
	if unit.Module == "" || unit.Failed() {
		return
	}
	kind := KindModule
	if unit.IsPackage {
		kind = KindPackage
	}
	from := g.AddNode(ModuleNode{
		Identity: unit.Module,
		Kind:     kind,
		Origin:   OriginInternal,
		Unit:     true,
		Path:     unit.Path,
	})

	for _, imp := range unit.Imports {
		res := imp.Resolution
		kind := KindModule
		if res.IsPackage {
			kind = KindPackage
		}
		to := g.AddNode(ModuleNode{
			Identity: res.NodeName(),
			Kind:     kind,
			Origin:   OriginOf(res),
		})
		g.addEdge(from, to)
	}
}

// AddNode inserts a node or merges it into the existing one with the same
// identity, and returns its index.
func (g *Graph) AddNode(n ModuleNode) int {
	if n.Label == "" {
		n.Label = n.Identity
	}
	if i, ok := g.index[n.Identity]; ok {
		cur := &g.nodes[i]
		if n.Origin < cur.Origin {
			cur.Origin = n.Origin
		}
		if n.Kind == KindPackage {
			cur.Kind = KindPackage
		}
		// The smallest path wins so merging does not depend on arrival order.
		if n.Unit && (!cur.Unit || n.Path < cur.Path) {
			cur.Unit = true
			cur.Path = n.Path
		}
		return i
	}

	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.index[n.Identity] = len(g.nodes) - 1
	return len(g.nodes) - 1
}

// AddEdge adds a dependency between two existing identities.
func (g *Graph) AddEdge(from, to string) bool {
	fi, ok := g.index[from]
	if !ok {
		return false
	}
	ti, ok := g.index[to]
	if !ok {
		return false
	}
	g.addEdge(fi, ti)
	return true
}

func (g *Graph) addEdge(from, to int) {
	e := Edge{From: from, To: to}
	if _, ok := g.edges[e]; ok {
		return
	}
	g.edges[e] = struct{}{}
	g.out[from] = append(g.out[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node with the given identity.
func (g *Graph) Node(identity string) (ModuleNode, bool) {
	i, ok := g.index[identity]
	if !ok {
		return ModuleNode{}, false
	}
	return g.nodes[i], true
}

// HasEdge reports whether from depends on to.
func (g *Graph) HasEdge(from, to string) bool {
	fi, ok := g.index[from]
	if !ok {
		return false
	}
	ti, ok := g.index[to]
	if !ok {
		return false
	}
	_, ok = g.edges[Edge{From: fi, To: ti}]
	return ok
}

// StableOrder returns all nodes sorted by identity.
func (g *Graph) StableOrder() []ModuleNode {
	out := make([]ModuleNode, len(g.nodes))
	copy(out, g.nodes)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity < out[j].Identity
	})
	return out
}

// Units returns the nodes standing for source units, sorted by identity.
func (g *Graph) Units() []ModuleNode {
	var out []ModuleNode
	for _, n := range g.StableOrder() {
		if n.Unit {
			out = append(out, n)
		}
	}
	return out
}

// Targets returns the nodes identity depends on, sorted by identity.
func (g *Graph) Targets(identity string) []ModuleNode {
	i, ok := g.index[identity]
	if !ok {
		return nil
	}
	out := make([]ModuleNode, 0, len(g.out[i]))
	for _, t := range g.out[i] {
		out = append(out, g.nodes[t])
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Identity < out[b].Identity
	})
	return out
}

// NamedEdge is an edge expressed with node identities.
type NamedEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Edges returns every edge sorted by source then target identity.
func (g *Graph) Edges() []NamedEdge {
	out := make([]NamedEdge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, NamedEdge{From: g.nodes[e.From].Identity, To: g.nodes[e.To].Identity})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
