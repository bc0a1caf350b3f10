package graph

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultTestPackages are the subpackage names CollapseTests folds into their parent.
var DefaultTestPackages = []string{"tests", "ftests"}

// mapping tells how a node appears in a derived graph; false drops it.
type mapping func(n ModuleNode) (ModuleNode, bool)

// rebuild derives a new graph by mapping every node. Nodes mapped to the
// same identity merge, and edges follow their endpoints.
func (g *Graph) rebuild(fn mapping, dropSelf bool) *Graph {
	out := New()
	newIdx := make([]int, len(g.nodes))

	for _, n := range g.StableOrder() {
		i := g.index[n.Identity]
		m, keep := fn(n)
		if !keep {
			newIdx[i] = -1
			continue
		}
		newIdx[i] = out.AddNode(m)
	}

	for _, e := range g.sortedEdges() {
		from, to := newIdx[e.From], newIdx[e.To]
		if from < 0 || to < 0 {
			continue
		}
		if dropSelf && from == to {
			continue
		}
		out.addEdge(from, to)
	}
	return out
}

func (g *Graph) sortedEdges() []Edge {
	edges := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// packageOf returns the package a module is projected to. With level <= 0
// that is the top-level package; otherwise the containing package, cut to
// at most level segments.
func packageOf(n ModuleNode, level int) string {
	parts := strings.Split(n.Identity, ".")
	if level <= 0 {
		return parts[0]
	}
	if n.Kind != KindPackage && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > level {
		parts = parts[:level]
	}
	return strings.Join(parts, ".")
}

func projectNode(n ModuleNode, level int) ModuleNode {
	pkg := packageOf(n, level)
	if pkg == n.Identity {
		n.Label = ""
		return n
	}
	m := n
	m.Identity = pkg
	m.Label = ""
	m.Kind = KindPackage
	if m.Path != "" {
		m.Path = filepath.Dir(m.Path)
	}
	return m
}

// ProjectToPackages collapses every module into its package. Edges inside
// one package disappear.
func (g *Graph) ProjectToPackages(level int) *Graph {
	return g.rebuild(func(n ModuleNode) (ModuleNode, bool) {
		return projectNode(n, level), true
	}, true)
}

// ProjectExternalOnly collapses modules outside the corpus into their
// packages and leaves corpus modules alone.
func (g *Graph) ProjectExternalOnly(level int) *Graph {
	return g.rebuild(func(n ModuleNode) (ModuleNode, bool) {
		if n.IsInternal() {
			n.Label = ""
			return n, true
		}
		return projectNode(n, level), true
	}, true)
}

// FilterUnresolved drops synthetic unresolved nodes unless keep is set.
func (g *Graph) FilterUnresolved(keep bool) *Graph {
	return g.rebuild(func(n ModuleNode) (ModuleNode, bool) {
		return n, keep || n.Origin != OriginUnresolved
	}, false)
}

// FilterExternal keeps only corpus modules.
func (g *Graph) FilterExternal() *Graph {
	return g.rebuild(func(n ModuleNode) (ModuleNode, bool) {
		return n, n.IsInternal()
	}, false)
}

// CollapseTests folds test subpackages ("pkg.tests.test_x") into the
// package holding them ("pkg").
func (g *Graph) CollapseTests(names ...string) *Graph {
	if len(names) == 0 {
		names = DefaultTestPackages
	}
	skip := make(map[string]struct{}, len(names))
	for _, name := range names {
		skip[name] = struct{}{}
	}

	return g.rebuild(func(n ModuleNode) (ModuleNode, bool) {
		var kept []string
		for _, part := range strings.Split(n.Identity, ".") {
			if _, ok := skip[part]; ok {
				break
			}
			kept = append(kept, part)
		}
		if len(kept) == 0 || len(kept) == strings.Count(n.Identity, ".")+1 {
			return n, true
		}
		n.Identity = strings.Join(kept, ".")
		n.Label = ""
		n.Kind = KindPackage
		return n, true
	}, true)
}

// StripPrefix rewrites display labels, removing the longest matching prefix
// followed by a dot. Identities are unchanged. A label equal to a prefix
// has no dot to strip and is kept as is.
func (g *Graph) StripPrefix(prefixes []string) *Graph {
	clean := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSuffix(p, "."); p != "" {
			clean = append(clean, p)
		}
	}
	// Longest first, so the longest match wins.
	sort.Slice(clean, func(i, j int) bool {
		return len(clean[i]) > len(clean[j])
	})

	return g.rebuild(func(n ModuleNode) (ModuleNode, bool) {
		n.Label = StripLabel(n.Label, clean)
		return n, true
	}, false)
}

// StripLabel removes the first of prefixes, plus the following dot, from label.
func StripLabel(label string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(label, p+".") {
			return label[len(p)+1:]
		}
	}
	return label
}

// CollapseCycles merges every strongly connected set of corpus modules into
// one node named after its first member and labelled with all of them.
func (g *Graph) CollapseCycles() *Graph {
	components := g.internalComponents()

	component := make(map[string]ModuleNode)
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		labels := make([]string, len(members))
		for i, idx := range members {
			labels[i] = g.nodes[idx].Label
		}
		merged := ModuleNode{
			Identity: g.nodes[members[0]].Identity,
			Label:    strings.Join(labels, "\n"),
			Kind:     KindPackage,
			Origin:   OriginInternal,
		}
		for _, idx := range members {
			component[g.nodes[idx].Identity] = merged
		}
	}

	return g.rebuild(func(n ModuleNode) (ModuleNode, bool) {
		merged, ok := component[n.Identity]
		if !ok {
			return n, true
		}
		merged.Unit = n.Unit
		merged.Path = n.Path
		return merged, true
	}, true)
}

// internalComponents runs Tarjan's algorithm over edges between corpus
// modules. Each component's members are sorted by identity.
func (g *Graph) internalComponents() [][]int {
	var (
		index   = make([]int, len(g.nodes))
		low     = make([]int, len(g.nodes))
		onStack = make([]bool, len(g.nodes))
		stack   []int
		next    = 1
		result  [][]int
	)

	var visit func(v int)
	visit = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.out[v] {
			if !g.nodes[w].IsInternal() {
				continue
			}
			if index[w] == 0 {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var members []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		sort.Slice(members, func(i, j int) bool {
			return g.nodes[members[i]].Identity < g.nodes[members[j]].Identity
		})
		result = append(result, members)
	}

	for _, n := range g.StableOrder() {
		v := g.index[n.Identity]
		if n.IsInternal() && index[v] == 0 {
			visit(v)
		}
	}
	return result
}
