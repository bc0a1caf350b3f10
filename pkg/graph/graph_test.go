package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-find-imports/pkg/types"
)

func internal(identity string) types.ResolvedImport {
	return types.ResolvedImport{Resolution: types.ResolvedModule{Identity: identity, Requested: identity}}
}

func external(identity string) types.ResolvedImport {
	return types.ResolvedImport{Resolution: types.ResolvedModule{Identity: identity, Requested: identity, IsExternal: true}}
}

func unit(module string, imports ...types.ResolvedImport) types.UnitResult {
	return types.UnitResult{Path: module + ".py", Module: module, Imports: imports}
}

func edgeList(g *Graph) []string {
	var out []string
	for _, e := range g.Edges() {
		out = append(out, e.From+" -> "+e.To)
	}
	return out
}

func identities(nodes []ModuleNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Identity)
	}
	return out
}

func TestAddUnitDeduplicatesEdges(t *testing.T) {
	g := New()
	g.AddUnit(unit("app.main", internal("app.util"), internal("app.util"), external("requests")))
	g.AddUnit(unit("app.util"))

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, g.EdgeCount())
	assert.True(t, g.HasEdge("app.main", "app.util"))

	node, ok := g.Node("app.util")
	require.True(t, ok)
	assert.True(t, node.Unit)
	assert.Equal(t, "app.util.py", node.Path)

	ext, ok := g.Node("requests")
	require.True(t, ok)
	assert.Equal(t, OriginExternal, ext.Origin)
	assert.False(t, ext.Unit)
}

func TestAddUnitSkipsFailedUnits(t *testing.T) {
	g := New()
	broken := unit("app.broken", internal("app.util"))
	broken.ParseError = "app.broken.py:2: syntax error"
	g.AddUnit(broken)
	g.AddUnit(unit("app.main", internal("app.broken")))

	assert.Equal(t, []string{"app.main -> app.broken"}, edgeList(g))
	assert.Equal(t, []string{"app.main"}, identities(g.Units()))

	node, ok := g.Node("app.broken")
	require.True(t, ok)
	assert.False(t, node.Unit)
	assert.Empty(t, node.Path)
}

func TestUnresolvedNode(t *testing.T) {
	g := New()
	g.AddUnit(unit("m", types.ResolvedImport{Resolution: types.Unresolved("totally.missing", "could not find totally.missing")}))

	node, ok := g.Node("totally.missing")
	require.True(t, ok)
	assert.Equal(t, OriginUnresolved, node.Origin)
	assert.True(t, g.HasEdge("m", "totally.missing"))

	filtered := g.FilterUnresolved(false)
	_, ok = filtered.Node("totally.missing")
	assert.False(t, ok)
	assert.Equal(t, 0, filtered.EdgeCount())

	kept := g.FilterUnresolved(true)
	assert.Equal(t, 1, kept.EdgeCount())
}

func TestStableOrder(t *testing.T) {
	g := New()
	g.AddUnit(unit("zeta", internal("alpha")))
	g.AddUnit(unit("mid"))
	g.AddUnit(unit("alpha"))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, identities(g.StableOrder()))
	assert.Equal(t, identities(g.StableOrder()), identities(g.StableOrder()))
}

func TestProjectToPackages(t *testing.T) {
	g := New()
	g.AddUnit(unit("box.a", internal("box.b"), external("requests.api")))
	g.AddUnit(unit("box.b", internal("box.a")))
	g.AddUnit(unit("other.c", internal("box.a")))

	pkgs := g.ProjectToPackages(0)
	assert.Equal(t, []string{"box", "other", "requests"}, identities(pkgs.StableOrder()))
	assert.Equal(t, []string{"box -> requests", "other -> box"}, edgeList(pkgs))
	assert.False(t, pkgs.HasEdge("box", "box"))

	box, ok := pkgs.Node("box")
	require.True(t, ok)
	assert.Equal(t, KindPackage, box.Kind)
	assert.True(t, box.Unit)
	assert.True(t, box.IsInternal())
}

func TestProjectToPackagesCycleVanishes(t *testing.T) {
	g := New()
	g.AddUnit(unit("box.a", internal("box.b")))
	g.AddUnit(unit("box.b", internal("box.a")))

	pkgs := g.ProjectToPackages(0)
	assert.Equal(t, 1, pkgs.Len())
	assert.Equal(t, 0, pkgs.EdgeCount())
}

func TestProjectToPackagesLevel(t *testing.T) {
	g := New()
	g.AddUnit(unit("a.b.c.mod", internal("a.x.y")))
	g.AddUnit(unit("a.x.y"))

	assert.Equal(t, []string{"a.b -> a.x"}, edgeList(g.ProjectToPackages(2)))
	assert.Equal(t, []string{"a.b.c -> a.x"}, edgeList(g.ProjectToPackages(3)))
	assert.Equal(t, 0, g.ProjectToPackages(1).EdgeCount())
}

func TestProjectExternalOnly(t *testing.T) {
	g := New()
	g.AddUnit(unit("box.a", external("requests.api"), external("requests.models"), internal("box.b")))
	g.AddUnit(unit("box.b"))

	proj := g.ProjectExternalOnly(0)
	assert.Equal(t, []string{"box.a", "box.b", "requests"}, identities(proj.StableOrder()))
	assert.Equal(t, []string{"box.a -> box.b", "box.a -> requests"}, edgeList(proj))
}

func TestFilterExternal(t *testing.T) {
	g := New()
	g.AddUnit(unit("box.a", external("requests"), internal("box.b")))
	g.AddUnit(unit("box.b"))

	only := g.FilterExternal()
	assert.Equal(t, []string{"box.a", "box.b"}, identities(only.StableOrder()))
	assert.Equal(t, []string{"box.a -> box.b"}, edgeList(only))
}

func TestStripPrefix(t *testing.T) {
	g := New()
	g.AddUnit(unit("company.product.core", internal("company.product.util"), external("company.other")))
	g.AddUnit(unit("company.product.util"))

	prefixes := []string{"company", "company.product"}
	stripped := g.StripPrefix(prefixes)

	// Identities are untouched and labels lose the longest prefix.
	for _, n := range stripped.StableOrder() {
		orig, ok := g.Node(n.Identity)
		require.True(t, ok)
		switch n.Identity {
		case "company.product.core":
			assert.Equal(t, "core", n.Label)
			assert.Equal(t, orig.Identity, "company.product."+n.Label)
		case "company.product.util":
			assert.Equal(t, "util", n.Label)
		case "company.other":
			assert.Equal(t, "other", n.Label)
			assert.Equal(t, orig.Identity, "company."+n.Label)
		}
	}
	assert.Equal(t, edgeList(g), edgeList(stripped))

	// Prefixes must match whole segments.
	assert.Equal(t, "companyx.y", StripLabel("companyx.y", []string{"company"}))
	assert.Equal(t, "company", StripLabel("company", []string{"company"}))

	// A node named exactly like a prefix keeps its label and stays.
	g.AddUnit(unit("company", internal("company.product.core")))
	stripped = g.StripPrefix([]string{"company"})
	node, ok := stripped.Node("company")
	require.True(t, ok)
	assert.Equal(t, "company", node.Label)
	assert.Equal(t, g.Len(), stripped.Len())
	assert.True(t, stripped.HasEdge("company", "company.product.core"))
}

func TestCollapseTests(t *testing.T) {
	g := New()
	g.AddUnit(unit("pkg.tests.test_core", internal("pkg.core")))
	g.AddUnit(unit("pkg.core"))
	g.AddUnit(unit("pkg.ftests.test_func", internal("other")))
	g.AddUnit(unit("tests"))

	collapsed := g.CollapseTests()
	assert.Equal(t, []string{"other", "pkg", "pkg.core", "tests"}, identities(collapsed.StableOrder()))
	assert.Equal(t, []string{"pkg -> other", "pkg -> pkg.core"}, edgeList(collapsed))
}

func TestCollapseCycles(t *testing.T) {
	g := New()
	g.AddUnit(unit("a", internal("b"), external("requests")))
	g.AddUnit(unit("b", internal("c")))
	g.AddUnit(unit("c", internal("a"), internal("d")))
	g.AddUnit(unit("d"))

	collapsed := g.CollapseCycles()
	assert.Equal(t, []string{"a", "d", "requests"}, identities(collapsed.StableOrder()))
	assert.Equal(t, []string{"a -> d", "a -> requests"}, edgeList(collapsed))

	node, ok := collapsed.Node("a")
	require.True(t, ok)
	assert.Equal(t, "a\nb\nc", node.Label)
	assert.True(t, node.Unit)
}

func TestTargets(t *testing.T) {
	g := New()
	g.AddUnit(unit("m", internal("z"), internal("b"), external("a")))

	assert.Equal(t, []string{"a", "b", "z"}, identities(g.Targets("m")))
	assert.Empty(t, g.Targets("nope"))
}
