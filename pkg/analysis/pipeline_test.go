package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/l3aro/go-find-imports/pkg/graph"
	"github.com/l3aro/go-find-imports/pkg/resolver"
	"github.com/l3aro/go-find-imports/pkg/types"
)

// memFiles serves unit contents from memory.
func memFiles(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
		}
		return []byte(content), nil
	}
}

// fakeResolution resolves "missing..." names as unresolved, stdlib names as
// builtins and everything else as external.
func fakeResolution(_ resolver.Importer, rec types.ImportRecord) types.ResolvedModule {
	name := rec.ModulePart()
	if rec.IsRelative() {
		name = "pkg." + rec.Name
	}
	switch {
	case strings.HasPrefix(name, "missing"):
		return types.Unresolved(name, "could not find "+name)
	case resolver.IsStdlib(name):
		return types.ResolvedModule{Identity: name, Requested: name, IsBuiltin: true, IsExternal: true}
	default:
		return types.ResolvedModule{Identity: name, Requested: name, IsExternal: true}
	}
}

func newMockLookup(t *testing.T) *resolver.MockLookup {
	t.Helper()
	ctrl := gomock.NewController(t)
	lookup := resolver.NewMockLookup(ctrl)
	lookup.EXPECT().Importer(gomock.Any()).DoAndReturn(func(path string) resolver.Importer {
		return resolver.Importer{Path: path, Module: strings.TrimSuffix(filepath.Base(path), ".py")}
	}).AnyTimes()
	return lookup
}

func TestRunUnusedScenario(t *testing.T) {
	lookup := newMockLookup(t)
	lookup.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(fakeResolution).Times(2)
	lookup.EXPECT().Diagnostics().Return(nil)

	p := New(lookup, Options{ReadFile: memFiles(map[string]string{
		"m.py": "import os\nimport sys\nprint(sys.argv)\n",
	})})
	res, err := p.Run(context.Background(), []string{"m.py"})
	require.NoError(t, err)

	require.Len(t, res.Units, 1)
	unit := res.Units[0]
	assert.Equal(t, "m", unit.Module)
	assert.False(t, res.Failed())
	assert.Empty(t, res.Diagnostics)

	findings := res.Findings()
	require.Len(t, findings, 2)
	assert.Equal(t, "os", findings[0].Binding)
	assert.Equal(t, 1, findings[0].Line)
	assert.False(t, findings[0].Used)
	assert.Equal(t, "sys", findings[1].Binding)
	assert.True(t, findings[1].Used)

	triples := res.Triples()
	require.Len(t, triples, 2)
	assert.Equal(t, "m.py", triples[0].Unit)
	assert.Equal(t, "os", triples[0].Resolution.Identity)
	assert.True(t, triples[1].Resolution.IsBuiltin)

	assert.True(t, res.Graph.HasEdge("m", "os"))
	assert.True(t, res.Graph.HasEdge("m", "sys"))
}

func TestRunUnresolvedDiagnostics(t *testing.T) {
	lookup := newMockLookup(t)
	lookup.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(fakeResolution).Times(3)
	lookup.EXPECT().Diagnostics().Return([]types.Diagnostic{
		{Kind: types.DiagArchive, Unit: "broken.zip", Message: "not a directory or zip file"},
	})

	p := New(lookup, Options{ReadFile: memFiles(map[string]string{
		"m.py": "import missing.mod\nfrom missing import a, b\n",
	})})
	res, err := p.Run(context.Background(), []string{"m.py"})
	require.NoError(t, err)

	var lines []string
	for _, d := range res.Diagnostics {
		lines = append(lines, d.String())
	}
	assert.Equal(t, []string{
		"broken.zip: not a directory or zip file",
		"m.py:1: could not find missing.mod",
		"m.py:2: could not find missing",
	}, lines)

	// Unresolved imports still take part in the graph.
	assert.Len(t, res.Units[0].Imports, 3)
	node, ok := res.Graph.Node("missing.mod")
	require.True(t, ok)
	assert.Equal(t, graph.OriginUnresolved, node.Origin)
	assert.False(t, res.Failed())
}

func TestRunParseAndReadFailures(t *testing.T) {
	lookup := newMockLookup(t)
	lookup.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(fakeResolution).Times(1)
	lookup.EXPECT().Diagnostics().Return(nil)

	p := New(lookup, Options{ReadFile: memFiles(map[string]string{
		"broken.py": "import os\ndef (:\n",
		"ok.py":     "import json\n",
	})})
	res, err := p.Run(context.Background(), []string{"broken.py", "gone.py", "ok.py"})
	require.NoError(t, err)

	assert.True(t, res.Failed())
	assert.Equal(t, []string{"broken.py", "gone.py"}, res.FailedUnits())

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, types.DiagParse, res.Diagnostics[0].Kind)
	assert.Equal(t, "broken.py:2: syntax error", res.Diagnostics[0].String())
	assert.Equal(t, types.DiagRead, res.Diagnostics[1].Kind)
	assert.Equal(t, "gone.py", res.Diagnostics[1].Unit)

	// The run goes on after a failed unit.
	assert.True(t, res.Graph.HasEdge("ok", "json"))
	_, ok := res.Graph.Node("broken")
	assert.False(t, ok, "a failed unit is left out of the graph")
}

func TestRunMaxDepth(t *testing.T) {
	var (
		mu       sync.Mutex
		resolved []string
	)
	lookup := newMockLookup(t)
	lookup.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(from resolver.Importer, rec types.ImportRecord) types.ResolvedModule {
			mu.Lock()
			resolved = append(resolved, rec.ImportedName)
			mu.Unlock()
			return fakeResolution(from, rec)
		}).AnyTimes()
	lookup.EXPECT().Diagnostics().Return(nil)

	p := New(lookup, Options{MaxDepth: 1, ReadFile: memFiles(map[string]string{
		"m.py": "import os\ndef f():\n    import json\n",
	})})
	res, err := p.Run(context.Background(), []string{"m.py"})
	require.NoError(t, err)

	unit := res.Units[0]
	assert.Len(t, unit.Records, 2, "deep records stay in the record list")
	require.Len(t, unit.Imports, 1)
	assert.Equal(t, []string{"os"}, resolved)
	assert.False(t, res.Graph.HasEdge("m", "json"))

	for _, f := range unit.Findings {
		assert.NotEqual(t, "json", f.Binding)
	}
}

func TestRunIgnoreStdlib(t *testing.T) {
	lookup := newMockLookup(t)
	lookup.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(fakeResolution).Times(2)
	lookup.EXPECT().Diagnostics().Return(nil)

	p := New(lookup, Options{IgnoreStdlib: true, ReadFile: memFiles(map[string]string{
		"m.py": "import os.path\nfrom . import sibling\nimport requests\nfrom collections import OrderedDict\n",
	})})
	res, err := p.Run(context.Background(), []string{"m.py"})
	require.NoError(t, err)

	var names []string
	for _, rec := range res.Units[0].Records {
		names = append(names, rec.DisplayName())
	}
	assert.Equal(t, []string{".sibling", "requests"}, names)
	assert.Equal(t, []string{"pkg.sibling", "requests"}, identities(res.Graph.Targets("m")))
}

func TestRunKeepsInputOrder(t *testing.T) {
	files := make(map[string]string)
	var paths []string
	for i := 0; i < 40; i++ {
		path := fmt.Sprintf("u%02d.py", i)
		files[path] = fmt.Sprintf("import dep%02d\n", i)
		paths = append(paths, path)
	}

	lookup := newMockLookup(t)
	lookup.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(fakeResolution).Times(len(paths))
	lookup.EXPECT().Diagnostics().Return(nil)

	res, err := New(lookup, Options{Workers: 4, ReadFile: memFiles(files)}).Run(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, res.Units, len(paths))
	for i, u := range res.Units {
		assert.Equal(t, paths[i], u.Path)
	}
	assert.Equal(t, 80, res.Graph.Len())
	assert.Equal(t, 40, res.Graph.EdgeCount())
}

func TestRunCancelled(t *testing.T) {
	lookup := newMockLookup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(lookup, Options{ReadFile: memFiles(nil)}).Run(ctx, []string{"a.py", "b.py"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAssemble(t *testing.T) {
	units := []types.UnitResult{
		{Path: "a.py", Module: "a", Imports: []types.ResolvedImport{
			{Record: types.ImportRecord{ImportedName: "b", Binding: "b", Line: 1}, Resolution: types.ResolvedModule{Identity: "b", Requested: "b"}},
		}},
		{Path: "b.py", Module: "b", ParseError: "b.py:1: syntax error"},
	}

	res := Assemble(units)
	assert.True(t, res.Graph.HasEdge("a", "b"))
	b, ok := res.Graph.Node("b")
	require.True(t, ok)
	assert.False(t, b.Unit, "a failed unit is only an import target")
	assert.True(t, res.Failed())
	assert.Len(t, res.Triples(), 1)
}

// TestRunResolvesSiblings runs the real resolver over a package on disk.
func TestRunResolvesSiblings(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"box/__init__.py": "",
		"box/a.py":        "from . import sibling\nimport totally.missing\n",
		"box/sibling.py":  "import os\n",
	}
	var paths []string
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}

	r, err := resolver.New(resolver.NewCorpus(paths, nil), resolver.Config{})
	require.NoError(t, err)

	res, err := New(r, Options{Workers: 2}).Run(context.Background(), paths)
	require.NoError(t, err)

	assert.True(t, res.Graph.HasEdge("box.a", "box.sibling"))
	assert.True(t, res.Graph.HasEdge("box.a", "totally.missing"))
	assert.True(t, res.Graph.HasEdge("box.sibling", "os"))

	var messages []string
	for _, d := range res.Diagnostics {
		messages = append(messages, d.Message)
	}
	assert.Equal(t, []string{"could not find totally.missing"}, messages)
}

func identities(nodes []graph.ModuleNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Identity)
	}
	return out
}
