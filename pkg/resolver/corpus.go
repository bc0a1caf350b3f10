package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-find-imports/pkg/extractor"
)

const initModule = "__init__"

// Corpus is the set of source units under analysis, indexed by module identity.
type Corpus struct {
	registry *extractor.LanguageRegistry
	byPath   map[string]Importer
	modules  map[string]string
	packages map[string]struct{}
	roots    []string
}

// NewCorpus names every unit by walking up its parent directories while
// they hold an __init__ file.
func NewCorpus(paths []string, registry *extractor.LanguageRegistry) *Corpus {
	if registry == nil {
		registry = extractor.NewLanguageRegistry()
	}
	c := &Corpus{
		registry: registry,
		byPath:   make(map[string]Importer, len(paths)),
		modules:  make(map[string]string, len(paths)),
		packages: make(map[string]struct{}),
	}

	seenRoots := make(map[string]struct{})
	for _, path := range paths {
		imp, root := c.name(path)
		c.byPath[path] = imp
		if imp.Module == "" {
			continue
		}
		c.modules[imp.Module] = path

		parts := strings.Split(imp.Module, ".")
		last := len(parts) - 1
		if imp.IsPackage {
			last = len(parts)
		}
		for i := 1; i <= last; i++ {
			c.packages[strings.Join(parts[:i], ".")] = struct{}{}
		}

		if _, ok := seenRoots[root]; !ok {
			seenRoots[root] = struct{}{}
			c.roots = append(c.roots, root)
		}
	}

	return c
}

// ModuleName returns the dotted module identity of a source file and
// whether the file is a package's __init__ module.
func (c *Corpus) ModuleName(path string) (string, bool) {
	imp := c.Importer(path)
	return imp.Module, imp.IsPackage
}

// Importer describes a source file as the origin of imports.
func (c *Corpus) Importer(path string) Importer {
	if imp, ok := c.byPath[path]; ok {
		return imp
	}
	imp, _ := c.name(path)
	return imp
}

// Contains reports whether identity is a corpus unit or a package holding one.
func (c *Corpus) Contains(identity string) bool {
	if _, ok := c.modules[identity]; ok {
		return true
	}
	_, ok := c.packages[identity]
	return ok
}

// Path returns the file of a corpus module.
func (c *Corpus) Path(identity string) (string, bool) {
	path, ok := c.modules[identity]
	return path, ok
}

// Roots returns the directories holding the corpus' top-level packages and
// modules, in discovery order.
func (c *Corpus) Roots() []string {
	return c.roots
}

// Len returns the number of named units.
func (c *Corpus) Len() int {
	return len(c.modules)
}

func (c *Corpus) name(path string) (Importer, string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	imp := Importer{Path: path, Dir: filepath.Dir(abs)}

	base, ok := c.registry.TrimExtension(filepath.Base(abs))
	if !ok {
		return imp, imp.Dir
	}

	var parts []string
	if base == initModule {
		imp.IsPackage = true
	} else {
		parts = []string{base}
	}

	dir := imp.Dir
	for c.hasInit(dir) {
		parts = append([]string{filepath.Base(dir)}, parts...)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// A bare __init__ file outside any package names nothing.
	if len(parts) == 0 {
		imp.IsPackage = false
		parts = []string{base}
	}

	imp.Module = strings.Join(parts, ".")
	return imp, dir
}

func (c *Corpus) hasInit(dir string) bool {
	for _, ext := range c.registry.GetSupportedExtensions() {
		info, err := os.Stat(filepath.Join(dir, initModule+ext))
		if err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
