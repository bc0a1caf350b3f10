// Package resolver maps dotted import names to module identities the way
// Python's import system searches for them: package directories, module
// files, namespace packages, zip archives, relative imports and builtins.
package resolver

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=resolver.go -destination=mocklookup.gen.go -package=resolver

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/l3aro/go-find-imports/internal/log"
	"github.com/l3aro/go-find-imports/pkg/extractor"
	"github.com/l3aro/go-find-imports/pkg/types"
)

var (
	// ErrOutsideRoot is the reason given for relative imports climbing past
	// the top-level package.
	ErrOutsideRoot = errors.New("relative import outside package root")
	// ErrNotFound is the reason given for names no search root provides.
	ErrNotFound = errors.New("could not find")
)

// DefaultCacheSize is the number of segment lookups memoized per run.
const DefaultCacheSize = 8192

// Importer describes the unit an import statement appears in.
type Importer struct {
	Path string
	// Dir is the absolute directory holding the unit.
	Dir string
	// Module is the unit's dotted identity, empty when it has none.
	Module    string
	IsPackage bool
}

// Lookup resolves import records for the analysis pipeline.
type Lookup interface {
	// Importer names a corpus file.
	Importer(path string) Importer
	// Resolve maps one record to a module identity or an unresolved reason.
	Resolve(from Importer, rec types.ImportRecord) types.ResolvedModule
	// Diagnostics returns problems met while reading the search path.
	Diagnostics() []types.Diagnostic
}

// Config holds the search path and builtin table of a Resolver.
type Config struct {
	SearchPath []string
	// Builtins lists modules that exist without a file. Nil selects DefaultBuiltins.
	Builtins  []string
	CacheSize int
	Registry  *extractor.LanguageRegistry
	Logger    log.Logger
}

type location struct {
	root *searchRoot
	dir  string
}

// Resolver implements Lookup over the file system. It is safe for
// concurrent use.
type Resolver struct {
	corpus     *Corpus
	dirs       []*searchRoot
	archives   []*searchRoot
	builtins   map[string]struct{}
	extensions []string
	memo       *lru.Cache[string, entryKind]
	logger     log.Logger

	mu          sync.Mutex
	warned      map[string]struct{}
	diagnostics []types.Diagnostic
}

// New creates a resolver. The corpus roots are searched before the
// configured search path, so corpus modules shadow everything else.
func New(corpus *Corpus, cfg Config) (*Resolver, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Builtins == nil {
		cfg.Builtins = DefaultBuiltins()
	}
	if cfg.Registry == nil {
		cfg.Registry = extractor.NewLanguageRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if corpus == nil {
		corpus = NewCorpus(nil, cfg.Registry)
	}

	memo, err := lru.New[string, entryKind](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating lookup cache: %w", err)
	}

	entries := append(append([]string{}, corpus.Roots()...), cfg.SearchPath...)
	dirs, archives := classifyPath(entries)

	r := &Resolver{
		corpus:     corpus,
		dirs:       dirs,
		archives:   archives,
		builtins:   make(map[string]struct{}, len(cfg.Builtins)),
		extensions: cfg.Registry.GetSupportedExtensions(),
		memo:       memo,
		logger:     cfg.Logger,
		warned:     make(map[string]struct{}),
	}
	for _, name := range cfg.Builtins {
		r.builtins[name] = struct{}{}
	}

	r.logger.Debug("resolver ready", "dirs", len(dirs), "archives", len(archives), "builtins", len(r.builtins))
	return r, nil
}

// Corpus returns the corpus the resolver was built for.
func (r *Resolver) Corpus() *Corpus {
	return r.corpus
}

// Importer names a corpus file.
func (r *Resolver) Importer(path string) Importer {
	return r.corpus.Importer(path)
}

// Diagnostics returns one entry per unreadable archive on the search path.
func (r *Resolver) Diagnostics() []types.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// Resolve maps rec, imported by from, to a module identity.
//
// The module part of the record must resolve segment by segment. For
// from-imports the imported name is then tried as a submodule; when it is
// not one, the identity is the module part itself.
func (r *Resolver) Resolve(from Importer, rec types.ImportRecord) types.ResolvedModule {
	requested := rec.ModulePart()
	if rec.Shape != types.ShapePlain {
		requested = strings.Repeat(".", rec.Level) + rec.Module
	}

	var (
		prefix []string
		start  []location
	)
	if rec.IsRelative() {
		anc, base, err := r.relativeBase(from, rec.Level)
		if err != nil {
			return types.Unresolved(requested, err.Error())
		}
		prefix = base
		start = []location{anc}
	} else {
		start = r.searchRoots()
	}

	segs := splitDotted(rec.ModulePart())
	if len(segs) == 0 && !rec.IsRelative() {
		return r.fallback(rec, requested)
	}

	// A builtin only loses to a regular package or module; a bare directory
	// of the same name is a namespace portion and does not shadow it.
	if !rec.IsRelative() {
		if _, ok := r.builtins[segs[0]]; ok {
			if top, _, err := r.walk(start, segs[:1]); err != nil || top == kindNamespace {
				return r.fallback(rec, requested)
			}
		}
	}

	kind, locs, err := r.walk(start, segs)
	if err != nil {
		return r.fallback(rec, requested)
	}
	if len(segs) == 0 {
		kind = kindPackage
	}

	identity := joinDotted(append(append([]string{}, prefix...), segs...))
	if rec.Shape == types.ShapeFrom || rec.Shape == types.ShapeRelative {
		if kind != kindModule {
			if subKind, _, err := r.walk(locs, []string{rec.Name}); err == nil {
				identity = joinDotted([]string{identity, rec.Name})
				kind = subKind
			}
		}
	}

	// "from . import x" outside any package names no module unless x is a
	// file next to the importer.
	if identity == "" {
		if rec.Name != "" && rec.Name != types.Wildcard {
			requested += rec.Name
		}
		return types.Unresolved(requested, fmt.Errorf("%w %s", ErrNotFound, requested).Error())
	}

	return types.ResolvedModule{
		Identity:   identity,
		Requested:  requested,
		IsPackage:  kind == kindPackage || kind == kindNamespace,
		IsExternal: !r.corpus.Contains(identity),
	}
}

// fallback handles absolute names no search root provides.
func (r *Resolver) fallback(rec types.ImportRecord, requested string) types.ResolvedModule {
	if !rec.IsRelative() {
		if _, ok := r.builtins[firstSegment(rec.ModulePart())]; ok {
			return types.ResolvedModule{
				Identity:   rec.ModulePart(),
				Requested:  requested,
				IsBuiltin:  true,
				IsExternal: true,
			}
		}
	}
	return types.Unresolved(requested, fmt.Errorf("%w %s", ErrNotFound, requested).Error())
}

// relativeBase returns the directory a relative import of the given level
// starts from, and the dotted parts of the package living there.
func (r *Resolver) relativeBase(from Importer, level int) (location, []string, error) {
	var pkgParts []string
	if from.Module != "" {
		pkgParts = strings.Split(from.Module, ".")
		if !from.IsPackage {
			pkgParts = pkgParts[:len(pkgParts)-1]
		}
	}

	up := level - 1
	if len(pkgParts) == 0 {
		// Scripts outside any package may still import their neighbours.
		if level == 1 && from.Dir != "" {
			return location{root: dirRoot(from.Dir), dir: "."}, nil, nil
		}
		return location{}, nil, ErrOutsideRoot
	}
	if up >= len(pkgParts) {
		return location{}, nil, ErrOutsideRoot
	}

	dir := from.Dir
	for i := 0; i < up; i++ {
		dir = filepath.Dir(dir)
	}
	return location{root: dirRoot(dir), dir: "."}, pkgParts[:len(pkgParts)-up], nil
}

func (r *Resolver) searchRoots() []location {
	locs := make([]location, 0, len(r.dirs)+len(r.archives))
	for _, root := range r.dirs {
		locs = append(locs, location{root: root, dir: "."})
	}
	for _, root := range r.archives {
		locs = append(locs, location{root: root, dir: "."})
	}
	return locs
}

// walk resolves segs one at a time. At each step the first location holding
// a regular package or module wins; otherwise every namespace portion found
// is kept for the next segment. A module cannot have submodules.
func (r *Resolver) walk(start []location, segs []string) (entryKind, []location, error) {
	locs := start
	kind := kindNone

	for i, seg := range segs {
		if !validSegment(seg) {
			return kindNone, nil, ErrNotFound
		}

		var next, portions []location
		kind = kindNone
		for _, loc := range locs {
			found := r.lookup(loc, seg)
			if found == kindPackage || found == kindModule {
				kind = found
				next = []location{{root: loc.root, dir: path.Join(loc.dir, seg)}}
				break
			}
			if found == kindNamespace {
				portions = append(portions, location{root: loc.root, dir: path.Join(loc.dir, seg)})
			}
		}

		if kind == kindNone {
			if len(portions) == 0 {
				return kindNone, nil, ErrNotFound
			}
			kind = kindNamespace
			next = portions
		}
		if kind == kindModule && i < len(segs)-1 {
			return kindNone, nil, ErrNotFound
		}
		locs = next
	}

	return kind, locs, nil
}

// lookup classifies one segment under one location, memoized per root.
func (r *Resolver) lookup(loc location, seg string) entryKind {
	key := loc.root.name + "\x00" + loc.dir + "\x00" + seg
	if kind, ok := r.memo.Get(key); ok {
		return kind
	}

	fsys, err := loc.root.open()
	if err != nil {
		r.archiveFailed(loc.root, err)
		return kindNone
	}

	kind := classify(fsys, loc.dir, seg, r.extensions)
	r.memo.Add(key, kind)
	return kind
}

func (r *Resolver) archiveFailed(root *searchRoot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.warned[root.name]; ok {
		return
	}
	r.warned[root.name] = struct{}{}
	r.logger.Debug("cannot open search path entry", "path", root.name, "error", err)
	r.diagnostics = append(r.diagnostics, types.Diagnostic{
		Kind:    types.DiagArchive,
		Unit:    root.name,
		Message: errNotDirOrZip.Error(),
	})
}

func splitDotted(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

func joinDotted(parts []string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

func firstSegment(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}
