package resolver

import (
	"archive/zip"
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

type entryKind int

const (
	kindNone entryKind = iota
	kindModule
	kindPackage
	kindNamespace
)

// searchRoot is one entry of the search path, seen as a virtual file tree.
// Zip archives are opened on first use.
type searchRoot struct {
	name    string
	archive bool

	once    sync.Once
	fsys    fs.FS
	openErr error
}

func dirRoot(dir string) *searchRoot {
	return &searchRoot{name: dir, fsys: os.DirFS(dir)}
}

func archiveRoot(file string) *searchRoot {
	return &searchRoot{name: file, archive: true}
}

// open returns the root's file tree, opening the archive once.
func (r *searchRoot) open() (fs.FS, error) {
	if !r.archive {
		return r.fsys, nil
	}
	r.once.Do(func() {
		rc, err := zip.OpenReader(r.name)
		if err != nil {
			r.openErr = err
			return
		}
		// The reader stays open for the rest of the run.
		r.fsys = rc
	})
	return r.fsys, r.openErr
}

// classifyPath sorts search path entries into directories and archives.
// Missing entries and setuptools .egg-info files are skipped.
func classifyPath(entries []string) (dirs, archives []*searchRoot) {
	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}

		info, err := os.Stat(entry)
		if err != nil {
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, dirRoot(entry))
			continue
		}
		if strings.HasSuffix(entry, ".egg-info") {
			continue
		}
		archives = append(archives, archiveRoot(entry))
	}
	return dirs, archives
}

// classify looks for seg inside dir of the tree: a regular package wins over
// a module file, which wins over a namespace directory.
func classify(fsys fs.FS, dir, seg string, extensions []string) entryKind {
	pkgDir := path.Join(dir, seg)
	for _, ext := range extensions {
		if isFile(fsys, path.Join(pkgDir, initModule+ext)) {
			return kindPackage
		}
	}
	for _, ext := range extensions {
		if isFile(fsys, pkgDir+ext) {
			return kindModule
		}
	}
	if info, err := fs.Stat(fsys, pkgDir); err == nil && info.IsDir() {
		return kindNamespace
	}
	return kindNone
}

func isFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// validSegment rejects segments that would escape or confuse a file tree lookup.
func validSegment(seg string) bool {
	if seg == "" || seg == "." || seg == ".." {
		return false
	}
	return fs.ValidPath(seg) && !strings.ContainsAny(seg, `/\`)
}

var errNotDirOrZip = errors.New("not a directory or zip file")
