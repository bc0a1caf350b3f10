// Package scanner discovers the Python source units of a corpus. It walks
// directory trees in sorted order, honours an ignore list and .gfiignore
// files, and decodes source text to UTF-8.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/l3aro/go-find-imports/internal/log"
	"github.com/l3aro/go-find-imports/pkg/extractor"
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path    string // Root joined with the relative path
	RelPath string // Slash-separated path relative to the scan root
	Size    int64
}

// Options configures the scanner behavior.
type Options struct {
	// Ignore lists file and directory names skipped wherever they appear.
	Ignore         []string
	SkipHidden     bool
	IgnoreFileName string
	Registry       *extractor.LanguageRegistry
	Logger         log.Logger
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Ignore:         []string{"venv"},
		SkipHidden:     true,
		IgnoreFileName: ".gfiignore",
		Registry:       extractor.NewLanguageRegistry(),
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.Registry == nil {
		opts.Registry = extractor.NewLanguageRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	return &Scanner{opts: opts}
}

// ScanAll scans every argument in order. Directories are walked; files are
// taken as given, whatever their extension. Duplicates are dropped.
func (s *Scanner) ScanAll(roots []string) ([]FileInfo, error) {
	var out []FileInfo
	seen := make(map[string]struct{})
	var total int64

	for _, root := range roots {
		files, err := s.Scan(root)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, ok := seen[f.Path]; ok {
				continue
			}
			seen[f.Path] = struct{}{}
			total += f.Size
			out = append(out, f)
		}
	}

	s.opts.Logger.Debug("corpus scanned", "units", len(out), "size", humanize.Bytes(uint64(total)))
	return out, nil
}

// Scan returns the source units under root, sorted by path. A root naming
// a file yields that file.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		return []FileInfo{{Path: root, RelPath: filepath.ToSlash(filepath.Base(root)), Size: info.Size()}}, nil
	}

	patterns, err := loadIgnorePatterns(root, s.opts.IgnoreFileName)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.opts.Logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil || relPath == "." {
			return nil
		}
		relSlash := filepath.ToSlash(relPath)
		name := d.Name()

		if s.isIgnored(name) || (s.opts.SkipHidden && isHidden(name)) ||
			matchesIgnorePatterns(relSlash, d.IsDir(), patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			nested, err := loadIgnorePatterns(path, s.opts.IgnoreFileName)
			if err == nil && len(nested) > 0 {
				patterns = append(patterns, rebase(nested, relSlash)...)
			}
			return nil
		}

		// Editor lock files such as ".#mod.py" are never sources.
		if strings.HasPrefix(name, ".#") || !d.Type().IsRegular() || !s.opts.Registry.IsSupported(name) {
			return nil
		}

		var size int64
		if fi, err := d.Info(); err == nil {
			size = fi.Size()
		}
		files = append(files, FileInfo{Path: path, RelPath: relSlash, Size: size})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func (s *Scanner) isIgnored(name string) bool {
	for _, ignore := range s.opts.Ignore {
		if name == ignore {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// rebase anchors patterns read from a nested ignore file to its directory.
func rebase(patterns []IgnorePattern, dir string) []IgnorePattern {
	out := make([]IgnorePattern, 0, len(patterns))
	for _, p := range patterns {
		if p.isAnchored {
			p.segments = append(strings.Split(dir, "/"), p.segments...)
		} else {
			p.segments = append(append(strings.Split(dir, "/"), "**"), p.segments...)
			p.isAnchored = true
		}
		out = append(out, p)
	}
	return out
}

// Paths returns the paths of files.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
