package extractor

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultExtensions are the file extensions treated as Python source units.
var DefaultExtensions = []string{".py"}

// LanguageRegistry maps file extensions to the source units the extractor accepts.
type LanguageRegistry struct {
	extensions map[string]struct{}
}

// NewLanguageRegistry creates a registry accepting the given extensions,
// or DefaultExtensions when none are given.
func NewLanguageRegistry(extensions ...string) *LanguageRegistry {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	registry := &LanguageRegistry{extensions: make(map[string]struct{})}
	for _, ext := range extensions {
		registry.Register(ext)
	}
	return registry
}

// Register adds an extension. A missing leading dot is added.
func (r *LanguageRegistry) Register(ext string) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.extensions[ext] = struct{}{}
}

// IsSupported checks if a file extension is supported.
func (r *LanguageRegistry) IsSupported(filePath string) bool {
	_, ok := r.extensions[strings.ToLower(filepath.Ext(filePath))]
	return ok
}

// TrimExtension strips a supported extension from a file name.
func (r *LanguageRegistry) TrimExtension(name string) (string, bool) {
	ext := filepath.Ext(name)
	if _, ok := r.extensions[strings.ToLower(ext)]; !ok {
		return name, false
	}
	return strings.TrimSuffix(name, ext), true
}

// GetSupportedExtensions returns all registered file extensions, sorted.
func (r *LanguageRegistry) GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// NewPythonParser creates a tree-sitter parser for Python.
func NewPythonParser() *sitter.Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return parser
}
