package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for go-find-imports
type Config struct {
	// SearchPath lists directories and zip archives searched for modules
	// outside the corpus, in order.
	SearchPath []string `yaml:"search_path" env:"GFI_SEARCH_PATH"`

	// Ignore lists file and directory names skipped while scanning.
	Ignore []string `yaml:"ignore" env:"GFI_IGNORE"`

	// MaxDepth excludes imports nested this deep or deeper. 0 is unlimited.
	MaxDepth int `yaml:"max_depth" env:"GFI_MAX_DEPTH"`

	// Workers bounds concurrent unit processing. 0 uses every CPU.
	Workers int `yaml:"workers" env:"GFI_WORKERS"`

	// CacheSize is the capacity of the resolver's lookup cache.
	CacheSize int `yaml:"cache_size" env:"GFI_CACHE_SIZE"`

	// Extensions of source files.
	Extensions []string `yaml:"extensions" env:"GFI_EXTENSIONS"`

	// DotAttributes are added verbatim to dot output.
	DotAttributes []string `yaml:"dot_attributes"`

	// Logging
	Verbose  bool `yaml:"verbose" env:"GFI_VERBOSE"`
	JSONLogs bool `yaml:"json_logs" env:"GFI_JSON_LOGS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SearchPath: nil,
		Ignore:     []string{"venv"},
		MaxDepth:   0,
		Workers:    0,
		CacheSize:  8192,
		Extensions: []string{".py"},
		Verbose:    false,
		JSONLogs:   false,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.gfi/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".gfi", "config.yaml")
	}
	return filepath.Join(home, ".gfi", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.gfi/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".gfi", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gfi/config.yaml)
// 3. Global config (~/.gfi/config.yaml)
// 4. Defaults
//
// Command-line flags are applied on top by the caller.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		if err := mergeFile(cfg, path, true); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeFile(cfg, path, false); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GFI_SEARCH_PATH"); v != "" {
		cfg.SearchPath = filepath.SplitList(v)
	} else if v := os.Getenv("PYTHONPATH"); v != "" && len(cfg.SearchPath) == 0 {
		cfg.SearchPath = filepath.SplitList(v)
	}
	if v := os.Getenv("GFI_IGNORE"); v != "" {
		cfg.Ignore = splitList(v)
	}
	if v := os.Getenv("GFI_MAX_DEPTH"); v != "" {
		if i, ok := parseInt(v); ok {
			cfg.MaxDepth = i
		}
	}
	if v := os.Getenv("GFI_WORKERS"); v != "" {
		if i, ok := parseInt(v); ok {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("GFI_CACHE_SIZE"); v != "" {
		if i, ok := parseInt(v); ok {
			cfg.CacheSize = i
		}
	}
	if v := os.Getenv("GFI_EXTENSIONS"); v != "" {
		cfg.Extensions = splitList(v)
	}
	if v := os.Getenv("GFI_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("GFI_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
}

// Validate checks that the configuration holds usable values
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must be non-negative", ErrInvalid)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative", ErrInvalid)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must be non-negative", ErrInvalid)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: at least one extension is required", ErrInvalid)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalid, ext)
		}
	}
	for _, name := range c.Ignore {
		if name == "" || strings.ContainsRune(name, filepath.Separator) {
			return fmt.Errorf("%w: ignore entry %q must be a plain file or directory name", ErrInvalid, name)
		}
	}
	return nil
}

// splitList splits a comma-separated value, dropping empty items
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseInt attempts to parse a string as int
func parseInt(s string) (int, bool) {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0, false
	}
	return i, true
}

func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}
