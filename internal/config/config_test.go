package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// clearEnv blanks every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GFI_SEARCH_PATH", "PYTHONPATH", "GFI_IGNORE", "GFI_MAX_DEPTH", "GFI_WORKERS",
		"GFI_CACHE_SIZE", "GFI_EXTENSIONS", "GFI_VERBOSE", "GFI_JSON_LOGS",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Ignore", cfg.Ignore, []string{"venv"}},
		{"MaxDepth", cfg.MaxDepth, 0},
		{"Workers", cfg.Workers, 0},
		{"CacheSize", cfg.CacheSize, 8192},
		{"Extensions", cfg.Extensions, []string{".py"}},
		{"Verbose", cfg.Verbose, false},
		{"JSONLogs", cfg.JSONLogs, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "depth and workers", mutate: func(c *Config) { c.MaxDepth = 2; c.Workers = 4 }},
		{name: "negative depth", mutate: func(c *Config) { c.MaxDepth = -1 }, wantErr: true, errContains: "max_depth"},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -2 }, wantErr: true, errContains: "workers"},
		{name: "negative cache size", mutate: func(c *Config) { c.CacheSize = -1 }, wantErr: true, errContains: "cache_size"},
		{name: "no extensions", mutate: func(c *Config) { c.Extensions = nil }, wantErr: true, errContains: "extension"},
		{name: "extension without dot", mutate: func(c *Config) { c.Extensions = []string{"py"} }, wantErr: true, errContains: `"py"`},
		{name: "ignore with separator", mutate: func(c *Config) { c.Ignore = []string{"a" + string(filepath.Separator) + "b"} }, wantErr: true, errContains: "ignore"},
		{name: "empty ignore entry", mutate: func(c *Config) { c.Ignore = []string{""} }, wantErr: true, errContains: "ignore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error %v does not wrap ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		check   func(t *testing.T, c *Config)
		wantErr bool
	}{
		{
			name: "file values",
			yaml: "search_path: [/opt/lib, /opt/site.zip]\nmax_depth: 3\nignore: [venv, build]\n",
			check: func(t *testing.T, c *Config) {
				if !reflect.DeepEqual(c.SearchPath, []string{"/opt/lib", "/opt/site.zip"}) {
					t.Errorf("SearchPath = %v", c.SearchPath)
				}
				if c.MaxDepth != 3 {
					t.Errorf("MaxDepth = %d, want 3", c.MaxDepth)
				}
				if !reflect.DeepEqual(c.Ignore, []string{"venv", "build"}) {
					t.Errorf("Ignore = %v", c.Ignore)
				}
				if c.CacheSize != 8192 {
					t.Errorf("unset fields keep defaults, CacheSize = %d", c.CacheSize)
				}
			},
		},
		{
			name: "env overrides file",
			yaml: "workers: 2\nverbose: false\n",
			env:  map[string]string{"GFI_WORKERS": "8", "GFI_VERBOSE": "yes"},
			check: func(t *testing.T, c *Config) {
				if c.Workers != 8 {
					t.Errorf("Workers = %d, want 8", c.Workers)
				}
				if !c.Verbose {
					t.Error("Verbose should be set by GFI_VERBOSE")
				}
			},
		},
		{
			name:    "invalid yaml",
			yaml:    "max_depth: [oops\n",
			wantErr: true,
		},
		{
			name:    "invalid value",
			yaml:    "workers: -1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}

			cfg, err := LoadFromFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFromFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromFile() should fail for a missing file")
	}
}

func TestLoadProjectConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	project := t.TempDir()
	t.Chdir(project)

	cfg := DefaultConfig()
	cfg.MaxDepth = 5
	if err := cfg.Save(ProjectConfigFilePath()); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5", loaded.MaxDepth)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	sep := string(os.PathListSeparator)

	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, c *Config)
	}{
		{
			name: "search path uses the list separator",
			env:  map[string]string{"GFI_SEARCH_PATH": "/a" + sep + "/b.zip"},
			check: func(t *testing.T, c *Config) {
				if !reflect.DeepEqual(c.SearchPath, []string{"/a", "/b.zip"}) {
					t.Errorf("SearchPath = %v", c.SearchPath)
				}
			},
		},
		{
			name: "PYTHONPATH fills an empty search path",
			env:  map[string]string{"PYTHONPATH": "/py"},
			check: func(t *testing.T, c *Config) {
				if !reflect.DeepEqual(c.SearchPath, []string{"/py"}) {
					t.Errorf("SearchPath = %v", c.SearchPath)
				}
			},
		},
		{
			name: "lists are comma separated",
			env:  map[string]string{"GFI_IGNORE": "venv, .tox", "GFI_EXTENSIONS": ".py,.pyw"},
			check: func(t *testing.T, c *Config) {
				if !reflect.DeepEqual(c.Ignore, []string{"venv", ".tox"}) {
					t.Errorf("Ignore = %v", c.Ignore)
				}
				if !reflect.DeepEqual(c.Extensions, []string{".py", ".pyw"}) {
					t.Errorf("Extensions = %v", c.Extensions)
				}
			},
		},
		{
			name: "bad numbers are ignored",
			env:  map[string]string{"GFI_MAX_DEPTH": "deep", "GFI_CACHE_SIZE": "16"},
			check: func(t *testing.T, c *Config) {
				if c.MaxDepth != 0 {
					t.Errorf("MaxDepth = %d, want 0", c.MaxDepth)
				}
				if c.CacheSize != 16 {
					t.Errorf("CacheSize = %d, want 16", c.CacheSize)
				}
			},
		},
		{
			name: "json logs",
			env:  map[string]string{"GFI_JSON_LOGS": "1"},
			check: func(t *testing.T, c *Config) {
				if !c.JSONLogs {
					t.Error("JSONLogs should be set")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			tt.check(t, cfg)
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"10", 10, true},
		{"0", 0, true},
		{"-3", -3, true},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseInt(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("parseInt(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestConfigSave(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "nested", "dirs", "config.yaml")

	cfg := DefaultConfig()
	cfg.SearchPath = []string{"/opt/lib"}
	cfg.MaxDepth = 2
	cfg.DotAttributes = []string{"rankdir=LR;"}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip mismatch: got %+v, want %+v", loaded, cfg)
	}
}
