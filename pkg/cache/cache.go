// Package cache persists the per-unit results of a run so a later run can
// present them without parsing the corpus again.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-find-imports/pkg/types"
)

// Extension marks files holding an import cache.
const Extension = ".importcache"

const (
	magic   = "gfi-importcache"
	version = 1
)

// ErrBadCache is returned for files that are not an import cache of this
// version.
var ErrBadCache = errors.New("not a valid import cache")

type header struct {
	Magic     string    `msgpack:"magic"`
	Version   int       `msgpack:"version"`
	CreatedAt time.Time `msgpack:"created_at"`
	Units     int       `msgpack:"units"`
}

// IsCacheFile reports whether a path names an import cache.
func IsCacheFile(path string) bool {
	return strings.HasSuffix(path, Extension)
}

// Save writes units to w using msgpack.
func Save(w io.Writer, units []types.UnitResult) error {
	enc := msgpack.NewEncoder(w)
	h := header{Magic: magic, Version: version, CreatedAt: time.Now().UTC(), Units: len(units)}
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("failed to encode cache header: %w", err)
	}
	if err := enc.Encode(units); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	return nil
}

// Load reads units written by Save.
func Load(r io.Reader) ([]types.UnitResult, error) {
	dec := msgpack.NewDecoder(r)

	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCache, err)
	}
	if h.Magic != magic {
		return nil, ErrBadCache
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrBadCache, h.Version, version)
	}

	var units []types.UnitResult
	if err := dec.Decode(&units); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCache, err)
	}
	if len(units) != h.Units {
		return nil, fmt.Errorf("%w: %d units, header says %d", ErrBadCache, len(units), h.Units)
	}
	return units, nil
}

// SaveFile writes units to path, replacing any existing file.
func SaveFile(path string, units []types.UnitResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := Save(f, units); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads the units stored at path.
func LoadFile(path string) ([]types.UnitResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	units, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return units, nil
}

// LoadFiles reads several cache files and concatenates their units.
func LoadFiles(paths []string) ([]types.UnitResult, error) {
	var out []types.UnitResult
	for _, path := range paths {
		units, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, units...)
	}
	return out, nil
}
