// Package loader reads configuration sources into nested maps.
//
// A Source yields a map keyed by table name, as TOML would decode it.
// Maps from several sources are combined with DeepMerge, later sources
// winning, and decoded once into the final struct by the caller.
package loader

import "os"

// Source is one layer of configuration.
type Source interface {
	// Load returns the layer's values, or nil when the source is absent.
	Load() (map[string]any, error)
}

// FileSystem reads configuration files. Tests substitute an in-memory one.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns the operating system file system.
func DefaultFS() FileSystem {
	return osFS{}
}

var (
	_ Source = (*TOMLFile)(nil)
	_ Source = (*EnvLoader)(nil)
)
