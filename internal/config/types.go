// Package config provides the compiler options shared by the engine, the
// resolver and the CLI. It is decoupled from CLI concerns: the CLI layers
// flags and environment variables on top in internal/cli/config.
package config

import (
	"fmt"
	"sort"
	"time"
)

// Compilation modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// CompilerOptions holds everything the make phase reads.
type CompilerOptions struct {
	// Context is the directory entry requests resolve against
	Context string `koanf:"context"`
	// Entry maps entry names to requests
	Entry map[string]string `koanf:"entry"`
	// Mode is development or production
	Mode         string              `koanf:"mode"`
	Optimization OptimizationOptions `koanf:"optimization"`
	Resolve      ResolveOptions      `koanf:"resolve"`
	// Externals are bare requests left for the runtime to provide
	Externals []string `koanf:"externals"`
	// Plugins are registered plugin names, run in order
	Plugins []string     `koanf:"plugins"`
	Cache   CacheOptions `koanf:"cache"`
	// Workers bounds concurrent resolve/build tasks
	Workers int `koanf:"workers"`
	// Profile enables per-module timing
	Profile bool `koanf:"profile"`
	// Timeout aborts a generation that runs longer (0 disables)
	Timeout time.Duration `koanf:"timeout"`
}

// OptimizationOptions holds optimization switches.
type OptimizationOptions struct {
	// TreeShaking selects usage bookkeeping on every resolved edge
	TreeShaking bool `koanf:"tree_shaking"`
}

// ResolveOptions configures the resolver.
type ResolveOptions struct {
	Extensions []string          `koanf:"extensions"`
	MainFiles  []string          `koanf:"main_files"`
	Alias      map[string]string `koanf:"alias"`
}

// CacheOptions configures the persistent build cache.
type CacheOptions struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Entry is one named entry request.
type Entry struct {
	Name    string
	Request string
}

// IsNewTreeShaking reports whether edges get usage bookkeeping.
func (o *CompilerOptions) IsNewTreeShaking() bool {
	return o.Optimization.TreeShaking
}

// Entries returns the configured entries sorted by name.
func (o *CompilerOptions) Entries() []Entry {
	entries := make([]Entry, 0, len(o.Entry))
	for name, request := range o.Entry {
		entries = append(entries, Entry{Name: name, Request: request})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Validate checks if the options are usable for a make run.
func (o *CompilerOptions) Validate() error {
	if len(o.Entry) == 0 {
		return fmt.Errorf("at least one entry is required")
	}
	for name, request := range o.Entry {
		if request == "" {
			return fmt.Errorf("entry %q has an empty request", name)
		}
	}
	switch o.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("unknown mode %q (expected %s or %s)", o.Mode, ModeDevelopment, ModeProduction)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", o.Workers)
	}
	if o.Cache.Enabled && o.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	return nil
}
