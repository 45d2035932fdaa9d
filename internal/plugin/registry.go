package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapbundle/internal/config"
)

// Factory creates a plugin from compiler options.
type Factory func(opts *config.CompilerOptions, logger *slog.Logger) (Plugin, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a plugin factory to the registry.
// Called by plugin implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a plugin factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// ListPlugins returns all registered plugin names (sorted).
func ListPlugins() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDriverFromOptions builds a driver with the plugins named in opts.Plugins.
// The alias plugin is enabled implicitly when resolve.alias is set.
func NewDriverFromOptions(opts *config.CompilerOptions, logger *slog.Logger) (*Driver, error) {
	names := append([]string(nil), opts.Plugins...)
	if len(opts.Resolve.Alias) > 0 && !contains(names, AliasPluginName) {
		names = append([]string{AliasPluginName}, names...)
	}

	plugins := make([]Plugin, 0, len(names))
	for _, name := range names {
		factory, ok := Get(name)
		if !ok {
			return nil, &UnknownPluginError{Name: name, Available: ListPlugins()}
		}
		p, err := factory(opts, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create plugin %s: %w", name, err)
		}
		plugins = append(plugins, p)
	}
	return NewDriver(logger, plugins...), nil
}

// UnknownPluginError is returned when an unknown plugin is requested.
type UnknownPluginError struct {
	Name      string
	Available []string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("unknown plugin %q\nAvailable plugins: %v\nHint: Check plugins in leapbundle.yaml", e.Name, e.Available)
}

func contains(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}
