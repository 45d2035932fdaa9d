package engine

import (
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapbundle/internal/cache"
	"github.com/leapstack-labs/leapbundle/internal/config"
	"github.com/leapstack-labs/leapbundle/internal/metrics"
	"github.com/leapstack-labs/leapbundle/internal/modulegraph"
	"github.com/leapstack-labs/leapbundle/internal/plugin"
	"github.com/leapstack-labs/leapbundle/internal/resolver"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// MakeTaskContext is the state threaded through every synchronous task of a
// generation. Only synchronous tasks receive it; asynchronous tasks carry
// the read-only collaborator handles they need instead.
type MakeTaskContext struct {
	// ModuleGraph is the partial graph of the running generation
	ModuleGraph *modulegraph.ModuleGraph
	// EntryModuleIdentifiers only grows within a generation
	EntryModuleIdentifiers map[core.ModuleIdentifier]struct{}

	CompilerOptions *config.CompilerOptions
	ResolverFactory *resolver.Factory
	PluginDriver    *plugin.Driver
	Cache           cache.Cache
	Logger          *slog.Logger
	Metrics         *metrics.Metrics

	cacheHits   int
	cacheMisses int
}

// NewMakeTaskContext creates a context over graph. Nil collaborators are
// replaced with no-op implementations.
func NewMakeTaskContext(graph *modulegraph.ModuleGraph, opts *config.CompilerOptions) *MakeTaskContext {
	if graph == nil {
		graph = modulegraph.New()
	}
	if opts == nil {
		opts = &config.CompilerOptions{}
		opts.ApplyDefaults()
	}
	return &MakeTaskContext{
		ModuleGraph:            graph,
		EntryModuleIdentifiers: make(map[core.ModuleIdentifier]struct{}),
		CompilerOptions:        opts,
		ResolverFactory:        resolver.NewFactory(opts),
		PluginDriver:           plugin.NewDriver(nil),
		Cache:                  cache.Nop{},
		Logger:                 slog.New(slog.DiscardHandler),
	}
}

// EntryModules returns the entry set, sorted.
func (c *MakeTaskContext) EntryModules() []core.ModuleIdentifier {
	return sortedEntries(c.EntryModuleIdentifiers)
}

func sortedEntries(set map[core.ModuleIdentifier]struct{}) []core.ModuleIdentifier {
	ids := make([]core.ModuleIdentifier, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
