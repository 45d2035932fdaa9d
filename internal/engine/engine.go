// Package engine runs the make phase: starting from the configured entries it
// resolves, adds and builds modules until the module graph is complete.
//
// Work is expressed as tasks on a taskloop. Resolution and building run
// asynchronously; every graph mutation happens in synchronous tasks on the
// loop, so the graph needs no locking.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapbundle/internal/cache"
	"github.com/leapstack-labs/leapbundle/internal/config"
	"github.com/leapstack-labs/leapbundle/internal/metrics"
	"github.com/leapstack-labs/leapbundle/internal/modulegraph"
	"github.com/leapstack-labs/leapbundle/internal/plugin"
	"github.com/leapstack-labs/leapbundle/internal/resolver"
	"github.com/leapstack-labs/leapbundle/internal/taskloop"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// Engine owns the authoritative module graph across generations.
type Engine struct {
	// Make runs are serialized
	mu sync.Mutex

	opts     *config.CompilerOptions
	logger   *slog.Logger
	metrics  *metrics.Metrics
	resolver *resolver.Factory
	plugins  *plugin.Driver
	cache    cache.Cache
	// ownsCache is set when the engine opened the cache itself
	ownsCache bool

	graph     *modulegraph.ModuleGraph
	entries   map[core.ModuleIdentifier]struct{}
	// entryDeps maps an entry name to its dependency in graph
	entryDeps map[string]core.DependencyID
}

// Config holds engine configuration.
type Config struct {
	// Options are the compiler options (required)
	Options *config.CompilerOptions
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Cache overrides the cache built from Options.Cache (optional)
	Cache cache.Cache
	// Plugins run after the plugins named in Options.Plugins (optional)
	Plugins []plugin.Plugin
	// Metrics receives make phase instrumentation (optional)
	Metrics *metrics.Metrics
}

// MakeResult summarizes one successful generation.
type MakeResult struct {
	GenerationID string
	Modules      int
	Dependencies int
	Connections  int
	Entries      []core.ModuleIdentifier
	CacheHits    int
	CacheMisses  int
	Duration     time.Duration
}

// New creates an engine. The persistent cache is opened when enabled in the options.
func New(cfg Config) (*Engine, error) {
	if cfg.Options == nil {
		return nil, fmt.Errorf("compiler options are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := cfg.Options
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compiler options: %w", err)
	}

	driver, err := plugin.NewDriverFromOptions(opts, logger)
	if err != nil {
		return nil, err
	}
	if len(cfg.Plugins) > 0 {
		driver = driver.With(cfg.Plugins...)
	}

	e := &Engine{
		opts:      opts,
		logger:    logger,
		metrics:   cfg.Metrics,
		resolver:  resolver.NewFactory(opts),
		plugins:   driver,
		cache:     cfg.Cache,
		graph:     modulegraph.New(),
		entries:   make(map[core.ModuleIdentifier]struct{}),
		entryDeps: make(map[string]core.DependencyID),
	}

	if e.cache == nil {
		if opts.Cache.Enabled {
			store, err := cache.Open(context.Background(), opts.Cache.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to open build cache: %w", err)
			}
			e.cache = store
			e.ownsCache = true
		} else {
			e.cache = cache.Nop{}
		}
	}

	logger.Debug("engine initialized",
		"context", opts.Context,
		"mode", opts.Mode,
		"tree_shaking", opts.IsNewTreeShaking(),
		"workers", opts.Workers,
		"plugins", driver.Names(),
		"cache_enabled", opts.Cache.Enabled,
	)

	return e, nil
}

// Make runs one generation over the configured entries. The generation works
// on a copy of the module graph that is merged back only when it succeeds.
func (e *Engine) Make(ctx context.Context) (*MakeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	generationID := uuid.New().String()
	logger := e.logger.With("generation", generationID)

	if err := e.cache.BeginGeneration(ctx, generationID); err != nil {
		return nil, fmt.Errorf("failed to start generation: %w", err)
	}

	mctx := e.newTaskContext(logger)
	tasks, entryDeps := e.entryTasks(mctx)

	logger.Info("make started", "entries", len(tasks))

	err := taskloop.Run(ctx, mctx, tasks, taskloop.Options{
		Workers:  e.opts.Workers,
		Logger:   logger,
		Observer: e.observeTask(logger),
	})
	if err != nil {
		e.metrics.Generation(string(cache.GenerationStatusFailed), e.graph.NodeCount())
		if cerr := e.cache.CompleteGeneration(context.WithoutCancel(ctx), generationID, cache.GenerationStatusFailed, cache.GenerationStats{}, err.Error()); cerr != nil {
			logger.Warn("failed to record generation", "error", cerr)
		}
		logger.Info("make failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("make failed: %w", err)
	}

	e.graph.Merge(mctx.ModuleGraph)
	for id := range mctx.EntryModuleIdentifiers {
		e.entries[id] = struct{}{}
	}
	e.entryDeps = entryDeps

	result := &MakeResult{
		GenerationID: generationID,
		Modules:      e.graph.NodeCount(),
		Dependencies: e.graph.DependencyCount(),
		Connections:  e.graph.ConnectionCount(),
		Entries:      sortedEntries(e.entries),
		CacheHits:    mctx.cacheHits,
		CacheMisses:  mctx.cacheMisses,
		Duration:     time.Since(start),
	}

	stats := cache.GenerationStats{
		Modules:      result.Modules,
		Dependencies: result.Dependencies,
		Connections:  result.Connections,
	}
	if err := e.cache.CompleteGeneration(ctx, generationID, cache.GenerationStatusCompleted, stats, ""); err != nil {
		logger.Warn("failed to record generation", "error", err)
	}
	e.metrics.Generation(string(cache.GenerationStatusCompleted), result.Modules)

	logger.Info("make completed",
		"modules", result.Modules,
		"connections", result.Connections,
		"cache_hits", result.CacheHits,
		"duration", result.Duration,
	)

	return result, nil
}

func (e *Engine) newTaskContext(logger *slog.Logger) *MakeTaskContext {
	mctx := NewMakeTaskContext(e.graph.Clone(), e.opts)
	mctx.ResolverFactory = e.resolver
	mctx.PluginDriver = e.plugins
	mctx.Cache = e.cache
	mctx.Logger = logger
	mctx.Metrics = e.metrics
	return mctx
}

// entryTasks returns one factorize task per configured entry. An entry whose
// request is unchanged since the last generation reuses its dependency, so an
// unchanged project keeps the same dependency and connection counts.
func (e *Engine) entryTasks(mctx *MakeTaskContext) ([]taskloop.Task[MakeTaskContext], map[string]core.DependencyID) {
	entries := e.opts.Entries()
	tasks := make([]taskloop.Task[MakeTaskContext], 0, len(entries))
	deps := make(map[string]core.DependencyID, len(entries))
	for _, entry := range entries {
		id, ok := e.entryDeps[entry.Name]
		if ok {
			dep, found := mctx.ModuleGraph.Dependency(id)
			ok = found && dep.Request == entry.Request
		}
		if !ok {
			id = mctx.ModuleGraph.AddDependency(modulegraph.Dependency{
				Request: entry.Request,
				Kind:    core.DependencyKindEntry,
			})
		}
		deps[entry.Name] = id

		tasks = append(tasks, &factorizeTask{
			context:         e.opts.Context,
			request:         entry.Request,
			dependencies:    []core.DependencyID{id},
			isEntry:         true,
			resolverFactory: e.resolver,
			pluginDriver:    e.plugins,
			profile:         e.opts.Profile,
		})
	}
	return tasks, deps
}

func (e *Engine) observeTask(logger *slog.Logger) taskloop.Observer {
	return func(name string, typ taskloop.TaskType, elapsed time.Duration, err error) {
		e.metrics.ObserveTask(name, typ.String(), elapsed, err)
		if err != nil {
			logger.Debug("task failed", "task", name, "type", typ.String(), "error", err)
		}
	}
}

// Graph returns the authoritative module graph. It must not be read while Make runs.
func (e *Engine) Graph() *modulegraph.ModuleGraph {
	return e.graph
}

// EntryModules returns the identifiers of all entry modules, sorted.
func (e *Engine) EntryModules() []core.ModuleIdentifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedEntries(e.entries)
}

// Metrics returns the metrics the engine reports to (nil when disabled).
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Close releases the cache if the engine opened it.
func (e *Engine) Close() error {
	if e.ownsCache && e.cache != nil {
		return e.cache.Close()
	}
	return nil
}
