// Package cache persists build artifacts between runs so that unchanged
// modules skip the parser, and records every make generation.
package cache

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// Artifact is the stored output of building one module.
type Artifact struct {
	Identifier   core.ModuleIdentifier
	ContentHash  string
	Code         string
	Dependencies []core.DiscoveredDependency
	BuiltAt      time.Time
}

// GenerationStatus represents the state of a make generation.
type GenerationStatus string

// Generation statuses.
const (
	GenerationStatusRunning   GenerationStatus = "running"
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// GenerationStats summarizes the graph a generation produced.
type GenerationStats struct {
	Modules      int
	Dependencies int
	Connections  int
}

// Generation is one recorded make run.
type Generation struct {
	ID          string
	Status      GenerationStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Stats       GenerationStats
	Error       string
}

// Stats are lookup counters since the cache was opened.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache stores build artifacts keyed by module identifier and content hash.
// Implementations are safe for concurrent use by build tasks.
type Cache interface {
	// Get returns the artifact for id if it was built from the same content.
	Get(ctx context.Context, id core.ModuleIdentifier, contentHash string) (*Artifact, bool, error)
	// Put stores an artifact, replacing any older one for the same module.
	Put(ctx context.Context, artifact *Artifact) error
	// BeginGeneration records the start of a make generation.
	BeginGeneration(ctx context.Context, id string) error
	// CompleteGeneration records the outcome of a make generation.
	CompleteGeneration(ctx context.Context, id string, status GenerationStatus, stats GenerationStats, errMsg string) error
	// Stats returns hit and miss counters.
	Stats() Stats
	// Close releases the underlying storage.
	Close() error
}

// Nop is a Cache that stores nothing. Every lookup is a miss.
type Nop struct{}

var _ Cache = Nop{}

// Get implements Cache.
func (Nop) Get(context.Context, core.ModuleIdentifier, string) (*Artifact, bool, error) {
	return nil, false, nil
}

// Put implements Cache.
func (Nop) Put(context.Context, *Artifact) error { return nil }

// BeginGeneration implements Cache.
func (Nop) BeginGeneration(context.Context, string) error { return nil }

// CompleteGeneration implements Cache.
func (Nop) CompleteGeneration(context.Context, string, GenerationStatus, GenerationStats, string) error {
	return nil
}

// Stats implements Cache.
func (Nop) Stats() Stats { return Stats{} }

// Close implements Cache.
func (Nop) Close() error { return nil }
