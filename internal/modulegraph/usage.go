package modulegraph

import "github.com/leapstack-labs/leapbundle/pkg/core"

// UsageState describes how much of a module's exports a consumer may touch.
type UsageState int

// Usage states, ordered from least to most conservative.
const (
	UsageNone UsageState = iota
	// UsageStatic means every consumer is a static import whose bindings are analyzable.
	UsageStatic
	// UsageDynamic means some consumer (require, import(), require.resolve) may use any export.
	UsageDynamic
)

func (s UsageState) String() string {
	switch s {
	case UsageStatic:
		return "static"
	case UsageDynamic:
		return "dynamic"
	default:
		return "none"
	}
}

// ExportsInfo is the per-module export usage recorded in tree-shaking mode.
type ExportsInfo struct {
	// Usage is the most conservative state across all incoming edges
	Usage UsageState
	// ByDependency records the state contributed by each incoming dependency
	ByDependency map[core.DependencyID]UsageState
}

func (e *ExportsInfo) clone() *ExportsInfo {
	c := &ExportsInfo{Usage: e.Usage, ByDependency: make(map[core.DependencyID]UsageState, len(e.ByDependency))}
	for id, s := range e.ByDependency {
		c.ByDependency[id] = s
	}
	return c
}

// EdgeBookkeeping is the per-edge strategy run after a connection is recorded.
type EdgeBookkeeping interface {
	Record(target *ModuleGraphModule, dep *Dependency)
}

// BookkeepingFor selects the strategy for the tree-shaking mode flag.
func BookkeepingFor(treeShaking bool) EdgeBookkeeping {
	if treeShaking {
		return usageBookkeeping{}
	}
	return legacyBookkeeping{}
}

// legacyBookkeeping records nothing beyond the base edge.
type legacyBookkeeping struct{}

func (legacyBookkeeping) Record(*ModuleGraphModule, *Dependency) {}

// usageBookkeeping tracks which edges consume a module and how.
type usageBookkeeping struct{}

func (usageBookkeeping) Record(target *ModuleGraphModule, dep *Dependency) {
	if target.ExportsInfo == nil {
		target.ExportsInfo = &ExportsInfo{ByDependency: make(map[core.DependencyID]UsageState)}
	}

	// entries fall through to dynamic: the runtime may read any export
	state := UsageDynamic
	if dep.Kind.IsStatic() {
		state = UsageStatic
	}

	target.ExportsInfo.ByDependency[dep.ID] = state
	target.ExportsInfo.recompute()
}

// forget drops a dependency that was re-resolved to another module.
func (e *ExportsInfo) forget(id core.DependencyID) {
	delete(e.ByDependency, id)
	e.recompute()
}

func (e *ExportsInfo) recompute() {
	agg := UsageNone
	for _, s := range e.ByDependency {
		if s > agg {
			agg = s
		}
	}
	e.Usage = agg
}
