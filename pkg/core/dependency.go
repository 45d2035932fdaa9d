package core

import "strconv"

// DependencyID identifies one import/require edge. Ids are allocated by the
// module graph that registers the dependency, never by a process-wide counter.
type DependencyID uint32

// String implements fmt.Stringer.
func (id DependencyID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// DependencyKind describes the syntax that introduced a dependency.
type DependencyKind string

// Dependency kind constants.
const (
	DependencyKindEntry          DependencyKind = "entry"
	DependencyKindESMImport      DependencyKind = "esm-import"
	DependencyKindRequire        DependencyKind = "require"
	DependencyKindDynamicImport  DependencyKind = "dynamic-import"
	DependencyKindRequireResolve DependencyKind = "require-resolve"
	DependencyKindCSSImport      DependencyKind = "css-import"
	DependencyKindURL            DependencyKind = "url"
)

// IsStatic reports whether the dependency's export usage is statically analyzable.
func (k DependencyKind) IsStatic() bool {
	switch k {
	case DependencyKindESMImport, DependencyKindCSSImport, DependencyKindURL:
		return true
	default:
		return false
	}
}

// DiscoveredDependency is an import found by the build step, before it is
// registered in the graph and given an id.
type DiscoveredDependency struct {
	Request string         `json:"request" yaml:"request"`
	Kind    DependencyKind `json:"kind" yaml:"kind"`
}
