package modulegraph

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// ErrUnresolvedTarget is matched by errors returned when an edge is resolved
// to a module that has no node in the graph.
var ErrUnresolvedTarget = errors.New("unresolved edge target")

// UnresolvedTargetError reports an attempt to link a dependency to a missing node.
type UnresolvedTargetError struct {
	Dependency core.DependencyID
	Target     core.ModuleIdentifier
}

func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("dependency %s: target module %q has no node in the module graph", e.Dependency, e.Target)
}

// Unwrap lets errors.Is match ErrUnresolvedTarget.
func (e *UnresolvedTargetError) Unwrap() error {
	return ErrUnresolvedTarget
}

// DuplicateNodeError reports a second insertion for an identifier that already has a node.
type DuplicateNodeError struct {
	Identifier core.ModuleIdentifier
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("module graph already has a node for %q", e.Identifier)
}

// UnknownDependencyError reports an edge for a dependency id the graph never registered.
type UnknownDependencyError struct {
	Dependency core.DependencyID
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("dependency %s is not registered in the module graph", e.Dependency)
}
