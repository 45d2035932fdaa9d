package engine

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapbundle/internal/metrics"
	"github.com/leapstack-labs/leapbundle/internal/modulegraph"
	"github.com/leapstack-labs/leapbundle/internal/taskloop"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// ErrSelfModuleWithoutIssuer is returned when a self module reaches the add
// step without an issuer to redirect its dependencies to.
var ErrSelfModuleWithoutIssuer = errors.New("self module has no issuer")

// AddTask integrates one discovered module into the graph. It is the only
// place where nodes are inserted.
type AddTask struct {
	// OriginalModuleIdentifier is the module that issued the dependencies (nil for entries)
	OriginalModuleIdentifier *core.ModuleIdentifier
	Module                   core.Module
	ModuleGraphModule        *modulegraph.ModuleGraphModule
	// Dependencies are the ids that requested this module
	Dependencies []core.DependencyID
	IsEntry      bool
	// CurrentProfile is nil when profiling is disabled
	CurrentProfile *core.ModuleProfile
}

// Type implements taskloop.Task.
func (t *AddTask) Type() taskloop.TaskType {
	return taskloop.TaskTypeSync
}

// SyncRun implements taskloop.SyncTask.
func (t *AddTask) SyncRun(c *MakeTaskContext) ([]taskloop.Task[MakeTaskContext], error) {
	if t.CurrentProfile != nil {
		t.CurrentProfile.MarkIntegrationStart()
	}

	moduleIdentifier := t.Module.Identifier()
	isNewTreeShaking := c.CompilerOptions.IsNewTreeShaking()
	graph := c.ModuleGraph

	if _, ok := core.AsSelfModule(t.Module); ok {
		issuer, ok := t.ModuleGraphModule.Issuer.Identifier()
		if !ok {
			return nil, fmt.Errorf("%s: %w", moduleIdentifier, ErrSelfModuleWithoutIssuer)
		}
		if err := t.setResolvedModule(c, issuer, isNewTreeShaking); err != nil {
			return nil, err
		}
		c.Metrics.ModuleOutcome(metrics.OutcomeSelf)
		return nil, nil
	}

	if _, ok := graph.GetNode(moduleIdentifier); ok {
		if err := t.setResolvedModule(c, moduleIdentifier, isNewTreeShaking); err != nil {
			return nil, err
		}
		// entry membership is the union over every request for the module
		if t.IsEntry {
			c.EntryModuleIdentifiers[moduleIdentifier] = struct{}{}
		}
		c.Metrics.ModuleOutcome(metrics.OutcomeDuplicate)
		return nil, nil
	}

	module, ok := t.Module.(*core.NormalModule)
	if !ok {
		return nil, fmt.Errorf("unexpected module type %T for %s", t.Module, moduleIdentifier)
	}

	if err := graph.AddNode(t.ModuleGraphModule); err != nil {
		return nil, err
	}

	if err := t.setResolvedModule(c, moduleIdentifier, isNewTreeShaking); err != nil {
		return nil, err
	}

	if t.IsEntry {
		c.EntryModuleIdentifiers[moduleIdentifier] = struct{}{}
	}

	if t.CurrentProfile != nil {
		t.CurrentProfile.MarkIntegrationEnd()
	}

	c.Logger.Debug("module added", "module", moduleIdentifier, "entry", t.IsEntry)
	c.Metrics.ModuleOutcome(metrics.OutcomeAdded)

	build := &BuildTask{
		Module:          module,
		CurrentProfile:  t.CurrentProfile,
		ResolverFactory: c.ResolverFactory,
		CompilerOptions: c.CompilerOptions,
		PluginDriver:    c.PluginDriver,
		Cache:           c.Cache,
		Logger:          c.Logger,
	}
	// the module now belongs to the build task
	t.Module, t.CurrentProfile = nil, nil

	return []taskloop.Task[MakeTaskContext]{build}, nil
}

func (t *AddTask) setResolvedModule(c *MakeTaskContext, target core.ModuleIdentifier, isNewTreeShaking bool) error {
	for _, dep := range t.Dependencies {
		if err := c.ModuleGraph.ResolveEdge(t.OriginalModuleIdentifier, dep, target, isNewTreeShaking); err != nil {
			return err
		}
	}
	c.Metrics.EdgesResolved(len(t.Dependencies))
	return nil
}
