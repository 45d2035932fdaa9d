package engine

import (
	"github.com/leapstack-labs/leapbundle/internal/modulegraph"
	"github.com/leapstack-labs/leapbundle/internal/taskloop"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// processDependenciesTask stores a built module and fans its dependencies out
// into one factorize task per distinct request.
type processDependenciesTask struct {
	module       *core.NormalModule
	dependencies []core.DiscoveredDependency
	cacheHit     bool
}

func (t *processDependenciesTask) Type() taskloop.TaskType {
	return taskloop.TaskTypeSync
}

func (t *processDependenciesTask) SyncRun(c *MakeTaskContext) ([]taskloop.Task[MakeTaskContext], error) {
	module := t.module

	if !module.External {
		if t.cacheHit {
			c.cacheHits++
		} else {
			c.cacheMisses++
		}
		c.Metrics.CacheLookup(t.cacheHit)
	}

	origin := module.ID
	var requests []string
	byRequest := make(map[string][]core.DependencyID)

	for _, dep := range t.dependencies {
		id := c.ModuleGraph.AddDependency(modulegraph.Dependency{
			Request: dep.Request,
			Kind:    dep.Kind,
			Origin:  &origin,
		})
		module.Dependencies = append(module.Dependencies, id)

		if _, seen := byRequest[dep.Request]; !seen {
			requests = append(requests, dep.Request)
		}
		byRequest[dep.Request] = append(byRequest[dep.Request], id)
	}

	c.ModuleGraph.AddModule(module)

	tasks := make([]taskloop.Task[MakeTaskContext], 0, len(requests))
	for _, request := range requests {
		tasks = append(tasks, &factorizeTask{
			originalModuleIdentifier: &origin,
			context:                  module.Context(),
			request:                  request,
			dependencies:             byRequest[request],
			resolverFactory:          c.ResolverFactory,
			pluginDriver:             c.PluginDriver,
			profile:                  c.CompilerOptions.Profile,
		})
	}
	return tasks, nil
}
