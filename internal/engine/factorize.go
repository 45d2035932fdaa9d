package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapbundle/internal/modulegraph"
	"github.com/leapstack-labs/leapbundle/internal/plugin"
	"github.com/leapstack-labs/leapbundle/internal/resolver"
	"github.com/leapstack-labs/leapbundle/internal/taskloop"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// factorizeTask resolves one request and prepares the module and node the
// add step integrates.
type factorizeTask struct {
	originalModuleIdentifier *core.ModuleIdentifier
	context                  string
	request                  string
	dependencies             []core.DependencyID
	isEntry                  bool

	resolverFactory *resolver.Factory
	pluginDriver    *plugin.Driver
	profile         bool
}

func (t *factorizeTask) Type() taskloop.TaskType {
	return taskloop.TaskTypeAsync
}

func (t *factorizeTask) AsyncRun(ctx context.Context) ([]taskloop.Task[MakeTaskContext], error) {
	var profile *core.ModuleProfile
	if t.profile {
		profile = core.NewModuleProfile()
		profile.MarkFactoryStart()
	}

	data := &plugin.ResolveData{
		Request: t.request,
		Context: t.context,
		Issuer:  t.originalModuleIdentifier,
	}
	if err := t.pluginDriver.BeforeResolve(ctx, data); err != nil {
		return nil, err
	}

	module, err := t.createModule(ctx, data)
	if err != nil {
		return nil, err
	}

	issuer := modulegraph.IssuerFrom(t.originalModuleIdentifier)
	mgm := modulegraph.NewModuleGraphModule(module.Identifier(), issuer)

	if profile != nil {
		profile.MarkFactoryEnd()
		mgm.Profile = profile
	}

	return []taskloop.Task[MakeTaskContext]{&AddTask{
		OriginalModuleIdentifier: t.originalModuleIdentifier,
		Module:                   module,
		ModuleGraphModule:        mgm,
		Dependencies:             t.dependencies,
		IsEntry:                  t.isEntry,
		CurrentProfile:           profile,
	}}, nil
}

func (t *factorizeTask) createModule(ctx context.Context, data *plugin.ResolveData) (core.Module, error) {
	if data.External {
		return externalModule(data.Request), nil
	}

	res, err := t.resolverFactory.Resolve(ctx, data.Context, data.Request)
	if err != nil {
		if t.originalModuleIdentifier != nil {
			return nil, fmt.Errorf("%s: %w", *t.originalModuleIdentifier, err)
		}
		return nil, err
	}
	if res.External {
		return externalModule(data.Request), nil
	}

	id := core.ModuleIdentifier(res.Path)
	if t.originalModuleIdentifier != nil && id == *t.originalModuleIdentifier {
		return &core.SelfModule{Issuer: id, Request: t.request}, nil
	}

	return &core.NormalModule{
		ID:       id,
		Request:  t.request,
		Resource: res.Path,
	}, nil
}

func externalModule(request string) *core.NormalModule {
	return &core.NormalModule{
		ID:       core.ExternalIdentifier(request),
		Request:  request,
		External: true,
	}
}
