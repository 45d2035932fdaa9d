// Package plugin provides the hook points the make phase exposes to plugins
// and the driver that runs them.
package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// Plugin is the base interface every plugin implements. Plugins opt in to
// hooks by also implementing one or more of the hook interfaces below.
type Plugin interface {
	Name() string
}

// ResolveData is the mutable input of a resolution.
type ResolveData struct {
	// Request is the raw request; hooks may rewrite it
	Request string
	// Context is the directory the request resolves against
	Context string
	// Issuer is the module that issued the request (nil for entries)
	Issuer *core.ModuleIdentifier
	// External short-circuits resolution and produces an external module
	External bool
}

// BeforeResolveHook runs before a request is resolved.
type BeforeResolveHook interface {
	Plugin
	BeforeResolve(ctx context.Context, data *ResolveData) error
}

// SucceedModuleHook runs after a module has been built.
type SucceedModuleHook interface {
	Plugin
	SucceedModule(ctx context.Context, module *core.NormalModule) error
}

// Driver runs plugin hooks in registration order. The first error aborts
// the remaining hooks. A Driver is read-only after construction and is
// shared by every task of a generation.
type Driver struct {
	plugins []Plugin
	logger  *slog.Logger
}

// NewDriver creates a driver for plugins.
// The logger is optional (nil uses discard logger).
func NewDriver(logger *slog.Logger, plugins ...Plugin) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{plugins: plugins, logger: logger}
}

// With returns a driver that runs d's plugins followed by plugins.
func (d *Driver) With(plugins ...Plugin) *Driver {
	all := make([]Plugin, 0, len(d.plugins)+len(plugins))
	all = append(all, d.plugins...)
	all = append(all, plugins...)
	return &Driver{plugins: all, logger: d.logger}
}

// Names returns the names of the registered plugins in order.
func (d *Driver) Names() []string {
	names := make([]string, 0, len(d.plugins))
	for _, p := range d.plugins {
		names = append(names, p.Name())
	}
	return names
}

// BeforeResolve runs every BeforeResolveHook.
func (d *Driver) BeforeResolve(ctx context.Context, data *ResolveData) error {
	for _, p := range d.plugins {
		hook, ok := p.(BeforeResolveHook)
		if !ok {
			continue
		}
		before := data.Request
		if err := hook.BeforeResolve(ctx, data); err != nil {
			return fmt.Errorf("plugin %s: before resolve %q: %w", p.Name(), before, err)
		}
		if data.Request != before {
			d.logger.Debug("request rewritten", "plugin", p.Name(), "from", before, "to", data.Request)
		}
	}
	return nil
}

// SucceedModule runs every SucceedModuleHook.
func (d *Driver) SucceedModule(ctx context.Context, module *core.NormalModule) error {
	for _, p := range d.plugins {
		hook, ok := p.(SucceedModuleHook)
		if !ok {
			continue
		}
		if err := hook.SucceedModule(ctx, module); err != nil {
			return fmt.Errorf("plugin %s: succeed module %s: %w", p.Name(), module.ID, err)
		}
	}
	return nil
}
