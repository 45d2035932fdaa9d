package plugin

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapbundle/internal/config"
)

// NodeBuiltinsPluginName is the registry name of the node builtins plugin.
const NodeBuiltinsPluginName = "node-builtins"

func init() {
	Register(NodeBuiltinsPluginName, func(*config.CompilerOptions, *slog.Logger) (Plugin, error) {
		return NodeBuiltins{}, nil
	})
}

var nodeBuiltins = map[string]struct{}{
	"assert": {}, "buffer": {}, "child_process": {}, "crypto": {}, "events": {},
	"fs": {}, "http": {}, "https": {}, "module": {}, "net": {}, "os": {},
	"path": {}, "process": {}, "stream": {}, "url": {}, "util": {}, "worker_threads": {}, "zlib": {},
}

// NodeBuiltins marks node core modules ("fs", "node:path", "fs/promises") as external.
type NodeBuiltins struct{}

// Name implements Plugin.
func (NodeBuiltins) Name() string { return NodeBuiltinsPluginName }

// BeforeResolve implements BeforeResolveHook.
func (NodeBuiltins) BeforeResolve(_ context.Context, data *ResolveData) error {
	if strings.HasPrefix(data.Request, "node:") {
		data.External = true
		return nil
	}
	name, _, _ := strings.Cut(data.Request, "/")
	if _, ok := nodeBuiltins[name]; ok {
		data.External = true
	}
	return nil
}
