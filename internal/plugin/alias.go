package plugin

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapbundle/internal/config"
)

// AliasPluginName is the registry name of the alias plugin.
const AliasPluginName = "alias"

func init() {
	Register(AliasPluginName, func(opts *config.CompilerOptions, _ *slog.Logger) (Plugin, error) {
		return NewAlias(opts.Context, opts.Resolve.Alias), nil
	})
}

type aliasEntry struct {
	from string
	to   string
}

// Alias rewrites request prefixes: with {"@": "./src"}, "@/util" becomes
// "<root>/src/util". Relative targets are anchored at the absolute root.
type Alias struct {
	entries []aliasEntry
}

// NewAlias creates an alias plugin. Longer prefixes take precedence.
func NewAlias(root string, aliases map[string]string) *Alias {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	entries := make([]aliasEntry, 0, len(aliases))
	for from, to := range aliases {
		if strings.HasPrefix(to, "./") || strings.HasPrefix(to, "../") || to == "." {
			to = filepath.ToSlash(filepath.Join(root, filepath.FromSlash(to)))
		}
		entries = append(entries, aliasEntry{from: from, to: to})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].from) != len(entries[j].from) {
			return len(entries[i].from) > len(entries[j].from)
		}
		return entries[i].from < entries[j].from
	})
	return &Alias{entries: entries}
}

// Name implements Plugin.
func (a *Alias) Name() string { return AliasPluginName }

// BeforeResolve implements BeforeResolveHook.
func (a *Alias) BeforeResolve(_ context.Context, data *ResolveData) error {
	for _, e := range a.entries {
		if data.Request == e.from {
			data.Request = e.to
			return nil
		}
		if strings.HasPrefix(data.Request, e.from+"/") {
			data.Request = e.to + strings.TrimPrefix(data.Request, e.from)
			return nil
		}
	}
	return nil
}
