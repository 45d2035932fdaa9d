package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leapstack-labs/leapbundle/internal/cache"
	"github.com/leapstack-labs/leapbundle/internal/config"
	"github.com/leapstack-labs/leapbundle/internal/parser"
	"github.com/leapstack-labs/leapbundle/internal/plugin"
	"github.com/leapstack-labs/leapbundle/internal/resolver"
	"github.com/leapstack-labs/leapbundle/internal/taskloop"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// BuildTask builds a newly added module: it reads the resource, consults the
// artifact cache and otherwise parses it to discover its dependencies.
type BuildTask struct {
	Module         *core.NormalModule
	CurrentProfile *core.ModuleProfile

	ResolverFactory *resolver.Factory
	CompilerOptions *config.CompilerOptions
	PluginDriver    *plugin.Driver
	Cache           cache.Cache
	Logger          *slog.Logger
}

// Type implements taskloop.Task.
func (t *BuildTask) Type() taskloop.TaskType {
	return taskloop.TaskTypeAsync
}

// AsyncRun implements taskloop.AsyncTask.
func (t *BuildTask) AsyncRun(ctx context.Context) ([]taskloop.Task[MakeTaskContext], error) {
	if t.CurrentProfile != nil {
		t.CurrentProfile.MarkBuildingStart()
	}

	module := t.Module
	next := &processDependenciesTask{module: module}

	if module.External {
		module.Built = true
		if t.CurrentProfile != nil {
			t.CurrentProfile.MarkBuildingEnd()
		}
		return []taskloop.Task[MakeTaskContext]{next}, nil
	}

	content, err := os.ReadFile(module.Resource)
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", module.ID, err)
	}
	module.ContentHash = computeHash(content)
	key := artifactKey(module.ContentHash, t.CompilerOptions)

	artifact, hit, err := t.Cache.Get(ctx, module.ID, key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup for %s: %w", module.ID, err)
	}

	if !hit {
		result, err := parser.Parse(module.Resource, content, parserOptions(t.CompilerOptions))
		if err != nil {
			return nil, err
		}
		artifact = &cache.Artifact{
			Identifier:   module.ID,
			ContentHash:  key,
			Code:         result.Code,
			Dependencies: result.Dependencies,
			BuiltAt:      time.Now().UTC(),
		}
		if err := t.Cache.Put(ctx, artifact); err != nil {
			return nil, fmt.Errorf("cache store for %s: %w", module.ID, err)
		}
	}

	module.Code = artifact.Code
	module.Built = true
	next.dependencies = artifact.Dependencies
	next.cacheHit = hit

	if err := t.PluginDriver.SucceedModule(ctx, module); err != nil {
		return nil, err
	}

	if t.CurrentProfile != nil {
		t.CurrentProfile.MarkBuildingEnd()
	}

	t.Logger.Debug("module built",
		"module", module.ID,
		"dependencies", len(next.dependencies),
		"cache_hit", hit,
	)

	return []taskloop.Task[MakeTaskContext]{next}, nil
}

func parserOptions(opts *config.CompilerOptions) parser.Options {
	return parser.Options{
		Minify: opts.Mode == config.ModeProduction,
		Define: map[string]string{
			"process.env.NODE_ENV": fmt.Sprintf("%q", opts.Mode),
		},
	}
}

// artifactKey ties a cached artifact to the content and the options that shape parser output.
func artifactKey(contentHash string, opts *config.CompilerOptions) string {
	return contentHash + "-" + opts.Mode
}

func computeHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
