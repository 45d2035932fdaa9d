// Package parser builds a single module with esbuild: it transforms the
// source (TypeScript, JSX, modern syntax) and reports every import record the
// esbuild scanner finds, without bundling any of them.
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/multierr"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// Options configures a parse.
type Options struct {
	// Minify enables whitespace, identifier and syntax minification
	Minify bool
	// Define replaces global identifiers with constant expressions
	Define map[string]string
}

// Result is the output of building one module.
type Result struct {
	// Code is the transformed source
	Code string
	// Dependencies are the import records in (request, kind) order
	Dependencies []core.DiscoveredDependency
}

// BuildError carries every error message esbuild reported for a module.
type BuildError struct {
	Resource string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build %s: %v", e.Resource, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

var loaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
	".css": api.LoaderCSS,
}

// Parse transforms content and discovers its dependencies. Resources with an
// extension esbuild should not scan (json, text, assets) are passed through
// with no dependencies.
func Parse(resource string, content []byte, opts Options) (*Result, error) {
	loader, ok := loaders[strings.ToLower(filepath.Ext(resource))]
	if !ok {
		return &Result{Code: string(content)}, nil
	}

	collector := &importCollector{}

	buildOpts := api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(content),
			ResolveDir: filepath.Dir(resource),
			Sourcefile: resource,
			Loader:     loader,
		},
		// Bundle is required for OnResolve to see import records; every
		// record is marked external so nothing is actually inlined.
		Bundle:   true,
		Write:    false,
		Format:   api.FormatESModule,
		Platform: api.PlatformNeutral,
		Target:   api.ES2020,
		Plugins:  []api.Plugin{collector.plugin()},
		Define:   opts.Define,
		LogLevel: api.LogLevelSilent,
	}

	if opts.Minify {
		buildOpts.MinifyWhitespace = true
		buildOpts.MinifyIdentifiers = true
		buildOpts.MinifySyntax = true
	}

	result := api.Build(buildOpts)

	if len(result.Errors) > 0 {
		var errs error
		for _, msg := range result.Errors {
			errs = multierr.Append(errs, formatMessage(msg))
		}
		return nil, &BuildError{Resource: resource, Err: errs}
	}

	out := &Result{Dependencies: collector.sorted()}
	if len(result.OutputFiles) > 0 {
		out.Code = string(result.OutputFiles[0].Contents)
	}
	return out, nil
}

func formatMessage(msg api.Message) error {
	if msg.Location == nil {
		return fmt.Errorf("%s", msg.Text)
	}
	return fmt.Errorf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

// importCollector records import records reported by esbuild's resolver hook.
// esbuild may call the hook from several goroutines.
type importCollector struct {
	mu   sync.Mutex
	deps []core.DiscoveredDependency
}

func (c *importCollector) plugin() api.Plugin {
	return api.Plugin{
		Name: "leapbundle-dependency-scan",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind != api.ResolveEntryPoint {
					c.add(args.Path, kindOf(args.Kind))
				}
				return api.OnResolveResult{Path: args.Path, External: true}, nil
			})
		},
	}
}

func (c *importCollector) add(request string, kind core.DependencyKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps = append(c.deps, core.DiscoveredDependency{Request: request, Kind: kind})
}

// sorted returns dependencies in a stable order; esbuild's callback order is not.
func (c *importCollector) sorted() []core.DiscoveredDependency {
	c.mu.Lock()
	defer c.mu.Unlock()
	deps := append([]core.DiscoveredDependency(nil), c.deps...)
	sort.SliceStable(deps, func(i, j int) bool {
		if deps[i].Request != deps[j].Request {
			return deps[i].Request < deps[j].Request
		}
		return deps[i].Kind < deps[j].Kind
	})
	return deps
}

func kindOf(kind api.ResolveKind) core.DependencyKind {
	switch kind {
	case api.ResolveJSRequireCall:
		return core.DependencyKindRequire
	case api.ResolveJSDynamicImport:
		return core.DependencyKindDynamicImport
	case api.ResolveJSRequireResolve:
		return core.DependencyKindRequireResolve
	case api.ResolveCSSImportRule, api.ResolveCSSComposesFrom:
		return core.DependencyKindCSSImport
	case api.ResolveCSSURLToken:
		return core.DependencyKindURL
	default:
		return core.DependencyKindESMImport
	}
}
