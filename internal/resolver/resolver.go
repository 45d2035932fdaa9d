// Package resolver turns import requests into concrete module resources.
// It follows node-style rules: relative and absolute requests probe the file,
// the configured extensions and directory main files; bare requests are
// checked against the externals list and then looked up in node_modules.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapbundle/internal/config"
)

// ErrModuleNotFound is matched by errors returned for unresolvable requests.
var ErrModuleNotFound = errors.New("module not found")

// NotFoundError reports a request that resolved to nothing.
type NotFoundError struct {
	Request string
	Context string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("can't resolve %q in %q", e.Request, e.Context)
}

// Unwrap lets errors.Is match ErrModuleNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrModuleNotFound
}

// Resolution is the outcome of resolving one request.
type Resolution struct {
	// Path is the absolute resource path (empty for externals)
	Path string
	// External marks requests left for the runtime to provide
	External bool
}

// Factory resolves requests with one set of options. It is safe for
// concurrent use and is shared by reference across tasks.
type Factory struct {
	extensions []string
	mainFiles  []string
	externals  map[string]struct{}
}

// NewFactory creates a resolver factory from compiler options.
func NewFactory(opts *config.CompilerOptions) *Factory {
	f := &Factory{
		extensions: opts.Resolve.Extensions,
		mainFiles:  opts.Resolve.MainFiles,
		externals:  make(map[string]struct{}, len(opts.Externals)),
	}
	if len(f.extensions) == 0 {
		f.extensions = config.DefaultExtensions
	}
	if len(f.mainFiles) == 0 {
		f.mainFiles = config.DefaultMainFiles
	}
	for _, ext := range opts.Externals {
		f.externals[ext] = struct{}{}
	}
	return f
}

// Resolve resolves request against contextDir.
func (f *Factory) Resolve(ctx context.Context, contextDir, request string) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	if request == "" {
		return Resolution{}, &NotFoundError{Request: request, Context: contextDir}
	}

	if isPathRequest(request) {
		target := request
		if !filepath.IsAbs(target) {
			target = filepath.Join(contextDir, filepath.FromSlash(request))
		}
		if path, ok := f.resolvePath(target); ok {
			return Resolution{Path: path}, nil
		}
		return Resolution{}, &NotFoundError{Request: request, Context: contextDir}
	}

	if f.isExternal(request) {
		return Resolution{External: true}, nil
	}

	if path, ok := f.resolveNodeModules(contextDir, request); ok {
		return Resolution{Path: path}, nil
	}
	return Resolution{}, &NotFoundError{Request: request, Context: contextDir}
}

// isExternal matches the package name, so "react/jsx-runtime" is external when "react" is.
func (f *Factory) isExternal(request string) bool {
	if _, ok := f.externals[request]; ok {
		return true
	}
	_, ok := f.externals[packageName(request)]
	return ok
}

func (f *Factory) resolvePath(target string) (string, bool) {
	if path, ok := f.resolveFile(target); ok {
		return path, true
	}
	return f.resolveDirectory(target)
}

func (f *Factory) resolveFile(target string) (string, bool) {
	if isFile(target) {
		return absolute(target), true
	}
	for _, ext := range f.extensions {
		if candidate := target + ext; isFile(candidate) {
			return absolute(candidate), true
		}
	}
	return "", false
}

func (f *Factory) resolveDirectory(dir string) (string, bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}

	if main := readPackageMain(dir); main != "" {
		if path, ok := f.resolveFile(filepath.Join(dir, filepath.FromSlash(main))); ok {
			return path, true
		}
	}

	for _, name := range f.mainFiles {
		if path, ok := f.resolveFile(filepath.Join(dir, name)); ok {
			return path, true
		}
	}
	return "", false
}

func (f *Factory) resolveNodeModules(contextDir, request string) (string, bool) {
	dir := contextDir
	for {
		candidate := filepath.Join(dir, "node_modules", filepath.FromSlash(request))
		if path, ok := f.resolvePath(candidate); ok {
			return path, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type packageJSON struct {
	Module string `json:"module"`
	Main   string `json:"main"`
}

// readPackageMain returns the "module" field, falling back to "main".
func readPackageMain(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json")) //nolint:gosec // G304: dir comes from resolution probing
	if err != nil {
		return ""
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	if pkg.Module != "" {
		return pkg.Module
	}
	return pkg.Main
}

func isPathRequest(request string) bool {
	return request == "." || request == ".." ||
		strings.HasPrefix(request, "./") || strings.HasPrefix(request, "../") ||
		filepath.IsAbs(request) || strings.HasPrefix(request, "/")
}

// packageName strips the subpath: "@scope/pkg/x" -> "@scope/pkg", "pkg/x" -> "pkg".
func packageName(request string) string {
	parts := strings.Split(request, "/")
	if strings.HasPrefix(request, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
