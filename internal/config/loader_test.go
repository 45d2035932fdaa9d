package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbundle/internal/testutil"
)

func TestLoadFromDir(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"leapbundle.yaml": `
context: src
entry:
  main: ./index.ts
  admin: ./admin.ts
mode: development
optimization:
  tree_shaking: true
resolve:
  extensions: [".ts", ".js"]
  alias:
    "@lib": ./lib
externals: react,react-dom
cache:
  enabled: true
timeout: 45s
`,
	})

	opts, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.NotNil(t, opts)

	assert.Equal(t, filepath.Join(dir, "src"), opts.Context)
	assert.Equal(t, ModeDevelopment, opts.Mode)
	assert.True(t, opts.IsNewTreeShaking())
	assert.Equal(t, []string{".ts", ".js"}, opts.Resolve.Extensions)
	assert.Equal(t, DefaultMainFiles, opts.Resolve.MainFiles)
	assert.Equal(t, "./lib", opts.Resolve.Alias["@lib"])
	assert.Equal(t, []string{"react", "react-dom"}, opts.Externals)
	assert.Equal(t, filepath.Join(dir, DefaultCachePath), opts.Cache.Path)
	assert.Equal(t, 45*time.Second, opts.Timeout)

	assert.Equal(t, []Entry{
		{Name: "admin", Request: "./admin.ts"},
		{Name: "main", Request: "./index.ts"},
	}, opts.Entries())
	require.NoError(t, opts.Validate())
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	opts, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, opts)
}

func TestLoadFromDir_InvalidYAML(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"leapbundle.yml": "entry: [unclosed",
	})
	_, err := LoadFromDir(dir)
	require.Error(t, err)
}

func TestFindProjectRoot(t *testing.T) {
	root := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"leapbundle.yaml":  "entry: {main: ./a.js}",
		"src/deep/file.js": "",
	})

	assert.Equal(t, root, FindProjectRoot(filepath.Join(root, "src", "deep")))
}

func TestCompilerOptions_Validate(t *testing.T) {
	valid := func() *CompilerOptions {
		o := &CompilerOptions{Entry: map[string]string{"main": "./index.js"}}
		o.ApplyDefaults()
		return o
	}

	tests := []struct {
		name    string
		mutate  func(o *CompilerOptions)
		wantErr string
	}{
		{"valid", func(*CompilerOptions) {}, ""},
		{"no entry", func(o *CompilerOptions) { o.Entry = nil }, "at least one entry"},
		{"empty request", func(o *CompilerOptions) { o.Entry["main"] = "" }, "empty request"},
		{"bad mode", func(o *CompilerOptions) { o.Mode = "turbo" }, "unknown mode"},
		{"negative workers", func(o *CompilerOptions) { o.Workers = -1 }, "workers"},
		{"cache without path", func(o *CompilerOptions) { o.Cache = CacheOptions{Enabled: true} }, "cache.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
