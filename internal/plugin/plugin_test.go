package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbundle/internal/config"
	"github.com/leapstack-labs/leapbundle/internal/testutil"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

type recordingPlugin struct {
	name      string
	rewriteTo string
	err       error
	calls     *[]string
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) BeforeResolve(_ context.Context, data *ResolveData) error {
	*p.calls = append(*p.calls, p.name+":resolve")
	if p.err != nil {
		return p.err
	}
	if p.rewriteTo != "" {
		data.Request = p.rewriteTo
	}
	return nil
}

func (p *recordingPlugin) SucceedModule(_ context.Context, m *core.NormalModule) error {
	*p.calls = append(*p.calls, p.name+":succeed:"+string(m.ID))
	return p.err
}

// namedOnly implements no hooks.
type namedOnly struct{}

func (namedOnly) Name() string { return "named-only" }

func TestDriver_BeforeResolveOrder(t *testing.T) {
	var calls []string
	d := NewDriver(testutil.NewTestLogger(t),
		&recordingPlugin{name: "first", rewriteTo: "./rewritten", calls: &calls},
		namedOnly{},
		&recordingPlugin{name: "second", calls: &calls},
	)

	data := &ResolveData{Request: "./original"}
	require.NoError(t, d.BeforeResolve(context.Background(), data))

	assert.Equal(t, "./rewritten", data.Request)
	assert.Equal(t, []string{"first:resolve", "second:resolve"}, calls)
	assert.Equal(t, []string{"first", "named-only", "second"}, d.Names())
}

func TestDriver_FirstErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	var calls []string
	d := NewDriver(nil,
		&recordingPlugin{name: "failing", err: boom, calls: &calls},
		&recordingPlugin{name: "never", calls: &calls},
	)

	err := d.BeforeResolve(context.Background(), &ResolveData{Request: "x"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "plugin failing")

	err = d.SucceedModule(context.Background(), &core.NormalModule{ID: "/a.js"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"failing:resolve", "failing:succeed:/a.js"}, calls)
}

func TestDriver_With(t *testing.T) {
	base := NewDriver(nil, namedOnly{})
	extended := base.With(NodeBuiltins{})

	assert.Equal(t, []string{"named-only"}, base.Names())
	assert.Equal(t, []string{"named-only", NodeBuiltinsPluginName}, extended.Names())
}

func TestDriver_Empty(t *testing.T) {
	d := NewDriver(nil)
	data := &ResolveData{Request: "./a"}
	require.NoError(t, d.BeforeResolve(context.Background(), data))
	require.NoError(t, d.SucceedModule(context.Background(), &core.NormalModule{ID: "/a.js"}))
	assert.Equal(t, "./a", data.Request)
	assert.Empty(t, d.Names())
}

func TestAlias(t *testing.T) {
	root := t.TempDir()
	a := NewAlias(root, map[string]string{
		"@":           "./src",
		"@components": "./src/components",
		"react":       "preact/compat",
		"lodash/fp":   "lodash-es/fp",
	})
	src := filepath.ToSlash(filepath.Join(root, "src"))

	tests := []struct {
		request string
		want    string
	}{
		{"@/util", src + "/util"},
		{"@components/Button", src + "/components/Button"},
		{"react", "preact/compat"},
		{"react/jsx-runtime", "preact/compat/jsx-runtime"},
		{"react-dom", "react-dom"},
		{"lodash/fp/map", "lodash-es/fp/map"},
		{"lodash", "lodash"},
		{"./local", "./local"},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			data := &ResolveData{Request: tt.request}
			require.NoError(t, a.BeforeResolve(context.Background(), data))
			assert.Equal(t, tt.want, data.Request)
			assert.False(t, data.External)
		})
	}
}

func TestNodeBuiltins(t *testing.T) {
	tests := []struct {
		request  string
		external bool
	}{
		{"fs", true},
		{"fs/promises", true},
		{"node:path", true},
		{"node:test", true},
		{"lodash", false},
		{"./fs", false},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			data := &ResolveData{Request: tt.request}
			require.NoError(t, NodeBuiltins{}.BeforeResolve(context.Background(), data))
			assert.Equal(t, tt.external, data.External)
			assert.Equal(t, tt.request, data.Request)
		})
	}
}

func TestNewDriverFromOptions(t *testing.T) {
	tests := []struct {
		name      string
		opts      config.CompilerOptions
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "no plugins",
			opts:      config.CompilerOptions{},
			wantNames: []string{},
		},
		{
			name:      "alias enabled implicitly",
			opts:      config.CompilerOptions{Resolve: config.ResolveOptions{Alias: map[string]string{"@": "./src"}}},
			wantNames: []string{AliasPluginName},
		},
		{
			name: "explicit order kept",
			opts: config.CompilerOptions{
				Plugins: []string{NodeBuiltinsPluginName, AliasPluginName},
				Resolve: config.ResolveOptions{Alias: map[string]string{"@": "./src"}},
			},
			wantNames: []string{NodeBuiltinsPluginName, AliasPluginName},
		},
		{
			name:    "unknown plugin",
			opts:    config.CompilerOptions{Plugins: []string{"does-not-exist"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDriverFromOptions(&tt.opts, nil)
			if tt.wantErr {
				var unknown *UnknownPluginError
				require.ErrorAs(t, err, &unknown)
				assert.Contains(t, unknown.Available, AliasPluginName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNames, d.Names())
		})
	}
}

func TestListPlugins(t *testing.T) {
	names := ListPlugins()
	assert.Contains(t, names, AliasPluginName)
	assert.Contains(t, names, NodeBuiltinsPluginName)
	assert.IsIncreasing(t, names)
}
