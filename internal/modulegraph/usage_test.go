package modulegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

func TestUsageBookkeeping(t *testing.T) {
	tests := []struct {
		name  string
		kinds []core.DependencyKind
		want  UsageState
	}{
		{"static import", []core.DependencyKind{core.DependencyKindESMImport}, UsageStatic},
		{"require", []core.DependencyKind{core.DependencyKindRequire}, UsageDynamic},
		{"dynamic import", []core.DependencyKind{core.DependencyKindDynamicImport}, UsageDynamic},
		{"entry", []core.DependencyKind{core.DependencyKindEntry}, UsageDynamic},
		{"static then require", []core.DependencyKind{core.DependencyKindESMImport, core.DependencyKindRequire}, UsageDynamic},
		{"two static imports", []core.DependencyKind{core.DependencyKindESMImport, core.DependencyKindESMImport}, UsageStatic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			require.NoError(t, g.AddNode(NewModuleGraphModule("/src/lib.js", IssuerNone)))
			for _, kind := range tt.kinds {
				dep := g.AddDependency(Dependency{Request: "./lib", Kind: kind})
				require.NoError(t, g.ResolveEdge(nil, dep, "/src/lib.js", true))
			}

			node, _ := g.GetNode("/src/lib.js")
			require.NotNil(t, node.ExportsInfo)
			assert.Equal(t, tt.want, node.ExportsInfo.Usage)
			assert.Len(t, node.ExportsInfo.ByDependency, len(tt.kinds))
		})
	}
}

func TestBookkeepingFor(t *testing.T) {
	assert.IsType(t, legacyBookkeeping{}, BookkeepingFor(false))
	assert.IsType(t, usageBookkeeping{}, BookkeepingFor(true))
}

func TestUsageState_String(t *testing.T) {
	assert.Equal(t, "none", UsageNone.String())
	assert.Equal(t, "static", UsageStatic.String())
	assert.Equal(t, "dynamic", UsageDynamic.String())
}
