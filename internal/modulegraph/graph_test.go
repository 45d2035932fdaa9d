package modulegraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

func ptr(id core.ModuleIdentifier) *core.ModuleIdentifier {
	return &id
}

func addNode(t *testing.T, g *ModuleGraph, id core.ModuleIdentifier, issuer Issuer) *ModuleGraphModule {
	t.Helper()
	node := NewModuleGraphModule(id, issuer)
	require.NoError(t, g.AddNode(node))
	return node
}

func TestModuleGraph_AddNode_FirstInsertionWins(t *testing.T) {
	g := New()
	first := addNode(t, g, "/src/a.js", IssuerNone)

	err := g.AddNode(NewModuleGraphModule("/src/a.js", IssuerOf("/src/b.js")))
	require.Error(t, err)

	var dupErr *DuplicateNodeError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, core.ModuleIdentifier("/src/a.js"), dupErr.Identifier)

	got, ok := g.GetNode("/src/a.js")
	require.True(t, ok)
	assert.Same(t, first, got)
	_, hasIssuer := got.Issuer.Identifier()
	assert.False(t, hasIssuer, "original node must not be overwritten")
}

func TestModuleGraph_AddDependency_AllocatesIDs(t *testing.T) {
	g := New()
	a := g.AddDependency(Dependency{Request: "./a", Kind: core.DependencyKindEntry})
	b := g.AddDependency(Dependency{ID: 99, Request: "./b", Kind: core.DependencyKindESMImport})

	assert.Equal(t, core.DependencyID(1), a)
	assert.Equal(t, core.DependencyID(2), b, "caller supplied ids are ignored")
	assert.Equal(t, 2, g.DependencyCount())

	dep, ok := g.Dependency(b)
	require.True(t, ok)
	assert.Equal(t, "./b", dep.Request)
}

func TestModuleGraph_ResolveEdge(t *testing.T) {
	g := New()
	addNode(t, g, "/src/index.js", IssuerNone)
	addNode(t, g, "/src/util.js", IssuerOf("/src/index.js"))

	dep := g.AddDependency(Dependency{Request: "./util", Kind: core.DependencyKindESMImport, Origin: ptr("/src/index.js")})
	require.NoError(t, g.ResolveEdge(ptr("/src/index.js"), dep, "/src/util.js", false))

	conn, ok := g.Connection(dep)
	require.True(t, ok)
	assert.Equal(t, core.ModuleIdentifier("/src/util.js"), conn.Module)
	require.NotNil(t, conn.OriginModule)
	assert.Equal(t, core.ModuleIdentifier("/src/index.js"), *conn.OriginModule)

	assert.Equal(t, []core.ModuleIdentifier{"/src/util.js"}, g.OutgoingModules("/src/index.js"))
	assert.Equal(t, []core.ModuleIdentifier{"/src/index.js"}, g.IncomingModules("/src/util.js"))
	assert.Equal(t, 1, g.ConnectionCount())

	util, _ := g.GetNode("/src/util.js")
	assert.Nil(t, util.ExportsInfo, "legacy mode records no usage")
}

func TestModuleGraph_ResolveEdge_MissingTarget(t *testing.T) {
	g := New()
	dep := g.AddDependency(Dependency{Request: "./missing", Kind: core.DependencyKindEntry})

	err := g.ResolveEdge(nil, dep, "/src/missing.js", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedTarget))

	var target *UnresolvedTargetError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, dep, target.Dependency)

	_, ok := g.Connection(dep)
	assert.False(t, ok, "no dangling connection is recorded")
}

func TestModuleGraph_ResolveEdge_UnknownDependency(t *testing.T) {
	g := New()
	addNode(t, g, "/src/a.js", IssuerNone)

	err := g.ResolveEdge(nil, 42, "/src/a.js", false)
	var unknown *UnknownDependencyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, core.DependencyID(42), unknown.Dependency)
}

func TestModuleGraph_ResolveEdge_Reresolve(t *testing.T) {
	g := New()
	addNode(t, g, "/src/a.js", IssuerNone)
	addNode(t, g, "/src/b.js", IssuerNone)
	dep := g.AddDependency(Dependency{Request: "./x", Kind: core.DependencyKindRequire})

	require.NoError(t, g.ResolveEdge(nil, dep, "/src/a.js", true))
	require.NoError(t, g.ResolveEdge(nil, dep, "/src/b.js", true))

	a, _ := g.GetNode("/src/a.js")
	b, _ := g.GetNode("/src/b.js")
	assert.Empty(t, a.IncomingConnections())
	assert.Equal(t, UsageNone, a.ExportsInfo.Usage)
	assert.Equal(t, []core.DependencyID{dep}, b.IncomingConnections())
}

func TestModuleGraph_CloneIsIndependent(t *testing.T) {
	g := New()
	addNode(t, g, "/src/a.js", IssuerNone)
	dep := g.AddDependency(Dependency{Request: "./a", Kind: core.DependencyKindEntry})
	require.NoError(t, g.ResolveEdge(nil, dep, "/src/a.js", false))

	partial := g.Clone()
	addNode(t, partial, "/src/b.js", IssuerOf("/src/a.js"))
	dep2 := partial.AddDependency(Dependency{Request: "./b", Kind: core.DependencyKindESMImport, Origin: ptr("/src/a.js")})
	require.NoError(t, partial.ResolveEdge(ptr("/src/a.js"), dep2, "/src/b.js", false))

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 1, g.ConnectionCount())
	assert.Empty(t, g.OutgoingModules("/src/a.js"))

	assert.Equal(t, 2, partial.NodeCount())
	assert.Equal(t, core.DependencyID(2), dep2, "clone continues the id sequence")
}

func TestModuleGraph_Merge(t *testing.T) {
	g := New()
	addNode(t, g, "/src/a.js", IssuerNone)

	partial := g.Clone()
	addNode(t, partial, "/src/b.js", IssuerOf("/src/a.js"))
	dep := partial.AddDependency(Dependency{Request: "./b", Kind: core.DependencyKindESMImport, Origin: ptr("/src/a.js")})
	require.NoError(t, partial.ResolveEdge(ptr("/src/a.js"), dep, "/src/b.js", false))
	partial.AddModule(&core.NormalModule{ID: "/src/b.js", Resource: "/src/b.js", Built: true})

	g.Merge(partial)

	assert.Equal(t, []core.ModuleIdentifier{"/src/a.js", "/src/b.js"}, g.ModuleIdentifiers())
	assert.Equal(t, []core.ModuleIdentifier{"/src/b.js"}, g.OutgoingModules("/src/a.js"))
	_, ok := g.Module("/src/b.js")
	assert.True(t, ok)

	next := g.AddDependency(Dependency{Request: "./c"})
	assert.Greater(t, next, dep, "merge advances the id sequence")
}

func TestModuleGraph_Connections_Sorted(t *testing.T) {
	g := New()
	addNode(t, g, "/src/a.js", IssuerNone)
	ids := make([]core.DependencyID, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, g.AddDependency(Dependency{Request: "./a", Kind: core.DependencyKindEntry}))
	}
	for i := len(ids) - 1; i >= 0; i-- {
		require.NoError(t, g.ResolveEdge(nil, ids[i], "/src/a.js", false))
	}

	conns := g.Connections()
	require.Len(t, conns, 5)
	for i, c := range conns {
		assert.Equal(t, ids[i], c.Dependency)
	}
}
