package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsSelfModule(t *testing.T) {
	normal := &NormalModule{ID: "/src/a.js", Resource: "/src/a.js"}
	self := &SelfModule{Issuer: "/src/a.js", Request: "./a"}

	_, ok := AsSelfModule(normal)
	assert.False(t, ok)

	got, ok := AsSelfModule(self)
	require.True(t, ok)
	assert.Equal(t, ModuleIdentifier("/src/a.js"), got.Issuer)
	assert.NotEqual(t, self.Issuer, self.Identifier(), "self placeholder must not collide with its issuer")
}

func TestNormalModule_Context(t *testing.T) {
	assert.Equal(t, "/src/lib", (&NormalModule{Resource: "/src/lib/x.ts"}).Context())
	assert.Equal(t, "", (&NormalModule{ID: ExternalIdentifier("react"), External: true}).Context())
}

func TestDependencyKind_IsStatic(t *testing.T) {
	assert.True(t, DependencyKindESMImport.IsStatic())
	assert.False(t, DependencyKindRequire.IsStatic())
	assert.False(t, DependencyKindDynamicImport.IsStatic())
}

func TestModuleProfile_Durations(t *testing.T) {
	p := NewModuleProfile()
	base := time.Now()
	p.IntegrationStart = base
	p.IntegrationEnd = base.Add(5 * time.Millisecond)
	p.BuildingStart = base

	d := p.Durations()
	assert.Equal(t, 5*time.Millisecond, d.Integration)
	assert.Zero(t, d.Building, "unfinished phase reports zero")
	assert.Zero(t, d.Factory)
}
