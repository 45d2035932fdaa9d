package core

import "path/filepath"

// ModuleIdentifier is the stable key of a module inside the module graph.
// For files it is the absolute resource path; externals use "external <request>".
type ModuleIdentifier string

// String implements fmt.Stringer.
func (id ModuleIdentifier) String() string {
	return string(id)
}

// ExternalIdentifier returns the identifier used for an external request.
func ExternalIdentifier(request string) ModuleIdentifier {
	return ModuleIdentifier("external " + request)
}

// Module is the closed set of module variants handled by the make phase.
// Only NormalModule and SelfModule implement it.
type Module interface {
	// Identifier returns the graph key of the module.
	Identifier() ModuleIdentifier

	sealed()
}

// NormalModule is a concrete source unit backed by a resource on disk,
// or an external that is left for the runtime to provide.
type NormalModule struct {
	// ID is the module identifier
	ID ModuleIdentifier
	// Request is the raw request that produced this module
	Request string
	// Resource is the absolute path of the source file (empty for externals)
	Resource string
	// External marks modules that are not parsed or built
	External bool

	// Filled by the build step.

	// ContentHash is the sha256 of the resource content
	ContentHash string
	// Code is the transformed source
	Code string
	// Dependencies are the ids registered for this module's imports, in request order
	Dependencies []DependencyID
	// Built is true once the build step has completed
	Built bool
}

// Identifier implements Module.
func (m *NormalModule) Identifier() ModuleIdentifier {
	return m.ID
}

// Context returns the directory that relative requests issued by this module resolve against.
func (m *NormalModule) Context() string {
	if m.Resource == "" {
		return ""
	}
	return filepath.Dir(m.Resource)
}

func (m *NormalModule) sealed() {}

// SelfModule stands in for a module importing itself.
// It never becomes a graph node: its dependencies resolve to the issuer.
type SelfModule struct {
	// Issuer is the module that imports itself
	Issuer ModuleIdentifier
	// Request is the raw self-referencing request
	Request string
}

// Identifier implements Module.
func (m *SelfModule) Identifier() ModuleIdentifier {
	return ModuleIdentifier("self " + string(m.Issuer))
}

func (m *SelfModule) sealed() {}

// AsSelfModule reports whether m is the self placeholder.
func AsSelfModule(m Module) (*SelfModule, bool) {
	s, ok := m.(*SelfModule)
	return s, ok
}
