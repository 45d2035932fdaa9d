package modulegraph

import (
	"sort"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// Issuer is the module whose import caused a module to be requested.
// The zero value means no issuer (an entry request).
type Issuer struct {
	id  core.ModuleIdentifier
	set bool
}

// IssuerNone is the issuer of entry modules.
var IssuerNone = Issuer{}

// IssuerOf returns an issuer pointing at id.
func IssuerOf(id core.ModuleIdentifier) Issuer {
	return Issuer{id: id, set: true}
}

// IssuerFrom converts an optional originating module into an issuer.
func IssuerFrom(origin *core.ModuleIdentifier) Issuer {
	if origin == nil {
		return IssuerNone
	}
	return IssuerOf(*origin)
}

// Identifier returns the issuer's module and whether there is one.
func (i Issuer) Identifier() (core.ModuleIdentifier, bool) {
	return i.id, i.set
}

// ModuleGraphModule is the node record for one module. Once inserted it is
// owned by the graph.
type ModuleGraphModule struct {
	ModuleIdentifier core.ModuleIdentifier
	Issuer           Issuer
	// Profile is the timing handle captured at insertion (nil when profiling is off)
	Profile *core.ModuleProfile
	// ExportsInfo is populated by the usage bookkeeping strategy only
	ExportsInfo *ExportsInfo

	incoming map[core.DependencyID]struct{}
	outgoing map[core.DependencyID]struct{}
}

// NewModuleGraphModule prepares a node for id. It is not part of any graph until AddNode.
func NewModuleGraphModule(id core.ModuleIdentifier, issuer Issuer) *ModuleGraphModule {
	return &ModuleGraphModule{
		ModuleIdentifier: id,
		Issuer:           issuer,
		incoming:         make(map[core.DependencyID]struct{}),
		outgoing:         make(map[core.DependencyID]struct{}),
	}
}

// IncomingConnections returns the dependency ids resolved to this module, ascending.
func (m *ModuleGraphModule) IncomingConnections() []core.DependencyID {
	return sortedIDs(m.incoming)
}

// OutgoingConnections returns the dependency ids this module issued that are resolved, ascending.
func (m *ModuleGraphModule) OutgoingConnections() []core.DependencyID {
	return sortedIDs(m.outgoing)
}

func (m *ModuleGraphModule) clone() *ModuleGraphModule {
	c := *m
	c.incoming = make(map[core.DependencyID]struct{}, len(m.incoming))
	for id := range m.incoming {
		c.incoming[id] = struct{}{}
	}
	c.outgoing = make(map[core.DependencyID]struct{}, len(m.outgoing))
	for id := range m.outgoing {
		c.outgoing[id] = struct{}{}
	}
	if m.ExportsInfo != nil {
		c.ExportsInfo = m.ExportsInfo.clone()
	}
	return &c
}

func sortedIDs(set map[core.DependencyID]struct{}) []core.DependencyID {
	ids := make([]core.DependencyID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
