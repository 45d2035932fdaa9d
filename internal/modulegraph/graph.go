// Package modulegraph provides the module graph built during the make phase.
// It holds one node per module identifier and the connections created by
// resolving dependency ids to their target modules.
//
// The graph has no internal locking. It is mutated only by synchronous tasks,
// which the task loop never runs concurrently.
package modulegraph

import (
	"sort"

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// Dependency is a registered import/require edge, before or after resolution.
type Dependency struct {
	ID      core.DependencyID
	Request string
	Kind    core.DependencyKind
	// Origin is the module that issued the dependency (nil for entry requests)
	Origin *core.ModuleIdentifier
}

// Connection is a resolved dependency.
type Connection struct {
	Dependency   core.DependencyID
	OriginModule *core.ModuleIdentifier
	Module       core.ModuleIdentifier
}

// ModuleGraph holds nodes, built modules, registered dependencies and connections.
type ModuleGraph struct {
	nodes        map[core.ModuleIdentifier]*ModuleGraphModule
	modules      map[core.ModuleIdentifier]core.Module
	dependencies map[core.DependencyID]*Dependency
	connections  map[core.DependencyID]*Connection
	nextID       core.DependencyID
}

// New creates a new empty module graph.
func New() *ModuleGraph {
	return &ModuleGraph{
		nodes:        make(map[core.ModuleIdentifier]*ModuleGraphModule),
		modules:      make(map[core.ModuleIdentifier]core.Module),
		dependencies: make(map[core.DependencyID]*Dependency),
		connections:  make(map[core.DependencyID]*Connection),
		nextID:       1,
	}
}

// AddNode inserts a node keyed by its module identifier.
// The first insertion wins; a second one fails with DuplicateNodeError.
func (g *ModuleGraph) AddNode(node *ModuleGraphModule) error {
	if _, exists := g.nodes[node.ModuleIdentifier]; exists {
		return &DuplicateNodeError{Identifier: node.ModuleIdentifier}
	}
	if node.incoming == nil {
		node.incoming = make(map[core.DependencyID]struct{})
	}
	if node.outgoing == nil {
		node.outgoing = make(map[core.DependencyID]struct{})
	}
	g.nodes[node.ModuleIdentifier] = node
	return nil
}

// GetNode returns the node for id.
func (g *ModuleGraph) GetNode(id core.ModuleIdentifier) (*ModuleGraphModule, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// AddDependency registers a dependency and returns its newly allocated id.
// Any ID set on dep is ignored.
func (g *ModuleGraph) AddDependency(dep Dependency) core.DependencyID {
	dep.ID = g.nextID
	g.nextID++
	if dep.Origin != nil {
		origin := *dep.Origin
		dep.Origin = &origin
	}
	g.dependencies[dep.ID] = &dep
	return dep.ID
}

// Dependency returns a registered dependency.
func (g *ModuleGraph) Dependency(id core.DependencyID) (*Dependency, bool) {
	dep, ok := g.dependencies[id]
	return dep, ok
}

// ResolveEdge records that dependency, issued by origin (nil for entry
// requests), resolves to target. The target must already have a node.
// In tree-shaking mode the usage bookkeeping strategy runs on the target.
func (g *ModuleGraph) ResolveEdge(origin *core.ModuleIdentifier, dependency core.DependencyID, target core.ModuleIdentifier, treeShaking bool) error {
	dep, ok := g.dependencies[dependency]
	if !ok {
		return &UnknownDependencyError{Dependency: dependency}
	}
	targetNode, ok := g.nodes[target]
	if !ok {
		return &UnresolvedTargetError{Dependency: dependency, Target: target}
	}

	if prev, exists := g.connections[dependency]; exists && prev.Module != target {
		if prevNode, ok := g.nodes[prev.Module]; ok {
			delete(prevNode.incoming, dependency)
			if prevNode.ExportsInfo != nil {
				prevNode.ExportsInfo.forget(dependency)
			}
		}
	}

	conn := &Connection{Dependency: dependency, Module: target}
	if origin != nil {
		o := *origin
		conn.OriginModule = &o
		if originNode, ok := g.nodes[o]; ok {
			originNode.outgoing[dependency] = struct{}{}
		}
	}
	g.connections[dependency] = conn
	targetNode.incoming[dependency] = struct{}{}

	BookkeepingFor(treeShaking).Record(targetNode, dep)
	return nil
}

// Connection returns the connection of a resolved dependency.
func (g *ModuleGraph) Connection(dependency core.DependencyID) (*Connection, bool) {
	conn, ok := g.connections[dependency]
	return conn, ok
}

// Connections returns every connection ordered by dependency id.
func (g *ModuleGraph) Connections() []*Connection {
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].Dependency < conns[j].Dependency
	})
	return conns
}

// AddModule stores a built module. Built modules replace earlier versions.
func (g *ModuleGraph) AddModule(m core.Module) {
	g.modules[m.Identifier()] = m
}

// Module returns the built module for id.
func (g *ModuleGraph) Module(id core.ModuleIdentifier) (core.Module, bool) {
	m, ok := g.modules[id]
	return m, ok
}

// ModuleIdentifiers returns the identifiers of every node, sorted.
func (g *ModuleGraph) ModuleIdentifiers() []core.ModuleIdentifier {
	ids := make([]core.ModuleIdentifier, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OutgoingModules returns the distinct modules id depends on, sorted.
func (g *ModuleGraph) OutgoingModules(id core.ModuleIdentifier) []core.ModuleIdentifier {
	node, ok := g.nodes[id]
	if !ok {
		return nil
	}
	seen := make(map[core.ModuleIdentifier]struct{})
	for dep := range node.outgoing {
		if conn, ok := g.connections[dep]; ok {
			seen[conn.Module] = struct{}{}
		}
	}
	return sortedIdentifiers(seen)
}

// IncomingModules returns the distinct modules that depend on id, sorted.
// Entry requests have no origin and are not listed.
func (g *ModuleGraph) IncomingModules(id core.ModuleIdentifier) []core.ModuleIdentifier {
	node, ok := g.nodes[id]
	if !ok {
		return nil
	}
	seen := make(map[core.ModuleIdentifier]struct{})
	for dep := range node.incoming {
		if conn, ok := g.connections[dep]; ok && conn.OriginModule != nil {
			seen[*conn.OriginModule] = struct{}{}
		}
	}
	return sortedIdentifiers(seen)
}

// NodeCount returns the number of nodes in the graph.
func (g *ModuleGraph) NodeCount() int {
	return len(g.nodes)
}

// DependencyCount returns the number of registered dependencies.
func (g *ModuleGraph) DependencyCount() int {
	return len(g.dependencies)
}

// ConnectionCount returns the number of resolved dependencies.
func (g *ModuleGraph) ConnectionCount() int {
	return len(g.connections)
}

// Clone returns a deep copy used as the working partial of a generation.
// Built modules are shared: they are not mutated once stored.
func (g *ModuleGraph) Clone() *ModuleGraph {
	c := New()
	c.nextID = g.nextID
	for id, n := range g.nodes {
		c.nodes[id] = n.clone()
	}
	for id, m := range g.modules {
		c.modules[id] = m
	}
	for id, d := range g.dependencies {
		dep := *d
		c.dependencies[id] = &dep
	}
	for id, conn := range g.connections {
		cc := *conn
		c.connections[id] = &cc
	}
	return c
}

// Merge folds a generation's partial into g. Nodes keep first-insertion-wins
// semantics; modules, dependencies and connections from the partial replace
// older entries.
func (g *ModuleGraph) Merge(partial *ModuleGraph) {
	for id, n := range partial.nodes {
		if existing, ok := g.nodes[id]; ok {
			// the node identity stays, its edges follow the newer generation
			merged := n.clone()
			merged.Issuer = existing.Issuer
			merged.Profile = existing.Profile
			g.nodes[id] = merged
			continue
		}
		g.nodes[id] = n
	}
	for id, m := range partial.modules {
		g.modules[id] = m
	}
	for id, d := range partial.dependencies {
		g.dependencies[id] = d
	}
	for id, conn := range partial.connections {
		g.connections[id] = conn
	}
	if partial.nextID > g.nextID {
		g.nextID = partial.nextID
	}
}

func sortedIdentifiers(set map[core.ModuleIdentifier]struct{}) []core.ModuleIdentifier {
	ids := make([]core.ModuleIdentifier, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
