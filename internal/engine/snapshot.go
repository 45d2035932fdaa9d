package engine

import (
	"github.com/leapstack-labs/leapbundle/internal/modulegraph"
	"github.com/leapstack-labs/leapbundle/pkg/core"
)

// Module kinds reported in snapshots.
const (
	ModuleKindNormal   = "normal"
	ModuleKindExternal = "external"
)

// GraphSnapshot is a serializable view of the authoritative module graph.
type GraphSnapshot struct {
	Entries      []string         `json:"entries" yaml:"entries"`
	Modules      []ModuleSnapshot `json:"modules" yaml:"modules"`
	Dependencies int              `json:"dependencies" yaml:"dependencies"`
	Connections  int              `json:"connections" yaml:"connections"`
}

// ModuleSnapshot describes one module node.
type ModuleSnapshot struct {
	Identifier   string           `json:"identifier" yaml:"identifier"`
	Kind         string           `json:"kind" yaml:"kind"`
	Resource     string           `json:"resource,omitempty" yaml:"resource,omitempty"`
	Issuer       string           `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Entry        bool             `json:"entry" yaml:"entry"`
	Dependencies []string         `json:"dependencies" yaml:"dependencies"`
	Dependents   []string         `json:"dependents" yaml:"dependents"`
	Usage        string           `json:"usage,omitempty" yaml:"usage,omitempty"`
	Profile      *ProfileSnapshot `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// ProfileSnapshot is the per-phase timing of a module, in milliseconds.
type ProfileSnapshot struct {
	FactoryMs     float64 `json:"factory_ms" yaml:"factory_ms"`
	IntegrationMs float64 `json:"integration_ms" yaml:"integration_ms"`
	BuildingMs    float64 `json:"building_ms" yaml:"building_ms"`
}

// Snapshot captures the authoritative graph with modules sorted by identifier.
func (e *Engine) Snapshot() *GraphSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotGraph(e.graph, e.entries)
}

func snapshotGraph(g *modulegraph.ModuleGraph, entries map[core.ModuleIdentifier]struct{}) *GraphSnapshot {
	snap := &GraphSnapshot{
		Entries:      identifierStrings(sortedEntries(entries)),
		Modules:      make([]ModuleSnapshot, 0, g.NodeCount()),
		Dependencies: g.DependencyCount(),
		Connections:  g.ConnectionCount(),
	}

	for _, id := range g.ModuleIdentifiers() {
		node, _ := g.GetNode(id)
		_, isEntry := entries[id]

		ms := ModuleSnapshot{
			Identifier:   string(id),
			Kind:         ModuleKindNormal,
			Entry:        isEntry,
			Dependencies: identifierStrings(g.OutgoingModules(id)),
			Dependents:   identifierStrings(g.IncomingModules(id)),
		}
		if issuer, ok := node.Issuer.Identifier(); ok {
			ms.Issuer = string(issuer)
		}
		if m, ok := g.Module(id); ok {
			if nm, ok := m.(*core.NormalModule); ok {
				ms.Resource = nm.Resource
				if nm.External {
					ms.Kind = ModuleKindExternal
				}
			}
		}
		if node.ExportsInfo != nil {
			ms.Usage = node.ExportsInfo.Usage.String()
		}
		if node.Profile != nil {
			d := node.Profile.Durations()
			ms.Profile = &ProfileSnapshot{
				FactoryMs:     float64(d.Factory.Microseconds()) / 1000,
				IntegrationMs: float64(d.Integration.Microseconds()) / 1000,
				BuildingMs:    float64(d.Building.Microseconds()) / 1000,
			}
		}
		snap.Modules = append(snap.Modules, ms)
	}

	return snap
}

func identifierStrings(ids []core.ModuleIdentifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
