package commands

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbundle/internal/cli/output"
	"github.com/leapstack-labs/leapbundle/internal/engine"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the assembled module graph",
		Long: `Run one generation and print every module with its issuer, the modules it
depends on and the modules that depend on it.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: JSON

Use --output to override: auto, text, json, yaml`,
		Example: `  # Show the graph as a table
  leapbundle graph -o text

  # Export the graph for another tool
  leapbundle graph -o json > graph.json

  # Include usage states and timings
  leapbundle graph --tree-shaking --profile -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd)
		},
	}

	return cmd
}

func runGraph(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := cmdCtx.Engine.Make(cmd.Context()); err != nil {
		return err
	}

	snap := cmdCtx.Engine.Snapshot()
	r := cmdCtx.Renderer
	if r.EffectiveMode() != output.ModeText {
		return r.Encode(snap)
	}

	graphText(r, snap, cmdCtx.Cfg.Context)
	return nil
}

// graphText renders the snapshot as a table with paths shown relative to root.
func graphText(r *output.Renderer, snap *engine.GraphSnapshot, root string) {
	rows := make([]table.Row, 0, len(snap.Modules))
	for _, m := range snap.Modules {
		name := display(m.Identifier, root, m.Kind)
		if m.Entry {
			name += " (entry)"
		}
		issuer := "-"
		if m.Issuer != "" {
			issuer = display(m.Issuer, root, engine.ModuleKindNormal)
		}
		usage := m.Usage
		if usage == "" {
			usage = "-"
		}
		rows = append(rows, table.Row{name, m.Kind, issuer, len(m.Dependencies), len(m.Dependents), usage})
	}

	r.Table(fmt.Sprintf("Modules (%d total)", len(snap.Modules)),
		table.Row{"Module", "Kind", "Issuer", "Deps", "Dependents", "Usage"}, rows)
	r.Printf("%d dependencies, %d connections\n", snap.Dependencies, snap.Connections)
}

func display(id, root, kind string) string {
	if kind == engine.ModuleKindExternal || root == "" {
		return id
	}
	if rel, err := filepath.Rel(root, id); err == nil {
		return filepath.ToSlash(rel)
	}
	return id
}
