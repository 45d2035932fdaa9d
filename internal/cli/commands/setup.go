// Package commands implements the leapbundle subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbundle/internal/cli/config"
	"github.com/leapstack-labs/leapbundle/internal/cli/output"
	"github.com/leapstack-labs/leapbundle/internal/engine"
	"github.com/leapstack-labs/leapbundle/internal/metrics"
)

// CommandContext holds common resources for command execution.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Metrics  *metrics.Metrics
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an initialized engine.
// The returned cleanup closes the engine.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}

	eng, err := engine.New(engine.Config{
		Options: cfg.Options(),
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return nil, nil, err
	}

	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		_ = eng.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Metrics:  m,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, cleanup, nil
}

// getConfig returns the configuration loaded by the root command, or loads
// it from the working directory when the command runs on its own.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg, ok := config.GetConfig(cmd.Context()); ok {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// writeMetrics writes the metrics file if one is configured.
func (c *CommandContext) writeMetrics() error {
	if c.Cfg.MetricsFile == "" {
		return nil
	}
	if err := c.Metrics.WriteToTextfile(c.Cfg.MetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	c.Logger.Debug("metrics written", "path", c.Cfg.MetricsFile)
	return nil
}
