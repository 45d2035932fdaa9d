// Package config provides configuration management for the LeapBundle CLI.
//
// It layers CLI-only settings (output, logging, metrics) on top of the
// compiler options from internal/config and loads them from defaults, the
// project config file, LEAPBUNDLE_ environment variables and flags.
package config

import (
	"fmt"

	"github.com/leapstack-labs/leapbundle/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapbundle/internal/config"
)

// Default CLI values.
const (
	DefaultOutput    = "auto"
	DefaultLogFormat = "text"
	EnvPrefix        = "LEAPBUNDLE_"
)

// Config holds all CLI configuration options.
type Config struct {
	intconfig.CompilerOptions `koanf:",squash"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	LogFormat    string `koanf:"log_format"`
	MetricsFile  string `koanf:"metrics_file"`

	// ProjectRoot is the directory relative paths were resolved against
	ProjectRoot string `koanf:"-"`
}

// Options returns the compiler options for the engine.
func (c *Config) Options() *intconfig.CompilerOptions {
	return &c.CompilerOptions
}

// Validate checks the CLI-only settings. Compiler options are validated by the engine.
func (c *Config) Validate() error {
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", c.LogFormat)
	}
	return nil
}
