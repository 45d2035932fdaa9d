package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/leapbundle/internal/config"
)

// configKey is used to store the config in a context.
type configKey struct{}

// loggerKey is used to store the logger in a context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree we search for a config file.
const maxUpwardSearchLevels = 10

var configFileUsed string

// flagKeys maps flag names to config keys where kebab-to-snake is not enough.
var flagKeys = map[string]string{
	"tree-shaking": "optimization.tree_shaking",
	"cache":        "cache.enabled",
	"cache-path":   "cache.path",
	"plugin":       "plugins",
	"external":     "externals",
}

// pathFlags are resolved against the working directory rather than the project root.
var pathFlags = []string{"context", "cache-path", "metrics-file"}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"context":    intconfig.DefaultContext,
		"mode":       intconfig.DefaultMode,
		"cache.path": intconfig.DefaultCachePath,
		"verbose":    false,
		"output":     DefaultOutput,
		"log_format": DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file; its directory becomes the project root
	projectRoot, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if cfgFile != "" {
		absPath, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("invalid config path %s: %w", cfgFile, err)
		}
		configFileUsed = absPath
	} else if root := findProjectRootUpward(projectRoot); root != "" {
		configFileUsed = intconfig.FindConfigFile(root)
	}
	if configFileUsed != "" {
		projectRoot = filepath.Dir(configFileUsed)
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (LEAPBUNDLE_ prefix)
	// Transform: LEAPBUNDLE_CACHE__PATH -> cache.path
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			// Entries are applied after decoding so they replace the file's entries
			if !f.Changed || f.Name == "entry" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, intconfig.UnmarshalConf(&cfg)); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if flags != nil && flags.Changed("entry") {
		entries, err := flags.GetStringToString("entry")
		if err != nil {
			return nil, fmt.Errorf("invalid --entry: %w", err)
		}
		cfg.Entry = entries
	}

	// 6. Paths given as flags are relative to the working directory; the rest
	// are anchored at the project root.
	for _, name := range pathFlags {
		absFlagPath(flags, name, &cfg)
	}
	cfg.ProjectRoot = projectRoot
	cfg.ApplyDefaults()
	cfg.ResolvePaths(projectRoot)
	if cfg.MetricsFile != "" && !filepath.IsAbs(cfg.MetricsFile) {
		cfg.MetricsFile = filepath.Join(projectRoot, cfg.MetricsFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	// Transform kebab-case to snake_case for config keys
	return strings.ReplaceAll(name, "-", "_")
}

func absFlagPath(flags *pflag.FlagSet, name string, cfg *Config) {
	if flags == nil || !flags.Changed(name) {
		return
	}
	var target *string
	switch name {
	case "context":
		target = &cfg.Context
	case "cache-path":
		target = &cfg.Cache.Path
	case "metrics-file":
		target = &cfg.MetricsFile
	default:
		return
	}
	if *target == "" || *target == ":memory:" || filepath.IsAbs(*target) {
		return
	}
	if abs, err := filepath.Abs(*target); err == nil {
		*target = abs
	}
}

// findProjectRootUpward walks up from startDir looking for a config file,
// stopping after maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if intconfig.FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}

// GetConfigFileUsed returns the path to the config file loaded last, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	return cfg, ok
}

// NewLogger builds the CLI logger. Verbose enables debug records; otherwise
// only warnings and errors are written.
func NewLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
