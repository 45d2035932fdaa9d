package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leapbundle.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leapbundle.yml"

// UnmarshalConf returns the koanf decode settings shared by every loader:
// comma separated strings become slices and "30s" style strings become durations.
func UnmarshalConf(out any) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           out,
			WeaklyTypedInput: true,
		},
	}
}

// LoadFromDir loads CompilerOptions from the config file in dir.
// Returns nil, nil if no config file is found (not an error condition).
// Relative context and cache paths are resolved against dir.
func LoadFromDir(dir string) (*CompilerOptions, error) {
	configPath := FindConfigFile(dir)
	if configPath == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	var opts CompilerOptions
	if err := k.UnmarshalWithConf("", &opts, UnmarshalConf(&opts)); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	opts.ApplyDefaults()
	opts.ResolvePaths(dir)

	return &opts, nil
}

// ResolvePaths anchors relative context and cache paths at baseDir.
func (o *CompilerOptions) ResolvePaths(baseDir string) {
	o.Context = resolvePathRelativeTo(o.Context, baseDir)
	o.Cache.Path = resolvePathRelativeTo(o.Cache.Path, baseDir)
}

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing leapbundle.yaml or leapbundle.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, already absolute, or ":memory:".
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
