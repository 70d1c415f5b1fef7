// Package config reads the optional supercalc.yaml that sits next to the
// executable. A missing file means defaults. The plugin directory is not
// configurable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file in the executable's directory.
const FileName = "supercalc.yaml"

// Defaults applied when a key is not set.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

var (
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")

	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
	validLoaders = []string{"native", "wasm", "extism"}
)

// Log holds logging options.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Discovery holds plugin discovery options.
type Discovery struct {
	Sort *bool `yaml:"sort,omitempty"`
}

// Config contains configuration for supercalc.
type Config struct {
	Log       Log       `yaml:"log,omitempty"`
	Discovery Discovery `yaml:"discovery,omitempty"`
	// Loaders restricts and orders the loader backends. Empty means all of
	// them in the default order.
	Loaders []string `yaml:"loaders,omitempty"`

	path string
}

// Validate checks that all configured values are acceptable.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.Log.Level != "" && !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("%w: log.level must be one of %v, got %q",
			ErrInvalidValue, validLevels, c.Log.Level)
	}
	if c.Log.Format != "" && !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("%w: log.format must be one of %v, got %q",
			ErrInvalidValue, validFormats, c.Log.Format)
	}
	for _, kind := range c.Loaders {
		if !slices.Contains(validLoaders, kind) {
			return fmt.Errorf("%w: loaders must be a subset of %v, got %q",
				ErrInvalidValue, validLoaders, kind)
		}
	}
	return nil
}

// LogLevel returns the log level (defaults to info).
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return DefaultLogLevel
	}
	return c.Log.Level
}

// LogFormat returns the log format (defaults to text).
func (c *Config) LogFormat() string {
	if c.Log.Format == "" {
		return DefaultLogFormat
	}
	return c.Log.Format
}

// SortDiscovery returns whether candidates are loaded in file-name order
// (defaults to false, directory order).
func (c *Config) SortDiscovery() bool {
	if c.Discovery.Sort == nil {
		return false
	}
	return *c.Discovery.Sort
}

// Path returns the file this config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// DefaultPath returns the config path for an executable living in exeDir.
func DefaultPath(exeDir string) string {
	return filepath.Join(exeDir, FileName)
}

// Load reads configuration from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: malformed config file %s: %v", ErrInvalidValue, path, err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}
