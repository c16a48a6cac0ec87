package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete handlefs configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (HANDLEFS_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own option set. The Metadata and
// Content sections carry one option map per store type and only the map
// matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Volume names the volume and the session options applied at open
	Volume VolumeConfig `mapstructure:"volume" yaml:"volume"`

	// Metadata specifies the metadata store type and type-specific configuration
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Content specifies the content store type and type-specific configuration
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Traversal holds the defaults used by the walk command
	Traversal TraversalConfig `mapstructure:"traversal" yaml:"traversal"`

	// Metrics controls Prometheus collection and the metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// File redirects log output to a file. Empty means stdout.
	File string `mapstructure:"file" yaml:"file"`
}

// VolumeConfig describes the volume to open.
type VolumeConfig struct {
	// Name identifies the volume in logs and metrics
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// VolfileServers lists the management servers of the volume
	VolfileServers []VolfileServerConfig `mapstructure:"volfile_servers" yaml:"volfile_servers" validate:"dive"`

	// Xlators are translator options applied in order after connecting
	Xlators []XlatorConfig `mapstructure:"xlators" yaml:"xlators" validate:"dive"`
}

// VolfileServerConfig is one volfile server entry.
type VolfileServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" validate:"required"`

	// Proto is the transport
	// Valid values: tcp, rdma
	Proto string `mapstructure:"proto" yaml:"proto" validate:"omitempty,oneof=tcp rdma"`

	// Port defaults to 24007 when 0
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lt=65535"`
}

// XlatorConfig sets one translator option.
type XlatorConfig struct {
	Xlator string `mapstructure:"xlator" yaml:"xlator" validate:"required,oneof=performance/md-cache performance/readdir-ahead features/rate-limit protocol/client"`
	Key    string `mapstructure:"key" yaml:"key" validate:"required"`
	Value  string `mapstructure:"value" yaml:"value"`
}

// MetadataConfig specifies metadata store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// ContentConfig specifies content store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: memory, filesystem, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// TraversalConfig holds the defaults for recursive walks.
type TraversalConfig struct {
	// Recurse descends into subdirectories
	Recurse bool `mapstructure:"recurse" yaml:"recurse"`

	// Stat attaches attributes to every entry
	Stat bool `mapstructure:"stat" yaml:"stat"`

	// MaxDepth bounds recursion; negative means unbounded. 0 is invalid.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth" validate:"ne=0"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled initializes the Prometheus registry
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Addr is the listen address of the metrics endpoint
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (HANDLEFS_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location. A missing file is not an
// error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use HANDLEFS_ prefix and underscores
	// Example: HANDLEFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("HANDLEFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	defaults := GetDefaultConfig()
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("volume.name", defaults.Volume.Name)
	v.SetDefault("metadata.type", defaults.Metadata.Type)
	v.SetDefault("content.type", defaults.Content.Type)
	v.SetDefault("traversal.recurse", defaults.Traversal.Recurse)
	v.SetDefault("traversal.stat", defaults.Traversal.Stat)
	v.SetDefault("traversal.max_depth", defaults.Traversal.MaxDepth)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.addr", defaults.Metrics.Addr)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/handlefs/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "handlefs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "handlefs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
