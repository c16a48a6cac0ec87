package config

import (
	"strings"
)

const (
	defaultVolumeName     = "handlefs"
	defaultVolfilePort    = 24007
	defaultMetricsAddr    = ":9090"
	defaultFilesystemPath = "/tmp/handlefs-content"
	defaultBadgerPath     = "/tmp/handlefs-metadata"
	defaultS3Region       = "us-east-1"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; their defaults come from GetDefaultConfig
//     through viper
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyVolumeDefaults(&cfg.Volume)
	applyMetadataDefaults(&cfg.Metadata)
	applyContentDefaults(&cfg.Content)
	applyTraversalDefaults(&cfg.Traversal)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyVolumeDefaults(cfg *VolumeConfig) {
	if cfg.Name == "" {
		cfg.Name = defaultVolumeName
	}

	for i := range cfg.VolfileServers {
		srv := &cfg.VolfileServers[i]
		srv.Proto = strings.ToLower(srv.Proto)
		if srv.Proto == "" {
			srv.Proto = "tcp"
		}
		if srv.Port == 0 {
			srv.Port = defaultVolfilePort
		}
	}
}

// applyMetadataDefaults sets metadata store defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = defaultBadgerPath
	}
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = defaultFilesystemPath
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = defaultS3Region
	}
}

func applyTraversalDefaults(cfg *TraversalConfig) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = -1
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = defaultMetricsAddr
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is used when writing a new configuration file and to seed viper's
// defaults.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Traversal: TraversalConfig{
			Recurse: true,
			Stat:    true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
