package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:   LoggingConfig{Level: "error"},
		Volume:    VolumeConfig{Name: "mine", VolfileServers: []VolfileServerConfig{{Host: "h", Proto: "RDMA", Port: 1}}},
		Metadata:  MetadataConfig{Type: "badger", Badger: map[string]any{"db_path": "/data"}},
		Content:   ContentConfig{Type: "s3", S3: map[string]any{"region": "eu-west-1"}},
		Traversal: TraversalConfig{MaxDepth: 2},
		Metrics:   MetricsConfig{Addr: "127.0.0.1:9100"},
	}

	ApplyDefaults(cfg)

	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, "mine", cfg.Volume.Name)
	assert.Equal(t, VolfileServerConfig{Host: "h", Proto: "rdma", Port: 1}, cfg.Volume.VolfileServers[0])
	assert.Equal(t, "/data", cfg.Metadata.Badger["db_path"])
	assert.Equal(t, "eu-west-1", cfg.Content.S3["region"])
	assert.Equal(t, 2, cfg.Traversal.MaxDepth)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, defaultVolumeName, cfg.Volume.Name)
	assert.Equal(t, "memory", cfg.Metadata.Type)
	assert.Equal(t, defaultBadgerPath, cfg.Metadata.Badger["db_path"])
	assert.Equal(t, "memory", cfg.Content.Type)
	assert.Equal(t, defaultFilesystemPath, cfg.Content.Filesystem["path"])
	assert.Equal(t, defaultS3Region, cfg.Content.S3["region"])
	assert.NotNil(t, cfg.Content.Memory)
	assert.NotNil(t, cfg.Metadata.Memory)
	assert.Equal(t, -1, cfg.Traversal.MaxDepth)
	assert.Equal(t, defaultMetricsAddr, cfg.Metrics.Addr)
}

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.True(t, cfg.Traversal.Recurse)
	assert.True(t, cfg.Traversal.Stat)
	assert.False(t, cfg.Metrics.Enabled)
}
