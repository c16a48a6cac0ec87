package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	body := string(data)
	for _, section := range []string{
		"# handlefs Configuration File",
		"logging:",
		"volume:",
		"metadata:",
		"content:",
		"traversal:",
		"metrics:",
	} {
		assert.True(t, strings.Contains(body, section), "missing section %s", section)
	}

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed), "generated config must be valid YAML")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig().Volume.Name, cfg.Volume.Name)
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(false)
	assert.ErrorContains(t, err, "already exists")

	_, err = InitConfig(true)
	assert.NoError(t, err)
}

func TestWriteDefaultConfig_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path, false))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
