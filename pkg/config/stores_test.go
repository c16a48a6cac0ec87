package config

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMetadataStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory with fixed volume id", func(t *testing.T) {
		id := uuid.New()
		store, err := CreateMetadataStore(ctx, &MetadataConfig{
			Type:   "memory",
			Memory: map[string]any{"volume_id": id.String()},
		})
		require.NoError(t, err)
		defer store.Close()

		got, err := store.VolumeID(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("memory with bad volume id", func(t *testing.T) {
		_, err := CreateMetadataStore(ctx, &MetadataConfig{
			Type:   "memory",
			Memory: map[string]any{"volume_id": "not-a-uuid"},
		})
		assert.ErrorContains(t, err, "volume_id")
	})

	t.Run("badger on disk", func(t *testing.T) {
		store, err := CreateMetadataStore(ctx, &MetadataConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": t.TempDir()},
		})
		require.NoError(t, err)
		require.NoError(t, store.Healthcheck(ctx))
		require.NoError(t, store.Close())
	})

	t.Run("badger without path", func(t *testing.T) {
		_, err := CreateMetadataStore(ctx, &MetadataConfig{Type: "badger", Badger: map[string]any{}})
		assert.ErrorContains(t, err, "db_path is required")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := CreateMetadataStore(ctx, &MetadataConfig{Type: "etcd"})
		assert.ErrorContains(t, err, "unknown metadata store type")
	})
}

func TestCreateContentStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := CreateContentStore(ctx, &ContentConfig{Type: "memory"})
		require.NoError(t, err)
		require.NoError(t, store.WriteAt(ctx, "id", []byte("x"), 0))
	})

	t.Run("filesystem", func(t *testing.T) {
		store, err := CreateContentStore(ctx, &ContentConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": t.TempDir()},
		})
		require.NoError(t, err)
		exists, err := store.ContentExists(ctx, "id")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("filesystem without path", func(t *testing.T) {
		_, err := CreateContentStore(ctx, &ContentConfig{Type: "filesystem", Filesystem: map[string]any{}})
		assert.ErrorContains(t, err, "path is required")
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		_, err := CreateContentStore(ctx, &ContentConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}})
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("s3 without region", func(t *testing.T) {
		_, err := CreateContentStore(ctx, &ContentConfig{Type: "s3", S3: map[string]any{"bucket": "b"}})
		assert.ErrorContains(t, err, "region is required")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := CreateContentStore(ctx, &ContentConfig{Type: "tape"})
		assert.ErrorContains(t, err, "unknown content store type")
	})
}

func TestInitializeMetricsDisabled(t *testing.T) {
	res := InitializeMetrics(GetDefaultConfig())
	assert.Nil(t, res.Server)
	assert.NotNil(t, res.VFS)
	assert.NotNil(t, res.Traversal)
}
