package gc

import (
	"context"
	"os"
	"testing"

	"github.com/marmos91/handlefs/pkg/store/content"
	contentmemory "github.com/marmos91/handlefs/pkg/store/content/memory"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/marmos91/handlefs/pkg/store/metadata/memory"
	"github.com/marmos91/handlefs/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newVolume returns a volume holding /dir/kept with data and an orphaned
// content item.
func newVolume(t *testing.T) (*volume.Volume, metadata.ContentID) {
	t.Helper()
	ctx := context.Background()

	cs, err := contentmemory.NewMemoryContentStore(ctx)
	require.NoError(t, err)
	vol, err := volume.Open(ctx, volume.Options{
		Name:     "gc-test",
		Metadata: memory.NewMemoryMetadataStoreWithDefaults(),
		Content:  cs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vol.Close() })

	root, err := vol.RootHandle(ctx)
	require.NoError(t, err)
	defer root.Close()

	dir, err := root.Mkdir(ctx, "dir", nil)
	require.NoError(t, err)
	defer dir.Close()

	f, err := dir.Create(ctx, "kept", os.O_RDWR, nil)
	require.NoError(t, err)
	defer f.Close()
	fd, err := f.Open(ctx, os.O_WRONLY)
	require.NoError(t, err)
	_, err = fd.Pwrite(ctx, []byte("data"), 0)
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	orphan := metadata.ContentID("orphan")
	require.NoError(t, cs.WriteAt(ctx, orphan, []byte("lost"), 0))
	return vol, orphan
}

func TestCollectorDeletesOrphans(t *testing.T) {
	ctx := context.Background()
	vol, orphan := newVolume(t)
	meta, cs := vol.Session().Stores()

	c, err := NewCollector(meta, cs, Config{BatchSize: 1})
	require.NoError(t, err)

	stats, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ReferencedCount)
	assert.Equal(t, uint64(2), stats.ExistingCount)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Equal(t, uint64(1), stats.DeletedCount)
	assert.Zero(t, stats.FailedCount)
	assert.Contains(t, stats.Summary(), "orphaned=1")

	exists, err := cs.ContentExists(ctx, orphan)
	require.NoError(t, err)
	assert.False(t, exists)

	root, err := vol.RootHandle(ctx)
	require.NoError(t, err)
	defer root.Close()
	kept, err := root.Lookup(ctx, "dir/kept", nil)
	require.NoError(t, err)
	defer kept.Close()
	contents, err := kept.Contents(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data", string(contents.Data))

	stats, err = c.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.OrphanedCount)
}

func TestCollectorDryRun(t *testing.T) {
	ctx := context.Background()
	vol, orphan := newVolume(t)
	meta, cs := vol.Session().Stores()

	c, err := NewCollector(meta, cs, Config{DryRun: true})
	require.NoError(t, err)

	stats, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Zero(t, stats.DeletedCount)

	exists, err := cs.ContentExists(ctx, orphan)
	require.NoError(t, err)
	assert.True(t, exists)
}

type opaqueStore struct {
	content.ContentStore
}

func TestCollectorRequiresListing(t *testing.T) {
	cs, err := contentmemory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)

	_, err = NewCollector(memory.NewMemoryMetadataStoreWithDefaults(), opaqueStore{cs}, Config{})
	assert.ErrorContains(t, err, "GarbageCollectableStore")
}

func TestCollectorCancelled(t *testing.T) {
	vol, _ := newVolume(t)
	meta, cs := vol.Session().Stores()

	c, err := NewCollector(meta, cs, Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

