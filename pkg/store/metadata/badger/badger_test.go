package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/handlefs/pkg/store/metadata"
	metatesting "github.com/marmos91/handlefs/pkg/store/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerMetadataStore(t *testing.T) {
	suite := &metatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			store, err := NewBadgerMetadataStore(context.Background(), BadgerMetadataStoreConfig{
				DBPath: filepath.Join(t.TempDir(), "metadata.db"),
			})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerInMemory(t *testing.T) {
	store, err := NewBadgerMetadataStore(context.Background(), BadgerMetadataStoreConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	root, err := store.Root(context.Background())
	require.NoError(t, err)
	assert.Equal(t, metadata.FileTypeDirectory, root.Type)
}

// TestBadgerPersistence reopens the database and checks that the volume id,
// root directory and entries survive.
func TestBadgerPersistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "metadata.db")

	store, err := NewBadgerMetadataStore(ctx, BadgerMetadataStoreConfig{DBPath: dbPath})
	require.NoError(t, err)

	volumeID, err := store.VolumeID(ctx)
	require.NoError(t, err)
	root, err := store.Root(ctx)
	require.NoError(t, err)

	file, err := store.Create(ctx, root.ID, "persisted.txt", &metadata.FileAttr{Type: metadata.FileTypeRegular})
	require.NoError(t, err)
	require.NoError(t, store.SetXattr(ctx, file.ID, "user.tag", []byte("v"), metadata.XattrAny))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerMetadataStore(ctx, BadgerMetadataStoreConfig{DBPath: dbPath})
	require.NoError(t, err)
	defer reopened.Close()

	gotVolumeID, err := reopened.VolumeID(ctx)
	require.NoError(t, err)
	assert.Equal(t, volumeID, gotVolumeID)

	gotRoot, err := reopened.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, root.ID, gotRoot.ID)

	found, err := reopened.Lookup(ctx, root.ID, "persisted.txt")
	require.NoError(t, err)
	assert.Equal(t, file.ID, found.ID)

	value, err := reopened.GetXattr(ctx, file.ID, "user.tag")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}
