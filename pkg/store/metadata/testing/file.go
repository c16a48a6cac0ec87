package testing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFileTests executes all file operation tests in the suite.
func (suite *StoreTestSuite) RunFileTests(t *testing.T) {
	t.Run("Root", suite.testRoot)
	t.Run("Lookup", suite.testLookup)
	t.Run("Create", suite.testCreate)
	t.Run("Remove", suite.testRemove)
	t.Run("SetFileAttributes", suite.testSetFileAttributes)
	t.Run("ReadSymlink", suite.testReadSymlink)
	t.Run("ContextCancelled", suite.testContextCancelled)
}

// ============================================================================
// Root Tests
// ============================================================================

func (suite *StoreTestSuite) testRoot(t *testing.T) {
	store := suite.newStore(t)

	root := rootOf(t, store)
	assert.Equal(t, metadata.FileTypeDirectory, root.Type)
	assert.Equal(t, root.ID, root.Parent, "root is its own parent")
	assert.Equal(t, "/", root.Name)

	volumeID, err := store.VolumeID(testContext())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, volumeID)

	require.NoError(t, store.Healthcheck(testContext()))
}

// ============================================================================
// Lookup Tests
// ============================================================================

func (suite *StoreTestSuite) testLookup(test *testing.T) {
	test.Run("RegularFile", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "test.txt")

		found, err := store.Lookup(testContext(), root.ID, "test.txt")
		require.NoError(t, err)
		assert.Equal(t, file.ID, found.ID)
		assert.Equal(t, metadata.FileTypeRegular, found.Type)
	})

	test.Run("CurrentDirectory", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		found, err := store.Lookup(testContext(), root.ID, ".")
		require.NoError(t, err)
		assert.Equal(t, root.ID, found.ID)
	})

	test.Run("ParentDirectory", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		sub := createDir(t, store, root, "sub")

		found, err := store.Lookup(testContext(), sub.ID, "..")
		require.NoError(t, err)
		assert.Equal(t, root.ID, found.ID)

		found, err = store.Lookup(testContext(), root.ID, "..")
		require.NoError(t, err)
		assert.Equal(t, root.ID, found.ID)
	})

	test.Run("NotFound", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		_, err := store.Lookup(testContext(), root.ID, "missing")
		assert.Equal(t, metadata.ErrNotFound, metadata.CodeOf(err))
	})

	test.Run("NotDirectory", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		_, err := store.Lookup(testContext(), file.ID, "x")
		assert.Equal(t, metadata.ErrNotDirectory, metadata.CodeOf(err))
	})
}

// ============================================================================
// Create Tests
// ============================================================================

func (suite *StoreTestSuite) testCreate(test *testing.T) {
	test.Run("RegularFileDefaults", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		f, err := store.Create(testContext(), root.ID, "file", &metadata.FileAttr{Type: metadata.FileTypeRegular})
		require.NoError(t, err)
		assert.Equal(t, uint32(0o644), f.Mode)
		assert.Equal(t, uint32(1), f.Nlink)
		assert.Equal(t, metadata.ContentIDFor(f.ID), f.ContentID)
		assert.Equal(t, root.ID, f.Parent)
		assert.False(t, f.Mtime.IsZero())
	})

	test.Run("DirectoryUpdatesParentLinks", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		d := createDir(t, store, root, "dir")
		assert.Equal(t, uint32(2), d.Nlink)

		updated := rootOf(t, store)
		assert.Equal(t, root.Nlink+1, updated.Nlink)
	})

	test.Run("Symlink", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		link, err := store.Create(testContext(), root.ID, "link", &metadata.FileAttr{
			Type:       metadata.FileTypeSymlink,
			LinkTarget: "target/path",
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(len("target/path")), link.Size)
	})

	test.Run("SymlinkWithoutTarget", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		_, err := store.Create(testContext(), root.ID, "link", &metadata.FileAttr{Type: metadata.FileTypeSymlink})
		assert.Equal(t, metadata.ErrInvalidArgument, metadata.CodeOf(err))
	})

	test.Run("AlreadyExists", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		createFile(t, store, root, "dup")

		_, err := store.Create(testContext(), root.ID, "dup", &metadata.FileAttr{Type: metadata.FileTypeRegular})
		assert.Equal(t, metadata.ErrAlreadyExists, metadata.CodeOf(err))
	})

	test.Run("InvalidNames", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		for _, name := range []string{"", ".", "..", "a/b"} {
			_, err := store.Create(testContext(), root.ID, name, &metadata.FileAttr{Type: metadata.FileTypeRegular})
			assert.Equal(t, metadata.ErrInvalidArgument, metadata.CodeOf(err), "name %q", name)
		}
	})

	test.Run("InNonDirectory", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		_, err := store.Create(testContext(), file.ID, "child", &metadata.FileAttr{Type: metadata.FileTypeRegular})
		assert.Equal(t, metadata.ErrNotDirectory, metadata.CodeOf(err))
	})
}

// ============================================================================
// Remove Tests
// ============================================================================

func (suite *StoreTestSuite) testRemove(test *testing.T) {
	test.Run("File", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		removed, err := store.Remove(testContext(), root.ID, "file")
		require.NoError(t, err)
		assert.Equal(t, file.ID, removed.ID)

		_, err = store.GetFile(testContext(), file.ID)
		assert.Equal(t, metadata.ErrNotFound, metadata.CodeOf(err))

		_, err = store.Lookup(testContext(), root.ID, "file")
		assert.Equal(t, metadata.ErrNotFound, metadata.CodeOf(err))
	})

	test.Run("EmptyDirectory", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		createDir(t, store, root, "dir")

		_, err := store.Remove(testContext(), root.ID, "dir")
		require.NoError(t, err)

		assert.Equal(t, root.Nlink, rootOf(t, store).Nlink)
	})

	test.Run("NonEmptyDirectory", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		dir := createDir(t, store, root, "dir")
		createFile(t, store, dir, "child")

		_, err := store.Remove(testContext(), root.ID, "dir")
		assert.Equal(t, metadata.ErrNotEmpty, metadata.CodeOf(err))
	})

	test.Run("Missing", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		_, err := store.Remove(testContext(), root.ID, "missing")
		assert.Equal(t, metadata.ErrNotFound, metadata.CodeOf(err))
	})

	test.Run("DropsXattrs", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")
		require.NoError(t, store.SetXattr(testContext(), file.ID, "user.a", []byte("1"), metadata.XattrAny))

		_, err := store.Remove(testContext(), root.ID, "file")
		require.NoError(t, err)

		_, err = store.ListXattrs(testContext(), file.ID)
		assert.Equal(t, metadata.ErrNotFound, metadata.CodeOf(err))
	})
}

// ============================================================================
// SetFileAttributes Tests
// ============================================================================

func (suite *StoreTestSuite) testSetFileAttributes(test *testing.T) {
	test.Run("ModeOwnerSize", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		mode := uint32(0o600)
		uid := uint32(1000)
		size := uint64(42)
		updated, err := store.SetFileAttributes(testContext(), file.ID, &metadata.SetAttrs{
			Mode: &mode,
			UID:  &uid,
			Size: &size,
		})
		require.NoError(t, err)
		assert.Equal(t, mode, updated.Mode)
		assert.Equal(t, uid, updated.UID)
		assert.Equal(t, uint32(0), updated.GID)
		assert.Equal(t, size, updated.Size)

		reloaded, err := store.GetFile(testContext(), file.ID)
		require.NoError(t, err)
		assert.Equal(t, size, reloaded.Size)
	})

	test.Run("Times", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		updated, err := store.SetFileAttributes(testContext(), file.ID, &metadata.SetAttrs{Mtime: &when})
		require.NoError(t, err)
		assert.True(t, updated.Mtime.Equal(when))
	})

	test.Run("ResizeDirectory", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		size := uint64(1)
		_, err := store.SetFileAttributes(testContext(), root.ID, &metadata.SetAttrs{Size: &size})
		assert.Equal(t, metadata.ErrIsDirectory, metadata.CodeOf(err))
	})
}

func (suite *StoreTestSuite) testReadSymlink(t *testing.T) {
	store := suite.newStore(t)
	root := rootOf(t, store)

	link, err := store.Create(testContext(), root.ID, "link", &metadata.FileAttr{
		Type:       metadata.FileTypeSymlink,
		LinkTarget: "/etc/hosts",
	})
	require.NoError(t, err)

	target, err := store.ReadSymlink(testContext(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", target)

	_, err = store.ReadSymlink(testContext(), root.ID)
	assert.Equal(t, metadata.ErrInvalidArgument, metadata.CodeOf(err))
}

func (suite *StoreTestSuite) testContextCancelled(t *testing.T) {
	store := suite.newStore(t)
	root := rootOf(t, store)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := store.GetFile(ctx, root.ID)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Create(ctx, root.ID, "file", &metadata.FileAttr{Type: metadata.FileTypeRegular})
	assert.ErrorIs(t, err, context.Canceled)
}
