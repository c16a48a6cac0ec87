package testing

import (
	"testing"

	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunXattrTests executes all extended attribute tests in the suite.
func (suite *StoreTestSuite) RunXattrTests(test *testing.T) {
	test.Run("SetGetList", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		require.NoError(t, store.SetXattr(testContext(), file.ID, "user.b", []byte("2"), metadata.XattrAny))
		require.NoError(t, store.SetXattr(testContext(), file.ID, "user.a", []byte("1"), metadata.XattrAny))

		value, err := store.GetXattr(testContext(), file.ID, "user.a")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), value)

		names, err := store.ListXattrs(testContext(), file.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"user.a", "user.b"}, names)
	})

	test.Run("CreateFlag", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		require.NoError(t, store.SetXattr(testContext(), file.ID, "user.a", []byte("1"), metadata.XattrCreate))
		err := store.SetXattr(testContext(), file.ID, "user.a", []byte("2"), metadata.XattrCreate)
		assert.Equal(t, metadata.ErrAlreadyExists, metadata.CodeOf(err))
	})

	test.Run("ReplaceFlag", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		err := store.SetXattr(testContext(), file.ID, "user.a", []byte("1"), metadata.XattrReplace)
		assert.Equal(t, metadata.ErrNoAttribute, metadata.CodeOf(err))

		require.NoError(t, store.SetXattr(testContext(), file.ID, "user.a", []byte("1"), metadata.XattrAny))
		require.NoError(t, store.SetXattr(testContext(), file.ID, "user.a", []byte("2"), metadata.XattrReplace))

		value, err := store.GetXattr(testContext(), file.ID, "user.a")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), value)
	})

	test.Run("Remove", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)
		file := createFile(t, store, root, "file")

		require.NoError(t, store.SetXattr(testContext(), file.ID, "user.a", []byte("1"), metadata.XattrAny))
		require.NoError(t, store.RemoveXattr(testContext(), file.ID, "user.a"))

		_, err := store.GetXattr(testContext(), file.ID, "user.a")
		assert.Equal(t, metadata.ErrNoAttribute, metadata.CodeOf(err))

		err = store.RemoveXattr(testContext(), file.ID, "user.a")
		assert.Equal(t, metadata.ErrNoAttribute, metadata.CodeOf(err))
	})

	test.Run("EmptyList", func(t *testing.T) {
		store := suite.newStore(t)
		root := rootOf(t, store)

		names, err := store.ListXattrs(testContext(), root.ID)
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
