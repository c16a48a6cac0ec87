// Package testing provides a conformance suite for content.ContentStore
// implementations.
package testing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the content.ContentStore contract, independent of
// the backend (memory, filesystem, S3).
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) content.ContentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadOperations", suite.RunReadTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("Statistics", suite.RunStatsTests)
}

func testContext() context.Context {
	return context.Background()
}

// RunReadTests covers ReadAt, GetContentSize and ContentExists.
func (suite *StoreTestSuite) RunReadTests(test *testing.T) {
	test.Run("MissingContent", func(t *testing.T) {
		store := suite.NewStore(t)

		_, err := store.ReadAt(testContext(), "missing", make([]byte, 4), 0)
		assert.True(t, errors.Is(err, content.ErrContentNotFound))

		_, err = store.GetContentSize(testContext(), "missing")
		assert.True(t, errors.Is(err, content.ErrContentNotFound))

		exists, err := store.ContentExists(testContext(), "missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	test.Run("FullAndPartialRead", func(t *testing.T) {
		store := suite.NewStore(t)
		id := metadata.ContentID("read-test")
		require.NoError(t, store.WriteAt(testContext(), id, []byte("hello world"), 0))

		buf := make([]byte, 5)
		n, err := store.ReadAt(testContext(), id, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))

		buf = make([]byte, 10)
		n, err = store.ReadAt(testContext(), id, buf, 6)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf[:n]))
	})

	test.Run("ReadPastEnd", func(t *testing.T) {
		store := suite.NewStore(t)
		id := metadata.ContentID("eof-test")
		require.NoError(t, store.WriteAt(testContext(), id, []byte("abc"), 0))

		n, err := store.ReadAt(testContext(), id, make([]byte, 4), 10)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, 0, n)
	})

	test.Run("NegativeOffset", func(t *testing.T) {
		store := suite.NewStore(t)

		_, err := store.ReadAt(testContext(), "x", make([]byte, 1), -1)
		assert.True(t, errors.Is(err, content.ErrInvalidOffset))
	})
}

// RunWriteTests covers WriteAt, Truncate and Delete.
func (suite *StoreTestSuite) RunWriteTests(test *testing.T) {
	test.Run("WriteAtGapZeroFills", func(t *testing.T) {
		store := suite.NewStore(t)
		id := metadata.ContentID("gap-test")

		require.NoError(t, store.WriteAt(testContext(), id, []byte("xy"), 3))

		size, err := store.GetContentSize(testContext(), id)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), size)

		buf := make([]byte, 5)
		_, err = store.ReadAt(testContext(), id, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 'x', 'y'}, buf)
	})

	test.Run("OverwriteMiddle", func(t *testing.T) {
		store := suite.NewStore(t)
		id := metadata.ContentID("overwrite-test")

		require.NoError(t, store.WriteAt(testContext(), id, []byte("aaaaaa"), 0))
		require.NoError(t, store.WriteAt(testContext(), id, []byte("bb"), 2))

		buf := make([]byte, 6)
		_, err := store.ReadAt(testContext(), id, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "aabbaa", string(buf))
	})

	test.Run("TruncateShrinkAndGrow", func(t *testing.T) {
		store := suite.NewStore(t)
		id := metadata.ContentID("truncate-test")

		require.NoError(t, store.WriteAt(testContext(), id, []byte("abcdef"), 0))
		require.NoError(t, store.Truncate(testContext(), id, 3))

		size, err := store.GetContentSize(testContext(), id)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), size)

		require.NoError(t, store.Truncate(testContext(), id, 5))
		buf := make([]byte, 5)
		_, err = store.ReadAt(testContext(), id, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte{'a', 'b', 'c', 0, 0}, buf)
	})

	test.Run("TruncateCreates", func(t *testing.T) {
		store := suite.NewStore(t)
		id := metadata.ContentID("truncate-create")

		require.NoError(t, store.Truncate(testContext(), id, 2))
		exists, err := store.ContentExists(testContext(), id)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	test.Run("DeleteIsIdempotent", func(t *testing.T) {
		store := suite.NewStore(t)
		id := metadata.ContentID("delete-test")

		require.NoError(t, store.WriteAt(testContext(), id, []byte("x"), 0))
		require.NoError(t, store.Delete(testContext(), id))
		require.NoError(t, store.Delete(testContext(), id))

		exists, err := store.ContentExists(testContext(), id)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

// RunStatsTests covers GetStorageStats and, when supported, ListAllContent.
func (suite *StoreTestSuite) RunStatsTests(t *testing.T) {
	store := suite.NewStore(t)

	require.NoError(t, store.WriteAt(testContext(), "a", []byte("1234"), 0))
	require.NoError(t, store.WriteAt(testContext(), "b", []byte("12"), 0))

	stats, err := store.GetStorageStats(testContext())
	require.NoError(t, err)
	assert.Equal(t, uint64(6), stats.UsedSize)
	assert.Equal(t, uint64(2), stats.ContentCount)
	assert.Equal(t, uint64(3), stats.AverageSize)

	gc, ok := store.(content.GarbageCollectableStore)
	if !ok {
		return
	}
	ids, err := gc.ListAllContent(testContext())
	require.NoError(t, err)
	assert.ElementsMatch(t, []metadata.ContentID{"a", "b"}, ids)
}
