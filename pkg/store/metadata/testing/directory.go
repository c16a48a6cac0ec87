package testing

import (
	"fmt"
	"testing"

	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDirectoryTests executes all directory listing tests in the suite.
func (suite *StoreTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("EmptyDirectory", suite.testReadEmptyDirectory)
	t.Run("SortedListing", suite.testReadDirectorySorted)
	t.Run("Pagination", suite.testReadDirectoryPagination)
	t.Run("NotDirectory", suite.testReadDirectoryNotDirectory)
}

func (suite *StoreTestSuite) testReadEmptyDirectory(t *testing.T) {
	store := suite.newStore(t)
	root := rootOf(t, store)

	page, err := store.ReadDirectory(testContext(), root.ID, "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.False(t, page.HasMore)
}

func (suite *StoreTestSuite) testReadDirectorySorted(t *testing.T) {
	store := suite.newStore(t)
	root := rootOf(t, store)

	createFile(t, store, root, "charlie")
	createDir(t, store, root, "alpha")
	createFile(t, store, root, "bravo")

	page, err := store.ReadDirectory(testContext(), root.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)

	names := []string{page.Entries[0].Name, page.Entries[1].Name, page.Entries[2].Name}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, names)
	assert.Equal(t, metadata.FileTypeDirectory, page.Entries[0].Attr.Type)
	assert.Equal(t, metadata.FileTypeRegular, page.Entries[1].Attr.Type)
}

func (suite *StoreTestSuite) testReadDirectoryPagination(t *testing.T) {
	store := suite.newStore(t)
	root := rootOf(t, store)

	const total = 7
	for i := 0; i < total; i++ {
		createFile(t, store, root, fmt.Sprintf("file-%02d", i))
	}

	var seen []string
	cookie := ""
	pages := 0
	for {
		page, err := store.ReadDirectory(testContext(), root.ID, cookie, 3)
		require.NoError(t, err)
		pages++
		for _, e := range page.Entries {
			seen = append(seen, e.Name)
		}
		cookie = page.NextCookie
		if !page.HasMore {
			break
		}
		require.Less(t, pages, 10, "pagination does not terminate")
	}

	require.Len(t, seen, total)
	for i, name := range seen {
		assert.Equal(t, fmt.Sprintf("file-%02d", i), name)
	}
	assert.Equal(t, 3, pages)
}

func (suite *StoreTestSuite) testReadDirectoryNotDirectory(t *testing.T) {
	store := suite.newStore(t)
	root := rootOf(t, store)
	file := createFile(t, store, root, "file")

	_, err := store.ReadDirectory(testContext(), file.ID, "", 0)
	assert.Equal(t, metadata.ErrNotDirectory, metadata.CodeOf(err))
}
