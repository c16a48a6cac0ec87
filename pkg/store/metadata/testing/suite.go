// Package testing provides a conformance suite for metadata.Store
// implementations.
package testing

import (
	"context"
	"testing"

	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the metadata.Store contract.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) metadata.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. The suite closes
	// it when the test ends.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("FileOperations", suite.RunFileTests)
	t.Run("DirectoryOperations", suite.RunDirectoryTests)
	t.Run("XattrOperations", suite.RunXattrTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) metadata.Store {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testContext() context.Context {
	return context.Background()
}

func rootOf(t *testing.T, store metadata.Store) *metadata.File {
	t.Helper()
	root, err := store.Root(testContext())
	require.NoError(t, err)
	return root
}

func createFile(t *testing.T, store metadata.Store, dir *metadata.File, name string) *metadata.File {
	t.Helper()
	f, err := store.Create(testContext(), dir.ID, name, &metadata.FileAttr{
		Type: metadata.FileTypeRegular,
		Mode: 0o644,
	})
	require.NoError(t, err)
	return f
}

func createDir(t *testing.T, store metadata.Store, dir *metadata.File, name string) *metadata.File {
	t.Helper()
	f, err := store.Create(testContext(), dir.ID, name, &metadata.FileAttr{
		Type: metadata.FileTypeDirectory,
		Mode: 0o755,
	})
	require.NoError(t, err)
	return f
}
