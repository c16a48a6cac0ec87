package memory

import (
	"context"
	"testing"

	"github.com/marmos91/handlefs/pkg/store/content"
	contenttesting "github.com/marmos91/handlefs/pkg/store/content/testing"
	"github.com/stretchr/testify/require"
)

func TestMemoryContentStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.ContentStore {
			store, err := NewMemoryContentStore(context.Background())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryContentStore(ctx)
	require.NoError(t, err)

	data := []byte("abc")
	require.NoError(t, store.WriteAt(ctx, "id", data, 0))
	data[0] = 'z'

	buf := make([]byte, 3)
	_, err = store.ReadAt(ctx, "id", buf, 0)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf))
}
