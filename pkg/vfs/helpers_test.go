package vfs

import (
	"context"
	"os"
	"testing"

	contentmemory "github.com/marmos91/handlefs/pkg/store/content/memory"
	"github.com/marmos91/handlefs/pkg/store/metadata/memory"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	cs, err := contentmemory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)

	s, err := NewSession(context.Background(), SessionConfig{
		Name:     "test",
		Metadata: memory.NewMemoryMetadataStoreWithDefaults(),
		Content:  cs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rootObject(t *testing.T, s *Session) *Object {
	t.Helper()
	root, _, err := s.LookupAt(context.Background(), nil, "/", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return root
}

func mkdir(t *testing.T, s *Session, parent *Object, name string) *Object {
	t.Helper()
	obj, _, err := s.Mkdir(context.Background(), parent, name, 0o755)
	require.NoError(t, err)
	t.Cleanup(func() { _ = obj.Close() })
	return obj
}

func writeFile(t *testing.T, s *Session, parent *Object, name, data string) *Object {
	t.Helper()
	ctx := context.Background()

	obj, _, err := s.Creat(ctx, parent, name, os.O_RDWR, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = obj.Close() })

	if data != "" {
		fd, err := s.Open(ctx, obj, os.O_RDWR)
		require.NoError(t, err)
		_, err = fd.Pwrite(ctx, []byte(data), 0)
		require.NoError(t, err)
		require.NoError(t, fd.Close())
	}
	return obj
}
