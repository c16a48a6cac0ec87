package fts

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/marmos91/handlefs/pkg/handle"
	contentmemory "github.com/marmos91/handlefs/pkg/store/content/memory"
	"github.com/marmos91/handlefs/pkg/store/metadata/memory"
	"github.com/marmos91/handlefs/pkg/volume"
	"github.com/stretchr/testify/require"
)

func openVolume(ctx context.Context) (*volume.Volume, error) {
	cs, err := contentmemory.NewMemoryContentStore(ctx)
	if err != nil {
		return nil, err
	}
	return volume.Open(ctx, volume.Options{
		Name:     "fts-test",
		Metadata: memory.NewMemoryMetadataStoreWithDefaults(),
		Content:  cs,
	})
}

// newTree opens a volume, creates paths under its root and returns the
// volume and an open root handle. Paths ending in "/" are directories.
// Parents must be listed before their children.
func newTree(t *testing.T, paths ...string) (*volume.Volume, *handle.Handle) {
	t.Helper()
	ctx := context.Background()

	vol, err := openVolume(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vol.Close() })

	root, err := vol.RootHandle(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	require.NoError(t, build(ctx, root, paths...))
	return vol, root
}

func build(ctx context.Context, root *handle.Handle, paths ...string) error {
	for _, p := range paths {
		isDir := strings.HasSuffix(p, "/")
		p = strings.TrimSuffix(p, "/")

		parent := root
		name := p
		if i := strings.LastIndex(p, "/"); i >= 0 {
			h, err := root.Lookup(ctx, p[:i], &handle.LookupOptions{})
			if err != nil {
				return err
			}
			parent, name = h, p[i+1:]
		}

		var (
			child *handle.Handle
			err   error
		)
		if isDir {
			child, err = parent.Mkdir(ctx, name, &handle.MkdirOptions{})
		} else {
			child, err = parent.Create(ctx, name, os.O_RDWR|os.O_EXCL, &handle.CreateOptions{})
		}
		if parent != root {
			_ = parent.Close()
		}
		if err != nil {
			return err
		}
		_ = child.Close()
	}
	return nil
}

// drain pulls it to exhaustion. Every yielded handle is closed when the
// test ends.
func drain(t *testing.T, it *Iterator) []*Entry {
	t.Helper()
	ctx := context.Background()

	var out []*Entry
	for {
		e, err := it.Next(ctx)
		if errors.Is(err, ErrDone) {
			return out
		}
		require.NoError(t, err)
		t.Cleanup(func() { _ = e.Handle.Close() })
		out = append(out, e)
	}
}

func closeEntries(entries []*Entry) {
	for _, e := range entries {
		_ = e.Handle.Close()
	}
}

func paths(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path()
	}
	return out
}
