package handle

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"

	contentmemory "github.com/marmos91/handlefs/pkg/store/content/memory"
	"github.com/marmos91/handlefs/pkg/store/metadata/memory"
	"github.com/marmos91/handlefs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(t *testing.T) (*vfs.Session, *Handle) {
	t.Helper()
	ctx := context.Background()

	cs, err := contentmemory.NewMemoryContentStore(ctx)
	require.NoError(t, err)
	s, err := vfs.NewSession(ctx, vfs.SessionConfig{
		Name:     "test",
		Metadata: memory.NewMemoryMetadataStoreWithDefaults(),
		Content:  cs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	obj, st, err := s.LookupAt(ctx, nil, "/", true)
	require.NoError(t, err)
	root := New(s, obj, "/", st)
	t.Cleanup(func() { _ = root.Close() })
	return s, root
}

func TestHandleIdentity(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)

	d, err := root.Mkdir(ctx, "dir", nil)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "dir", d.Name())
	assert.Len(t, d.UUID(), 36)
	assert.Equal(t, vfs.FileTypeDirectory, d.FileType())

	again, err := root.Lookup(ctx, "dir", nil)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, d.UUID(), again.UUID())
	assert.Equal(t, d.ID(), again.ID())
}

func TestCachedStatIsNotRefreshedImplicitly(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)

	f, err := root.Create(ctx, "f", os.O_RDWR, nil)
	require.NoError(t, err)
	defer f.Close()
	require.NotNil(t, f.CachedStat())
	assert.Equal(t, int64(0), f.CachedStat().Size)
	assert.Equal(t, uint32(DefaultFileMode), f.CachedStat().Mode&0o777)

	fd, err := f.Open(ctx, os.O_RDWR)
	require.NoError(t, err)
	_, err = fd.Pwrite(ctx, []byte("12345"), 0)
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	assert.Equal(t, int64(0), f.CachedStat().Size, "cache holds the create-time stat")

	st, err := f.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)
	assert.Equal(t, int64(5), f.CachedStat().Size)
}

func TestLookupWithoutStat(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)

	d, err := root.Mkdir(ctx, "d", &MkdirOptions{Stat: false, Mode: 0o700})
	require.NoError(t, err)
	defer d.Close()
	assert.Nil(t, d.CachedStat())
	assert.Equal(t, vfs.FileTypeUnknown, d.FileType())

	h, err := root.Lookup(ctx, "d", &LookupOptions{Stat: false, FollowSymlink: true})
	require.NoError(t, err)
	defer h.Close()
	assert.Nil(t, h.CachedStat())

	st, err := h.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, vfs.ModeDir|0o700, st.Mode)
}

func TestLookupSymlinkOptions(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)

	f, err := root.Create(ctx, "target", os.O_RDWR, nil)
	require.NoError(t, err)
	defer f.Close()

	l, err := root.Symlink(ctx, "link", "target", true)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, vfs.FileTypeSymlink, l.FileType())

	followed, err := root.Lookup(ctx, "link", nil)
	require.NoError(t, err)
	defer followed.Close()
	assert.Equal(t, f.UUID(), followed.UUID())

	raw, err := root.Lookup(ctx, "link", &LookupOptions{Stat: true})
	require.NoError(t, err)
	defer raw.Close()
	assert.Equal(t, l.UUID(), raw.UUID())
	assert.Equal(t, vfs.FileTypeSymlink, raw.FileType())
}

func TestCreateExclusive(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)

	f, err := root.Create(ctx, "f", os.O_RDWR|os.O_EXCL, nil)
	require.NoError(t, err)
	defer f.Close()

	_, err = root.Create(ctx, "f", os.O_RDWR|os.O_EXCL, nil)
	assert.True(t, errors.Is(err, syscall.EEXIST), "got %v", err)
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)

	f, err := root.Create(ctx, "f", os.O_RDWR, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, root.Unlink(ctx, "f"))
	_, err = root.Lookup(ctx, "f", nil)
	assert.True(t, errors.Is(err, syscall.ENOENT))
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, root := newRoot(t)
	base := s.Outstanding()

	d, err := root.Mkdir(ctx, "d", nil)
	require.NoError(t, err)
	assert.Equal(t, base.Objects+1, s.Outstanding().Objects)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, base, s.Outstanding())
	assert.True(t, d.Closed())

	_, err = d.Stat(ctx)
	assert.True(t, errors.Is(err, syscall.EBADF))
	_, err = d.Open(ctx, os.O_RDONLY)
	assert.True(t, errors.Is(err, syscall.EBADF), "open on a closed handle")
	_, err = d.Dup()
	assert.True(t, errors.Is(err, syscall.EBADF))
}

func TestDupIsIndependent(t *testing.T) {
	ctx := context.Background()
	s, root := newRoot(t)
	base := s.Outstanding()

	dup, err := root.Dup()
	require.NoError(t, err)
	assert.Equal(t, base.Objects+1, s.Outstanding().Objects)
	assert.Equal(t, root.UUID(), dup.UUID())
	assert.Equal(t, root.Name(), dup.Name())

	require.NoError(t, dup.Close())
	_, err = root.Stat(ctx)
	require.NoError(t, err, "closing the duplicate leaves the original usable")
	assert.Equal(t, base, s.Outstanding())
}

func TestContents(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)

	f, err := root.Create(ctx, "file", os.O_RDWR, nil)
	require.NoError(t, err)
	defer f.Close()
	fd, err := f.Open(ctx, os.O_WRONLY)
	require.NoError(t, err)
	_, err = fd.Pwrite(ctx, []byte("payload"), 0)
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	d, err := root.Mkdir(ctx, "dir", nil)
	require.NoError(t, err)
	defer d.Close()
	l, err := root.Symlink(ctx, "link", "file", false)
	require.NoError(t, err)
	defer l.Close()

	c, err := f.Contents(ctx)
	require.NoError(t, err)
	assert.Equal(t, vfs.FileTypeRegular, c.Type)
	assert.Equal(t, "payload", string(c.Data))

	c, err = d.Contents(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Names)

	c, err = root.Contents(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"file", "dir", "link"}, c.Names)

	c, err = l.Contents(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file", c.Target)
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, root := newRoot(t)

	d, err := root.Mkdir(ctx, "d", nil)
	require.NoError(t, err)
	defer d.Close()

	blob, err := d.Export()
	require.NoError(t, err)

	exp, err := DecodeExported(blob)
	require.NoError(t, err)
	assert.Equal(t, s.VolumeID(), exp.Volume)
	assert.Equal(t, d.UUID(), exp.Object.String())
	assert.Equal(t, vfs.FileTypeDirectory, exp.Type)

	_, err = DecodeExported([]byte("garbage"))
	assert.True(t, errors.Is(err, syscall.EINVAL))

	bad := append([]byte{}, blob...)
	bad[0] ^= 0xff
	_, err = DecodeExported(bad)
	assert.True(t, errors.Is(err, syscall.EINVAL))
}
