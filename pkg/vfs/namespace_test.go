package vfs

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupAt(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	root := rootObject(t, s)

	a := mkdir(t, s, root, "a")
	b := mkdir(t, s, a, "b")
	file := writeFile(t, s, b, "file", "data")
	_, _, err := s.Symlink(ctx, root, "abs", "/a/b")
	require.NoError(t, err)
	_, _, err = s.Symlink(ctx, a, "rel", "b/file")
	require.NoError(t, err)

	tests := []struct {
		name   string
		parent *Object
		path   string
		follow bool
		want   [16]byte
		errno  syscall.Errno
	}{
		{name: "single component", parent: root, path: "a", follow: true, want: a.ID()},
		{name: "multi component", parent: root, path: "a/b/file", follow: true, want: file.ID()},
		{name: "absolute ignores parent", parent: b, path: "/a", follow: true, want: a.ID()},
		{name: "dot and dotdot", parent: b, path: "./../b/./file", follow: true, want: file.ID()},
		{name: "root dotdot is root", parent: root, path: "..", follow: true, want: root.ID()},
		{name: "nil parent uses cwd", parent: nil, path: "a/b", follow: true, want: b.ID()},
		{name: "absolute symlink followed", parent: root, path: "abs/file", follow: true, want: file.ID()},
		{name: "relative symlink followed", parent: a, path: "rel", follow: true, want: file.ID()},
		{name: "missing", parent: root, path: "a/nope", follow: true, errno: syscall.ENOENT},
		{name: "through a file", parent: root, path: "a/b/file/x", follow: true, errno: syscall.ENOTDIR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, st, err := s.LookupAt(ctx, tt.parent, tt.path, tt.follow)
			if tt.errno != 0 {
				assert.True(t, errors.Is(err, tt.errno), "got %v", err)
				return
			}
			require.NoError(t, err)
			defer obj.Close()
			assert.Equal(t, tt.want, obj.ID())
			assert.NotNil(t, st)
		})
	}
}

func TestLookupNoFollowReturnsSymlink(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	root := rootObject(t, s)
	mkdir(t, s, root, "dir")

	link, _, err := s.Symlink(ctx, root, "link", "dir")
	require.NoError(t, err)
	defer link.Close()

	obj, st, err := s.LookupAt(ctx, root, "link", false)
	require.NoError(t, err)
	defer obj.Close()

	assert.Equal(t, link.ID(), obj.ID())
	assert.Equal(t, FileTypeSymlink, st.FileType())
	assert.Equal(t, int64(len("dir")), st.Size)

	target, err := s.Readlink(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, "dir", target)
}

func TestSymlinkLoop(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	root := rootObject(t, s)

	for _, l := range [][2]string{{"ping", "pong"}, {"pong", "ping"}} {
		obj, _, err := s.Symlink(ctx, root, l[0], l[1])
		require.NoError(t, err)
		require.NoError(t, obj.Close())
	}

	_, _, err := s.LookupAt(ctx, root, "ping", true)
	assert.True(t, errors.Is(err, syscall.ELOOP), "got %v", err)
}

func TestCreat(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	root := rootObject(t, s)

	first := writeFile(t, s, root, "f", "contents")

	_, _, err := s.Creat(ctx, root, "f", os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	assert.True(t, errors.Is(err, syscall.EEXIST), "got %v", err)

	again, st, err := s.Creat(ctx, root, "f", os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), again.ID())
	assert.Equal(t, int64(8), st.Size)
	require.NoError(t, again.Close())

	trunc, st, err := s.Creat(ctx, root, "f", os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Size)
	require.NoError(t, trunc.Close())

	mkdir(t, s, root, "d")
	_, _, err = s.Creat(ctx, root, "d", os.O_RDWR|os.O_CREATE, 0o644)
	assert.True(t, errors.Is(err, syscall.EISDIR), "got %v", err)

	_, _, err = s.Creat(ctx, root, "bad/name", os.O_RDWR, 0o644)
	assert.True(t, errors.Is(err, syscall.EINVAL), "got %v", err)

	_, _, err = s.Creat(ctx, root, strings.Repeat("x", 256), os.O_RDWR, 0o644)
	assert.True(t, errors.Is(err, syscall.ENAMETOOLONG), "got %v", err)
}

func TestMkdirStat(t *testing.T) {
	s := newTestSession(t)
	root := rootObject(t, s)

	obj, st, err := s.Mkdir(context.Background(), root, "d", 0o750)
	require.NoError(t, err)
	defer obj.Close()

	assert.True(t, st.IsDir())
	assert.Equal(t, ModeDir|0o750, st.Mode)
	assert.Equal(t, FileTypeDirectory, st.FileType())
	assert.NotZero(t, st.Ino)
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	root := rootObject(t, s)

	d := mkdir(t, s, root, "d")
	f := writeFile(t, s, d, "f", "payload")

	err := s.Unlink(ctx, root, "d")
	assert.True(t, errors.Is(err, syscall.ENOTEMPTY), "got %v", err)

	stats, err := s.content.GetStorageStats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.ContentCount)

	require.NoError(t, s.Unlink(ctx, d, "f"))
	stats, err = s.content.GetStorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.ContentCount, "content of removed file is deleted")

	_, err = s.Stat(ctx, f)
	assert.True(t, errors.Is(err, syscall.ENOENT))

	require.NoError(t, s.Unlink(ctx, root, "d"))
	err = s.Unlink(ctx, root, "d")
	assert.True(t, errors.Is(err, syscall.ENOENT))
}

func TestCreateFromHandle(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	root := rootObject(t, s)
	d := mkdir(t, s, root, "d")

	obj, st, err := s.CreateFromHandle(ctx, d.ID())
	require.NoError(t, err)
	defer obj.Close()
	assert.True(t, st.IsDir())

	_, _, err = s.CreateFromHandle(ctx, [16]byte{1, 2, 3})
	assert.True(t, errors.Is(err, syscall.ESTALE), "got %v", err)
}

func TestGetcwd(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	root := rootObject(t, s)

	cwd, err := s.Getcwd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/", cwd)

	a := mkdir(t, s, root, "a")
	b := mkdir(t, s, a, "b")

	fd, err := s.OpenDir(ctx, b)
	require.NoError(t, err)
	defer fd.Close()
	require.NoError(t, fd.Fchdir(ctx))

	cwd, err = s.Getcwd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/a/b", cwd)

	// relative lookups now start from /a/b
	up, _, err := s.LookupAt(ctx, nil, "..", true)
	require.NoError(t, err)
	assert.Equal(t, a.ID(), up.ID())
	require.NoError(t, up.Close())
}
