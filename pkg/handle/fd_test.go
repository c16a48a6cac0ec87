package handle

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNewFile(t *testing.T, root *Handle, name string) *FD {
	t.Helper()
	ctx := context.Background()

	h, err := root.Create(ctx, name, os.O_RDWR, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	fd, err := h.Open(ctx, os.O_RDWR)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fd.Close() })
	return fd
}

func TestFDCloseKeepsHandle(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)
	fd := openNewFile(t, root, "f")

	require.NoError(t, fd.Close())
	assert.True(t, errors.Is(fd.Close(), syscall.EBADF), "close runs once")

	_, err := fd.Handle().Stat(ctx)
	require.NoError(t, err)
	assert.False(t, fd.Handle().Closed())
}

func TestPreadValidation(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)
	fd := openNewFile(t, root, "f")

	_, err := fd.Pwrite(ctx, []byte("abcdef"), 0)
	require.NoError(t, err)

	data, err := fd.Pread(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, "cde", string(data))

	data, err = fd.Pread(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = fd.Pread(ctx, -1, 0)
	assert.True(t, errors.Is(err, syscall.EINVAL))
}

func TestFchown(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)
	fd := openNewFile(t, root, "f")

	require.NoError(t, fd.Fchown(ctx, 10, 20))
	require.NoError(t, fd.Fchown(ctx, -1, 30))

	st, err := fd.Fstat(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), st.UID, "-1 keeps the uid")
	assert.Equal(t, uint32(30), st.GID)

	assert.True(t, errors.Is(fd.Fchown(ctx, -2, 0), syscall.EINVAL))
}

func TestPosixLockValidation(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)
	fd := openNewFile(t, root, "f")

	tests := []struct {
		name string
		cmd  int
		req  LockRequest
	}{
		{name: "unknown command", cmd: 999, req: LockRequest{Type: syscall.F_RDLCK}},
		{name: "unknown type", cmd: syscall.F_SETLK, req: LockRequest{Type: 77}},
		{name: "getlk with unlock", cmd: syscall.F_GETLK, req: LockRequest{Type: syscall.F_UNLCK}},
		{name: "bad whence", cmd: syscall.F_SETLK, req: LockRequest{Type: syscall.F_WRLCK, Whence: 9}},
		{name: "negative length", cmd: syscall.F_SETLK, req: LockRequest{Type: syscall.F_WRLCK, Len: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fd.PosixLock(ctx, tt.cmd, tt.req)
			assert.True(t, errors.Is(err, syscall.EINVAL), "got %v", err)
		})
	}
}

func TestPosixLockRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)
	a := openNewFile(t, root, "f")

	b, err := a.Handle().Open(ctx, os.O_RDWR)
	require.NoError(t, err)
	defer b.Close()

	_, err = a.PosixLock(ctx, syscall.F_SETLK, LockRequest{Type: syscall.F_WRLCK, Whence: io.SeekStart, Start: 10, Len: 10})
	require.NoError(t, err)

	got, err := b.PosixLock(ctx, syscall.F_GETLK, LockRequest{Type: syscall.F_RDLCK, Whence: io.SeekStart, Start: 0})
	require.NoError(t, err)
	assert.Equal(t, syscall.F_WRLCK, got.Type)
	assert.Equal(t, int64(10), got.Start)

	_, err = b.PosixLock(ctx, syscall.F_SETLK, LockRequest{Type: syscall.F_WRLCK, Whence: io.SeekStart, Start: 15, Len: 1})
	assert.True(t, errors.Is(err, syscall.EAGAIN))

	_, err = a.PosixLock(ctx, syscall.F_SETLK, LockRequest{Type: syscall.F_UNLCK, Whence: io.SeekStart})
	require.NoError(t, err)

	got, err = b.PosixLock(ctx, syscall.F_GETLK, LockRequest{Type: syscall.F_WRLCK, Whence: io.SeekStart})
	require.NoError(t, err)
	assert.Equal(t, syscall.F_UNLCK, got.Type)
}

func TestFsetxattrFlags(t *testing.T) {
	ctx := context.Background()
	_, root := newRoot(t)
	fd := openNewFile(t, root, "f")

	assert.True(t, errors.Is(fd.Fsetxattr(ctx, "user.k", []byte("v"), XattrReplace), syscall.ENODATA))
	require.NoError(t, fd.Fsetxattr(ctx, "user.k", []byte("v"), XattrCreate))
	assert.True(t, errors.Is(fd.Fsetxattr(ctx, "user.k", []byte("v"), XattrCreate), syscall.EEXIST))
	assert.True(t, errors.Is(fd.Fsetxattr(ctx, "user.k", []byte("v"), 42), syscall.EINVAL))

	names, err := fd.Flistxattr(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user.k"}, names)

	v, err := fd.Fgetxattr(ctx, "user.k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
	require.NoError(t, fd.Fremovexattr(ctx, "user.k"))
}

func TestFchdirAndSeek(t *testing.T) {
	ctx := context.Background()
	s, root := newRoot(t)

	d, err := root.Mkdir(ctx, "work", nil)
	require.NoError(t, err)
	defer d.Close()

	dfd, err := d.OpenDir(ctx)
	require.NoError(t, err)
	defer dfd.Close()
	require.NoError(t, dfd.Fchdir(ctx))

	cwd, err := s.Getcwd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/work", cwd)

	fd := openNewFile(t, root, "f")
	assert.True(t, errors.Is(fd.Fchdir(ctx), syscall.ENOTDIR))

	_, err = fd.Write(ctx, []byte("xyz"))
	require.NoError(t, err)
	pos, err := fd.Lseek(ctx, 0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	require.NoError(t, fd.Ftruncate(ctx, 1))
	require.NoError(t, fd.Fsync(ctx))
	require.NoError(t, fd.Fchmod(ctx, 0o600))
	st, err := fd.Fstat(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Size)
	assert.Equal(t, uint32(0o600), st.Mode&0o777)
}
