package vfs

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// FD is an open I/O channel on one object. An FD does not depend on the
// Object it was opened from: closing the Object leaves the FD usable.
//
// An FD must not be used from several goroutines at once.
type FD struct {
	s      *Session
	id     uuid.UUID
	flags  int
	isDir  bool
	closed atomic.Bool

	mu     sync.Mutex
	offset int64

	dir *dirStream
}

// Open opens obj with os.O_* flags. Directories must be opened with
// syscall.O_DIRECTORY (or OpenDir) and read-only.
func (s *Session) Open(ctx context.Context, obj *Object, flags int) (fd *FD, err error) {
	const op = "h_open"
	defer s.observe(op, time.Now(), &err)

	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	if err := s.valid(op, obj); err != nil {
		return nil, err
	}

	f, err := s.getFile(ctx, obj.id)
	if err != nil {
		return nil, wrap(op, err)
	}

	writable := flags&(os.O_WRONLY|os.O_RDWR) != 0
	switch {
	case flags&syscall.O_DIRECTORY != 0 && f.Type != metadata.FileTypeDirectory:
		return nil, newError(op, syscall.ENOTDIR)
	case f.Type == metadata.FileTypeDirectory && writable:
		return nil, newError(op, syscall.EISDIR)
	case f.Type == metadata.FileTypeSymlink:
		return nil, newError(op, syscall.ELOOP)
	}

	if f.Type == metadata.FileTypeRegular && writable && flags&os.O_TRUNC != 0 && f.Size > 0 {
		if _, err := s.truncate(ctx, f, 0); err != nil {
			return nil, wrap(op, err)
		}
	}

	fd = &FD{
		s:     s,
		id:    f.ID,
		flags: flags,
		isDir: f.Type == metadata.FileTypeDirectory,
	}
	if fd.isDir {
		fd.dir = &dirStream{}
	}
	s.fds.Add(1)
	s.publishUsage()
	return fd, nil
}

// OpenDir opens obj as a directory stream.
func (s *Session) OpenDir(ctx context.Context, obj *Object) (*FD, error) {
	return s.Open(ctx, obj, os.O_RDONLY|syscall.O_DIRECTORY)
}

// ObjectID returns the identifier of the object the FD is open on.
func (fd *FD) ObjectID() [16]byte {
	return fd.id
}

// Flags returns the flags the FD was opened with.
func (fd *FD) Flags() int {
	return fd.flags
}

func (fd *FD) enter(ctx context.Context, op string) error {
	if fd == nil || fd.closed.Load() {
		return newError(op, syscall.EBADF)
	}
	return fd.s.enter(ctx, op)
}

func (fd *FD) file(ctx context.Context, op string) (*metadata.File, error) {
	f, err := fd.s.getFile(ctx, fd.id)
	if err != nil {
		if metadata.IsNotFound(err) {
			return nil, &Error{Op: op, Errno: syscall.ESTALE, Err: err}
		}
		return nil, wrap(op, err)
	}
	return f, nil
}

func (fd *FD) regular(ctx context.Context, op string) (*metadata.File, error) {
	if fd.isDir {
		return nil, newError(op, syscall.EISDIR)
	}
	f, err := fd.file(ctx, op)
	if err != nil {
		return nil, err
	}
	if f.Type != metadata.FileTypeRegular {
		return nil, newError(op, syscall.EINVAL)
	}
	return f, nil
}

// Close releases the descriptor and its record locks.
func (fd *FD) Close() error {
	if fd == nil || !fd.closed.CompareAndSwap(false, true) {
		return newError("close", syscall.EBADF)
	}
	if fd.dir != nil {
		fd.dir.invalidate()
	}
	fd.s.locks.releaseAll(fd.id, fd)
	fd.s.fds.Add(-1)
	fd.s.publishUsage()
	return nil
}

// Fstat returns the attributes of the open object.
func (fd *FD) Fstat(ctx context.Context) (st *Stat, err error) {
	const op = "fstat"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return nil, err
	}
	f, err := fd.file(ctx, op)
	if err != nil {
		return nil, err
	}
	return fd.s.stat(f), nil
}

// Fsync checks that the object still exists. Writes are synchronous.
func (fd *FD) Fsync(ctx context.Context) (err error) {
	const op = "fsync"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return err
	}
	_, err = fd.file(ctx, op)
	return err
}

// Pread reads up to len(p) bytes at offset. A short count with a nil error
// means end of file was reached.
func (fd *FD) Pread(ctx context.Context, p []byte, offset int64) (n int, err error) {
	const op = "pread"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, newError(op, syscall.EINVAL)
	}
	if fd.flags&os.O_WRONLY != 0 {
		return 0, newError(op, syscall.EBADF)
	}
	f, err := fd.regular(ctx, op)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 || offset >= int64(f.Size) {
		return 0, nil
	}
	if rest := int64(f.Size) - offset; int64(len(p)) > rest {
		p = p[:rest]
	}

	n, err = fd.s.content.ReadAt(ctx, f.ContentID, p, offset)
	switch {
	case errors.Is(err, io.EOF):
		err = nil
	case errors.Is(err, content.ErrContentNotFound):
		// never written: sparse zeros up to the recorded size
		clear(p)
		n, err = len(p), nil
	}
	if err != nil {
		return n, wrap(op, err)
	}
	fd.s.metrics.RecordBytes(fd.s.name, "read", n)
	return n, nil
}

// Pwrite writes p at offset, extending the file as needed.
func (fd *FD) Pwrite(ctx context.Context, p []byte, offset int64) (n int, err error) {
	const op = "pwrite"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, newError(op, syscall.EINVAL)
	}
	if fd.flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		return 0, newError(op, syscall.EBADF)
	}
	f, err := fd.regular(ctx, op)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if err := fd.s.content.WriteAt(ctx, f.ContentID, p, offset); err != nil {
		return 0, wrap(op, err)
	}

	now := time.Now()
	attrs := &metadata.SetAttrs{Mtime: &now}
	if end := uint64(offset) + uint64(len(p)); end > f.Size {
		attrs.Size = &end
	}
	updated, err := fd.s.meta.SetFileAttributes(ctx, f.ID, attrs)
	if err != nil {
		return 0, wrap(op, err)
	}
	fd.s.cache.put(updated)
	fd.s.metrics.RecordBytes(fd.s.name, "write", len(p))
	return len(p), nil
}

// Read reads at the FD offset and advances it.
func (fd *FD) Read(ctx context.Context, p []byte) (int, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	n, err := fd.Pread(ctx, p, fd.offset)
	fd.offset += int64(n)
	return n, err
}

// Write writes at the FD offset, or at end of file with os.O_APPEND, and
// advances the offset.
func (fd *FD) Write(ctx context.Context, p []byte) (int, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.flags&os.O_APPEND != 0 {
		st, err := fd.Fstat(ctx)
		if err != nil {
			return 0, err
		}
		fd.offset = st.Size
	}
	n, err := fd.Pwrite(ctx, p, fd.offset)
	fd.offset += int64(n)
	return n, err
}

// Lseek repositions the FD offset. whence is io.SeekStart, io.SeekCurrent
// or io.SeekEnd.
func (fd *FD) Lseek(ctx context.Context, offset int64, whence int) (pos int64, err error) {
	const op = "lseek"

	if err := fd.enter(ctx, op); err != nil {
		return 0, err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = fd.offset + offset
	case io.SeekEnd:
		f, err := fd.file(ctx, op)
		if err != nil {
			return 0, err
		}
		pos = int64(f.Size) + offset
	default:
		return 0, newError(op, syscall.EINVAL)
	}
	if pos < 0 {
		return 0, newError(op, syscall.EINVAL)
	}
	fd.offset = pos
	return pos, nil
}

// Ftruncate sets the file size.
func (fd *FD) Ftruncate(ctx context.Context, size int64) (err error) {
	const op = "ftruncate"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return err
	}
	if size < 0 {
		return newError(op, syscall.EINVAL)
	}
	if fd.flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		return newError(op, syscall.EBADF)
	}
	f, err := fd.regular(ctx, op)
	if err != nil {
		return err
	}
	if _, err := fd.s.truncate(ctx, f, uint64(size)); err != nil {
		return wrap(op, err)
	}
	return nil
}

func (fd *FD) setattr(ctx context.Context, op string, attrs *metadata.SetAttrs) (err error) {
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return err
	}
	updated, err := fd.s.meta.SetFileAttributes(ctx, fd.id, attrs)
	if err != nil {
		if metadata.IsNotFound(err) {
			return &Error{Op: op, Errno: syscall.ESTALE, Err: err}
		}
		return wrap(op, err)
	}
	fd.s.cache.put(updated)
	return nil
}

// Fchmod sets the permission bits.
func (fd *FD) Fchmod(ctx context.Context, mode uint32) error {
	mode &= ModePermMask
	return fd.setattr(ctx, "fchmod", &metadata.SetAttrs{Mode: &mode})
}

// Fchown sets owner and group. A nil id is left unchanged.
func (fd *FD) Fchown(ctx context.Context, uid, gid *uint32) error {
	return fd.setattr(ctx, "fchown", &metadata.SetAttrs{UID: uid, GID: gid})
}

// Fchdir makes the directory the session's working directory.
func (fd *FD) Fchdir(ctx context.Context) error {
	const op = "fchdir"
	if err := fd.enter(ctx, op); err != nil {
		return err
	}
	if !fd.isDir {
		return newError(op, syscall.ENOTDIR)
	}
	if _, err := fd.file(ctx, op); err != nil {
		return err
	}
	fd.s.setCwd(fd.id)
	return nil
}

// PosixLock applies a record lock command. For LockGet the returned Flock
// is the blocking lock, or the request with type LockUnlock when nothing
// blocks. For the set commands it echoes the request.
//
// req.Start is relative to whence (io.SeekStart, io.SeekCurrent or
// io.SeekEnd).
func (fd *FD) PosixLock(ctx context.Context, cmd LockCmd, req Flock, whence int) (out Flock, err error) {
	const op = "posix_lock"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return Flock{}, err
	}
	if req.Len < 0 {
		return Flock{}, newError(op, syscall.EINVAL)
	}

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		fd.mu.Lock()
		req.Start += fd.offset
		fd.mu.Unlock()
	case io.SeekEnd:
		f, err := fd.file(ctx, op)
		if err != nil {
			return Flock{}, err
		}
		req.Start += int64(f.Size)
	default:
		return Flock{}, newError(op, syscall.EINVAL)
	}
	if req.Start < 0 {
		return Flock{}, newError(op, syscall.EINVAL)
	}

	switch cmd {
	case LockGet:
		if req.Type == LockUnlock {
			return Flock{}, newError(op, syscall.EINVAL)
		}
		return fd.s.locks.get(fd.id, fd, req), nil
	case LockSet, LockSetWait:
		if req.Type == LockRead && fd.flags&(os.O_WRONLY) != 0 ||
			req.Type == LockWrite && fd.flags&(os.O_WRONLY|os.O_RDWR) == 0 {
			return Flock{}, newError(op, syscall.EBADF)
		}
		if err := fd.s.locks.set(ctx, fd.id, fd, req, cmd == LockSetWait); err != nil {
			return Flock{}, wrap(op, err)
		}
		return req, nil
	default:
		return Flock{}, newError(op, syscall.EINVAL)
	}
}

// Fgetxattr returns the value of an extended attribute.
func (fd *FD) Fgetxattr(ctx context.Context, name string) (value []byte, err error) {
	const op = "fgetxattr"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return nil, err
	}
	value, err = fd.s.meta.GetXattr(ctx, fd.id, name)
	if err != nil {
		return nil, wrap(op, err)
	}
	return value, nil
}

// Fsetxattr sets an extended attribute. flag selects create-only or
// replace-only semantics.
func (fd *FD) Fsetxattr(ctx context.Context, name string, value []byte, flag metadata.XattrFlag) (err error) {
	const op = "fsetxattr"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return err
	}
	if err := fd.s.meta.SetXattr(ctx, fd.id, name, value, flag); err != nil {
		return wrap(op, err)
	}
	return nil
}

// Flistxattr lists extended attribute names.
func (fd *FD) Flistxattr(ctx context.Context) (names []string, err error) {
	const op = "flistxattr"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return nil, err
	}
	names, err = fd.s.meta.ListXattrs(ctx, fd.id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return names, nil
}

// Fremovexattr removes an extended attribute.
func (fd *FD) Fremovexattr(ctx context.Context, name string) (err error) {
	const op = "fremovexattr"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return err
	}
	if err := fd.s.meta.RemoveXattr(ctx, fd.id, name); err != nil {
		return wrap(op, err)
	}
	return nil
}
