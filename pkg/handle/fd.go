package handle

import (
	"context"
	"io"
	"syscall"

	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/marmos91/handlefs/pkg/vfs"
)

// Extended attribute flags accepted by Fsetxattr.
const (
	XattrCreate  = 1
	XattrReplace = 2
)

// LockRequest is a POSIX record lock description. Type is one of
// syscall.F_RDLCK, syscall.F_WRLCK or syscall.F_UNLCK; Whence is one of
// io.SeekStart, io.SeekCurrent or io.SeekEnd.
type LockRequest struct {
	Type   int
	Whence int
	Start  int64
	Len    int64
	Pid    int
}

// FD is an open descriptor. It keeps its Handle referenced; closing the FD
// does not close the Handle.
type FD struct {
	h  *Handle
	fd *vfs.FD
}

// Handle returns the Handle the descriptor was opened through.
func (f *FD) Handle() *Handle {
	return f.h
}

// Raw returns the underlying vfs descriptor.
func (f *FD) Raw() *vfs.FD {
	return f.fd
}

// Close releases the descriptor. A second Close fails with EBADF.
func (f *FD) Close() error {
	return f.fd.Close()
}

// Fstat returns the attributes of the open object.
func (f *FD) Fstat(ctx context.Context) (*vfs.Stat, error) {
	return f.fd.Fstat(ctx)
}

// Fsync flushes the object.
func (f *FD) Fsync(ctx context.Context) error {
	return f.fd.Fsync(ctx)
}

// Fchdir makes the directory the working directory of the volume.
func (f *FD) Fchdir(ctx context.Context) error {
	return f.fd.Fchdir(ctx)
}

// Fchmod changes the permission bits.
func (f *FD) Fchmod(ctx context.Context, mode uint32) error {
	return f.fd.Fchmod(ctx, mode)
}

// Fchown changes owner and group. -1 leaves the id unchanged.
func (f *FD) Fchown(ctx context.Context, uid, gid int) error {
	const op = "fchown"

	id := func(v int) (*uint32, error) {
		switch {
		case v == -1:
			return nil, nil
		case v < 0 || int64(v) > int64(^uint32(0)):
			return nil, &vfs.Error{Op: op, Errno: syscall.EINVAL}
		}
		u := uint32(v)
		return &u, nil
	}

	u, err := id(uid)
	if err != nil {
		return err
	}
	g, err := id(gid)
	if err != nil {
		return err
	}
	return f.fd.Fchown(ctx, u, g)
}

// Ftruncate sets the file size.
func (f *FD) Ftruncate(ctx context.Context, length int64) error {
	return f.fd.Ftruncate(ctx, length)
}

// Lseek moves the file offset.
func (f *FD) Lseek(ctx context.Context, offset int64, whence int) (int64, error) {
	return f.fd.Lseek(ctx, offset, whence)
}

// Pread reads up to count bytes at offset. An empty result means end of
// file.
func (f *FD) Pread(ctx context.Context, count int, offset int64) ([]byte, error) {
	if count < 0 {
		return nil, &vfs.Error{Op: "pread", Errno: syscall.EINVAL}
	}
	buf := make([]byte, count)
	n, err := f.fd.Pread(ctx, buf, offset)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Pwrite writes buf at offset and returns the number of bytes written.
func (f *FD) Pwrite(ctx context.Context, buf []byte, offset int64) (int, error) {
	return f.fd.Pwrite(ctx, buf, offset)
}

// Read reads at the current offset.
func (f *FD) Read(ctx context.Context, buf []byte) (int, error) {
	return f.fd.Read(ctx, buf)
}

// Write writes at the current offset.
func (f *FD) Write(ctx context.Context, buf []byte) (int, error) {
	return f.fd.Write(ctx, buf)
}

// ReadDirPlus reads one directory stream record; see vfs.FD.ReadDirPlus.
func (f *FD) ReadDirPlus(ctx context.Context, flags vfs.ReaddirFlags) (*vfs.Dirent, error) {
	return f.fd.ReadDirPlus(ctx, flags)
}

// PosixLock runs a record lock command: syscall.F_GETLK, syscall.F_SETLK
// or syscall.F_SETLKW. It returns the resulting lock description; for
// F_GETLK that is the conflicting lock, or the request with type F_UNLCK.
func (f *FD) PosixLock(ctx context.Context, cmd int, req LockRequest) (*LockRequest, error) {
	const op = "posix_lock"
	invalid := &vfs.Error{Op: op, Errno: syscall.EINVAL}

	var vcmd vfs.LockCmd
	switch cmd {
	case syscall.F_GETLK:
		vcmd = vfs.LockGet
	case syscall.F_SETLK:
		vcmd = vfs.LockSet
	case syscall.F_SETLKW:
		vcmd = vfs.LockSetWait
	default:
		return nil, invalid
	}

	var vtype vfs.LockType
	switch req.Type {
	case syscall.F_RDLCK:
		vtype = vfs.LockRead
	case syscall.F_WRLCK:
		vtype = vfs.LockWrite
	case syscall.F_UNLCK:
		if vcmd == vfs.LockGet {
			return nil, invalid
		}
		vtype = vfs.LockUnlock
	default:
		return nil, invalid
	}

	switch req.Whence {
	case io.SeekStart, io.SeekCurrent, io.SeekEnd:
	default:
		return nil, invalid
	}

	out, err := f.fd.PosixLock(ctx, vcmd, vfs.Flock{
		Type:  vtype,
		Start: req.Start,
		Len:   req.Len,
		Pid:   req.Pid,
	}, req.Whence)
	if err != nil {
		return nil, err
	}

	res := &LockRequest{Whence: io.SeekStart, Start: out.Start, Len: out.Len, Pid: out.Pid}
	switch out.Type {
	case vfs.LockRead:
		res.Type = syscall.F_RDLCK
	case vfs.LockWrite:
		res.Type = syscall.F_WRLCK
	default:
		res.Type = syscall.F_UNLCK
	}
	return res, nil
}

// Flistxattr lists extended attribute names.
func (f *FD) Flistxattr(ctx context.Context) ([]string, error) {
	return f.fd.Flistxattr(ctx)
}

// Fgetxattr returns an extended attribute value.
func (f *FD) Fgetxattr(ctx context.Context, name string) ([]byte, error) {
	return f.fd.Fgetxattr(ctx, name)
}

// Fsetxattr sets an extended attribute. flags is 0, XattrCreate (fail with
// EEXIST when present) or XattrReplace (fail with ENODATA when absent).
func (f *FD) Fsetxattr(ctx context.Context, name string, value []byte, flags int) error {
	var flag metadata.XattrFlag
	switch flags {
	case 0:
		flag = metadata.XattrAny
	case XattrCreate:
		flag = metadata.XattrCreate
	case XattrReplace:
		flag = metadata.XattrReplace
	default:
		return &vfs.Error{Op: "fsetxattr", Errno: syscall.EINVAL}
	}
	return f.fd.Fsetxattr(ctx, name, value, flag)
}

// Fremovexattr removes an extended attribute.
func (f *FD) Fremovexattr(ctx context.Context, name string) error {
	return f.fd.Fremovexattr(ctx, name)
}
