package vfs

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// Error is returned by every failing remote operation. It carries the name
// of the operation and the errno the remote side reported.
//
// errors.Is(err, syscall.ENOENT) matches through Error, and errors.As can
// still reach the store error that caused it.
type Error struct {
	Op    string
	Errno syscall.Errno
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s(): %s", e.Op, e.Errno.Error())
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Errno}
	}
	return []error{e.Errno, e.Err}
}

// Errno extracts the errno carried by err, or 0 when err is not an errno
// error.
func Errno(err error) syscall.Errno {
	var e *Error
	if errors.As(err, &e) {
		return e.Errno
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

func newError(op string, errno syscall.Errno) *Error {
	return &Error{Op: op, Errno: errno}
}

// wrap converts err into an *Error for op. An *Error keeps its errno.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Op: op, Errno: e.Errno, Err: e.Err}
	}
	return &Error{Op: op, Errno: errnoFor(err), Err: err}
}

// errnoFor maps store, content and context errors to errno values.
func errnoFor(err error) syscall.Errno {
	switch metadata.CodeOf(err) {
	case metadata.ErrNotFound:
		return syscall.ENOENT
	case metadata.ErrAlreadyExists:
		return syscall.EEXIST
	case metadata.ErrNotEmpty:
		return syscall.ENOTEMPTY
	case metadata.ErrIsDirectory:
		return syscall.EISDIR
	case metadata.ErrNotDirectory:
		return syscall.ENOTDIR
	case metadata.ErrInvalidArgument:
		return syscall.EINVAL
	case metadata.ErrNameTooLong:
		return syscall.ENAMETOOLONG
	case metadata.ErrNoSpace:
		return syscall.ENOSPC
	case metadata.ErrNotSupported:
		return syscall.ENOTSUP
	case metadata.ErrInvalidHandle:
		return syscall.EBADF
	case metadata.ErrStaleHandle:
		return syscall.ESTALE
	case metadata.ErrNoAttribute:
		return syscall.ENODATA
	case metadata.ErrPermissionDenied:
		return syscall.EACCES
	case metadata.ErrIOError:
		return syscall.EIO
	}

	switch {
	case errors.Is(err, content.ErrContentNotFound):
		return syscall.ENOENT
	case errors.Is(err, content.ErrInvalidOffset), errors.Is(err, content.ErrInvalidContentID):
		return syscall.EINVAL
	case errors.Is(err, content.ErrStorageFull):
		return syscall.ENOSPC
	case errors.Is(err, context.Canceled):
		return syscall.ECANCELED
	case errors.Is(err, context.DeadlineExceeded):
		return syscall.ETIMEDOUT
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
