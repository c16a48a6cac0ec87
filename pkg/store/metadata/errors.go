package metadata

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a StoreError.
type ErrorCode int

const (
	// ErrNotFound means the object or entry does not exist.
	ErrNotFound ErrorCode = iota + 1

	// ErrAlreadyExists means the entry name is taken.
	ErrAlreadyExists

	// ErrNotEmpty means a directory still has entries.
	ErrNotEmpty

	// ErrIsDirectory means a non-directory operation targeted a directory.
	ErrIsDirectory

	// ErrNotDirectory means a directory operation targeted something else.
	ErrNotDirectory

	// ErrInvalidArgument means a parameter was rejected.
	ErrInvalidArgument

	// ErrNameTooLong means an entry name exceeds MaxNameLength.
	ErrNameTooLong

	// ErrIOError is a backend failure.
	ErrIOError

	// ErrNoSpace means the backend is full.
	ErrNoSpace

	// ErrNotSupported means the operation is not implemented by the store.
	ErrNotSupported

	// ErrInvalidHandle means an object ID could not be decoded.
	ErrInvalidHandle

	// ErrStaleHandle means the object was removed.
	ErrStaleHandle

	// ErrNoAttribute means the extended attribute does not exist.
	ErrNoAttribute

	// ErrPermissionDenied means the caller may not perform the operation.
	ErrPermissionDenied
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrAlreadyExists:
		return "already exists"
	case ErrNotEmpty:
		return "not empty"
	case ErrIsDirectory:
		return "is a directory"
	case ErrNotDirectory:
		return "not a directory"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrNameTooLong:
		return "name too long"
	case ErrIOError:
		return "i/o error"
	case ErrNoSpace:
		return "no space"
	case ErrNotSupported:
		return "not supported"
	case ErrInvalidHandle:
		return "invalid handle"
	case ErrStaleHandle:
		return "stale handle"
	case ErrNoAttribute:
		return "no such attribute"
	case ErrPermissionDenied:
		return "permission denied"
	default:
		return "unknown error"
	}
}

// StoreError is the error type returned by metadata stores.
type StoreError struct {
	Code    ErrorCode
	Message string
	Path    string
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *StoreError with the same code, so callers can write
// errors.Is(err, &StoreError{Code: ErrNotFound}).
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code carried by err, or 0 when err is not a StoreError.
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsNotFound reports whether err is a StoreError with code ErrNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrNotFound
}

// NotFound builds an ErrNotFound StoreError.
func NotFound(msg, path string) error {
	return &StoreError{Code: ErrNotFound, Message: msg, Path: path}
}

// NotDirectory builds an ErrNotDirectory StoreError.
func NotDirectory(path string) error {
	return &StoreError{Code: ErrNotDirectory, Message: "not a directory", Path: path}
}

// AlreadyExists builds an ErrAlreadyExists StoreError.
func AlreadyExists(path string) error {
	return &StoreError{Code: ErrAlreadyExists, Message: "entry already exists", Path: path}
}
