package vfs

import (
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
)

// Object is one reference to a remote object.
//
// Objects returned by lookups, creates and Dup are owned by the caller and
// must be closed exactly once. Objects embedded in a Dirent are transient:
// they belong to the FD that produced them, become invalid on the next read
// or close of that FD, and cannot be closed.
type Object struct {
	s      *Session
	id     uuid.UUID
	closed atomic.Bool

	// transient objects are bound to a directory stream generation.
	fd  *FD
	gen uint64
}

// ID returns the 16-byte stable identifier of the object.
func (o *Object) ID() [16]byte {
	return o.id
}

// UUID returns the identifier as a uuid.UUID.
func (o *Object) UUID() uuid.UUID {
	return o.id
}

// Transient reports whether the object is a directory stream reference.
func (o *Object) Transient() bool {
	return o.fd != nil
}

// Close releases the reference.
func (o *Object) Close() error {
	const op = "close"
	if o == nil {
		return newError(op, syscall.EINVAL)
	}
	if o.fd != nil {
		return newError(op, syscall.EINVAL)
	}
	if !o.closed.CompareAndSwap(false, true) {
		return newError(op, syscall.EBADF)
	}
	o.s.objects.Add(-1)
	o.s.publishUsage()
	return nil
}

// valid checks that obj can be used for op.
func (s *Session) valid(op string, obj *Object) error {
	if obj == nil || obj.s != s {
		return newError(op, syscall.EINVAL)
	}
	if obj.fd != nil {
		if !obj.fd.transientValid(obj.gen) {
			return newError(op, syscall.EBADF)
		}
		return nil
	}
	if obj.closed.Load() {
		return newError(op, syscall.EBADF)
	}
	return nil
}

// newObject creates an owned reference, enforcing max-handles.
func (s *Session) newObject(op string, id uuid.UUID) (*Object, error) {
	limit := s.maxHandles.Load()
	for {
		n := s.objects.Load()
		if limit > 0 && n >= limit {
			return nil, newError(op, syscall.ENFILE)
		}
		if s.objects.CompareAndSwap(n, n+1) {
			break
		}
	}
	s.publishUsage()
	return &Object{s: s, id: id}, nil
}

// Dup returns a new owned reference to the same object. Dup of a transient
// object is how a directory stream entry is retained.
func (s *Session) Dup(obj *Object) (*Object, error) {
	const op = "object_copy"
	if s.closed.Load() {
		return nil, newError(op, syscall.ENOTCONN)
	}
	if err := s.valid(op, obj); err != nil {
		return nil, err
	}
	return s.newObject(op, obj.id)
}
