// Package handle provides Handle, an owned reference to one object of a
// volume, and FD, a descriptor opened through a Handle.
package handle

import (
	"context"
	"os"
	"path"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/vfs"
)

const (
	// DefaultFileMode is used by Create when no mode is given.
	DefaultFileMode = 0o644
	// DefaultDirMode is used by Mkdir when no mode is given.
	DefaultDirMode = 0o755
)

// Handle is an owned reference to one object.
//
// The identifier never changes. The cached stat is the result of the last
// stat-capable call made through this Handle (Lookup, Create, Mkdir,
// Symlink with stat, Stat) and is never refreshed implicitly.
//
// A Handle is safe for concurrent use.
type Handle struct {
	s    *vfs.Session
	obj  *vfs.Object
	id   uuid.UUID
	name string

	mu     sync.Mutex
	stat   *vfs.Stat
	closed bool
}

// New wraps obj, taking ownership of it. st may be nil.
func New(s *vfs.Session, obj *vfs.Object, name string, st *vfs.Stat) *Handle {
	return &Handle{
		s:    s,
		obj:  obj,
		id:   obj.UUID(),
		name: name,
		stat: st,
	}
}

// LookupOptions configures Lookup. A nil *LookupOptions means
// DefaultLookupOptions.
type LookupOptions struct {
	// Stat caches the stat of the resolved object on the new Handle.
	Stat bool
	// FollowSymlink resolves a final symlink component to its target.
	FollowSymlink bool
}

// DefaultLookupOptions stats and follows symlinks.
func DefaultLookupOptions() *LookupOptions {
	return &LookupOptions{Stat: true, FollowSymlink: true}
}

// CreateOptions configures Create. A nil *CreateOptions stats and uses
// DefaultFileMode.
type CreateOptions struct {
	Stat bool
	Mode uint32
}

// MkdirOptions configures Mkdir. A nil *MkdirOptions stats and uses
// DefaultDirMode.
type MkdirOptions struct {
	Stat bool
	Mode uint32
}

func errClosed(op string) error {
	return &vfs.Error{Op: op, Errno: syscall.EBADF}
}

// object returns the live object, or EBADF once the Handle is closed.
func (h *Handle) object(op string) (*vfs.Object, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errClosed(op)
	}
	return h.obj, nil
}

func (h *Handle) setStat(st *vfs.Stat) {
	h.mu.Lock()
	h.stat = st
	h.mu.Unlock()
}

// UUID returns the canonical string form of the object identifier.
func (h *Handle) UUID() string {
	return h.id.String()
}

// ID returns the 16-byte object identifier.
func (h *Handle) ID() [16]byte {
	return h.id
}

// Name returns the path component the Handle was reached through, or "".
func (h *Handle) Name() string {
	return h.name
}

// CachedStat returns the cached stat, nil when none was ever fetched.
func (h *Handle) CachedStat() *vfs.Stat {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stat == nil {
		return nil
	}
	st := *h.stat
	return &st
}

// FileType derives the object type from the cached stat.
func (h *Handle) FileType() vfs.FileType {
	return h.CachedStat().FileType()
}

// Session returns the session the Handle belongs to.
func (h *Handle) Session() *vfs.Session {
	return h.s
}

// Object returns the underlying reference. It stays owned by the Handle.
func (h *Handle) Object() *vfs.Object {
	return h.obj
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close releases the reference. Calling Close again is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()
	return h.obj.Close()
}

// Dup returns an independent Handle on the same object carrying the same
// name and cached stat.
func (h *Handle) Dup() (*Handle, error) {
	obj, err := h.object("object_copy")
	if err != nil {
		return nil, err
	}
	dup, err := h.s.Dup(obj)
	if err != nil {
		return nil, err
	}
	return New(h.s, dup, h.name, h.CachedStat()), nil
}

func baseName(p string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return p
	}
	return path.Base(trimmed)
}

// Lookup resolves p relative to the Handle. Absolute paths resolve from
// the volume root.
func (h *Handle) Lookup(ctx context.Context, p string, opts *LookupOptions) (*Handle, error) {
	if opts == nil {
		opts = DefaultLookupOptions()
	}
	obj, err := h.object("h_lookupat")
	if err != nil {
		return nil, err
	}

	child, st, err := h.s.LookupAt(ctx, obj, p, opts.FollowSymlink)
	if err != nil {
		return nil, err
	}
	if !opts.Stat {
		st = nil
	}
	return New(h.s, child, baseName(p), st), nil
}

// Create creates (or, without os.O_EXCL, opens) a regular file in the
// directory.
func (h *Handle) Create(ctx context.Context, name string, flags int, opts *CreateOptions) (*Handle, error) {
	if opts == nil {
		opts = &CreateOptions{Stat: true}
	}
	mode := opts.Mode
	if mode == 0 {
		mode = DefaultFileMode
	}
	obj, err := h.object("h_creat")
	if err != nil {
		return nil, err
	}

	child, st, err := h.s.Creat(ctx, obj, name, flags|os.O_CREATE, mode)
	if err != nil {
		return nil, err
	}
	if !opts.Stat {
		st = nil
	}
	return New(h.s, child, name, st), nil
}

// Mkdir creates a subdirectory.
func (h *Handle) Mkdir(ctx context.Context, name string, opts *MkdirOptions) (*Handle, error) {
	if opts == nil {
		opts = &MkdirOptions{Stat: true}
	}
	mode := opts.Mode
	if mode == 0 {
		mode = DefaultDirMode
	}
	obj, err := h.object("h_mkdir")
	if err != nil {
		return nil, err
	}

	child, st, err := h.s.Mkdir(ctx, obj, name, mode)
	if err != nil {
		return nil, err
	}
	if !opts.Stat {
		st = nil
	}
	return New(h.s, child, name, st), nil
}

// Symlink creates a symbolic link named name pointing at target.
func (h *Handle) Symlink(ctx context.Context, name, target string, withStat bool) (*Handle, error) {
	obj, err := h.object("h_symlink")
	if err != nil {
		return nil, err
	}

	child, st, err := h.s.Symlink(ctx, obj, name, target)
	if err != nil {
		return nil, err
	}
	if !withStat {
		st = nil
	}
	return New(h.s, child, name, st), nil
}

// Unlink removes name from the directory.
func (h *Handle) Unlink(ctx context.Context, name string) error {
	obj, err := h.object("h_unlink")
	if err != nil {
		return err
	}
	return h.s.Unlink(ctx, obj, name)
}

// Stat fetches the attributes, caches them on the Handle and returns them.
func (h *Handle) Stat(ctx context.Context) (*vfs.Stat, error) {
	obj, err := h.object("h_stat")
	if err != nil {
		return nil, err
	}
	st, err := h.s.Stat(ctx, obj)
	if err != nil {
		return nil, err
	}
	h.setStat(st)
	cp := *st
	return &cp, nil
}

// Readlink returns the target of a symlink.
func (h *Handle) Readlink(ctx context.Context) (string, error) {
	obj, err := h.object("h_readlink")
	if err != nil {
		return "", err
	}
	return h.s.Readlink(ctx, obj)
}

// Open opens a descriptor with os.O_* flags. syscall.O_DIRECTORY opens a
// directory stream.
func (h *Handle) Open(ctx context.Context, flags int) (*FD, error) {
	obj, err := h.object("h_open")
	if err != nil {
		return nil, err
	}
	fd, err := h.s.Open(ctx, obj, flags)
	if err != nil {
		return nil, err
	}
	return &FD{h: h, fd: fd}, nil
}

// OpenDir opens the Handle as a directory stream.
func (h *Handle) OpenDir(ctx context.Context) (*FD, error) {
	return h.Open(ctx, os.O_RDONLY|syscall.O_DIRECTORY)
}
