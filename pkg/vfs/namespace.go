package vfs

import (
	"context"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

// startDir picks the directory a path is resolved from: the root for
// absolute paths, parent when given, the working directory otherwise.
func (s *Session) startDir(op string, parent *Object, path string) (uuid.UUID, error) {
	if strings.HasPrefix(path, "/") {
		return s.rootID, nil
	}
	if parent == nil {
		s.cwdMu.Lock()
		defer s.cwdMu.Unlock()
		return s.cwd, nil
	}
	if err := s.valid(op, parent); err != nil {
		return uuid.Nil, err
	}
	return parent.id, nil
}

// resolve walks path from start. Symlinks in intermediate components are
// always expanded; the final component is expanded only when follow is set.
func (s *Session) resolve(ctx context.Context, start uuid.UUID, path string, follow bool) (*metadata.File, error) {
	cur, err := s.getFile(ctx, start)
	if err != nil {
		return nil, err
	}

	comps := splitPath(path)
	hops := 0
	for len(comps) > 0 {
		name := comps[0]
		comps = comps[1:]

		if cur.Type != metadata.FileTypeDirectory {
			return nil, metadata.NotDirectory(cur.Name)
		}
		next, err := s.meta.Lookup(ctx, cur.ID, name)
		if err != nil {
			return nil, err
		}

		if next.Type == metadata.FileTypeSymlink && (len(comps) > 0 || follow) {
			hops++
			if hops > maxSymlinkHops {
				return nil, newError("lookup", syscall.ELOOP)
			}
			if strings.HasPrefix(next.LinkTarget, "/") {
				if cur, err = s.getFile(ctx, s.rootID); err != nil {
					return nil, err
				}
			}
			comps = append(splitPath(next.LinkTarget), comps...)
			continue
		}

		s.cache.put(next)
		cur = next
	}
	return cur, nil
}

// LookupAt resolves path relative to parent and returns a new reference to
// the object it names together with its stat.
//
// A nil parent resolves relative paths from the working directory. Absolute
// paths always resolve from the volume root.
func (s *Session) LookupAt(ctx context.Context, parent *Object, path string, follow bool) (obj *Object, st *Stat, err error) {
	const op = "h_lookupat"
	defer s.observe(op, time.Now(), &err)

	if err := s.enter(ctx, op); err != nil {
		return nil, nil, err
	}
	start, err := s.startDir(op, parent, path)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.resolve(ctx, start, path, follow)
	if err != nil {
		return nil, nil, wrap(op, err)
	}
	obj, err = s.newObject(op, f.ID)
	if err != nil {
		return nil, nil, err
	}
	return obj, s.stat(f), nil
}

// CreateFromHandle returns a reference to the object with the given
// identifier. Unknown identifiers fail with ESTALE.
func (s *Session) CreateFromHandle(ctx context.Context, id [16]byte) (obj *Object, st *Stat, err error) {
	const op = "h_create_from_handle"
	defer s.observe(op, time.Now(), &err)

	if err := s.enter(ctx, op); err != nil {
		return nil, nil, err
	}
	f, err := s.getFile(ctx, uuid.UUID(id))
	if err != nil {
		if metadata.IsNotFound(err) {
			return nil, nil, &Error{Op: op, Errno: syscall.ESTALE, Err: err}
		}
		return nil, nil, wrap(op, err)
	}
	obj, err = s.newObject(op, f.ID)
	if err != nil {
		return nil, nil, err
	}
	return obj, s.stat(f), nil
}

// Creat creates a regular file named name in parent.
//
// With os.O_EXCL an existing name fails with EEXIST. Otherwise an existing
// regular file is returned, truncated first when os.O_TRUNC is set.
func (s *Session) Creat(ctx context.Context, parent *Object, name string, flags int, mode uint32) (obj *Object, st *Stat, err error) {
	const op = "h_creat"
	defer s.observe(op, time.Now(), &err)

	if err := s.enter(ctx, op); err != nil {
		return nil, nil, err
	}
	if err := s.valid(op, parent); err != nil {
		return nil, nil, err
	}

	f, err := s.meta.Create(ctx, parent.id, name, &metadata.FileAttr{
		Type: metadata.FileTypeRegular,
		Mode: mode & ModePermMask,
	})
	if metadata.CodeOf(err) == metadata.ErrAlreadyExists && flags&os.O_EXCL == 0 {
		f, err = s.openExisting(ctx, parent.id, name, flags)
	}
	if err != nil {
		return nil, nil, wrap(op, err)
	}
	s.cache.invalidate(parent.id)
	s.cache.put(f)

	obj, err = s.newObject(op, f.ID)
	if err != nil {
		return nil, nil, err
	}
	return obj, s.stat(f), nil
}

func (s *Session) openExisting(ctx context.Context, dir uuid.UUID, name string, flags int) (*metadata.File, error) {
	f, err := s.meta.Lookup(ctx, dir, name)
	if err != nil {
		return nil, err
	}
	switch f.Type {
	case metadata.FileTypeRegular:
	case metadata.FileTypeDirectory:
		return nil, &metadata.StoreError{Code: metadata.ErrIsDirectory, Message: "is a directory", Path: name}
	default:
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "not a regular file", Path: name}
	}
	if flags&os.O_TRUNC != 0 && f.Size > 0 {
		return s.truncate(ctx, f, 0)
	}
	return f, nil
}

// Mkdir creates a directory named name in parent.
func (s *Session) Mkdir(ctx context.Context, parent *Object, name string, mode uint32) (obj *Object, st *Stat, err error) {
	const op = "h_mkdir"
	defer s.observe(op, time.Now(), &err)

	return s.createChild(ctx, op, parent, name, &metadata.FileAttr{
		Type: metadata.FileTypeDirectory,
		Mode: mode & ModePermMask,
	})
}

// Symlink creates a symbolic link named name in parent pointing at target.
func (s *Session) Symlink(ctx context.Context, parent *Object, name, target string) (obj *Object, st *Stat, err error) {
	const op = "h_symlink"
	defer s.observe(op, time.Now(), &err)

	return s.createChild(ctx, op, parent, name, &metadata.FileAttr{
		Type:       metadata.FileTypeSymlink,
		LinkTarget: target,
	})
}

func (s *Session) createChild(ctx context.Context, op string, parent *Object, name string, attr *metadata.FileAttr) (*Object, *Stat, error) {
	if err := s.enter(ctx, op); err != nil {
		return nil, nil, err
	}
	if err := s.valid(op, parent); err != nil {
		return nil, nil, err
	}

	f, err := s.meta.Create(ctx, parent.id, name, attr)
	if err != nil {
		return nil, nil, wrap(op, err)
	}
	s.cache.invalidate(parent.id)
	s.cache.put(f)

	obj, err := s.newObject(op, f.ID)
	if err != nil {
		return nil, nil, err
	}
	return obj, s.stat(f), nil
}

// Unlink removes the entry name from parent. Directories must be empty.
// The content of a removed regular file is deleted.
func (s *Session) Unlink(ctx context.Context, parent *Object, name string) (err error) {
	const op = "h_unlink"
	defer s.observe(op, time.Now(), &err)

	if err := s.enter(ctx, op); err != nil {
		return err
	}
	if err := s.valid(op, parent); err != nil {
		return err
	}

	removed, err := s.meta.Remove(ctx, parent.id, name)
	if err != nil {
		return wrap(op, err)
	}
	s.cache.invalidate(parent.id, removed.ID)

	if removed.Type == metadata.FileTypeRegular && removed.ContentID != "" {
		if err := s.content.Delete(ctx, removed.ContentID); err != nil {
			logger.Warn("vfs: %s: delete content %s of %q: %v", s.name, removed.ContentID, name, err)
		}
	}
	return nil
}

// Stat fetches the attributes of obj.
func (s *Session) Stat(ctx context.Context, obj *Object) (st *Stat, err error) {
	const op = "h_stat"
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
	return s.stat(f), nil
}

// Readlink returns the target of a symbolic link.
func (s *Session) Readlink(ctx context.Context, obj *Object) (target string, err error) {
	const op = "h_readlink"
	defer s.observe(op, time.Now(), &err)

	if err := s.enter(ctx, op); err != nil {
		return "", err
	}
	if err := s.valid(op, obj); err != nil {
		return "", err
	}
	target, err = s.meta.ReadSymlink(ctx, obj.id)
	if err != nil {
		return "", wrap(op, err)
	}
	return target, nil
}

// Getcwd returns the absolute path of the working directory set by Fchdir.
func (s *Session) Getcwd(ctx context.Context) (path string, err error) {
	const op = "getcwd"
	defer s.observe(op, time.Now(), &err)

	if err := s.enter(ctx, op); err != nil {
		return "", err
	}

	s.cwdMu.Lock()
	cwd := s.cwd
	s.cwdMu.Unlock()

	var names []string
	for id := cwd; id != s.rootID; {
		f, err := s.getFile(ctx, id)
		if err != nil {
			return "", wrap(op, err)
		}
		names = append(names, f.Name)
		id = f.Parent
		if len(names) > 4096 {
			return "", newError(op, syscall.ELOOP)
		}
	}

	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(names[i])
	}
	if b.Len() == 0 {
		return "/", nil
	}
	return b.String(), nil
}

func (s *Session) setCwd(id uuid.UUID) {
	s.cwdMu.Lock()
	s.cwd = id
	s.cwdMu.Unlock()
}

// truncate resizes the content and size attribute of a regular file.
func (s *Session) truncate(ctx context.Context, f *metadata.File, size uint64) (*metadata.File, error) {
	if f.Type != metadata.FileTypeRegular {
		return nil, &metadata.StoreError{Code: metadata.ErrIsDirectory, Message: "not a regular file", Path: f.Name}
	}
	if err := s.content.Truncate(ctx, f.ContentID, size); err != nil {
		return nil, err
	}
	updated, err := s.meta.SetFileAttributes(ctx, f.ID, &metadata.SetAttrs{Size: &size})
	if err != nil {
		return nil, err
	}
	s.cache.put(updated)
	return updated, nil
}
