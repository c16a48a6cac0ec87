package vfs

import (
	"context"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// ReaddirFlags select what ReadDirPlus fills in.
type ReaddirFlags int

const (
	// ReaddirStat fills Dirent.Stat.
	ReaddirStat ReaddirFlags = 1 << iota
	// ReaddirHandle fills Dirent.Object with a transient reference.
	ReaddirHandle
)

// Dirent is one directory stream record.
//
// The Dirent, its Stat and its Object are owned by the FD and are
// overwritten or invalidated by the next ReadDirPlus or Close on that FD.
// Copy what must be kept and Dup the Object.
type Dirent struct {
	Name   string
	Type   uint8
	Ino    uint64
	Stat   *Stat
	Object *Object
}

type dirStream struct {
	// gen identifies the current transient object. Bumped on every read
	// and on close.
	gen atomic.Uint64

	dotsDone int
	cookie   string
	page     []metadata.DirEntry
	pos      int
	eof      bool

	dirent Dirent
	stat   Stat
}

func (d *dirStream) invalidate() {
	d.gen.Add(1)
}

func (fd *FD) transientValid(gen uint64) bool {
	return fd.dir != nil && !fd.closed.Load() && fd.dir.gen.Load() == gen
}

// ReadDirPlus returns the next entry of a directory stream, or (nil, nil)
// at end of directory. "." and ".." come first.
//
// Pages are fetched from the metadata store lazily, readdir-ahead
// page-size entries at a time. A directory removed while open fails with
// ESTALE.
func (fd *FD) ReadDirPlus(ctx context.Context, flags ReaddirFlags) (de *Dirent, err error) {
	const op = "xreaddirplus_r"
	defer fd.s.observe(op, time.Now(), &err)

	if err := fd.enter(ctx, op); err != nil {
		return nil, err
	}
	if !fd.isDir {
		return nil, newError(op, syscall.ENOTDIR)
	}
	d := fd.dir
	d.invalidate()

	var (
		name string
		file *metadata.File
	)
	switch d.dotsDone {
	case 0, 1:
		self, err := fd.file(ctx, op)
		if err != nil {
			return nil, err
		}
		name, file = ".", self
		if d.dotsDone == 1 {
			parent, err := fd.s.getFile(ctx, self.Parent)
			if err != nil {
				return nil, wrap(op, err)
			}
			name, file = "..", parent
		}
		d.dotsDone++
	default:
		entry, err := fd.nextEntry(ctx, op)
		if err != nil || entry == nil {
			return nil, err
		}
		name = entry.Name
		file = &metadata.File{ID: entry.ID, Parent: fd.id, Name: entry.Name}
		if entry.Attr != nil {
			file.FileAttr = *entry.Attr
		} else if file, err = fd.s.getFile(ctx, entry.ID); err != nil {
			return nil, wrap(op, err)
		}
	}

	d.dirent = Dirent{
		Name: name,
		Type: direntType(file.Type),
		Ino:  metadata.IDToInode(file.ID),
	}
	if flags&ReaddirStat != 0 {
		fillStat(&d.stat, fd.s.dev, file.ID, &file.FileAttr)
		d.dirent.Stat = &d.stat
	}
	if flags&ReaddirHandle != 0 {
		d.dirent.Object = &Object{s: fd.s, id: file.ID, fd: fd, gen: d.gen.Load()}
	}
	return &d.dirent, nil
}

// nextEntry returns the next store entry, fetching a page when the current
// one is consumed. nil means end of directory.
func (fd *FD) nextEntry(ctx context.Context, op string) (*metadata.DirEntry, error) {
	d := fd.dir
	for d.pos >= len(d.page) {
		if d.eof {
			return nil, nil
		}
		page, err := fd.s.meta.ReadDirectory(ctx, fd.id, d.cookie, int(fd.s.pageSize.Load()))
		if err != nil {
			if metadata.IsNotFound(err) {
				return nil, &Error{Op: op, Errno: syscall.ESTALE, Err: err}
			}
			return nil, wrap(op, err)
		}
		d.page = page.Entries
		d.pos = 0
		d.cookie = page.NextCookie
		d.eof = !page.HasMore
	}
	e := &d.page[d.pos]
	d.pos++
	return e, nil
}

// Rewind restarts the directory stream from the beginning.
func (fd *FD) Rewind() error {
	if fd == nil || fd.closed.Load() {
		return newError("rewinddir", syscall.EBADF)
	}
	if !fd.isDir {
		return newError("rewinddir", syscall.ENOTDIR)
	}
	fd.dir.invalidate()
	fd.dir.dotsDone = 0
	fd.dir.cookie = ""
	fd.dir.page = nil
	fd.dir.pos = 0
	fd.dir.eof = false
	return nil
}
