// Package internal holds attribute logic shared by the metadata stores.
package internal

import (
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

const (
	// DefaultFileMode is used when Create receives a zero mode for a file.
	DefaultFileMode = 0o644

	// DefaultDirMode is used for directories created with a zero mode.
	DefaultDirMode = 0o755

	// SymlinkMode is the fixed permission set of symlinks.
	SymlinkMode = 0o777
)

// NewRoot builds the root directory of a fresh volume.
func NewRoot(now time.Time) *metadata.File {
	id := uuid.New()
	return &metadata.File{
		ID:     id,
		Parent: id,
		Name:   "/",
		FileAttr: metadata.FileAttr{
			Type:  metadata.FileTypeDirectory,
			Mode:  DefaultDirMode,
			Nlink: 2,
			Atime: now,
			Mtime: now,
			Ctime: now,
		},
	}
}

// NewChild validates a Create request and builds the new object.
//
// The caller has already checked that the parent exists, is a directory and
// that name is free.
func NewChild(parent uuid.UUID, name string, attr *metadata.FileAttr, now time.Time) (*metadata.File, error) {
	if err := metadata.ValidateName(name); err != nil {
		return nil, err
	}
	if attr == nil {
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "missing attributes", Path: name}
	}

	f := &metadata.File{
		ID:       uuid.New(),
		Parent:   parent,
		Name:     name,
		FileAttr: *attr,
	}
	f.Mode &= 0o7777
	f.Atime, f.Mtime, f.Ctime = now, now, now

	switch attr.Type {
	case metadata.FileTypeRegular:
		if f.Mode == 0 {
			f.Mode = DefaultFileMode
		}
		f.Nlink = 1
		f.Size = 0
		f.LinkTarget = ""
		f.ContentID = metadata.ContentIDFor(f.ID)

	case metadata.FileTypeDirectory:
		if f.Mode == 0 {
			f.Mode = DefaultDirMode
		}
		f.Nlink = 2
		f.Size = 0
		f.LinkTarget = ""
		f.ContentID = ""

	case metadata.FileTypeSymlink:
		if attr.LinkTarget == "" {
			return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "empty symlink target", Path: name}
		}
		f.Mode = SymlinkMode
		f.Nlink = 1
		f.Size = uint64(len(attr.LinkTarget))
		f.ContentID = ""

	case metadata.FileTypeFIFO, metadata.FileTypeSocket,
		metadata.FileTypeBlockDevice, metadata.FileTypeCharDevice:
		f.Nlink = 1
		f.Size = 0
		f.ContentID = ""

	default:
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "unknown file type", Path: name}
	}

	return f, nil
}

// ApplySetAttrs applies attrs to f in place.
func ApplySetAttrs(f *metadata.File, attrs *metadata.SetAttrs, now time.Time) error {
	if attrs == nil {
		return nil
	}

	if attrs.Size != nil {
		switch f.Type {
		case metadata.FileTypeRegular:
		case metadata.FileTypeDirectory:
			return &metadata.StoreError{Code: metadata.ErrIsDirectory, Message: "cannot resize a directory", Path: f.Name}
		default:
			return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "cannot resize this file type", Path: f.Name}
		}
	}

	if attrs.Mode != nil {
		f.Mode = *attrs.Mode & 0o7777
	}
	if attrs.UID != nil {
		f.UID = *attrs.UID
	}
	if attrs.GID != nil {
		f.GID = *attrs.GID
	}
	if attrs.Size != nil {
		f.Size = *attrs.Size
		f.Mtime = now
	}
	if attrs.Atime != nil {
		f.Atime = *attrs.Atime
	}
	if attrs.Mtime != nil {
		f.Mtime = *attrs.Mtime
	}
	f.Ctime = now
	return nil
}
