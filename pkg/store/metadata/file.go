package metadata

import (
	"time"

	"github.com/google/uuid"
)

// File is one object of the volume together with its attributes.
//
// ID is the stable 16-byte identifier of the object. It never changes for the
// lifetime of the object and is what handles are built from. Parent is the
// directory that holds the object; the root directory is its own parent.
type File struct {
	// ID is the stable identifier of the object.
	ID uuid.UUID `json:"id"`

	// Parent is the ID of the directory containing this object.
	Parent uuid.UUID `json:"parent"`

	// Name is the entry name inside Parent ("/" for the root).
	Name string `json:"name"`

	FileAttr
}

// FileAttr contains the POSIX-like attributes of an object.
type FileAttr struct {
	// Type is the object type.
	Type FileType `json:"type"`

	// Mode holds the permission bits (0o7777). Type bits live in Type.
	Mode uint32 `json:"mode"`

	// UID is the owner user id.
	UID uint32 `json:"uid"`

	// GID is the owner group id.
	GID uint32 `json:"gid"`

	// Nlink is the link count. Directories start at 2.
	Nlink uint32 `json:"nlink"`

	// Size is the content size for regular files and the target length
	// for symlinks. Directories report 0.
	Size uint64 `json:"size"`

	Atime time.Time `json:"atime"`
	Mtime time.Time `json:"mtime"`
	Ctime time.Time `json:"ctime"`

	// ContentID identifies the data of a regular file in the content store.
	ContentID ContentID `json:"content_id,omitempty"`

	// LinkTarget is the target of a symlink.
	LinkTarget string `json:"link_target,omitempty"`
}

// SetAttrs lists the attributes to change. Nil fields are left untouched.
type SetAttrs struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
}

// FileType is the type of an object.
type FileType int

const (
	// FileTypeRegular is a regular file.
	FileTypeRegular FileType = iota

	// FileTypeDirectory is a directory.
	FileTypeDirectory

	// FileTypeSymlink is a symbolic link.
	FileTypeSymlink

	// FileTypeBlockDevice is a block special file.
	FileTypeBlockDevice

	// FileTypeCharDevice is a character special file.
	FileTypeCharDevice

	// FileTypeSocket is a unix socket.
	FileTypeSocket

	// FileTypeFIFO is a named pipe.
	FileTypeFIFO
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	case FileTypeBlockDevice:
		return "block"
	case FileTypeCharDevice:
		return "char"
	case FileTypeSocket:
		return "socket"
	case FileTypeFIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// ContentID identifies the data of a regular file in a content store.
type ContentID string

// ContentIDFor returns the content identifier used for a regular file.
func ContentIDFor(id uuid.UUID) ContentID {
	return ContentID(id.String())
}

// Clone returns a copy of f that shares no mutable state with it.
func (f *File) Clone() *File {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
