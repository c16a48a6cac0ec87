package metadata

import (
	"context"

	"github.com/google/uuid"
)

// XattrFlag controls SetXattr behavior.
type XattrFlag int

const (
	// XattrAny creates or replaces the attribute.
	XattrAny XattrFlag = 0

	// XattrCreate fails with ErrAlreadyExists if the attribute exists.
	XattrCreate XattrFlag = 1

	// XattrReplace fails with ErrNoAttribute if the attribute does not exist.
	XattrReplace XattrFlag = 2
)

// Store is the metadata backend of a volume.
//
// A Store holds the object tree: every object is a File identified by a
// stable UUID, directories map entry names to child IDs, and each object may
// carry extended attributes. File data lives in a content store and is
// referenced through FileAttr.ContentID.
//
// Root and VolumeID are created on first open and never change afterwards.
// The root directory is its own parent.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Every method checks ctx before touching state.
type Store interface {
	// VolumeID returns the identifier of the volume held by this store.
	VolumeID(ctx context.Context) (uuid.UUID, error)

	// Root returns the root directory.
	Root(ctx context.Context) (*File, error)

	// GetFile returns the object with the given ID.
	//
	// Returns ErrNotFound if no such object exists.
	GetFile(ctx context.Context, id uuid.UUID) (*File, error)

	// Lookup resolves one entry name inside a directory.
	//
	// "." returns the directory itself and ".." returns its parent.
	// Returns ErrNotDirectory if dir is not a directory and ErrNotFound if
	// the name does not exist.
	Lookup(ctx context.Context, dir uuid.UUID, name string) (*File, error)

	// Create adds a new entry to a directory.
	//
	// attr.Type selects the object type. Regular files get a ContentID
	// derived from their ID, symlinks require attr.LinkTarget. Timestamps
	// and link counts are filled in by the store.
	//
	// Returns ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, dir uuid.UUID, name string, attr *FileAttr) (*File, error)

	// Remove deletes an entry from a directory and returns the removed object.
	//
	// Directories must be empty (ErrNotEmpty otherwise). Callers are
	// responsible for releasing the content of removed regular files.
	Remove(ctx context.Context, dir uuid.UUID, name string) (*File, error)

	// SetFileAttributes applies attrs to an object and returns the result.
	//
	// Size changes are only valid for regular files.
	SetFileAttributes(ctx context.Context, id uuid.UUID, attrs *SetAttrs) (*File, error)

	// ReadDirectory lists a directory in name order.
	//
	// cookie is the NextCookie of a previous page or "" to start. limit
	// caps the number of entries; limit <= 0 returns everything.
	ReadDirectory(ctx context.Context, dir uuid.UUID, cookie string, limit int) (*ReadDirPage, error)

	// ReadSymlink returns the target of a symlink.
	ReadSymlink(ctx context.Context, id uuid.UUID) (string, error)

	// GetXattr returns the value of an extended attribute.
	GetXattr(ctx context.Context, id uuid.UUID, name string) ([]byte, error)

	// SetXattr sets an extended attribute.
	SetXattr(ctx context.Context, id uuid.UUID, name string, value []byte, flag XattrFlag) error

	// ListXattrs returns the extended attribute names of an object, sorted.
	ListXattrs(ctx context.Context, id uuid.UUID) ([]string, error)

	// RemoveXattr deletes an extended attribute.
	RemoveXattr(ctx context.Context, id uuid.UUID, name string) error

	// Healthcheck verifies that the store is operational.
	Healthcheck(ctx context.Context) error

	// Close releases the resources held by the store.
	Close() error
}
