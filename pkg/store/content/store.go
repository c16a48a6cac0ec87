// Package content defines the storage of regular file data.
//
// Metadata stores reference file data through metadata.ContentID. A content
// store maps those identifiers to byte ranges. Content that was never written
// reads as empty: callers treat ErrContentNotFound on a read as a zero length
// file.
package content

import (
	"context"

	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// ContentStore stores the data of regular files.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Concurrent writes to the
// same ContentID are applied in some serial order; no stronger guarantee is
// given.
type ContentStore interface {
	// ReadAt reads len(p) bytes starting at offset.
	//
	// Follows io.ReaderAt: when fewer than len(p) bytes are available the
	// bytes read are returned together with io.EOF.
	//
	// Returns ErrContentNotFound if the content does not exist and
	// ErrInvalidOffset for negative offsets.
	ReadAt(ctx context.Context, id metadata.ContentID, p []byte, offset int64) (int, error)

	// WriteAt writes data at offset, creating the content if needed and
	// zero-filling any gap between the current end and offset.
	WriteAt(ctx context.Context, id metadata.ContentID, data []byte, offset int64) error

	// Truncate sets the content size, creating it if needed.
	Truncate(ctx context.Context, id metadata.ContentID, newSize uint64) error

	// Delete removes the content. Deleting missing content is not an error.
	Delete(ctx context.Context, id metadata.ContentID) error

	// GetContentSize returns the content size in bytes.
	GetContentSize(ctx context.Context, id metadata.ContentID) (uint64, error)

	// ContentExists reports whether the content exists.
	ContentExists(ctx context.Context, id metadata.ContentID) (bool, error)

	// GetStorageStats reports usage of the backend.
	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// GarbageCollectableStore is implemented by stores that can enumerate their
// content, which allows orphan detection.
type GarbageCollectableStore interface {
	ContentStore

	// ListAllContent returns every ContentID held by the store.
	ListAllContent(ctx context.Context) ([]metadata.ContentID, error)
}

// StorageStats describes the usage of a content store.
type StorageStats struct {
	// TotalSize is the capacity in bytes (^uint64(0) when unlimited).
	TotalSize uint64

	// UsedSize is the number of bytes stored.
	UsedSize uint64

	// AvailableSize is the free capacity in bytes.
	AvailableSize uint64

	// ContentCount is the number of stored items.
	ContentCount uint64

	// AverageSize is UsedSize / ContentCount (0 when empty).
	AverageSize uint64
}

// NewStorageStats builds unlimited-capacity stats from a used size and count.
func NewStorageStats(used, count uint64) *StorageStats {
	avg := uint64(0)
	if count > 0 {
		avg = used / count
	}
	return &StorageStats{
		TotalSize:     ^uint64(0),
		UsedSize:      used,
		AvailableSize: ^uint64(0),
		ContentCount:  count,
		AverageSize:   avg,
	}
}
