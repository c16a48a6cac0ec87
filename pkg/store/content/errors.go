package content

import "errors"

var (
	// ErrContentNotFound means no data exists for the ContentID.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidOffset means a negative offset was passed.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrInvalidContentID means the ContentID cannot be mapped to storage.
	ErrInvalidContentID = errors.New("invalid content id")

	// ErrStorageFull means the backend has no space left.
	ErrStorageFull = errors.New("storage full")
)
