package metadata

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxNameLength is the longest entry name accepted by the stores.
const MaxNameLength = 255

// IDToInode derives a stable inode number from an object ID.
//
// The first 8 bytes of the SHA-256 of the ID are used, so the mapping is
// deterministic across restarts and stores.
func IDToInode(id uuid.UUID) uint64 {
	if id == uuid.Nil {
		return 0
	}

	hash := sha256.Sum256(id[:])

	return binary.BigEndian.Uint64(hash[:8])
}

// ParseID parses the canonical string form of an object ID.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &StoreError{
			Code:    ErrInvalidHandle,
			Message: fmt.Sprintf("invalid object id %q", s),
		}
	}
	return id, nil
}

// ValidateName checks that name can be used as a single directory entry.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &StoreError{Code: ErrInvalidArgument, Message: "empty name"}
	case name == "." || name == "..":
		return &StoreError{Code: ErrInvalidArgument, Message: "reserved name", Path: name}
	case strings.ContainsRune(name, '/'):
		return &StoreError{Code: ErrInvalidArgument, Message: "name contains '/'", Path: name}
	case strings.ContainsRune(name, 0):
		return &StoreError{Code: ErrInvalidArgument, Message: "name contains NUL", Path: name}
	case len(name) > MaxNameLength:
		return &StoreError{Code: ErrNameTooLong, Message: "name too long", Path: name}
	}
	return nil
}
