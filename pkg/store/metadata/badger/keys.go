package badger

import (
	"github.com/google/uuid"
)

// ============================================================================
// Key Layout
// ============================================================================
//
// All data lives in a single BadgerDB keyspace, partitioned by prefix:
//
//   f:<uuid>             -> JSON encoded metadata.File
//   c:<parent>:<name>    -> 16 byte child UUID
//   x:<uuid>:<name>      -> extended attribute value
//   cfg:volume-id        -> 16 byte volume UUID
//   cfg:root-id          -> 16 byte root directory UUID
//
// Child keys sort by name under their parent prefix, which gives
// ReadDirectory its name ordering for free.

const (
	prefixFile   = "f:"
	prefixChild  = "c:"
	prefixXattr  = "x:"
	prefixConfig = "cfg:"
)

func keyFile(id uuid.UUID) []byte {
	return []byte(prefixFile + id.String())
}

func keyChild(parentID uuid.UUID, childName string) []byte {
	return []byte(prefixChild + parentID.String() + ":" + childName)
}

func keyChildPrefix(parentID uuid.UUID) []byte {
	return []byte(prefixChild + parentID.String() + ":")
}

func keyXattr(id uuid.UUID, name string) []byte {
	return []byte(prefixXattr + id.String() + ":" + name)
}

func keyXattrPrefix(id uuid.UUID) []byte {
	return []byte(prefixXattr + id.String() + ":")
}

func keyVolumeID() []byte {
	return []byte(prefixConfig + "volume-id")
}

func keyRootID() []byte {
	return []byte(prefixConfig + "root-id")
}
