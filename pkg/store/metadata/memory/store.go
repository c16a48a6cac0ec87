// Package memory implements an in-memory metadata store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/marmos91/handlefs/pkg/store/metadata/internal"
)

// MemoryMetadataStore implements metadata.Store entirely in memory.
//
// It is meant for tests, development and ephemeral volumes. All state is lost
// when the process exits.
//
// Layout:
//   - files: object ID to attributes
//   - children: directory ID to entry name to child ID
//   - xattrs: object ID to attribute name to value
//
// Thread Safety:
// All access is protected by a single sync.RWMutex. Returned Files are copies
// so callers can mutate them freely.
type MemoryMetadataStore struct {
	mu sync.RWMutex

	volumeID uuid.UUID
	rootID   uuid.UUID

	files    map[uuid.UUID]*metadata.File
	children map[uuid.UUID]map[string]uuid.UUID
	xattrs   map[uuid.UUID]map[string][]byte

	closed bool
}

// MemoryMetadataStoreConfig configures a MemoryMetadataStore.
type MemoryMetadataStoreConfig struct {
	// VolumeID fixes the volume identifier. A random one is generated when
	// left as uuid.Nil.
	VolumeID uuid.UUID
}

// NewMemoryMetadataStore creates a store holding only an empty root directory.
func NewMemoryMetadataStore(config MemoryMetadataStoreConfig) *MemoryMetadataStore {
	volumeID := config.VolumeID
	if volumeID == uuid.Nil {
		volumeID = uuid.New()
	}

	root := internal.NewRoot(time.Now())

	return &MemoryMetadataStore{
		volumeID: volumeID,
		rootID:   root.ID,
		files:    map[uuid.UUID]*metadata.File{root.ID: root},
		children: map[uuid.UUID]map[string]uuid.UUID{root.ID: {}},
		xattrs:   make(map[uuid.UUID]map[string][]byte),
	}
}

// NewMemoryMetadataStoreWithDefaults creates a store with a random volume ID.
func NewMemoryMetadataStoreWithDefaults() *MemoryMetadataStore {
	return NewMemoryMetadataStore(MemoryMetadataStoreConfig{})
}

func (s *MemoryMetadataStore) VolumeID(ctx context.Context) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	return s.volumeID, nil
}

func (s *MemoryMetadataStore) Root(ctx context.Context) (*metadata.File, error) {
	return s.GetFile(ctx, s.rootID)
}

func (s *MemoryMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return &metadata.StoreError{Code: metadata.ErrIOError, Message: "store closed"}
	}
	if _, ok := s.files[s.rootID]; !ok {
		return &metadata.StoreError{Code: metadata.ErrIOError, Message: "root directory missing"}
	}
	return nil
}

func (s *MemoryMetadataStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// getLocked returns the stored object (not a copy). Callers hold s.mu.
func (s *MemoryMetadataStore) getLocked(id uuid.UUID) (*metadata.File, error) {
	f, ok := s.files[id]
	if !ok {
		return nil, metadata.NotFound("object not found", id.String())
	}
	return f, nil
}

// dirLocked returns the stored directory object. Callers hold s.mu.
func (s *MemoryMetadataStore) dirLocked(id uuid.UUID) (*metadata.File, error) {
	f, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if f.Type != metadata.FileTypeDirectory {
		return nil, metadata.NotDirectory(f.Name)
	}
	return f, nil
}
