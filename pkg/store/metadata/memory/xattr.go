package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

func (s *MemoryMetadataStore) GetXattr(ctx context.Context, id uuid.UUID, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getLocked(id); err != nil {
		return nil, err
	}

	value, ok := s.xattrs[id][name]
	if !ok {
		return nil, &metadata.StoreError{Code: metadata.ErrNoAttribute, Message: "attribute not found", Path: name}
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryMetadataStore) SetXattr(ctx context.Context, id uuid.UUID, name string, value []byte, flag metadata.XattrFlag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "empty attribute name"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.getLocked(id)
	if err != nil {
		return err
	}

	attrs := s.xattrs[id]
	_, exists := attrs[name]
	switch {
	case flag == metadata.XattrCreate && exists:
		return &metadata.StoreError{Code: metadata.ErrAlreadyExists, Message: "attribute exists", Path: name}
	case flag == metadata.XattrReplace && !exists:
		return &metadata.StoreError{Code: metadata.ErrNoAttribute, Message: "attribute not found", Path: name}
	}

	if attrs == nil {
		attrs = make(map[string][]byte)
		s.xattrs[id] = attrs
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	attrs[name] = stored

	f.Ctime = time.Now()
	return nil
}

func (s *MemoryMetadataStore) ListXattrs(ctx context.Context, id uuid.UUID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getLocked(id); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.xattrs[id]))
	for name := range s.xattrs[id] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryMetadataStore) RemoveXattr(ctx context.Context, id uuid.UUID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.getLocked(id)
	if err != nil {
		return err
	}

	if _, ok := s.xattrs[id][name]; !ok {
		return &metadata.StoreError{Code: metadata.ErrNoAttribute, Message: "attribute not found", Path: name}
	}
	delete(s.xattrs[id], name)

	f.Ctime = time.Now()
	return nil
}
