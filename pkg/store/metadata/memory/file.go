package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/marmos91/handlefs/pkg/store/metadata/internal"
)

func (s *MemoryMetadataStore) GetFile(ctx context.Context, id uuid.UUID) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return f.Clone(), nil
}

func (s *MemoryMetadataStore) Lookup(ctx context.Context, dir uuid.UUID, name string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.dirLocked(dir)
	if err != nil {
		return nil, err
	}

	switch name {
	case ".":
		return d.Clone(), nil
	case "..":
		p, err := s.getLocked(d.Parent)
		if err != nil {
			return nil, err
		}
		return p.Clone(), nil
	}

	childID, ok := s.children[dir][name]
	if !ok {
		return nil, metadata.NotFound("name not found", name)
	}

	child, err := s.getLocked(childID)
	if err != nil {
		return nil, err
	}
	return child.Clone(), nil
}

func (s *MemoryMetadataStore) Create(ctx context.Context, dir uuid.UUID, name string, attr *metadata.FileAttr) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.dirLocked(dir)
	if err != nil {
		return nil, err
	}

	if _, exists := s.children[dir][name]; exists {
		return nil, metadata.AlreadyExists(name)
	}

	now := time.Now()
	f, err := internal.NewChild(dir, name, attr, now)
	if err != nil {
		return nil, err
	}

	s.files[f.ID] = f
	s.children[dir][name] = f.ID
	if f.Type == metadata.FileTypeDirectory {
		s.children[f.ID] = make(map[string]uuid.UUID)
		parent.Nlink++
	}
	parent.Mtime = now
	parent.Ctime = now

	return f.Clone(), nil
}

func (s *MemoryMetadataStore) Remove(ctx context.Context, dir uuid.UUID, name string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.dirLocked(dir)
	if err != nil {
		return nil, err
	}

	childID, ok := s.children[dir][name]
	if !ok {
		return nil, metadata.NotFound("name not found", name)
	}
	child, err := s.getLocked(childID)
	if err != nil {
		return nil, err
	}

	if child.Type == metadata.FileTypeDirectory {
		if len(s.children[childID]) > 0 {
			return nil, &metadata.StoreError{Code: metadata.ErrNotEmpty, Message: "directory not empty", Path: name}
		}
		delete(s.children, childID)
		parent.Nlink--
	}

	delete(s.children[dir], name)
	delete(s.files, childID)
	delete(s.xattrs, childID)

	now := time.Now()
	parent.Mtime = now
	parent.Ctime = now

	child.Nlink = 0
	return child.Clone(), nil
}

func (s *MemoryMetadataStore) SetFileAttributes(ctx context.Context, id uuid.UUID, attrs *metadata.SetAttrs) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}

	// Apply to a copy so a rejected request leaves the object untouched.
	updated := f.Clone()
	if err := internal.ApplySetAttrs(updated, attrs, time.Now()); err != nil {
		return nil, err
	}
	*f = *updated

	return f.Clone(), nil
}

func (s *MemoryMetadataStore) ReadSymlink(ctx context.Context, id uuid.UUID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.getLocked(id)
	if err != nil {
		return "", err
	}
	if f.Type != metadata.FileTypeSymlink {
		return "", &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "not a symlink", Path: f.Name}
	}
	return f.LinkTarget, nil
}
