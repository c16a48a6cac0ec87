package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

func (s *MemoryMetadataStore) ReadDirectory(ctx context.Context, dir uuid.UUID, cookie string, limit int) (*metadata.ReadDirPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.dirLocked(dir); err != nil {
		return nil, err
	}

	entries := s.children[dir]
	names := make([]string, 0, len(entries))
	for name := range entries {
		if name > cookie {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	page := &metadata.ReadDirPage{}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
		page.HasMore = true
	}

	page.Entries = make([]metadata.DirEntry, 0, len(names))
	for _, name := range names {
		child := s.files[entries[name]]
		attr := child.FileAttr
		page.Entries = append(page.Entries, metadata.DirEntry{
			Name: name,
			ID:   child.ID,
			Attr: &attr,
		})
	}

	if len(names) > 0 {
		page.NextCookie = names[len(names)-1]
	} else {
		page.NextCookie = cookie
	}

	return page, nil
}
