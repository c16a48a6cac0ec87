// Package fs implements content storage in a local directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// FSContentStore stores each content item as one file named after its
// ContentID inside basePath.
type FSContentStore struct {
	basePath string
}

// NewFSContentStore creates the base directory if needed and returns a store
// rooted there.
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{basePath: basePath}, nil
}

func (r *FSContentStore) getFilePath(id metadata.ContentID) (string, error) {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("content %q: %w", id, content.ErrInvalidContentID)
	}
	return filepath.Join(r.basePath, s), nil
}

func (r *FSContentStore) ReadAt(ctx context.Context, id metadata.ContentID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, content.ErrInvalidOffset
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open content %s: %w", id, err)
	}
	defer f.Close()

	n, err := f.ReadAt(p, offset)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("failed to read content %s: %w", id, err)
	}
	return n, err
}

func (r *FSContentStore) WriteAt(ctx context.Context, id metadata.ContentID, data []byte, offset int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset < 0 {
		return content.ErrInvalidOffset
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open content %s: %w", id, err)
	}

	if _, err := f.WriteAt(data, offset); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write content %s: %w", id, err)
	}
	return f.Close()
}

func (r *FSContentStore) Truncate(ctx context.Context, id metadata.ContentID, newSize uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open content %s: %w", id, err)
	}
	if err := f.Truncate(int64(newSize)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to truncate content %s: %w", id, err)
	}
	return f.Close()
}

func (r *FSContentStore) Delete(ctx context.Context, id metadata.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete content %s: %w", id, err)
	}
	return nil
}

func (r *FSContentStore) GetContentSize(ctx context.Context, id metadata.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat content %s: %w", id, err)
	}
	return uint64(info.Size()), nil
}

func (r *FSContentStore) ContentExists(ctx context.Context, id metadata.ContentID) (bool, error) {
	_, err := r.GetContentSize(ctx, id)
	if errors.Is(err, content.ErrContentNotFound) {
		return false, nil
	}
	return err == nil, err
}

// GetStorageStats scans the base directory with fastwalk. Capacity is
// reported as unlimited.
func (r *FSContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	var (
		mu    sync.Mutex
		used  uint64
		count uint64
	)

	err := r.walk(ctx, func(_ string, info iofs.FileInfo) {
		mu.Lock()
		used += uint64(info.Size())
		count++
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	return content.NewStorageStats(used, count), nil
}

func (r *FSContentStore) ListAllContent(ctx context.Context) ([]metadata.ContentID, error) {
	var (
		mu  sync.Mutex
		ids []metadata.ContentID
	)

	err := r.walk(ctx, func(name string, _ iofs.FileInfo) {
		mu.Lock()
		ids = append(ids, metadata.ContentID(name))
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// walk calls fn for each regular file directly under basePath. fastwalk
// invokes its callback from several goroutines, so fn must be safe for
// concurrent use.
func (r *FSContentStore) walk(ctx context.Context, fn func(name string, info iofs.FileInfo)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, r.basePath, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != r.basePath {
				return iofs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		fn(d.Name(), info)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", r.basePath, err)
	}
	return nil
}
