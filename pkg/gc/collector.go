// Package gc removes orphaned content from a volume's content store.
//
// Content becomes orphaned when a file is unlinked but its data could not
// be deleted, for example when the content backend was unreachable. The
// collector walks the metadata tree to find every ContentID still in use,
// lists the content store and deletes the difference.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// Config contains configuration for the garbage collector.
type Config struct {
	// BatchSize is how many orphans are deleted between cancellation
	// checks (default: 1000)
	BatchSize int

	// DryRun logs what would be deleted without deleting anything
	DryRun bool
}

// Collector finds and deletes orphaned content.
//
// Run it while no other client is writing to the volume: content created
// between the metadata walk and the listing would be seen as orphaned.
type Collector struct {
	meta    metadata.Store
	content content.GarbageCollectableStore
	config  Config
}

// NewCollector fails if the content store cannot enumerate its content.
func NewCollector(meta metadata.Store, cs content.ContentStore, config Config) (*Collector, error) {
	gcStore, ok := cs.(content.GarbageCollectableStore)
	if !ok {
		return nil, fmt.Errorf("content store does not implement GarbageCollectableStore interface")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	return &Collector{meta: meta, content: gcStore, config: config}, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime       time.Time // When collection started
	EndTime         time.Time // When collection ended
	ReferencedCount uint64    // ContentIDs referenced by metadata
	ExistingCount   uint64    // ContentIDs in the content store
	OrphanedCount   uint64    // Orphans found
	DeletedCount    uint64    // Orphans deleted
	FailedCount     uint64    // Orphans that failed to delete
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}

// Run performs one collection.
func (c *Collector) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	referenced, err := c.referenced(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get referenced content: %w", err)
	}
	stats.ReferencedCount = uint64(len(referenced))
	logger.Debug("GC: %d referenced content items", stats.ReferencedCount)

	existing, err := c.content.ListAllContent(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	var orphaned []metadata.ContentID
	for _, id := range existing {
		if _, ok := referenced[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		logger.Info("GC: no orphaned content found")
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - would delete %d items", len(orphaned))
		for i, id := range orphaned {
			if i == 10 {
				logger.Info("  ... and %d more", len(orphaned)-10)
				break
			}
			logger.Info("  - %s", id)
		}
		return stats, nil
	}

	for i, id := range orphaned {
		if i%c.config.BatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		if err := c.content.Delete(ctx, id); err != nil {
			logger.Debug("GC: failed to delete %s: %v", id, err)
			stats.FailedCount++
			continue
		}
		stats.DeletedCount++
	}

	logger.Info("GC: deleted %d items, %d failed", stats.DeletedCount, stats.FailedCount)
	return stats, nil
}

// referenced walks the metadata tree from the root and collects the
// ContentID of every regular file.
func (c *Collector) referenced(ctx context.Context) (map[metadata.ContentID]struct{}, error) {
	root, err := c.meta.Root(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[metadata.ContentID]struct{})
	pending := []uuid.UUID{root.ID}
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		cookie := ""
		for {
			page, err := c.meta.ReadDirectory(ctx, dir, cookie, 0)
			if err != nil {
				return nil, err
			}
			for _, e := range page.Entries {
				attr := e.Attr
				if attr == nil {
					f, err := c.meta.GetFile(ctx, e.ID)
					if err != nil {
						return nil, err
					}
					attr = &f.FileAttr
				}
				switch attr.Type {
				case metadata.FileTypeDirectory:
					pending = append(pending, e.ID)
				case metadata.FileTypeRegular:
					if attr.ContentID != "" {
						out[attr.ContentID] = struct{}{}
					}
				}
			}
			if !page.HasMore {
				break
			}
			cookie = page.NextCookie
		}
	}
	return out, nil
}
