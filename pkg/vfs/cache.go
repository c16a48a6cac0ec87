package vfs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/orca-zhang/ecache"
)

const (
	statCacheBuckets     = 16
	defaultStatCacheSize = 8192
	maxStatCacheSize     = statCacheBuckets * 65535
)

// statCache is the md-cache translator: an LRU of object attributes with a
// TTL. A zero timeout disables it.
type statCache struct {
	mu      sync.RWMutex
	timeout time.Duration
	size    int
	lru     *ecache.Cache
}

func newStatCache(timeout time.Duration, size int) *statCache {
	c := &statCache{}
	c.configure(timeout, size)
	return c
}

// configure rebuilds the cache, dropping every cached entry.
func (c *statCache) configure(timeout time.Duration, size int) {
	if size <= 0 {
		size = defaultStatCacheSize
	}
	if size > maxStatCacheSize {
		size = maxStatCacheSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeout = timeout
	c.size = size
	c.lru = nil
	if timeout > 0 {
		perBucket := (size + statCacheBuckets - 1) / statCacheBuckets
		c.lru = ecache.NewLRUCache(statCacheBuckets, uint16(perBucket), timeout)
	}
}

func (c *statCache) settings() (time.Duration, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout, c.size
}

// get returns a private copy of the cached file.
func (c *statCache) get(id uuid.UUID) (*metadata.File, bool) {
	c.mu.RLock()
	lru := c.lru
	c.mu.RUnlock()
	if lru == nil {
		return nil, false
	}

	v, ok := lru.Get(id.String())
	if !ok {
		return nil, false
	}
	return v.(*metadata.File).Clone(), true
}

func (c *statCache) put(f *metadata.File) {
	c.mu.RLock()
	lru := c.lru
	c.mu.RUnlock()
	if lru == nil || f == nil {
		return
	}
	lru.Put(f.ID.String(), f.Clone())
}

func (c *statCache) invalidate(ids ...uuid.UUID) {
	c.mu.RLock()
	lru := c.lru
	c.mu.RUnlock()
	if lru == nil {
		return
	}
	for _, id := range ids {
		lru.Del(id.String())
	}
}

func (c *statCache) enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru != nil
}
