// Package vfs is the remote object layer handlefs is built on.
//
// A Session talks to a volume made of a metadata store and a content store.
// It hands out reference-counted Objects (one per live reference to a remote
// object) and FDs (open I/O channels). Directory streams yield transient
// objects that are valid only until the next read on the same FD; callers
// that need an object past that point must Dup it.
//
// Every Object and FD a Session creates is counted. Outstanding reports the
// live counts so callers can verify that nothing leaks.
package vfs

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/internal/ratelimiter"
	"github.com/marmos91/handlefs/pkg/metrics"
	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// Translator names and option keys understood by SetXlatorOption.
const (
	XlatorMDCache      = "performance/md-cache"
	XlatorReaddirAhead = "performance/readdir-ahead"
	XlatorRateLimit    = "features/rate-limit"
	XlatorClient       = "protocol/client"

	OptionTimeout      = "timeout"
	OptionCacheSize    = "cache-size"
	OptionPageSize     = "page-size"
	OptionOpsPerSecond = "ops-per-second"
	OptionBurst        = "burst"
	OptionMaxHandles   = "max-handles"
)

// DefaultReaddirPageSize is the number of entries fetched per directory page.
const DefaultReaddirPageSize = 128

// maxSymlinkHops bounds symlink expansion during path resolution.
const maxSymlinkHops = 40

// SessionConfig configures NewSession.
type SessionConfig struct {
	// Name identifies the volume in logs and metrics.
	Name string

	// Metadata and Content are the backing stores. The session owns them and
	// closes them on Close.
	Metadata metadata.Store
	Content  content.ContentStore

	// Metrics is optional; nil disables collection.
	Metrics metrics.VFSMetrics
}

// Usage counts live references created by a session.
type Usage struct {
	Objects int64
	FDs     int64
}

// Session is a connection to one volume.
//
// All methods are safe for concurrent use. Individual FDs are not.
type Session struct {
	name     string
	meta     metadata.Store
	content  content.ContentStore
	metrics  metrics.VFSMetrics
	limiter  *ratelimiter.Limiter
	cache    *statCache
	locks    *lockTable
	volumeID uuid.UUID
	rootID   uuid.UUID
	dev      uint64

	// maxHandles caps outstanding objects; 0 means unlimited.
	maxHandles atomic.Int64
	pageSize   atomic.Int64

	objects atomic.Int64
	fds     atomic.Int64

	cwdMu sync.Mutex
	cwd   uuid.UUID

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSession connects to the volume backed by cfg's stores.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.Metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if cfg.Content == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopVFSMetrics()
	}

	if err := cfg.Metadata.Healthcheck(ctx); err != nil {
		return nil, wrap("init", err)
	}
	volumeID, err := cfg.Metadata.VolumeID(ctx)
	if err != nil {
		return nil, wrap("init", err)
	}
	root, err := cfg.Metadata.Root(ctx)
	if err != nil {
		return nil, wrap("init", err)
	}

	s := &Session{
		name:     cfg.Name,
		meta:     cfg.Metadata,
		content:  cfg.Content,
		metrics:  cfg.Metrics,
		limiter:  ratelimiter.New(0, 0),
		cache:    newStatCache(0, 0),
		locks:    newLockTable(),
		volumeID: volumeID,
		rootID:   root.ID,
		dev:      deviceID(volumeID),
		cwd:      root.ID,
	}
	s.pageSize.Store(DefaultReaddirPageSize)

	logger.Debug("vfs: session %q connected: volume=%s root=%s", s.name, volumeID, root.ID)
	return s, nil
}

// Name returns the volume name the session was created with.
func (s *Session) Name() string { return s.name }

// VolumeID returns the identifier of the connected volume.
func (s *Session) VolumeID() uuid.UUID { return s.volumeID }

// RootID returns the identifier of the volume root directory.
func (s *Session) RootID() uuid.UUID { return s.rootID }

// Stores returns the backing stores. Callers must not close them.
func (s *Session) Stores() (metadata.Store, content.ContentStore) {
	return s.meta, s.content
}

// Outstanding returns the number of live objects and open descriptors.
func (s *Session) Outstanding() Usage {
	return Usage{Objects: s.objects.Load(), FDs: s.fds.Load()}
}

// SetXlatorOption configures a translator of the session's graph.
//
// Unknown translators, unknown keys and malformed values fail with EINVAL.
func (s *Session) SetXlatorOption(xlator, key, value string) error {
	const op = "set_xlator_option"

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return newError(op, syscall.EINVAL)
	}

	switch xlator + ":" + key {
	case XlatorMDCache + ":" + OptionTimeout:
		_, size := s.cache.settings()
		s.cache.configure(time.Duration(n)*time.Second, size)
	case XlatorMDCache + ":" + OptionCacheSize:
		if n == 0 {
			return newError(op, syscall.EINVAL)
		}
		timeout, _ := s.cache.settings()
		s.cache.configure(timeout, int(n))
	case XlatorReaddirAhead + ":" + OptionPageSize:
		if n == 0 {
			return newError(op, syscall.EINVAL)
		}
		s.pageSize.Store(n)
	case XlatorRateLimit + ":" + OptionOpsPerSecond:
		_, burst := s.limiter.Limit()
		s.limiter.Reconfigure(uint(n), burst)
	case XlatorRateLimit + ":" + OptionBurst:
		ops, _ := s.limiter.Limit()
		if ops == 0 {
			// burst alone does not enable throttling
			return nil
		}
		s.limiter.Reconfigure(ops, uint(n))
	case XlatorClient + ":" + OptionMaxHandles:
		s.maxHandles.Store(n)
	default:
		return newError(op, syscall.EINVAL)
	}

	logger.Info("vfs: %s: %s.%s = %s", s.name, xlator, key, value)
	return nil
}

// Close disconnects the session and closes its stores. Objects and FDs
// still open fail with ENOTCONN afterwards.
func (s *Session) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		if usage := s.Outstanding(); usage.Objects > 0 || usage.FDs > 0 {
			logger.Warn("vfs: session %q closed with %d objects and %d fds outstanding",
				s.name, usage.Objects, usage.FDs)
		}

		if err := s.meta.Close(); err != nil {
			closeErr = fmt.Errorf("close metadata store: %w", err)
		}
		if c, ok := s.content.(io.Closer); ok {
			if err := c.Close(); err != nil && closeErr == nil {
				closeErr = fmt.Errorf("close content store: %w", err)
			}
		}
		logger.Debug("vfs: session %q closed", s.name)
	})
	return closeErr
}

// enter gates a remote operation: the session must be connected and the
// rate-limit translator must grant a token.
func (s *Session) enter(ctx context.Context, op string) error {
	if s.closed.Load() {
		return newError(op, syscall.ENOTCONN)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return wrap(op, ctx.Err())
		}
		// the token would not arrive before the deadline
		return &Error{Op: op, Errno: syscall.ETIMEDOUT, Err: err}
	}
	return nil
}

// observe records a finished operation. Use as
// defer s.observe("op", time.Now(), &err).
func (s *Session) observe(op string, start time.Time, errp *error) {
	s.metrics.RecordOperation(s.name, op, time.Since(start), *errp)
}

func (s *Session) publishUsage() {
	s.metrics.SetOutstanding(s.name, s.objects.Load(), s.fds.Load())
}

// getFile reads an object's metadata through md-cache.
func (s *Session) getFile(ctx context.Context, id uuid.UUID) (*metadata.File, error) {
	if f, ok := s.cache.get(id); ok {
		s.metrics.RecordStatCache(s.name, true)
		return f, nil
	}
	if s.cache.enabled() {
		s.metrics.RecordStatCache(s.name, false)
	}

	f, err := s.meta.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.put(f)
	return f, nil
}

func (s *Session) stat(f *metadata.File) *Stat {
	st := &Stat{}
	fillStat(st, s.dev, f.ID, &f.FileAttr)
	return st
}
