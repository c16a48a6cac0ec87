// Package volume opens a handlefs volume and hands out Handles on it.
//
// A Volume owns one vfs.Session together with the metadata and content
// stores behind it. It is the factory for the root Handle and for Handles
// resolved by identifier, by path or from an exported blob.
//
// Example:
//
//	vol, err := volume.Open(ctx, volume.Options{
//	    Name:     "vol0",
//	    Metadata: memory.NewMemoryMetadataStoreWithDefaults(),
//	    Content:  contentStore,
//	})
//	if err != nil {
//	    return err
//	}
//	defer vol.Close()
//
//	root, err := vol.RootHandle(ctx)
package volume

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/handle"
	"github.com/marmos91/handlefs/pkg/metrics"
	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/marmos91/handlefs/pkg/vfs"
)

// DefaultVolfilePort is used for volfile servers configured with port 0.
const DefaultVolfilePort = 24007

// Transport protocols accepted for volfile servers.
const (
	ProtoTCP  = "tcp"
	ProtoRDMA = "rdma"
)

// VolfileServer is one management server the volume layout is fetched
// from.
type VolfileServer struct {
	Host  string
	Proto string
	Port  int
}

// XlatorOption sets one translator option on the session.
type XlatorOption struct {
	Xlator string
	Key    string
	Value  string
}

// Logging is the logging setup applied when the volume was opened.
type Logging struct {
	File  string
	Level string
}

// Options configures Open.
type Options struct {
	// Name identifies the volume. Required.
	Name string

	// VolfileServers lists the management servers for the volume. Ports of
	// 0 default to DefaultVolfilePort.
	VolfileServers []VolfileServer

	// Xlators are applied in order after the session is up.
	Xlators []XlatorOption

	// LogFile redirects the process log when set. LogLevel sets the level
	// when set.
	LogFile  string
	LogLevel string

	// Metadata and Content are the backing stores. The volume takes
	// ownership of both, including when Open fails.
	Metadata metadata.Store
	Content  content.ContentStore

	// Metrics is optional.
	Metrics metrics.VFSMetrics
}

// Volume is an open volume.
type Volume struct {
	name    string
	servers []VolfileServer
	xlators []XlatorOption
	logging Logging
	session *vfs.Session

	ownsLogFile bool
	closeOnce   sync.Once
	closeErr    error
}

func normalizeServers(in []VolfileServer) ([]VolfileServer, error) {
	out := make([]VolfileServer, 0, len(in))
	for i, srv := range in {
		if srv.Host == "" {
			return nil, fmt.Errorf("volfile server %d: host is required", i)
		}

		proto := strings.ToLower(srv.Proto)
		if proto == "" {
			proto = ProtoTCP
		}
		if proto != ProtoTCP && proto != ProtoRDMA {
			return nil, fmt.Errorf("volfile server %s: unsupported transport %q", srv.Host, srv.Proto)
		}

		port := srv.Port
		if port == 0 {
			port = DefaultVolfilePort
		}
		if port < 0 || port >= 65535 {
			return nil, fmt.Errorf("volfile server %s: invalid port %d", srv.Host, srv.Port)
		}

		out = append(out, VolfileServer{Host: srv.Host, Proto: proto, Port: port})
	}
	return out, nil
}

func closeStores(meta metadata.Store, cs content.ContentStore) {
	if meta != nil {
		if err := meta.Close(); err != nil {
			logger.Warn("volume: closing metadata store: %v", err)
		}
	}
	if c, ok := cs.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("volume: closing content store: %v", err)
		}
	}
}

// Open validates opts, connects a session to the stores and applies the
// translator options.
func Open(ctx context.Context, opts Options) (*Volume, error) {
	if opts.Name == "" {
		closeStores(opts.Metadata, opts.Content)
		return nil, fmt.Errorf("volume name is required")
	}
	servers, err := normalizeServers(opts.VolfileServers)
	if err != nil {
		closeStores(opts.Metadata, opts.Content)
		return nil, err
	}

	v := &Volume{
		name:    opts.Name,
		servers: servers,
		xlators: append([]XlatorOption(nil), opts.Xlators...),
		logging: Logging{File: opts.LogFile, Level: strings.ToUpper(opts.LogLevel)},
	}

	if opts.LogLevel != "" {
		if _, err := logger.ParseLevel(opts.LogLevel); err != nil {
			closeStores(opts.Metadata, opts.Content)
			return nil, err
		}
		logger.SetLevel(opts.LogLevel)
	}
	if opts.LogFile != "" {
		if err := logger.SetFile(opts.LogFile); err != nil {
			closeStores(opts.Metadata, opts.Content)
			return nil, fmt.Errorf("open log file: %w", err)
		}
		v.ownsLogFile = true
	}

	s, err := vfs.NewSession(ctx, vfs.SessionConfig{
		Name:     opts.Name,
		Metadata: opts.Metadata,
		Content:  opts.Content,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		closeStores(opts.Metadata, opts.Content)
		v.closeLog()
		return nil, fmt.Errorf("connect volume %s: %w", opts.Name, err)
	}
	v.session = s

	for _, x := range v.xlators {
		if err := s.SetXlatorOption(x.Xlator, x.Key, x.Value); err != nil {
			_ = v.Close()
			return nil, fmt.Errorf("xlator option %s.%s=%s: %w", x.Xlator, x.Key, x.Value, err)
		}
	}

	logger.Info("volume %s opened (id=%s, servers=%d, xlator options=%d)",
		v.name, s.VolumeID(), len(v.servers), len(v.xlators))
	return v, nil
}

func (v *Volume) closeLog() {
	if v.ownsLogFile {
		_ = logger.Close()
		v.ownsLogFile = false
	}
}

// Name returns the volume name.
func (v *Volume) Name() string {
	return v.name
}

// UUID returns the volume identifier in canonical form.
func (v *Volume) UUID() string {
	return v.session.VolumeID().String()
}

// VolfileServers returns the normalized server list.
func (v *Volume) VolfileServers() []VolfileServer {
	return append([]VolfileServer(nil), v.servers...)
}

// Xlators returns the translator options applied at open.
func (v *Volume) Xlators() []XlatorOption {
	return append([]XlatorOption(nil), v.xlators...)
}

// Logging returns the logging setup applied at open.
func (v *Volume) Logging() Logging {
	return v.logging
}

// Session exposes the underlying session.
func (v *Volume) Session() *vfs.Session {
	return v.session
}

// Outstanding reports live object references and descriptors.
func (v *Volume) Outstanding() vfs.Usage {
	return v.session.Outstanding()
}

// RootHandle returns a new Handle on the volume root, with stat, named "/".
func (v *Volume) RootHandle(ctx context.Context) (*handle.Handle, error) {
	obj, st, err := v.session.LookupAt(ctx, nil, "/", true)
	if err != nil {
		return nil, err
	}
	return handle.New(v.session, obj, "/", st), nil
}

// OpenByUUID returns a Handle on the object with the given identifier.
// A malformed identifier fails with EINVAL, an unknown one with ESTALE.
func (v *Volume) OpenByUUID(ctx context.Context, id string) (*handle.Handle, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, &vfs.Error{Op: "h_create_from_handle", Errno: syscall.EINVAL, Err: err}
	}
	return v.openByID(ctx, parsed)
}

func (v *Volume) openByID(ctx context.Context, id uuid.UUID) (*handle.Handle, error) {
	obj, st, err := v.session.CreateFromHandle(ctx, id)
	if err != nil {
		return nil, err
	}
	return handle.New(v.session, obj, "", st), nil
}

// ResolvePath resolves path relative to h. A nil h resolves relative paths
// from the working directory.
func (v *Volume) ResolvePath(ctx context.Context, h *handle.Handle, path string, follow, stat bool) (*handle.Handle, error) {
	if h != nil {
		return h.Lookup(ctx, path, &handle.LookupOptions{Stat: stat, FollowSymlink: follow})
	}

	obj, st, err := v.session.LookupAt(ctx, nil, path, follow)
	if err != nil {
		return nil, err
	}
	if !stat {
		st = nil
	}
	name := strings.TrimRight(path, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = path
	}
	return handle.New(v.session, obj, name, st), nil
}

// Getcwd returns the path of the working directory.
func (v *Volume) Getcwd(ctx context.Context) (string, error) {
	return v.session.Getcwd(ctx)
}

// ImportHandle turns a blob from handle.Handle.Export back into a Handle.
// Blobs exported from another volume fail with ESTALE.
func (v *Volume) ImportHandle(ctx context.Context, blob []byte) (*handle.Handle, error) {
	exp, err := handle.DecodeExported(blob)
	if err != nil {
		return nil, err
	}
	if exp.Volume != v.session.VolumeID() {
		return nil, &vfs.Error{Op: "import", Errno: syscall.ESTALE}
	}
	return v.openByID(ctx, exp.Object)
}

// Close closes the session and its stores. Handles obtained from the
// volume fail with ENOTCONN afterwards. Close is idempotent.
func (v *Volume) Close() error {
	v.closeOnce.Do(func() {
		v.closeErr = v.session.Close()
		logger.Info("volume %s closed", v.name)
		v.closeLog()
	})
	return v.closeErr
}
