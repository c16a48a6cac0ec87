package volume

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/marmos91/handlefs/pkg/config"
	contentmemory "github.com/marmos91/handlefs/pkg/store/content/memory"
	"github.com/marmos91/handlefs/pkg/store/metadata/memory"
	"github.com/marmos91/handlefs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	cs, err := contentmemory.NewMemoryContentStore(context.Background())
	require.NoError(t, err)
	return Options{
		Name:     "vol0",
		Metadata: memory.NewMemoryMetadataStoreWithDefaults(),
		Content:  cs,
	}
}

func openTestVolume(t *testing.T) *Volume {
	t.Helper()
	v, err := Open(context.Background(), testOptions(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestOpenValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr string
	}{
		{name: "missing name", mutate: func(o *Options) { o.Name = "" }, wantErr: "volume name is required"},
		{name: "missing host", mutate: func(o *Options) { o.VolfileServers = []VolfileServer{{}} }, wantErr: "host is required"},
		{
			name:    "bad transport",
			mutate:  func(o *Options) { o.VolfileServers = []VolfileServer{{Host: "h", Proto: "udp"}} },
			wantErr: "unsupported transport",
		},
		{
			name:    "port too large",
			mutate:  func(o *Options) { o.VolfileServers = []VolfileServer{{Host: "h", Port: 65535}} },
			wantErr: "invalid port",
		},
		{name: "bad log level", mutate: func(o *Options) { o.LogLevel = "loud" }, wantErr: "unknown log level"},
		{
			name:    "unknown xlator",
			mutate:  func(o *Options) { o.Xlators = []XlatorOption{{Xlator: "cluster/dht", Key: "k", Value: "1"}} },
			wantErr: "xlator option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			tt.mutate(&opts)
			_, err := Open(context.Background(), opts)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestUnknownXlatorIsEINVAL(t *testing.T) {
	opts := testOptions(t)
	opts.Xlators = []XlatorOption{{Xlator: vfs.XlatorMDCache, Key: "bogus", Value: "1"}}

	_, err := Open(context.Background(), opts)
	assert.True(t, errors.Is(err, syscall.EINVAL), "got %v", err)
}

func TestAccessors(t *testing.T) {
	opts := testOptions(t)
	opts.VolfileServers = []VolfileServer{
		{Host: "a"},
		{Host: "b", Proto: "RDMA", Port: 24010},
	}
	opts.Xlators = []XlatorOption{{Xlator: vfs.XlatorClient, Key: vfs.OptionMaxHandles, Value: "64"}}
	opts.LogLevel = "info"

	v, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, "vol0", v.Name())
	assert.Len(t, v.UUID(), 36)
	assert.Equal(t, []VolfileServer{
		{Host: "a", Proto: ProtoTCP, Port: DefaultVolfilePort},
		{Host: "b", Proto: ProtoRDMA, Port: 24010},
	}, v.VolfileServers())
	assert.Equal(t, opts.Xlators, v.Xlators())
	assert.Equal(t, Logging{Level: "INFO"}, v.Logging())
	assert.NotNil(t, v.Session())
}

func TestRootHandle(t *testing.T) {
	ctx := context.Background()
	v := openTestVolume(t)
	base := v.Outstanding()

	root, err := v.RootHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/", root.Name())
	require.NotNil(t, root.CachedStat())
	assert.Equal(t, vfs.FileTypeDirectory, root.FileType())
	assert.Equal(t, v.Session().RootID().String(), root.UUID())

	require.NoError(t, root.Close())
	assert.Equal(t, base, v.Outstanding())
}

func TestOpenByUUID(t *testing.T) {
	ctx := context.Background()
	v := openTestVolume(t)

	root, err := v.RootHandle(ctx)
	require.NoError(t, err)
	defer root.Close()
	d, err := root.Mkdir(ctx, "d", nil)
	require.NoError(t, err)
	defer d.Close()

	h, err := v.OpenByUUID(ctx, d.UUID())
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, d.UUID(), h.UUID())
	assert.Equal(t, vfs.FileTypeDirectory, h.FileType())

	_, err = v.OpenByUUID(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, syscall.EINVAL))

	_, err = v.OpenByUUID(ctx, "00000000-0000-0000-0000-00000000abcd")
	assert.True(t, errors.Is(err, syscall.ESTALE))
}

func TestResolvePathAndGetcwd(t *testing.T) {
	ctx := context.Background()
	v := openTestVolume(t)

	root, err := v.RootHandle(ctx)
	require.NoError(t, err)
	defer root.Close()

	a, err := root.Mkdir(ctx, "a", nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := a.Mkdir(ctx, "b", nil)
	require.NoError(t, err)
	defer b.Close()

	got, err := v.ResolvePath(ctx, root, "a/b", true, false)
	require.NoError(t, err)
	defer got.Close()
	assert.Equal(t, b.UUID(), got.UUID())
	assert.Equal(t, "b", got.Name())
	assert.Nil(t, got.CachedStat())

	cwd, err := v.Getcwd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/", cwd)

	fd, err := a.OpenDir(ctx)
	require.NoError(t, err)
	require.NoError(t, fd.Fchdir(ctx))
	require.NoError(t, fd.Close())

	cwd, err = v.Getcwd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/a", cwd)

	rel, err := v.ResolvePath(ctx, nil, "b", true, true)
	require.NoError(t, err)
	defer rel.Close()
	assert.Equal(t, b.UUID(), rel.UUID())
	assert.NotNil(t, rel.CachedStat())
}

func TestImportHandle(t *testing.T) {
	ctx := context.Background()
	v := openTestVolume(t)
	other := openTestVolume(t)

	root, err := v.RootHandle(ctx)
	require.NoError(t, err)
	defer root.Close()
	f, err := root.Create(ctx, "f", os.O_RDWR, nil)
	require.NoError(t, err)
	defer f.Close()

	blob, err := f.Export()
	require.NoError(t, err)

	h, err := v.ImportHandle(ctx, blob)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, f.UUID(), h.UUID())

	_, err = other.ImportHandle(ctx, blob)
	assert.True(t, errors.Is(err, syscall.ESTALE), "blob from another volume")

	_, err = v.ImportHandle(ctx, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, syscall.EINVAL))
}

func TestCloseDisconnectsHandles(t *testing.T) {
	ctx := context.Background()
	v, err := Open(ctx, testOptions(t))
	require.NoError(t, err)

	root, err := v.RootHandle(ctx)
	require.NoError(t, err)

	require.NoError(t, v.Close())
	require.NoError(t, v.Close(), "close is idempotent")

	_, err = root.Stat(ctx)
	assert.True(t, errors.Is(err, syscall.ENOTCONN))
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.log")

	opts := testOptions(t)
	opts.LogFile = path
	v, err := Open(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "volume vol0 opened")
}

func TestOpenConfig(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	cfg.Volume.Name = "cfgvol"
	cfg.Volume.Xlators = []config.XlatorConfig{{Xlator: vfs.XlatorReaddirAhead, Key: vfs.OptionPageSize, Value: "4"}}
	cfg.Content.Type = "filesystem"
	cfg.Content.Filesystem["path"] = t.TempDir()

	v, err := OpenConfig(ctx, cfg, nil)
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, "cfgvol", v.Name())
	assert.Equal(t, []XlatorOption{{Xlator: vfs.XlatorReaddirAhead, Key: vfs.OptionPageSize, Value: "4"}}, v.Xlators())

	root, err := v.RootHandle(ctx)
	require.NoError(t, err)
	defer root.Close()
	f, err := root.Create(ctx, "persisted", os.O_RDWR, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
