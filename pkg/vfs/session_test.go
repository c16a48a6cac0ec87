package vfs

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	contentmemory "github.com/marmos91/handlefs/pkg/store/content/memory"
	"github.com/marmos91/handlefs/pkg/store/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionRequiresStores(t *testing.T) {
	ctx := context.Background()
	cs, err := contentmemory.NewMemoryContentStore(ctx)
	require.NoError(t, err)

	_, err = NewSession(ctx, SessionConfig{Content: cs})
	assert.ErrorContains(t, err, "metadata store is required")

	_, err = NewSession(ctx, SessionConfig{Metadata: memory.NewMemoryMetadataStoreWithDefaults()})
	assert.ErrorContains(t, err, "content store is required")
}

func TestSetXlatorOption(t *testing.T) {
	tests := []struct {
		name    string
		xlator  string
		key     string
		value   string
		wantErr bool
	}{
		{name: "md-cache timeout", xlator: XlatorMDCache, key: OptionTimeout, value: "5"},
		{name: "md-cache disable", xlator: XlatorMDCache, key: OptionTimeout, value: "0"},
		{name: "md-cache size", xlator: XlatorMDCache, key: OptionCacheSize, value: "1024"},
		{name: "md-cache zero size", xlator: XlatorMDCache, key: OptionCacheSize, value: "0", wantErr: true},
		{name: "page size", xlator: XlatorReaddirAhead, key: OptionPageSize, value: "16"},
		{name: "rate limit", xlator: XlatorRateLimit, key: OptionOpsPerSecond, value: "100"},
		{name: "burst", xlator: XlatorRateLimit, key: OptionBurst, value: "10"},
		{name: "max handles", xlator: XlatorClient, key: OptionMaxHandles, value: "64"},
		{name: "unknown xlator", xlator: "cluster/dht", key: "lookup-optimize", value: "1", wantErr: true},
		{name: "unknown key", xlator: XlatorMDCache, key: "stat-prefetch", value: "1", wantErr: true},
		{name: "non numeric", xlator: XlatorClient, key: OptionMaxHandles, value: "many", wantErr: true},
		{name: "negative", xlator: XlatorClient, key: OptionMaxHandles, value: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			err := s.SetXlatorOption(tt.xlator, tt.key, tt.value)
			if tt.wantErr {
				assert.True(t, errors.Is(err, syscall.EINVAL), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMaxHandles(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	require.NoError(t, s.SetXlatorOption(XlatorClient, OptionMaxHandles, "2"))

	a, _, err := s.LookupAt(ctx, nil, "/", true)
	require.NoError(t, err)
	b, err := s.Dup(a)
	require.NoError(t, err)

	_, err = s.Dup(a)
	assert.True(t, errors.Is(err, syscall.ENFILE))
	_, _, err = s.LookupAt(ctx, nil, "/", true)
	assert.True(t, errors.Is(err, syscall.ENFILE))

	require.NoError(t, b.Close())
	c, err := s.Dup(a)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, Usage{}, s.Outstanding())
}

func TestObjectCloseTwice(t *testing.T) {
	s := newTestSession(t)
	obj, _, err := s.LookupAt(context.Background(), nil, "/", true)
	require.NoError(t, err)

	require.NoError(t, obj.Close())
	assert.True(t, errors.Is(obj.Close(), syscall.EBADF))

	_, err = s.Stat(context.Background(), obj)
	assert.True(t, errors.Is(err, syscall.EBADF))
}

func TestClosedSession(t *testing.T) {
	s := newTestSession(t)
	root := rootObject(t, s)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Stat(context.Background(), root)
	assert.True(t, errors.Is(err, syscall.ENOTCONN))
	_, err = s.Dup(root)
	assert.True(t, errors.Is(err, syscall.ENOTCONN))
}

func TestStatCacheSeesWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	require.NoError(t, s.SetXlatorOption(XlatorMDCache, OptionTimeout, "60"))

	root := rootObject(t, s)
	obj := writeFile(t, s, root, "f", "")

	st, err := s.Stat(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Size)

	fd, err := s.Open(ctx, obj, os.O_WRONLY)
	require.NoError(t, err)
	_, err = fd.Pwrite(ctx, []byte("hello"), 0)
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	st, err = s.Stat(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)

	require.NoError(t, s.Unlink(ctx, root, "f"))
	_, err = s.Stat(ctx, obj)
	assert.True(t, errors.Is(err, syscall.ENOENT), "got %v", err)
}

func TestRateLimitHonorsDeadline(t *testing.T) {
	s := newTestSession(t)
	root := rootObject(t, s)
	require.NoError(t, s.SetXlatorOption(XlatorRateLimit, OptionOpsPerSecond, "1"))
	require.NoError(t, s.SetXlatorOption(XlatorRateLimit, OptionBurst, "1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Stat(ctx, root)
	require.NoError(t, err)

	_, err = s.Stat(ctx, root)
	assert.True(t, errors.Is(err, syscall.ETIMEDOUT), "got %v", err)
}

func TestErrorFormatting(t *testing.T) {
	s := newTestSession(t)
	_, _, err := s.LookupAt(context.Background(), nil, "/missing", true)
	require.Error(t, err)

	assert.Equal(t, "h_lookupat(): "+syscall.ENOENT.Error(), err.Error())
	assert.Equal(t, syscall.ENOENT, Errno(err))

	var vfsErr *Error
	require.True(t, errors.As(err, &vfsErr))
	assert.Equal(t, "h_lookupat", vfsErr.Op)
}
