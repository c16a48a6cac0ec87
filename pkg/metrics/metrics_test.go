package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetricsDiscard(t *testing.T) {
	v := NewNoopVFSMetrics()
	v.RecordOperation("vol", "lookup", time.Millisecond, errors.New("boom"))
	v.RecordBytes("vol", "read", 10)
	v.RecordStatCache("vol", true)
	v.SetOutstanding("vol", 1, 2)

	tr := NewNoopTraversalMetrics()
	tr.RecordEntry(1)
	tr.RecordFramePush()
	tr.RecordFramePop()
	tr.RecordRecurseError()
	tr.RecordTraversalEnd("done")
}

func TestRegistryAndServer(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())

	v := NewVFSMetrics()
	assert.Same(t, v, NewVFSMetrics(), "instances are shared per process")
	v.RecordOperation("vol", "lookup", time.Millisecond, nil)
	v.SetOutstanding("vol", 3, 1)
	NewTraversalMetrics().RecordTraversalEnd("done")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(ServerConfig{Addr: ln.Addr().String()})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "handlefs_vfs_operations_total"))
	assert.True(t, strings.Contains(text, "handlefs_fts_traversals_total"))

	cancel()
	require.NoError(t, <-done)
}
