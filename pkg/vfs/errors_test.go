package vfs

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
)

func TestErrnoFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"not found", metadata.NotFound("x", "/x"), syscall.ENOENT},
		{"exists", metadata.AlreadyExists("/x"), syscall.EEXIST},
		{"not empty", &metadata.StoreError{Code: metadata.ErrNotEmpty}, syscall.ENOTEMPTY},
		{"not dir", metadata.NotDirectory("/x"), syscall.ENOTDIR},
		{"stale", &metadata.StoreError{Code: metadata.ErrStaleHandle}, syscall.ESTALE},
		{"no attr", &metadata.StoreError{Code: metadata.ErrNoAttribute}, syscall.ENODATA},
		{"wrapped store error", fmt.Errorf("ctx: %w", metadata.NotFound("x", "")), syscall.ENOENT},
		{"content missing", content.ErrContentNotFound, syscall.ENOENT},
		{"storage full", content.ErrStorageFull, syscall.ENOSPC},
		{"canceled", context.Canceled, syscall.ECANCELED},
		{"deadline", context.DeadlineExceeded, syscall.ETIMEDOUT},
		{"raw errno", syscall.EPERM, syscall.EPERM},
		{"unknown", errors.New("boom"), syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errnoFor(tt.err))
		})
	}
}

func TestWrapKeepsErrnoAndCause(t *testing.T) {
	cause := metadata.NotFound("missing", "/a")
	err := wrap("h_stat", cause)

	assert.True(t, errors.Is(err, syscall.ENOENT))
	assert.True(t, errors.Is(err, cause))

	rewrapped := wrap("h_open", err)
	assert.Equal(t, "h_open(): "+syscall.ENOENT.Error(), rewrapped.Error())
	assert.True(t, errors.Is(rewrapped, cause))

	assert.Nil(t, wrap("noop", nil))
}

func TestFileTypeNames(t *testing.T) {
	tests := []struct {
		mode uint32
		dt   uint8
		want string
	}{
		{ModeDir | 0o755, DTDir, "DIRECTORY"},
		{ModeRegular | 0o644, DTRegular, "FILE"},
		{ModeSymlink | 0o777, DTSymlink, "SYMLINK"},
		{ModeFIFO, DTFIFO, "FIFO"},
		{ModeSocket, DTSocket, "SOCKET"},
		{ModeChar, DTChar, "CHAR"},
		{ModeBlock, DTBlock, "BLOCK"},
		{0, DTUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FileTypeFromMode(tt.mode).String())
			assert.Equal(t, tt.want, FileTypeFromDT(tt.dt).String())
		})
	}
}
