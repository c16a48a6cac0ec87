// Package fts walks a directory subtree of a volume one entry at a time.
//
// An Iterator is a pull-driven, depth-first, pre-order traversal over an
// explicit stack of open directory frames. Each Next reads one record from
// the innermost open directory, skips "." and "..", optionally pushes a
// frame for a subdirectory and returns an Entry whose Handle is an
// independent duplicate owned by the caller.
//
//	it, err := fts.Open(ctx, root, fts.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	for e, err := range it.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(e.Path())
//	    e.Handle.Close()
//	}
//
// An Iterator is not safe for concurrent use.
package fts

import (
	"errors"
	"fmt"

	"github.com/marmos91/handlefs/pkg/handle"
	"github.com/marmos91/handlefs/pkg/metrics"
	"github.com/marmos91/handlefs/pkg/vfs"
)

var (
	// ErrDone is returned by Next once the traversal is exhausted, and on
	// every call after that.
	ErrDone = errors.New("fts: end of traversal")

	// ErrClosed is returned by Next after Close ended an active traversal.
	ErrClosed = errors.New("fts: iterator closed")
)

// Unbounded disables the depth limit.
const Unbounded = -1

// Options is fixed when the Iterator is opened.
type Options struct {
	// Recurse descends into subdirectories.
	Recurse bool

	// Stat attaches a stat snapshot to every Entry and to its Handle.
	Stat bool

	// MaxDepth bounds recursion. Entries at depth MaxDepth are yielded but
	// never descended into. Negative means unbounded; 0 is invalid.
	MaxDepth int

	// Metrics is optional.
	Metrics metrics.TraversalMetrics
}

// DefaultOptions recurses without a depth limit and stats every entry.
func DefaultOptions() Options {
	return Options{Recurse: true, Stat: true, MaxDepth: Unbounded}
}

// Entry is one yielded directory entry.
type Entry struct {
	// Handle is a duplicate owned by the caller. It stays valid after the
	// Iterator is closed and must be closed by the caller.
	Handle *handle.Handle

	Name     string
	FileType vfs.FileType

	// Depth is 1 for children of the traversal root.
	Depth int

	// ParentPath is "." for children of the root, then each ancestor name
	// joined with "/". It is informational and never used for lookups.
	ParentPath string

	// Stat is nil unless Options.Stat is set.
	Stat *vfs.Stat

	// RecurseErr is set when the entry was a directory eligible for
	// recursion but its frame could not be opened. The traversal goes on
	// with the entry treated as a leaf.
	RecurseErr error
}

// Path returns ParentPath and Name joined with "/".
func (e *Entry) Path() string {
	return e.ParentPath + "/" + e.Name
}

// EntryError reports an entry that could not be materialized. Next returns
// it without ending the traversal; the entry is skipped.
type EntryError struct {
	Name       string
	ParentPath string
	Err        error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("fts: %s/%s: %v", e.ParentPath, e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
