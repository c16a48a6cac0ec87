package fts

import (
	"context"
	"errors"
	"iter"
	"syscall"

	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/handle"
	"github.com/marmos91/handlefs/pkg/metrics"
	"github.com/marmos91/handlefs/pkg/vfs"
)

type state int

const (
	stateActive state = iota
	stateDone
	stateClosed
	stateFailed
)

// Iterator is an open traversal.
type Iterator struct {
	s       *vfs.Session
	opts    Options
	flags   vfs.ReaddirFlags
	metrics metrics.TraversalMetrics

	stack    stack
	state    state
	err      error
	released bool
}

// Open starts a traversal below root. The root handle is duplicated; the
// caller keeps ownership of root and may close it at any time.
//
// root must be a directory (ENOTDIR otherwise). MaxDepth 0 fails with
// EINVAL.
func Open(ctx context.Context, root *handle.Handle, opts Options) (*Iterator, error) {
	const op = "fts_open"
	if root == nil || opts.MaxDepth == 0 {
		return nil, &vfs.Error{Op: op, Errno: syscall.EINVAL}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopTraversalMetrics()
	}

	dup, err := root.Dup()
	if err != nil {
		return nil, err
	}
	rootFrame, err := openFrame(ctx, dup, 0, ".")
	if err != nil {
		_ = dup.Close()
		return nil, err
	}

	flags := vfs.ReaddirHandle
	if opts.Stat {
		flags |= vfs.ReaddirStat
	}

	logger.Debug("fts: open %s (recurse=%t stat=%t max_depth=%d)",
		root.UUID(), opts.Recurse, opts.Stat, opts.MaxDepth)

	return &Iterator{
		s:       root.Session(),
		opts:    opts,
		flags:   flags,
		metrics: opts.Metrics,
		stack:   stack{root: rootFrame},
	}, nil
}

// Depth returns the number of pushed directory frames.
func (it *Iterator) Depth() int {
	return it.stack.size()
}

// Next returns the next entry in pre-order.
//
// It returns ErrDone once the tree is exhausted, ErrClosed after Close and
// an *EntryError for an entry that had to be skipped (the traversal can
// continue). Any other error is a failure of the remote walk: every frame
// is released and the same error is returned from then on.
func (it *Iterator) Next(ctx context.Context) (*Entry, error) {
	switch it.state {
	case stateDone:
		return nil, ErrDone
	case stateClosed:
		return nil, ErrClosed
	case stateFailed:
		return nil, it.err
	}

	if err := ctx.Err(); err != nil {
		errno := syscall.ECANCELED
		if errors.Is(err, context.DeadlineExceeded) {
			errno = syscall.ETIMEDOUT
		}
		return nil, it.fail(&vfs.Error{Op: "fts_read", Errno: errno, Err: err})
	}

	for {
		top := it.stack.top()

		de, err := top.fd.ReadDirPlus(ctx, it.flags)
		if err != nil {
			return nil, it.fail(err)
		}

		if de == nil {
			if top == it.stack.root {
				it.finish(stateDone, "done")
				return nil, ErrDone
			}
			if err := it.stack.pop(); err != nil {
				logger.Warn("fts: closing frame %s: %v", top.path, err)
			}
			it.metrics.RecordFramePop()
			continue
		}

		if de.Name == "." || de.Name == ".." {
			continue
		}

		return it.materialize(ctx, top, de)
	}
}

// materialize turns the transient dirent into an Entry, pushing a frame
// first if the entry is a directory to descend into. Both duplicates are
// taken before the next read on top invalidates de.
func (it *Iterator) materialize(ctx context.Context, top *frame, de *vfs.Dirent) (*Entry, error) {
	obj, err := it.s.Dup(de.Object)
	if err != nil {
		return nil, &EntryError{Name: de.Name, ParentPath: top.path, Err: err}
	}

	var st *vfs.Stat
	if it.opts.Stat && de.Stat != nil {
		cp := *de.Stat
		st = &cp
	}

	e := &Entry{
		Handle:     handle.New(it.s, obj, de.Name, st),
		Name:       de.Name,
		FileType:   vfs.FileTypeFromDT(de.Type),
		Depth:      top.depth + 1,
		ParentPath: top.path,
		Stat:       st,
	}

	if it.shouldRecurse(e) {
		if err := it.push(ctx, de, e.Depth, e.Path()); err != nil {
			logger.Warn("fts: not descending into %s: %v", e.Path(), err)
			it.metrics.RecordRecurseError()
			e.RecurseErr = err
		}
	}

	it.metrics.RecordEntry(e.Depth)
	return e, nil
}

func (it *Iterator) shouldRecurse(e *Entry) bool {
	if !it.opts.Recurse || e.FileType != vfs.FileTypeDirectory {
		return false
	}
	return it.opts.MaxDepth < 0 || e.Depth < it.opts.MaxDepth
}

func (it *Iterator) push(ctx context.Context, de *vfs.Dirent, depth int, path string) error {
	obj, err := it.s.Dup(de.Object)
	if err != nil {
		return err
	}
	dir := handle.New(it.s, obj, de.Name, nil)

	f, err := openFrame(ctx, dir, depth, path)
	if err != nil {
		_ = dir.Close()
		return err
	}
	it.stack.push(f)
	it.metrics.RecordFramePush()
	return nil
}

func (it *Iterator) fail(err error) error {
	it.err = err
	it.finish(stateFailed, "error")
	logger.Debug("fts: traversal failed: %v", err)
	return err
}

// finish moves to a terminal state and releases every frame.
func (it *Iterator) finish(s state, outcome string) error {
	it.state = s
	if it.released {
		return nil
	}
	it.released = true
	err := it.stack.release(it.metrics.RecordFramePop)
	it.metrics.RecordTraversalEnd(outcome)
	return err
}

// Close ends the traversal and releases every open frame, innermost first
// and the root frame last. Entries already returned are not affected.
//
// Close is idempotent. On an exhausted or failed Iterator it only keeps
// the terminal state: Next still returns ErrDone or the failure.
func (it *Iterator) Close() error {
	if it.state != stateActive {
		return nil
	}
	return it.finish(stateClosed, "closed")
}

// All returns a range-over-func sequence of the remaining entries. The
// Iterator is closed when the loop ends, including on break.
//
// An *EntryError is yielded and the walk continues; any other error is
// yielded last.
func (it *Iterator) All(ctx context.Context) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		defer it.Close()

		for {
			e, err := it.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				var entryErr *EntryError
				if !yield(nil, err) || !errors.As(err, &entryErr) {
					return
				}
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
