package fts

import (
	"context"

	"github.com/marmos91/handlefs/pkg/handle"
)

// frame is one open directory of the walk.
type frame struct {
	dir   *handle.Handle
	fd    *handle.FD
	depth int
	path  string
}

// openFrame opens dir as a directory stream. On success the frame owns
// dir; on failure the caller still does.
func openFrame(ctx context.Context, dir *handle.Handle, depth int, path string) (*frame, error) {
	fd, err := dir.OpenDir(ctx)
	if err != nil {
		return nil, err
	}
	return &frame{dir: dir, fd: fd, depth: depth, path: path}, nil
}

// close releases the descriptor, then the handle. Both are attempted.
func (f *frame) close() error {
	fdErr := f.fd.Close()
	hErr := f.dir.Close()
	if fdErr != nil {
		return fdErr
	}
	return hErr
}

// stack holds the pushed frames, innermost last. The root frame is kept
// apart and is not counted by size.
type stack struct {
	root   *frame
	frames []*frame
}

func (s *stack) size() int {
	return len(s.frames)
}

// top returns the innermost open frame, the root when nothing is pushed.
func (s *stack) top() *frame {
	if n := len(s.frames); n > 0 {
		return s.frames[n-1]
	}
	return s.root
}

func (s *stack) push(f *frame) {
	s.frames = append(s.frames, f)
}

// pop closes and removes the innermost pushed frame.
func (s *stack) pop() error {
	n := len(s.frames)
	f := s.frames[n-1]
	s.frames[n-1] = nil
	s.frames = s.frames[:n-1]
	return f.close()
}

// release pops every pushed frame innermost first, then closes the root
// frame. It returns the first error and is safe to call once only.
func (s *stack) release(onPop func()) error {
	var first error
	for len(s.frames) > 0 {
		if err := s.pop(); err != nil && first == nil {
			first = err
		}
		onPop()
	}
	if s.root != nil {
		if err := s.root.close(); err != nil && first == nil {
			first = err
		}
		s.root = nil
	}
	return first
}
