package handle

import (
	"context"
	"os"
	"syscall"

	"github.com/marmos91/handlefs/pkg/vfs"
)

const contentsChunk = 128 * 1024

// Contents is what an object holds: file bytes, directory entry names or a
// symlink target, depending on Type.
type Contents struct {
	Type   vfs.FileType
	Data   []byte
	Names  []string
	Target string
}

// Contents reads the whole object. Regular files yield their bytes,
// directories their entry names without "." and "..", and symlinks their
// target. Other types fail with EINVAL.
//
// The cached stat is not updated.
func (h *Handle) Contents(ctx context.Context) (*Contents, error) {
	const op = "contents"

	obj, err := h.object(op)
	if err != nil {
		return nil, err
	}
	st, err := h.s.Stat(ctx, obj)
	if err != nil {
		return nil, err
	}

	c := &Contents{Type: st.FileType()}
	switch c.Type {
	case vfs.FileTypeRegular:
		c.Data, err = h.readAll(ctx, st.Size)
	case vfs.FileTypeDirectory:
		c.Names, err = h.readNames(ctx)
	case vfs.FileTypeSymlink:
		c.Target, err = h.s.Readlink(ctx, obj)
	default:
		return nil, &vfs.Error{Op: op, Errno: syscall.EINVAL}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (h *Handle) readAll(ctx context.Context, sizeHint int64) ([]byte, error) {
	fd, err := h.Open(ctx, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	out := make([]byte, 0, sizeHint)
	for {
		chunk, err := fd.Pread(ctx, contentsChunk, int64(len(out)))
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return out, nil
		}
		out = append(out, chunk...)
	}
}

func (h *Handle) readNames(ctx context.Context) ([]string, error) {
	fd, err := h.OpenDir(ctx)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	names := []string{}
	for {
		de, err := fd.ReadDirPlus(ctx, 0)
		if err != nil {
			return nil, err
		}
		if de == nil {
			return names, nil
		}
		if de.Name == "." || de.Name == ".." {
			continue
		}
		names = append(names, de.Name)
	}
}
