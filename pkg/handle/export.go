package handle

import (
	"bytes"
	"fmt"
	"syscall"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/vfs"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// exportMagic tags exported handles ("HFH1").
const exportMagic uint32 = 0x48464831

// Exported is the decoded form of an exported handle.
type Exported struct {
	Volume uuid.UUID
	Object uuid.UUID
	Type   vfs.FileType
}

// wireHandle is the XDR layout of an exported handle.
type wireHandle struct {
	Magic  uint32
	Volume [16]byte
	Object [16]byte
	Type   uint32
}

// Export encodes the Handle as a portable blob that Volume.ImportHandle
// can turn back into a Handle, in this or a later session on the same
// volume.
func (h *Handle) Export() ([]byte, error) {
	if h.Closed() {
		return nil, errClosed("export")
	}

	w := wireHandle{
		Magic:  exportMagic,
		Volume: h.s.VolumeID(),
		Object: h.id,
		Type:   uint32(h.FileType()),
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &w); err != nil {
		return nil, fmt.Errorf("encode handle: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeExported parses a blob produced by Export.
func DecodeExported(blob []byte) (*Exported, error) {
	var w wireHandle
	if _, err := xdr.Unmarshal(bytes.NewReader(blob), &w); err != nil {
		return nil, &vfs.Error{Op: "import", Errno: syscall.EINVAL, Err: err}
	}
	if w.Magic != exportMagic {
		return nil, &vfs.Error{Op: "import", Errno: syscall.EINVAL}
	}
	return &Exported{
		Volume: uuid.UUID(w.Volume),
		Object: uuid.UUID(w.Object),
		Type:   vfs.FileType(w.Type),
	}, nil
}
