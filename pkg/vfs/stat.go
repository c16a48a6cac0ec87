package vfs

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// Mode type bits, as carried in Stat.Mode.
const (
	ModeTypeMask uint32 = 0o170000
	ModeSocket   uint32 = 0o140000
	ModeSymlink  uint32 = 0o120000
	ModeRegular  uint32 = 0o100000
	ModeBlock    uint32 = 0o060000
	ModeDir      uint32 = 0o040000
	ModeChar     uint32 = 0o020000
	ModeFIFO     uint32 = 0o010000
	ModePermMask uint32 = 0o7777
)

// Directory entry type values, as carried in Dirent.Type.
const (
	DTUnknown uint8 = 0
	DTFIFO    uint8 = 1
	DTChar    uint8 = 2
	DTDir     uint8 = 4
	DTBlock   uint8 = 6
	DTRegular uint8 = 8
	DTSymlink uint8 = 10
	DTSocket  uint8 = 12
)

const (
	statBlockSize  = 4096
	statSectorSize = 512
)

// Stat is the attribute record returned by stat-capable operations.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

// FileType returns the type encoded in the mode bits.
func (s *Stat) FileType() FileType {
	if s == nil {
		return FileTypeUnknown
	}
	return FileTypeFromMode(s.Mode)
}

// IsDir reports whether the stat describes a directory.
func (s *Stat) IsDir() bool {
	return s != nil && s.Mode&ModeTypeMask == ModeDir
}

// FileType classifies an object. The zero value is FileTypeUnknown.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeDirectory
	FileTypeRegular
	FileTypeSymlink
	FileTypeFIFO
	FileTypeSocket
	FileTypeChar
	FileTypeBlock
)

func (t FileType) String() string {
	switch t {
	case FileTypeDirectory:
		return "DIRECTORY"
	case FileTypeRegular:
		return "FILE"
	case FileTypeSymlink:
		return "SYMLINK"
	case FileTypeFIFO:
		return "FIFO"
	case FileTypeSocket:
		return "SOCKET"
	case FileTypeChar:
		return "CHAR"
	case FileTypeBlock:
		return "BLOCK"
	default:
		return "UNKNOWN"
	}
}

// FileTypeFromMode derives a FileType from stat mode bits.
func FileTypeFromMode(mode uint32) FileType {
	switch mode & ModeTypeMask {
	case ModeDir:
		return FileTypeDirectory
	case ModeRegular:
		return FileTypeRegular
	case ModeSymlink:
		return FileTypeSymlink
	case ModeFIFO:
		return FileTypeFIFO
	case ModeSocket:
		return FileTypeSocket
	case ModeChar:
		return FileTypeChar
	case ModeBlock:
		return FileTypeBlock
	default:
		return FileTypeUnknown
	}
}

// FileTypeFromDT derives a FileType from a directory entry type.
func FileTypeFromDT(dt uint8) FileType {
	switch dt {
	case DTDir:
		return FileTypeDirectory
	case DTRegular:
		return FileTypeRegular
	case DTSymlink:
		return FileTypeSymlink
	case DTFIFO:
		return FileTypeFIFO
	case DTSocket:
		return FileTypeSocket
	case DTChar:
		return FileTypeChar
	case DTBlock:
		return FileTypeBlock
	default:
		return FileTypeUnknown
	}
}

func modeTypeBits(t metadata.FileType) uint32 {
	switch t {
	case metadata.FileTypeDirectory:
		return ModeDir
	case metadata.FileTypeSymlink:
		return ModeSymlink
	case metadata.FileTypeBlockDevice:
		return ModeBlock
	case metadata.FileTypeCharDevice:
		return ModeChar
	case metadata.FileTypeSocket:
		return ModeSocket
	case metadata.FileTypeFIFO:
		return ModeFIFO
	default:
		return ModeRegular
	}
}

func direntType(t metadata.FileType) uint8 {
	switch t {
	case metadata.FileTypeRegular:
		return DTRegular
	case metadata.FileTypeDirectory:
		return DTDir
	case metadata.FileTypeSymlink:
		return DTSymlink
	case metadata.FileTypeBlockDevice:
		return DTBlock
	case metadata.FileTypeCharDevice:
		return DTChar
	case metadata.FileTypeSocket:
		return DTSocket
	case metadata.FileTypeFIFO:
		return DTFIFO
	default:
		return DTUnknown
	}
}

// deviceID folds a volume identifier into a device number.
func deviceID(volume uuid.UUID) uint64 {
	return binary.BigEndian.Uint64(volume[:8])
}

// fillStat writes the stat of an object with the given id and attributes
// into dst.
func fillStat(dst *Stat, dev uint64, id uuid.UUID, attr *metadata.FileAttr) {
	size := int64(attr.Size)
	if attr.Type == metadata.FileTypeSymlink {
		size = int64(len(attr.LinkTarget))
	}
	*dst = Stat{
		Dev:     dev,
		Ino:     metadata.IDToInode(id),
		Mode:    modeTypeBits(attr.Type) | attr.Mode&ModePermMask,
		Nlink:   attr.Nlink,
		UID:     attr.UID,
		GID:     attr.GID,
		Size:    size,
		Blksize: statBlockSize,
		Blocks:  (size + statSectorSize - 1) / statSectorSize,
		Atime:   attr.Atime,
		Mtime:   attr.Mtime,
		Ctime:   attr.Ctime,
	}
}
