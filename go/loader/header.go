package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

var (
	ErrTruncatedHeader = errors.New("truncated MCLF header")
	ErrInvalidHeader   = errors.New("invalid MCLF header")
)

const (
	// HeaderSize is the size of the version 2 header.
	HeaderSize = 76
	// HeaderV23Size is the size of the extension present from version 2.3.
	HeaderV23Size = 20
	// LibEntryOffset is where the runtime library entry vector sits,
	// relative to the start of text.
	LibEntryOffset = 0x8c

	addrSpace = 1 << 32
)

// MakeVersion packs a major/minor MCLF version the way headers store it.
func MakeVersion(major, minor uint16) uint32 {
	return uint32(major)<<16 | uint32(minor)
}

var versionV23 = MakeVersion(2, 3)

// service types
const (
	SERVICE_TYPE_ILLEGAL         = 0
	SERVICE_TYPE_DRIVER          = 1
	SERVICE_TYPE_SP_TRUSTLET     = 2
	SERVICE_TYPE_SYSTEM_TRUSTLET = 3
	SERVICE_TYPE_MIDDLEWARE      = 4
)

var serviceTypeNames = map[uint32]string{
	SERVICE_TYPE_ILLEGAL:         "illegal",
	SERVICE_TYPE_DRIVER:          "driver",
	SERVICE_TYPE_SP_TRUSTLET:     "sp trustlet",
	SERVICE_TYPE_SYSTEM_TRUSTLET: "system trustlet",
	SERVICE_TYPE_MIDDLEWARE:      "middleware",
}

// memory types
const (
	MCLF_MEM_TYPE_INTERNAL_PREFERRED = 0
	MCLF_MEM_TYPE_INTERNAL           = 1
	MCLF_MEM_TYPE_EXTERNAL           = 2
)

var memTypeNames = map[uint32]string{
	MCLF_MEM_TYPE_INTERNAL_PREFERRED: "internal preferred",
	MCLF_MEM_TYPE_INTERNAL:           "internal",
	MCLF_MEM_TYPE_EXTERNAL:           "external",
}

// HeaderV2 is the fixed part of every MCLF header. The layout is set by the
// secure world runtime.
type HeaderV2 struct {
	Magic          [4]byte
	Version        uint32
	Flags          uint32
	MemType        uint32
	ServiceType    uint32
	NumInstances   uint32
	Uuid           [16]byte
	DriverId       uint32
	NumThreads     uint32
	TextVa         uint32
	TextLen        uint32
	DataVa         uint32
	DataLen        uint32
	BssLen         uint32
	Entry          uint32
	ServiceVersion uint32
}

// HeaderV23 follows HeaderV2 in images of version 2.3 and later.
type HeaderV23 struct {
	PermittedSuid  [16]byte
	PermittedHwCfg uint32
}

type Header struct {
	HeaderV2
	// V23 is nil for images older than version 2.3.
	V23 *HeaderV23
}

func unpackAt(r io.ReaderAt, i interface{}, at int64) (int, error) {
	size, err := struc.Sizeof(i)
	if err != nil {
		return 0, err
	}
	p, err := readAt(r, at, uint64(size))
	if err != nil {
		return len(p), err
	}
	return size, struc.UnpackWithOrder(bytes.NewReader(p), i, binary.LittleEndian)
}

// DecodeHeader reads and validates the header at offset 0 of r.
func DecodeHeader(r io.ReaderAt) (*Header, error) {
	var h Header
	if n, err := unpackAt(r, &h.HeaderV2, 0); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrTruncatedHeader, "have %d of %d bytes", n, HeaderSize)
		}
		return nil, errors.Wrap(err, "reading header")
	}
	if h.Version >= versionV23 && string(h.Magic[:]) == string(mclfMagic) {
		h.V23 = &HeaderV23{}
		if n, err := unpackAt(r, h.V23, HeaderSize); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil, errors.Wrapf(ErrTruncatedHeader, "version %s extension: have %d of %d bytes", h.VersionString(), n, HeaderV23Size)
			}
			return nil, errors.Wrap(err, "reading header extension")
		}
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *Header) Validate() error {
	if !bytes.Equal(h.Magic[:], mclfMagic) {
		return errors.Wrapf(ErrInvalidHeader, "bad magic %q", h.Magic[:])
	}
	if h.TextLen == 0 {
		return errors.Wrap(ErrInvalidHeader, "empty text segment")
	}
	if h.TextEnd() > addrSpace {
		return errors.Wrapf(ErrInvalidHeader, "text %#x+%#x overflows address space", h.TextVa, h.TextLen)
	}
	if !h.InText(uint64(h.Entry)) {
		return errors.Wrapf(ErrInvalidHeader, "entry %#x outside text [%#x, %#x)", h.Entry, h.TextVa, h.TextEnd())
	}
	if h.BssVa() > addrSpace {
		return errors.Wrapf(ErrInvalidHeader, "data %#x+%#x overflows address space", h.DataVa, h.DataLen)
	}
	if h.BssVa()+uint64(h.BssLen) > addrSpace {
		return errors.Wrapf(ErrInvalidHeader, "bss %#x+%#x overflows address space", h.BssVa(), h.BssLen)
	}
	return nil
}

// Size is the number of header bytes on disk, including any extension.
func (h *Header) Size() int {
	if h.V23 != nil {
		return HeaderSize + HeaderV23Size
	}
	return HeaderSize
}

func (h *Header) TextEnd() uint64 {
	return uint64(h.TextVa) + uint64(h.TextLen)
}

func (h *Header) InText(addr uint64) bool {
	return addr >= uint64(h.TextVa) && addr < h.TextEnd()
}

// BssVa is where bss starts: immediately after data.
func (h *Header) BssVa() uint64 {
	return uint64(h.DataVa) + uint64(h.DataLen)
}

// LibEntry is the address of the tlApiLibEntry vector.
func (h *Header) LibEntry() uint64 {
	return uint64(h.TextVa) + LibEntryOffset
}

func (h *Header) VersionMajor() uint16 { return uint16(h.Version >> 16) }
func (h *Header) VersionMinor() uint16 { return uint16(h.Version) }

func (h *Header) VersionString() string {
	return fmt.Sprintf("%d.%d", h.VersionMajor(), h.VersionMinor())
}

func (h *Header) UUID() uuid.UUID {
	return uuid.UUID(h.Uuid)
}

func (h *Header) ServiceTypeName() string {
	if name, ok := serviceTypeNames[h.ServiceType]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", h.ServiceType)
}

func (h *Header) MemTypeName() string {
	if name, ok := memTypeNames[h.MemType]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", h.MemType)
}

func (h *Header) String() string {
	return fmt.Sprintf("MCLF v%s %s %s text=%#x+%#x data=%#x+%#x bss=%#x entry=%#x",
		h.VersionString(), h.ServiceTypeName(), h.UUID(),
		h.TextVa, h.TextLen, h.DataVa, h.DataLen, h.BssLen, h.Entry)
}
