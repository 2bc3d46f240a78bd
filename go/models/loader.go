package models

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LoadSpec describes one way a loader can import a file: the target
// processor, its ABI, and whether the loader is certain about it.
type LoadSpec struct {
	Loader       string
	Arch         string
	Bits         int
	ByteOrder    binary.ByteOrder
	Processor    string
	CompilerSpec string
	// ImageBase is where the first segment maps. It stays zero until the
	// header is decoded.
	ImageBase    uint64
	Preferred    bool
}

func (l *LoadSpec) String() string {
	return fmt.Sprintf("<%s %s/%s>", l.Loader, l.Processor, l.CompilerSpec)
}

type Loader interface {
	Name() string
	// FindLoadSpecs returns nil when the file is not in the loader's format.
	FindLoadSpecs(r io.ReaderAt) []LoadSpec
}
