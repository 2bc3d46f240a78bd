package loader

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/mclf/go/models"
)

const MclfLoaderName = "MobiCore Loadable Format (MCLF)"

var mclfMagic = []byte("MCLF")

func MatchMclf(r io.ReaderAt) bool {
	return bytes.Equal(getMagic(r), mclfMagic)
}

// MclfLoader recognizes MCLF trustlet and driver images. They always target
// 32-bit little-endian ARM with the default calling convention.
type MclfLoader struct{}

var _ models.Loader = MclfLoader{}

func (MclfLoader) Name() string {
	return MclfLoaderName
}

func (MclfLoader) FindLoadSpecs(r io.ReaderAt) []models.LoadSpec {
	if !MatchMclf(r) {
		return nil
	}
	return []models.LoadSpec{MclfLoadSpec()}
}

func MclfLoadSpec() models.LoadSpec {
	return models.LoadSpec{
		Loader:       MclfLoaderName,
		Arch:         "arm",
		Bits:         32,
		ByteOrder:    binary.LittleEndian,
		Processor:    "ARM:LE:32:v7",
		CompilerSpec: "default",
		Preferred:    true,
	}
}
