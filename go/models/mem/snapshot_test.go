package mem

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/mclf/go/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	m.File = "tl.bin"
	text := pattern(0x200)
	text[0], text[1], text[2], text[3] = 'M', 'C', 'L', 'F'
	text[4], text[5], text[6], text[7] = 0x78, 0x56, 0x34, 0x12
	require.NoError(t, m.CreateRegion(backed(".text", 0x100000, text, models.PROT_READ|models.PROT_EXEC)))
	data := backed(".data", 0x100200, pattern(0x100), models.PROT_READ|models.PROT_WRITE)
	data.Off = 0x200
	require.NoError(t, m.CreateRegion(data))
	require.NoError(t, m.CreateRegion(&models.SegmentData{Name: ".bss", Addr: 0x100300, Size: 0x80, Prot: models.PROT_READ | models.PROT_WRITE}))
	require.NoError(t, m.AddEntryPoint(0x100010))
	require.NoError(t, m.CreateFunction(0x100010, "_entry"))
	require.NoError(t, m.CreateLabel(0x10008c, "tlApiLibEntry"))
	hdr := &models.StructType{Name: "hdr_t", Fields: []models.Field{
		{Name: "magic", Offset: 0, Size: 4, Kind: models.FieldChars, Comment: "MCLF"},
		{Name: "version", Offset: 4, Size: 4, Kind: models.FieldUint32},
	}}
	require.NoError(t, m.CreateOverlay(0x100000, hdr))

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	require.Equal(t, SnapshotMagic, string(buf.Bytes()[:4]))

	r, err := Restore(&buf)
	require.NoError(t, err)
	require.Equal(t, m.File, r.File)
	require.Equal(t, m.Bits(), r.Bits())
	require.Equal(t, binary.LittleEndian, r.ByteOrder())
	require.Equal(t, m.Mem.String(), r.Mem.String())
	for _, pg := range m.Mem {
		require.Equal(t, pg.Data, r.Mem.FindName(pg.Desc).Data, pg.Desc)
	}
	require.Equal(t, m.Entries, r.Entries)
	require.Equal(t, m.Symbols, r.Symbols)
	require.Len(t, r.Overlays, 1)
	require.Equal(t, *hdr, *r.Overlays[0].Type)
	require.Equal(t, m.Overlays[0].Values, r.Overlays[0].Values)
	require.Equal(t, `"MCLF"`, r.Overlays[0].Values[0].Value)
	require.Equal(t, "0x12345678", r.Overlays[0].Values[1].Value)
}

func TestRestoreBadInput(t *testing.T) {
	_, err := Restore(bytes.NewReader(nil))
	require.Error(t, err)
	_, err = Restore(bytes.NewReader([]byte("XXXX\x00\x00\x00\x01\x00\x00\x00\x20\x01")))
	require.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewImage(32, binary.LittleEndian).Save(&buf))
	p := buf.Bytes()
	_, err = Restore(bytes.NewReader(p[:len(p)-2]))
	require.Error(t, err)
}

func TestSnapshotLazyPages(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	require.NoError(t, m.CreateRegion(&models.SegmentData{Name: ".bss", Addr: 0x10000000, Size: 0xf0000000}))
	short := backed(".text", 0x1000, []byte{1, 2, 3, 4}, models.PROT_READ)
	short.Size = 0x100
	require.NoError(t, m.CreateRegion(short))

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	require.Less(t, buf.Len(), 0x1000)

	r, err := Restore(&buf)
	require.NoError(t, err)
	require.Equal(t, m.Mem.String(), r.Mem.String())
	require.Nil(t, r.Mem.FindName(".bss").Data)
	p, err := r.MemRead(0x1000, 8)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, p)
}

func TestSaveRejectsOversize(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	require.NoError(t, m.CreateRegion(backed(".text", 0x1000, pattern(0x100), models.PROT_READ)))
	require.NoError(t, m.CreateFunction(0x1000, strings.Repeat("f", 0x10000)))
	var buf bytes.Buffer
	require.Error(t, m.Save(&buf))
	require.Zero(t, buf.Len())

	m.Symbols = nil
	wide := &models.StructType{Name: "wide_t", Fields: make([]models.Field, 0x10000)}
	m.Overlays = append(m.Overlays, &Overlay{Addr: 0x1000, Type: wide})
	require.Error(t, m.Save(&buf))
	require.Zero(t, buf.Len())

	m.Overlays = nil
	require.NoError(t, m.Save(&buf))
}
