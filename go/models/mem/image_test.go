package mem

import (
	"bytes"
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/pkg/errors"

	"github.com/lunixbochs/mclf/go/models"
)

// this shouldn't repeat much at width
func pattern(len int) []byte {
	p := make([]byte, len)
	width := 8
	for i := range p {
		cycle := i / width
		p[i] = byte(cycle*width*i + i)
	}
	return p
}

func backed(name string, addr uint64, p []byte, prot int) *models.SegmentData {
	return &models.SegmentData{
		Name: name,
		Addr: addr,
		Size: uint64(len(p)),
		Prot: prot,
		DataFunc: func() ([]byte, error) {
			return p, nil
		},
	}
}

// table of overlap tests for an 0x1100-0x1200 region
// {start, end, should_error}
var overlapTable = [][]uint64{
	{0x1000, 0x1100, 0},
	{0x1000, 0x1050, 0},
	{0x1000, 0x1200, 1},
	{0x1000, 0x1250, 1},
	{0x1100, 0x1150, 1},
	{0x1100, 0x1200, 1},
	{0x1100, 0x1250, 1},
	{0x1150, 0x1200, 1},
	{0x1150, 0x1250, 1},
	{0x1200, 0x1250, 0},
}

func TestCreateRegionOverlap(t *testing.T) {
	for _, region := range overlapTable {
		m := NewImage(32, binary.LittleEndian)
		if err := m.CreateRegion(&models.SegmentData{Name: "a", Addr: 0x1100, Size: 0x100}); err != nil {
			t.Fatal(err)
		}
		err := m.CreateRegion(&models.SegmentData{Name: "b", Addr: region[0], Size: region[1] - region[0]})
		if region[2] == 1 && !errors.Is(err, ErrRegionConflict) {
			t.Errorf("CreateRegion(%#x, %#x) should conflict, got %v", region[0], region[1], err)
		} else if region[2] == 0 && err != nil {
			t.Errorf("CreateRegion(%#x, %#x) error: %v", region[0], region[1], err)
		}
	}
}

func TestCreateRegionBounds(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	if err := m.CreateRegion(&models.SegmentData{Name: "top", Addr: 0xfffff000, Size: 0x1000}); err != nil {
		t.Errorf("region ending at 4G should fit: %v", err)
	}
	if err := m.CreateRegion(&models.SegmentData{Name: "over", Addr: 0xfffff000, Size: 0x2000}); !errors.Is(err, ErrRegionConflict) {
		t.Errorf("region past 4G should be refused, got %v", err)
	}
	if err := m.CreateRegion(&models.SegmentData{Name: "empty", Addr: 0x1000}); !errors.Is(err, ErrRegionConflict) {
		t.Errorf("empty region should be refused, got %v", err)
	}
	if err := m.CreateRegion(&models.SegmentData{Name: "top", Addr: 0x1000, Size: 0x10}); !errors.Is(err, ErrRegionConflict) {
		t.Errorf("duplicate name should be refused, got %v", err)
	}
	big := backed("big", 0x2000, make([]byte, 0x20), models.PROT_READ)
	big.Size = 0x10
	if err := m.CreateRegion(big); err == nil {
		t.Error("region with more data than size should be refused")
	}
}

func TestMemRead(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	b := pattern(0x1000)
	if err := m.CreateRegion(backed("text", 0x1000, b[:0x800], models.PROT_READ|models.PROT_EXEC)); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateRegion(backed("data", 0x1800, b[0x800:0x900], models.PROT_READ|models.PROT_WRITE)); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateRegion(&models.SegmentData{Name: "bss", Addr: 0x1900, Size: 0x700, Prot: models.PROT_READ | models.PROT_WRITE}); err != nil {
		t.Fatal(err)
	}
	p, err := m.MemRead(0x1000, 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, b[:0x900]...), make([]byte, 0x700)...)
	if !bytes.Equal(p, want) {
		t.Fatal("read across regions inconsistent")
	}
	_, err = m.MemRead(0x1f00, 0x200)
	if _, ok := err.(*MemError); !ok {
		t.Fatalf("read past end: expected *MemError, got %v", err)
	}
}

func TestSymbols(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	if err := m.CreateRegion(&models.SegmentData{Name: "text", Addr: 0x1000, Size: 0x1000, Prot: models.PROT_READ | models.PROT_EXEC}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddEntryPoint(0x1010); err != nil {
		t.Fatal(err)
	}
	if err := m.AddEntryPoint(0x1010); err != nil || len(m.Entries) != 1 {
		t.Fatal("repeated entry point should be a no-op")
	}
	if err := m.AddEntryPoint(0x3000); !errors.Is(err, ErrSymbolConflict) {
		t.Errorf("unmapped entry point: %v", err)
	}
	if err := m.CreateFunction(0x1010, "_entry"); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateLabel(0x1010, "start"); err != nil {
		t.Errorf("label may share an address with a function: %v", err)
	}
	if err := m.CreateFunction(0x1010, "other"); !errors.Is(err, ErrSymbolConflict) {
		t.Errorf("second function at one address: %v", err)
	}
	if err := m.CreateLabel(0x1020, "_entry"); !errors.Is(err, ErrSymbolConflict) {
		t.Errorf("duplicate name: %v", err)
	}
	if err := m.CreateLabel(0x2000, "past_end"); !errors.Is(err, ErrSymbolConflict) {
		t.Errorf("unmapped label: %v", err)
	}
	if syms := m.SymbolsAt(0x1010); len(syms) != 2 {
		t.Errorf("expected 2 symbols at 0x1010, got %v", syms)
	}
	if sym, ok := m.Symbol("start"); !ok || sym.Kind != models.SymLabel {
		t.Errorf("bad symbol lookup: %v", sym)
	}
}

var wordType = &models.StructType{Name: "word_t", Fields: []models.Field{
	{Name: "lo", Offset: 0, Size: 2, Kind: models.FieldBytes},
	{Name: "all", Offset: 0, Size: 4, Kind: models.FieldUint32},
}}

func TestCreateOverlay(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	if err := m.CreateRegion(backed("text", 0x1000, []byte{0x78, 0x56, 0x34, 0x12, 0, 0, 0, 0}, models.PROT_READ)); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateOverlay(0x1000, wordType); err != nil {
		t.Fatal(err)
	}
	o := m.Overlay(0x1000)
	if o == nil || o.Values[0].Value != "7856" || o.Values[1].Value != "0x12345678" {
		t.Fatalf("bad overlay values: %+v", o)
	}
	if err := m.CreateOverlay(0x1002, wordType); !errors.Is(err, ErrOverlayConflict) {
		t.Errorf("overlapping overlay: %v", err)
	}
	if err := m.CreateOverlay(0x1006, wordType); !errors.Is(err, ErrOverlayConflict) {
		t.Errorf("partially mapped overlay: %v", err)
	}
	if err := m.CreateOverlay(0x1004, wordType); err != nil {
		t.Errorf("adjacent overlay: %v", err)
	}
}

func TestCreateRegionZeroIsLazy(t *testing.T) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	m := NewImage(32, binary.LittleEndian)
	err := m.CreateRegion(&models.SegmentData{Name: ".bss", Addr: 0x10000000, Size: 0xf0000000, Prot: models.PROT_READ | models.PROT_WRITE})
	runtime.ReadMemStats(&after)
	if err != nil {
		t.Fatal(err)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 1<<20 {
		t.Fatalf("zero region allocated %d bytes", grew)
	}

	p := bytes.Repeat([]byte{0xff}, 0x20)
	if err := m.MemReadInto(p, 0xffffffe0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p, make([]byte, 0x20)) {
		t.Fatalf("zero region read back %x", p)
	}
}

func TestShortBackingReadsZero(t *testing.T) {
	m := NewImage(32, binary.LittleEndian)
	seg := backed("short", 0x1000, []byte{1, 2, 3, 4}, models.PROT_READ)
	seg.Size = 0x10
	if err := m.CreateRegion(seg); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateRegion(&models.SegmentData{Name: "next", Addr: 0x1010, Size: 0x10}); err != nil {
		t.Fatal(err)
	}
	p := bytes.Repeat([]byte{0xff}, 0x14)
	if err := m.MemReadInto(p, 0x1000); err != nil {
		t.Fatal(err)
	}
	want := append([]byte{1, 2, 3, 4}, make([]byte, 0x10)...)
	if !bytes.Equal(p, want) {
		t.Fatalf("got %x, want %x", p, want)
	}
}
