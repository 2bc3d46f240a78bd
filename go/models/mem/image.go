package mem

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/lunixbochs/mclf/go/models"
)

var (
	ErrRegionConflict  = errors.New("region conflict")
	ErrSymbolConflict  = errors.New("symbol conflict")
	ErrOverlayConflict = errors.New("overlay conflict")
)

type MemError struct {
	Addr uint64
	Size uint64
}

func (m *MemError) Error() string {
	return fmt.Sprintf("unmapped read at %#x(%d)", m.Addr, m.Size)
}

type Overlay struct {
	Addr   uint64
	Type   *models.StructType
	Values []models.FieldValue
}

func (o *Overlay) End() uint64 {
	return o.Addr + uint64(o.Type.Size())
}

// Image is an in-memory models.Image. Regions never overlap; a request
// that would overlap an existing region is refused rather than merged.
type Image struct {
	bits uint
	// methods return an error for addresses that do not fit inside mask
	// calculated by NewImage using ^uint64(0) >> (64 - bits)
	mask  uint64
	order binary.ByteOrder

	// File names the source of backed pages.
	File string

	Mem      Pages
	Entries  []uint64
	Symbols  []models.Symbol
	Overlays []*Overlay
}

var _ models.Image = &Image{}

func NewImage(bits uint, order binary.ByteOrder) *Image {
	return &Image{
		bits:  bits,
		mask:  ^uint64(0) >> (64 - bits),
		order: order,
	}
}

func (m *Image) Bits() uint                  { return m.bits }
func (m *Image) ByteOrder() binary.ByteOrder { return m.order }

func (m *Image) fits(addr, size uint64) bool {
	end := addr + size
	if end < addr {
		return false
	}
	return addr&^m.mask == 0 && (end-1)&^m.mask == 0
}

func (m *Image) CreateRegion(seg *models.SegmentData) error {
	if seg.Size == 0 {
		return errors.Wrapf(ErrRegionConflict, "%s: zero-length region", seg.Name)
	}
	if !m.fits(seg.Addr, seg.Size) {
		return errors.Wrapf(ErrRegionConflict, "%s: %#x+%#x outside %d-bit memory range", seg.Name, seg.Addr, seg.Size, m.bits)
	}
	if hit := m.Mem.FindRange(seg.Addr, seg.Size); len(hit) > 0 {
		return errors.Wrapf(ErrRegionConflict, "%s: %#x+%#x overlaps %s", seg.Name, seg.Addr, seg.Size, hit[0])
	}
	if seg.Name != "" && m.Mem.FindName(seg.Name) != nil {
		return errors.Wrapf(ErrRegionConflict, "%s: duplicate region name", seg.Name)
	}
	page := &Page{Addr: seg.Addr, Size: seg.Size, Prot: seg.Prot, Desc: seg.Name}
	if !seg.Zero() {
		p, err := seg.Data()
		if err != nil {
			return errors.Wrapf(err, "%s: reading region data", seg.Name)
		}
		if uint64(len(p)) > seg.Size {
			return errors.Errorf("%s: %d data bytes for %#x byte region", seg.Name, len(p), seg.Size)
		}
		page.Data = append([]byte(nil), p...)
		page.File = &FileDesc{Name: m.File, Off: seg.Off, Len: uint64(len(p))}
	}
	m.Mem.insert(page)
	return nil
}

func (m *Image) MemReadInto(p []byte, addr uint64) error {
	if ok, _ := m.Mem.RangeValid(addr, uint64(len(p)), 0); !ok {
		return &MemError{Addr: addr, Size: uint64(len(p))}
	}
	for _, mm := range m.Mem[m.Mem.bsearch(addr):] {
		if len(p) == 0 || !mm.Contains(addr) {
			break
		}
		off := addr - mm.Addr
		n := mm.Size - off
		if n > uint64(len(p)) {
			n = uint64(len(p))
		}
		chunk := p[:n]
		var c int
		if off < uint64(len(mm.Data)) {
			c = copy(chunk, mm.Data[off:])
		}
		for i := range chunk[c:] {
			chunk[c+i] = 0
		}
		addr, p = addr+n, p[n:]
	}
	return nil
}

func (m *Image) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	if err := m.MemReadInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Image) AddEntryPoint(addr uint64) error {
	if m.Mem.Find(addr) == nil {
		return errors.Wrapf(ErrSymbolConflict, "entry point %#x is not mapped", addr)
	}
	for _, e := range m.Entries {
		if e == addr {
			return nil
		}
	}
	m.Entries = append(m.Entries, addr)
	return nil
}

func (m *Image) addSymbol(sym models.Symbol) error {
	if m.Mem.Find(sym.Addr) == nil {
		return errors.Wrapf(ErrSymbolConflict, "%s: %#x is not mapped", sym.Name, sym.Addr)
	}
	for _, s := range m.Symbols {
		if s.Name == sym.Name {
			return errors.Wrapf(ErrSymbolConflict, "%s already defined at %#x", s.Name, s.Addr)
		}
		if sym.Kind == models.SymFunction && s.Kind == models.SymFunction && s.Addr == sym.Addr {
			return errors.Wrapf(ErrSymbolConflict, "%s: function %s already starts at %#x", sym.Name, s.Name, s.Addr)
		}
	}
	m.Symbols = append(m.Symbols, sym)
	return nil
}

func (m *Image) CreateFunction(addr uint64, name string) error {
	return m.addSymbol(models.Symbol{Name: name, Addr: addr, Kind: models.SymFunction})
}

func (m *Image) CreateLabel(addr uint64, name string) error {
	return m.addSymbol(models.Symbol{Name: name, Addr: addr, Kind: models.SymLabel})
}

func (m *Image) Symbol(name string) (models.Symbol, bool) {
	for _, s := range m.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return models.Symbol{}, false
}

func (m *Image) SymbolsAt(addr uint64) []models.Symbol {
	var ret []models.Symbol
	for _, s := range m.Symbols {
		if s.Addr == addr {
			ret = append(ret, s)
		}
	}
	return ret
}

// CreateOverlay renders t from mapped memory. Overlays are placed in call
// order: a later overlay touching an earlier one's bytes is refused.
func (m *Image) CreateOverlay(addr uint64, t *models.StructType) error {
	size := uint64(t.Size())
	if size == 0 {
		return errors.Wrapf(ErrOverlayConflict, "%s: empty type", t.Name)
	}
	if ok, _ := m.Mem.RangeValid(addr, size, 0); !ok {
		return errors.Wrapf(ErrOverlayConflict, "%s: %#x+%#x is not mapped", t.Name, addr, size)
	}
	want := &models.Segment{Start: addr, End: addr + size}
	for _, o := range m.Overlays {
		if want.Overlaps(&models.Segment{Start: o.Addr, End: o.End()}) {
			return errors.Wrapf(ErrOverlayConflict, "%s at %#x overlaps %s at %#x", t.Name, addr, o.Type.Name, o.Addr)
		}
	}
	p, err := m.MemRead(addr, size)
	if err != nil {
		return errors.Wrapf(ErrOverlayConflict, "%s: %v", t.Name, err)
	}
	values, err := t.Render(m.order, p)
	if err != nil {
		return errors.Wrap(err, "rendering overlay")
	}
	m.Overlays = append(m.Overlays, &Overlay{Addr: addr, Type: t, Values: values})
	sort.SliceStable(m.Overlays, func(i, j int) bool { return m.Overlays[i].Addr < m.Overlays[j].Addr })
	return nil
}

func (m *Image) Overlay(addr uint64) *Overlay {
	for _, o := range m.Overlays {
		if o.Addr == addr {
			return o
		}
	}
	return nil
}
