package mem

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/mclf/go/models"
)

// snapshot format:
// file header (big endian, struc packed)
//   [4]byte magic "MCIS"
//   uint32 format version
//   uint32 address bits
//   uint8  1 if the image is little endian
// remainder is snappy-compressed
//
// -- uncompressed body --
// file name
// uint32(number of pages), then per page: snapPage, <DataLen backing bytes>
// uint32(number of entry points), then uint64 each
// uint32(number of symbols), then snapSymbol each
// uint32(number of overlays), then snapOverlay and its snapFields
//
// names are at most 0xffff bytes and overlays at most 0xffff fields.
// overlay values are not stored; they are rendered again from memory.

var SnapshotMagic = "MCIS"

const snapshotVersion = 2

const maxSnapLen = 0xffff

type snapHeader struct {
	Magic   [4]byte
	Version uint32
	Bits    uint32
	Little  uint8
}

type snapName struct {
	Len  int `struc:"uint16,sizeof=Name"`
	Name []byte
}

type snapPage struct {
	Addr, Size uint64
	Prot       uint32
	Backed     uint8
	FileOff    uint64
	FileLen    uint64
	DataLen    uint64
	Desc       snapName
}

type snapSymbol struct {
	Addr uint64
	Kind uint8
	Name snapName
}

type snapOverlay struct {
	Addr   uint64
	Type   snapName
	Fields uint16
}

type snapField struct {
	Offset  uint32
	Size    uint32
	Kind    uint8
	Name    snapName
	Comment snapName
}

func name(s string) (snapName, error) {
	if len(s) > maxSnapLen {
		return snapName{}, errors.Errorf("name %.32q... is %d bytes, snapshots hold at most %d", s, len(s), maxSnapLen)
	}
	return snapName{Len: len(s), Name: []byte(s)}, nil
}

func packCount(s *models.StrucStream, what string, n int) error {
	return errors.Wrapf(s.Pack(uint32(n)), "failed to pack %s count", what)
}

// Save writes a compressed snapshot of m to w.
func (m *Image) Save(w io.Writer) error {
	header := &snapHeader{Version: snapshotVersion, Bits: uint32(m.bits)}
	copy(header.Magic[:], SnapshotMagic)
	if m.order == binary.LittleEndian {
		header.Little = 1
	}

	var buf bytes.Buffer
	s := &models.StrucStream{Stream: &buf, Order: binary.BigEndian}
	file, err := name(m.File)
	if err != nil {
		return err
	}
	if err := s.Pack(&file); err != nil {
		return errors.Wrap(err, "failed to pack file name")
	}

	if err := packCount(s, "page", len(m.Mem)); err != nil {
		return err
	}
	for _, pg := range m.Mem {
		desc, err := name(pg.Desc)
		if err != nil {
			return errors.Wrapf(err, "page %#x", pg.Addr)
		}
		rec := &snapPage{Addr: pg.Addr, Size: pg.Size, Prot: uint32(pg.Prot), DataLen: uint64(len(pg.Data)), Desc: desc}
		if pg.File != nil {
			rec.Backed = 1
			rec.FileOff, rec.FileLen = pg.File.Off, pg.File.Len
		}
		if err := s.Pack(rec); err != nil {
			return errors.Wrapf(err, "failed to pack page %s", pg)
		}
		buf.Write(pg.Data)
	}

	if err := packCount(s, "entry", len(m.Entries)); err != nil {
		return err
	}
	for _, e := range m.Entries {
		if err := s.Pack(e); err != nil {
			return errors.Wrapf(err, "failed to pack entry %#x", e)
		}
	}

	if err := packCount(s, "symbol", len(m.Symbols)); err != nil {
		return err
	}
	for _, sym := range m.Symbols {
		n, err := name(sym.Name)
		if err != nil {
			return errors.Wrapf(err, "symbol at %#x", sym.Addr)
		}
		if err := s.Pack(&snapSymbol{Addr: sym.Addr, Kind: uint8(sym.Kind), Name: n}); err != nil {
			return errors.Wrapf(err, "failed to pack symbol %s", sym.Name)
		}
	}

	if err := packCount(s, "overlay", len(m.Overlays)); err != nil {
		return err
	}
	for _, o := range m.Overlays {
		if len(o.Type.Fields) > maxSnapLen {
			return errors.Errorf("overlay %s has %d fields, snapshots hold at most %d", o.Type.Name, len(o.Type.Fields), maxSnapLen)
		}
		tn, err := name(o.Type.Name)
		if err != nil {
			return errors.Wrapf(err, "overlay at %#x", o.Addr)
		}
		if err := s.Pack(&snapOverlay{Addr: o.Addr, Type: tn, Fields: uint16(len(o.Type.Fields))}); err != nil {
			return errors.Wrapf(err, "failed to pack overlay %s", o.Type.Name)
		}
		for _, f := range o.Type.Fields {
			fn, err := name(f.Name)
			if err != nil {
				return errors.Wrapf(err, "field of %s", o.Type.Name)
			}
			comment, err := name(f.Comment)
			if err != nil {
				return errors.Wrapf(err, "comment of %s.%s", o.Type.Name, f.Name)
			}
			rec := &snapField{
				Offset:  uint32(f.Offset),
				Size:    uint32(f.Size),
				Kind:    uint8(f.Kind),
				Name:    fn,
				Comment: comment,
			}
			if err := s.Pack(rec); err != nil {
				return errors.Wrapf(err, "failed to pack field %s.%s", o.Type.Name, f.Name)
			}
		}
	}

	if err := struc.PackWithOrder(w, header, binary.BigEndian); err != nil {
		return errors.Wrap(err, "failed to pack header")
	}
	zw := snappy.NewBufferedWriter(w)
	if _, err := buf.WriteTo(zw); err != nil {
		return errors.Wrap(err, "failed to compress snapshot")
	}
	return errors.Wrap(zw.Close(), "failed to flush snapshot")
}

// Restore reads a snapshot written by Save.
func Restore(r io.Reader) (*Image, error) {
	var header snapHeader
	if err := struc.UnpackWithOrder(r, &header, binary.BigEndian); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if string(header.Magic[:]) != SnapshotMagic {
		return nil, errors.Errorf("bad snapshot magic %q", header.Magic[:])
	}
	if header.Version != snapshotVersion {
		return nil, errors.Errorf("unsupported snapshot version %d", header.Version)
	}
	if header.Bits == 0 || header.Bits > 64 {
		return nil, errors.Errorf("bad snapshot address width %d", header.Bits)
	}
	var order binary.ByteOrder = binary.BigEndian
	if header.Little != 0 {
		order = binary.LittleEndian
	}
	m := NewImage(uint(header.Bits), order)

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(snappy.NewReader(r)); err != nil {
		return nil, errors.Wrap(err, "failed to decompress snapshot")
	}
	s := &models.StrucStream{Stream: &buf, Order: binary.BigEndian}

	var file snapName
	if err := s.Unpack(&file); err != nil {
		return nil, errors.Wrap(err, "failed to unpack file name")
	}
	m.File = string(file.Name)

	var count uint32
	if err := s.Unpack(&count); err != nil {
		return nil, errors.Wrap(err, "failed to unpack page count")
	}
	for i := uint32(0); i < count; i++ {
		var rec snapPage
		if err := s.Unpack(&rec); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack page %d", i)
		}
		if rec.DataLen > rec.Size || rec.DataLen > uint64(buf.Len()) {
			return nil, errors.Errorf("page %d: %#x data bytes for %#x byte page, %#x left", i, rec.DataLen, rec.Size, buf.Len())
		}
		pg := &Page{Addr: rec.Addr, Size: rec.Size, Prot: int(rec.Prot), Desc: string(rec.Desc.Name)}
		if rec.DataLen > 0 {
			pg.Data = buf.Next(int(rec.DataLen))
			pg.Data = append([]byte(nil), pg.Data...)
		}
		if rec.Backed != 0 {
			pg.File = &FileDesc{Name: m.File, Off: rec.FileOff, Len: rec.FileLen}
		}
		if hit := m.Mem.FindRange(pg.Addr, pg.Size); len(hit) > 0 {
			return nil, errors.Wrapf(ErrRegionConflict, "snapshot page %s overlaps %s", pg, hit[0])
		}
		m.Mem.insert(pg)
	}

	if err := s.Unpack(&count); err != nil {
		return nil, errors.Wrap(err, "failed to unpack entry count")
	}
	for i := uint32(0); i < count; i++ {
		var e uint64
		if err := s.Unpack(&e); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack entry %d", i)
		}
		m.Entries = append(m.Entries, e)
	}

	if err := s.Unpack(&count); err != nil {
		return nil, errors.Wrap(err, "failed to unpack symbol count")
	}
	for i := uint32(0); i < count; i++ {
		var rec snapSymbol
		if err := s.Unpack(&rec); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack symbol %d", i)
		}
		m.Symbols = append(m.Symbols, models.Symbol{
			Name: string(rec.Name.Name),
			Addr: rec.Addr,
			Kind: models.SymbolKind(rec.Kind),
		})
	}

	if err := s.Unpack(&count); err != nil {
		return nil, errors.Wrap(err, "failed to unpack overlay count")
	}
	for i := uint32(0); i < count; i++ {
		var rec snapOverlay
		if err := s.Unpack(&rec); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack overlay %d", i)
		}
		t := &models.StructType{Name: string(rec.Type.Name)}
		for j := uint16(0); j < rec.Fields; j++ {
			var f snapField
			if err := s.Unpack(&f); err != nil {
				return nil, errors.Wrapf(err, "failed to unpack field %d of %s", j, t.Name)
			}
			t.Fields = append(t.Fields, models.Field{
				Name:    string(f.Name.Name),
				Offset:  int(f.Offset),
				Size:    int(f.Size),
				Kind:    models.FieldKind(f.Kind),
				Comment: string(f.Comment.Name),
			})
		}
		if err := m.CreateOverlay(rec.Addr, t); err != nil {
			return nil, errors.Wrap(err, "failed to restore overlay")
		}
	}
	return m, nil
}
