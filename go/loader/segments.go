package loader

import (
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/mclf/go/models"
)

var ErrTruncatedImage = errors.New("truncated MCLF image")

const (
	TextName = ".text"
	DataName = ".data"
	BssName  = ".bss"
)

// Segments derives the text, data and bss regions of h. Backing bytes are
// read up front: the file stores text (which starts with the header) and
// then data, back to back. Empty data or bss are left out.
func Segments(h *Header, r io.ReaderAt) ([]models.SegmentData, error) {
	text, err := readAt(r, 0, uint64(h.TextLen))
	if err != nil {
		return nil, segmentReadError(err, TextName, 0, len(text), h.TextLen)
	}
	var data []byte
	if h.DataLen > 0 {
		data, err = readAt(r, int64(h.TextLen), uint64(h.DataLen))
		if err != nil {
			return nil, segmentReadError(err, DataName, uint64(h.TextLen), len(data), h.DataLen)
		}
	}

	segs := []models.SegmentData{{
		Name: TextName,
		Off:  0,
		Addr: uint64(h.TextVa),
		Size: uint64(h.TextLen),
		Prot: models.PROT_READ | models.PROT_EXEC,
		DataFunc: func() ([]byte, error) {
			return text, nil
		},
	}}
	if h.DataLen > 0 {
		segs = append(segs, models.SegmentData{
			Name: DataName,
			Off:  uint64(h.TextLen),
			Addr: uint64(h.DataVa),
			Size: uint64(h.DataLen),
			Prot: models.PROT_READ | models.PROT_WRITE,
			DataFunc: func() ([]byte, error) {
				return data, nil
			},
		})
	}
	if h.BssLen > 0 {
		segs = append(segs, models.SegmentData{
			Name: BssName,
			Addr: h.BssVa(),
			Size: uint64(h.BssLen),
			Prot: models.PROT_READ | models.PROT_WRITE,
		})
	}
	return segs, nil
}

func segmentReadError(err error, name string, off uint64, n int, want uint32) error {
	if err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrTruncatedImage, "%s at file offset %#x: have %#x of %#x bytes", name, off, n, want)
	}
	return errors.Wrapf(err, "reading %s", name)
}

// Materialize creates each region independently. A region the image
// refuses is reported and the rest are still attempted.
func Materialize(img models.Image, segs []models.SegmentData) models.Diagnostics {
	var diags models.Diagnostics
	for i := range segs {
		seg := &segs[i]
		if err := img.CreateRegion(seg); err != nil {
			diags.Add(models.SevError, models.RegionConflict, err,
				"creating %s [%#x, %#x) %s", seg.Name, seg.Addr, seg.End(), models.ProtString(seg.Prot))
		}
	}
	return diags
}
