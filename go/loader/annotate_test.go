package loader

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/mclf/go/models"
	"github.com/lunixbochs/mclf/go/models/mock"
)

func TestAnnotate(t *testing.T) {
	h, _ := decodeRef(t, refHeader())
	img := &mock.Image{}
	diags := Annotate(img, h)
	require.Empty(t, diags)
	require.Equal(t, []uint64{0x00100010}, img.Entries)
	require.Equal(t, []models.Symbol{{Name: EntryName, Addr: 0x00100010, Kind: models.SymFunction}}, img.Functions)
	require.Equal(t, []models.Symbol{{Name: LibEntryName, Addr: 0x0010008c, Kind: models.SymLabel}}, img.Labels)
}

func TestLibEntryFollowsTextVa(t *testing.T) {
	for _, va := range []uint32{0x1000, 0x00100000, 0x7ff00000, 0xfffff000} {
		h := refHeader()
		h.TextVa = va
		h.TextLen = 0x1000
		h.Entry = va + 0x100
		h.DataVa = 0x2000
		h.DataLen = 0x10
		h.BssLen = 0
		h.Flags = va
		dec, _ := decodeRef(t, h)

		img := &mock.Image{}
		require.Empty(t, Annotate(img, dec))
		require.Len(t, img.Labels, 1)
		require.Equal(t, uint64(va)+0x8c, img.Labels[0].Addr)
	}
}

func TestLibEntryOutsideText(t *testing.T) {
	h := refHeader()
	h.TextLen = 0x80
	h.DataVa = 0x00100080
	dec, _ := decodeRef(t, h)

	img := &mock.Image{}
	diags := Annotate(img, dec)
	require.Len(t, diags, 1)
	require.Equal(t, models.SymbolConflict, diags[0].Kind)
	require.Equal(t, models.SevWarning, diags[0].Severity)
	require.Empty(t, img.Labels)
	require.Len(t, img.Functions, 1)
}

func TestAnnotateIndependent(t *testing.T) {
	h, _ := decodeRef(t, refHeader())
	img := &mock.Image{
		FailEntry:    errors.New("no entry"),
		FailFunction: errors.New("function exists"),
	}
	diags := Annotate(img, h)
	require.Len(t, diags.Kind(models.SymbolConflict), 2)
	require.Len(t, img.Labels, 1)

	img = &mock.Image{FailLabel: errors.New("label exists")}
	diags = Annotate(img, h)
	require.Len(t, diags, 1)
	require.Len(t, img.Entries, 1)
	require.Len(t, img.Functions, 1)
}

func TestSymbols(t *testing.T) {
	h, _ := decodeRef(t, refHeader())
	require.Equal(t, Symbols(h), Symbols(h))
	syms := Symbols(h)
	require.Equal(t, EntryName, syms[0].Name)
	require.Equal(t, LibEntryName, syms[1].Name)
	require.Equal(t, uint64(0x0010008c), syms[1].Addr)
}
