package loader

import (
	"github.com/lunixbochs/mclf/go/models"
)

const (
	EntryName    = "_entry"
	LibEntryName = "tlApiLibEntry"
)

// Symbols lists the symbols derived from h, whether or not they can be
// placed in an image.
func Symbols(h *Header) []models.Symbol {
	return []models.Symbol{
		{Name: EntryName, Addr: uint64(h.Entry), Kind: models.SymFunction},
		{Name: LibEntryName, Addr: h.LibEntry(), Kind: models.SymLabel},
	}
}

// Annotate marks the entry point and places the tlApiLibEntry label. The two
// are independent: a failure in one is reported and does not stop the other.
func Annotate(img models.Image, h *Header) models.Diagnostics {
	var diags models.Diagnostics
	entry := uint64(h.Entry)
	if err := img.AddEntryPoint(entry); err != nil {
		diags.Add(models.SevError, models.SymbolConflict, err, "adding entry point %#x", entry)
	}
	if err := img.CreateFunction(entry, EntryName); err != nil {
		diags.Add(models.SevError, models.SymbolConflict, err, "creating function %s at %#x", EntryName, entry)
	}

	lib := h.LibEntry()
	if !h.InText(lib) {
		diags.Add(models.SevWarning, models.SymbolConflict, nil,
			"%s at %#x is outside text [%#x, %#x)", LibEntryName, lib, h.TextVa, h.TextEnd())
	} else if err := img.CreateLabel(lib, LibEntryName); err != nil {
		diags.Add(models.SevError, models.SymbolConflict, err, "creating label %s at %#x", LibEntryName, lib)
	}
	return diags
}
