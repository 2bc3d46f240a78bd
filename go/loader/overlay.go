package loader

import (
	"github.com/lunixbochs/mclf/go/models"
)

type headerField struct {
	name    string
	size    int
	kind    models.FieldKind
	comment string
}

var headerV2Fields = []headerField{
	{"magic", 4, models.FieldChars, "MCLF"},
	{"version", 4, models.FieldUint32, "major << 16 | minor"},
	{"flags", 4, models.FieldUint32, ""},
	{"memType", 4, models.FieldUint32, ""},
	{"serviceType", 4, models.FieldUint32, ""},
	{"numInstances", 4, models.FieldUint32, ""},
	{"uuid", 16, models.FieldUUID, ""},
	{"driverId", 4, models.FieldUint32, ""},
	{"numThreads", 4, models.FieldUint32, ""},
	{"textVa", 4, models.FieldUint32, "text start"},
	{"textLen", 4, models.FieldUint32, ""},
	{"dataVa", 4, models.FieldUint32, "data start"},
	{"dataLen", 4, models.FieldUint32, ""},
	{"bssLen", 4, models.FieldUint32, "bss follows data"},
	{"entry", 4, models.FieldUint32, ""},
	{"serviceVersion", 4, models.FieldUint32, ""},
}

var headerV23Fields = []headerField{
	{"permittedSuid", 16, models.FieldBytes, ""},
	{"permittedHwCfg", 4, models.FieldUint32, ""},
}

// HeaderType describes h's on-disk layout for an overlay.
func HeaderType(h *Header) *models.StructType {
	fields := headerV2Fields
	t := &models.StructType{Name: "mclfHeaderV2_t"}
	if h.V23 != nil {
		fields = append(fields[:len(fields):len(fields)], headerV23Fields...)
		t.Name = "mclfHeaderV23_t"
	}
	off := 0
	for _, f := range fields {
		t.Fields = append(t.Fields, models.Field{
			Name:    f.name,
			Offset:  off,
			Size:    f.size,
			Kind:    f.kind,
			Comment: f.comment,
		})
		off += f.size
	}
	return t
}

// Overlay is one typed record to project into the image.
type Overlay struct {
	Addr uint64
	Type *models.StructType
}

// Project places each overlay in order. A refused overlay is reported and
// skipped.
func Project(img models.Image, overlays []Overlay) models.Diagnostics {
	var diags models.Diagnostics
	for _, o := range overlays {
		if err := img.CreateOverlay(o.Addr, o.Type); err != nil {
			diags.Add(models.SevError, models.OverlayConflict, err, "placing %s at %#x", o.Type.Name, o.Addr)
		}
	}
	return diags
}
