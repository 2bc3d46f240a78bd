package models

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type FieldKind int

const (
	FieldUint32 FieldKind = iota
	FieldChars
	FieldBytes
	FieldUUID
)

func (k FieldKind) String() string {
	switch k {
	case FieldUint32:
		return "uint32"
	case FieldChars:
		return "char"
	case FieldBytes:
		return "byte"
	case FieldUUID:
		return "uuid"
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

type Field struct {
	Name    string
	Offset  int
	Size    int
	Kind    FieldKind
	Comment string
}

// StructType is a flat record layout, used to project decoded headers into
// an image.
type StructType struct {
	Name   string
	Fields []Field
}

// Size is the end offset of the furthest field.
func (t *StructType) Size() int {
	size := 0
	for _, f := range t.Fields {
		if end := f.Offset + f.Size; end > size {
			size = end
		}
	}
	return size
}

func (t *StructType) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

type FieldValue struct {
	Field
	Raw   []byte
	Value string
}

// Render formats each field of t from p, which must hold at least Size()
// bytes.
func (t *StructType) Render(order binary.ByteOrder, p []byte) ([]FieldValue, error) {
	if len(p) < t.Size() {
		return nil, errors.Errorf("%s needs %d bytes, have %d", t.Name, t.Size(), len(p))
	}
	ret := make([]FieldValue, len(t.Fields))
	for i, f := range t.Fields {
		raw := p[f.Offset : f.Offset+f.Size]
		var val string
		switch f.Kind {
		case FieldUint32:
			if f.Size != 4 {
				return nil, errors.Errorf("%s.%s: uint32 field has size %d", t.Name, f.Name, f.Size)
			}
			val = fmt.Sprintf("%#x", order.Uint32(raw))
		case FieldChars:
			val = fmt.Sprintf("%q", strings.TrimRight(string(raw), "\x00"))
		case FieldUUID:
			u, err := uuid.FromBytes(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "%s.%s", t.Name, f.Name)
			}
			val = u.String()
		default:
			val = hex.EncodeToString(raw)
		}
		ret[i] = FieldValue{Field: f, Raw: raw, Value: val}
	}
	return ret, nil
}
