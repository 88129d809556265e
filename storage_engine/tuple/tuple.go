// Package tuple converts between raw tuple bytes and typed attribute values.
//
// Tuple layout, attributes in schema order:
//
//	[ null bitmap: ceil(n/8) bytes, bit i MSB-first = attribute i is NULL ]
//	[ INT: 4 bytes | FLOAT: 4 bytes | VARCHAR: length uint32 + bytes ] ...
//
// A NULL attribute takes no bytes after the bitmap.
package tuple

import (
	"SlotDB/storage_engine/codec"
	"SlotDB/storage_engine/dberr"
	"SlotDB/types"

	"github.com/pkg/errors"
)

// BitmapSize is the width of the null bitmap for n attributes.
func BitmapSize(n int) int {
	return (n + 7) / 8
}

func isNull(bitmap []byte, i int) bool {
	return bitmap[i/8]&(0x80>>(i%8)) != 0
}

func setNull(bitmap []byte, i int) {
	bitmap[i/8] |= 0x80 >> (i % 8)
}

// Decoder turns tuple bytes into values.
type Decoder struct {
	// IgnoreNullBitmap reads every attribute as present whatever the bitmap
	// says. Older record files were written by code that never set the bits
	// and relied on this.
	IgnoreNullBitmap bool
}

// Decode reads one value per attribute from buf, honoring the null bitmap.
func Decode(buf []byte, attrs []types.Attribute) ([]types.Value, error) {
	return Decoder{}.Decode(buf, attrs)
}

// Decode reads one value per attribute from buf. VARCHAR values keep their
// length prefix in Data. Every Data slice is a copy; buf can be reused.
// A length running past the end of buf fails with ErrMalformedBuffer.
func (d Decoder) Decode(buf []byte, attrs []types.Attribute) ([]types.Value, error) {
	bitmapLen := BitmapSize(len(attrs))
	if len(buf) < bitmapLen {
		return nil, errors.Wrapf(dberr.ErrMalformedBuffer,
			"null bitmap for %d attributes needs %d bytes, tuple has %d", len(attrs), bitmapLen, len(buf))
	}
	bitmap := buf[:bitmapLen]

	values := make([]types.Value, len(attrs))
	offset := bitmapLen
	for i, attr := range attrs {
		values[i].Type = attr.Type
		if !d.IgnoreNullBitmap && isNull(bitmap, i) {
			continue
		}

		width, err := codec.FieldWidth(buf[offset:], attr.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, "attribute %d (%s) at offset %d", i, attr.Name, offset)
		}
		data := make([]byte, width)
		copy(data, buf[offset:offset+width])
		values[i].Data = data
		offset += width
	}
	return values, nil
}

// Encode is the inverse of Decode: it writes the null bitmap followed by
// the data of every non-NULL value. Each value must carry its attribute's
// type; INT and FLOAT data must be 4 bytes and VARCHAR data must be a
// well-formed length-prefixed string.
func Encode(attrs []types.Attribute, values []types.Value) ([]byte, error) {
	if len(attrs) != len(values) {
		return nil, errors.Errorf("tuple: %d attributes but %d values", len(attrs), len(values))
	}

	size := BitmapSize(len(attrs))
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		if v.Type != attrs[i].Type {
			return nil, errors.Wrapf(dberr.ErrKeyTypeMismatch,
				"attribute %d (%s) is %s, value is %s", i, attrs[i].Name, attrs[i].Type, v.Type)
		}
		width, err := codec.FieldWidth(v.Data, v.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, "attribute %d (%s)", i, attrs[i].Name)
		}
		if width != len(v.Data) {
			return nil, errors.Wrapf(dberr.ErrMalformedBuffer,
				"attribute %d (%s): %d bytes of data, %s encoding is %d", i, attrs[i].Name, len(v.Data), v.Type, width)
		}
		size += width
	}

	buf := make([]byte, size)
	offset := BitmapSize(len(attrs))
	for i, v := range values {
		if v.IsNull() {
			setNull(buf, i)
			continue
		}
		offset += copy(buf[offset:], v.Data)
	}
	return buf, nil
}
