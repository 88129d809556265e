package codec

import (
	"cmp"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"SlotDB/storage_engine/dberr"
	"SlotDB/types"

	"github.com/pkg/errors"
)

// FixedSize is the width of INT and FLOAT fields.
const FixedSize = 4

// Key is a typed index key: one of INT, FLOAT or VARCHAR.
// The zero Key is the INT key 0.
type Key struct {
	typ types.AttrType
	i   int32
	f   float32
	s   string
}

func IntKey(v int32) Key      { return Key{typ: types.TypeInt32, i: v} }
func FloatKey(v float32) Key  { return Key{typ: types.TypeFloat32, f: v} }
func VarCharKey(s string) Key { return Key{typ: types.TypeVarChar, s: s} }

func (k Key) Type() types.AttrType { return k.typ }
func (k Key) Int() int32           { return k.i }
func (k Key) Float() float32       { return k.f }
func (k Key) Text() string         { return k.s }

func (k Key) String() string {
	switch k.typ {
	case types.TypeInt32:
		return strconv.FormatInt(int64(k.i), 10)
	case types.TypeFloat32:
		return strconv.FormatFloat(float64(k.f), 'g', -1, 32)
	case types.TypeVarChar:
		return strconv.Quote(k.s)
	default:
		return "<invalid key>"
	}
}

// Compare orders two keys of the same type. Keys of different types order
// by their type tag.
func (k Key) Compare(o Key) int {
	if k.typ != o.typ {
		return cmp.Compare(k.typ, o.typ)
	}
	switch k.typ {
	case types.TypeInt32:
		return cmp.Compare(k.i, o.i)
	case types.TypeFloat32:
		return cmp.Compare(k.f, o.f)
	default:
		return strings.Compare(k.s, o.s)
	}
}

func unsupported(typ types.AttrType) error {
	return errors.Wrapf(dberr.ErrUnsupportedKeyType, "type tag %d", int32(typ))
}

func checkKey(k Key, typ types.AttrType) error {
	if !typ.Valid() {
		return unsupported(typ)
	}
	if k.typ != typ {
		return errors.Wrapf(dberr.ErrKeyTypeMismatch, "key %s is %s, expected %s", k, k.typ, typ)
	}
	return nil
}

// KeySize returns the serialized width of k encoded as typ.
func KeySize(k Key, typ types.AttrType) (int, error) {
	if err := checkKey(k, typ); err != nil {
		return 0, err
	}
	if typ == types.TypeVarChar {
		return VarcharSize(k.s), nil
	}
	return FixedSize, nil
}

// EncodeKey writes k at the front of dst and returns the bytes written.
// INT and FLOAT are 4 raw little-endian bytes, VARCHAR is length-prefixed.
func EncodeKey(dst []byte, k Key, typ types.AttrType) (int, error) {
	if err := checkKey(k, typ); err != nil {
		return 0, err
	}
	switch typ {
	case types.TypeInt32, types.TypeFloat32:
		if len(dst) < FixedSize {
			return 0, errors.Wrapf(dberr.ErrInsufficientSpace,
				"%s key needs %d bytes, only %d left", typ, FixedSize, len(dst))
		}
		bits := uint32(k.i)
		if typ == types.TypeFloat32 {
			bits = math.Float32bits(k.f)
		}
		binary.LittleEndian.PutUint32(dst, bits)
		return FixedSize, nil
	default:
		return PutVarchar(dst, k.s)
	}
}

// DecodeKey reads a key of type typ from the front of src and returns it
// with the number of bytes consumed.
func DecodeKey(src []byte, typ types.AttrType) (Key, int, error) {
	switch typ {
	case types.TypeInt32, types.TypeFloat32:
		if len(src) < FixedSize {
			return Key{}, 0, errors.Wrapf(dberr.ErrMalformedBuffer,
				"%s key needs %d bytes, only %d left", typ, FixedSize, len(src))
		}
		bits := binary.LittleEndian.Uint32(src)
		if typ == types.TypeFloat32 {
			return FloatKey(math.Float32frombits(bits)), FixedSize, nil
		}
		return IntKey(int32(bits)), FixedSize, nil
	case types.TypeVarChar:
		s, n, err := Varchar(src)
		if err != nil {
			return Key{}, 0, err
		}
		return VarCharKey(s), n, nil
	default:
		return Key{}, 0, unsupported(typ)
	}
}

// FieldWidth returns the encoded width of the typ field at the front of src
// without materialising it: 4 for INT and FLOAT, 4+length for VARCHAR.
func FieldWidth(src []byte, typ types.AttrType) (int, error) {
	switch typ {
	case types.TypeInt32, types.TypeFloat32:
		if len(src) < FixedSize {
			return 0, errors.Wrapf(dberr.ErrMalformedBuffer,
				"%s field needs %d bytes, only %d left", typ, FixedSize, len(src))
		}
		return FixedSize, nil
	case types.TypeVarChar:
		return varcharWidth(src)
	default:
		return 0, unsupported(typ)
	}
}
