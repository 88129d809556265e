package tuple

import (
	"encoding/binary"
	"math"

	"SlotDB/storage_engine/codec"
	"SlotDB/storage_engine/dberr"
	"SlotDB/types"

	"github.com/pkg/errors"
)

func Null(typ types.AttrType) types.Value {
	return types.Value{Type: typ}
}

func Int32(v int32) types.Value {
	data := make([]byte, codec.FixedSize)
	binary.LittleEndian.PutUint32(data, uint32(v))
	return types.Value{Type: types.TypeInt32, Data: data}
}

func Float32(v float32) types.Value {
	data := make([]byte, codec.FixedSize)
	binary.LittleEndian.PutUint32(data, math.Float32bits(v))
	return types.Value{Type: types.TypeFloat32, Data: data}
}

func VarChar(s string) types.Value {
	data := make([]byte, codec.VarcharSize(s))
	binary.LittleEndian.PutUint32(data, uint32(len(s)))
	copy(data[codec.VarcharLenSize:], s)
	return types.Value{Type: types.TypeVarChar, Data: data}
}

func checkValue(v types.Value, typ types.AttrType) error {
	if v.Type != typ {
		return errors.Wrapf(dberr.ErrKeyTypeMismatch, "value is %s, not %s", v.Type, typ)
	}
	if v.IsNull() {
		return errors.Errorf("%s value is NULL", typ)
	}
	return nil
}

// AsInt32 returns the INT held by v.
func AsInt32(v types.Value) (int32, error) {
	if err := checkValue(v, types.TypeInt32); err != nil {
		return 0, err
	}
	k, _, err := codec.DecodeKey(v.Data, types.TypeInt32)
	return k.Int(), err
}

// AsFloat32 returns the FLOAT held by v.
func AsFloat32(v types.Value) (float32, error) {
	if err := checkValue(v, types.TypeFloat32); err != nil {
		return 0, err
	}
	k, _, err := codec.DecodeKey(v.Data, types.TypeFloat32)
	return k.Float(), err
}

// AsVarChar returns the string held by v, without its length prefix.
func AsVarChar(v types.Value) (string, error) {
	if err := checkValue(v, types.TypeVarChar); err != nil {
		return "", err
	}
	s, _, err := codec.Varchar(v.Data)
	return s, err
}

// AsKey turns a non-NULL value into an index key of the same type.
func AsKey(v types.Value) (codec.Key, error) {
	if v.IsNull() {
		return codec.Key{}, errors.Errorf("%s value is NULL", v.Type)
	}
	k, _, err := codec.DecodeKey(v.Data, v.Type)
	return k, err
}
