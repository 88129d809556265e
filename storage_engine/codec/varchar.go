package codec

import (
	"encoding/binary"

	"SlotDB/storage_engine/dberr"

	"github.com/pkg/errors"
)

/*
VARCHAR wire encoding, shared by index keys and tuple attributes:

	Offset  Size    Field
	─────────────────────────────
	0       4       length uint32 (little-endian)
	4       length  raw bytes, no terminator
*/
const VarcharLenSize = 4

// VarcharSize returns the serialized width of s.
func VarcharSize(s string) int {
	return VarcharLenSize + len(s)
}

// PutVarchar writes s at the front of dst and returns the bytes written.
func PutVarchar(dst []byte, s string) (int, error) {
	n := VarcharSize(s)
	if len(dst) < n {
		return 0, errors.Wrapf(dberr.ErrInsufficientSpace,
			"varchar of %d bytes needs %d, only %d left", len(s), n, len(dst))
	}
	binary.LittleEndian.PutUint32(dst, uint32(len(s)))
	copy(dst[VarcharLenSize:], s)
	return n, nil
}

// Varchar reads a varchar from the front of src and returns it together with
// the number of bytes consumed.
func Varchar(src []byte) (string, int, error) {
	n, err := varcharWidth(src)
	if err != nil {
		return "", 0, err
	}
	return string(src[VarcharLenSize:n]), n, nil
}

// varcharWidth is the encoded width of the varchar at the front of src,
// length prefix included.
func varcharWidth(src []byte) (int, error) {
	if len(src) < VarcharLenSize {
		return 0, errors.Wrapf(dberr.ErrMalformedBuffer,
			"varchar length needs %d bytes, only %d left", VarcharLenSize, len(src))
	}
	n := VarcharLenSize + int(binary.LittleEndian.Uint32(src))
	if n < VarcharLenSize || len(src) < n {
		return 0, errors.Wrapf(dberr.ErrMalformedBuffer,
			"varchar declares %d bytes, only %d left", n-VarcharLenSize, len(src)-VarcharLenSize)
	}
	return n, nil
}
