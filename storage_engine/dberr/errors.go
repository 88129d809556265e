// Package dberr holds the error taxonomy shared by the page layer.
//
// Call sites wrap these sentinels with errors.Wrapf to add the slot, page or
// key involved; callers match with errors.Is.
package dberr

import (
	"github.com/pkg/errors"
)

var (
	// ErrInsufficientSpace is returned when a record or entry does not fit in
	// the remaining free bytes of a page. The page is left untouched.
	ErrInsufficientSpace = errors.New("insufficient space in page")

	// ErrInvalidSlot is returned for a slot number outside [0, slot_count).
	ErrInvalidSlot = errors.New("invalid slot")

	// ErrInvalidIndex is returned for an entry position outside a node.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrUnsupportedKeyType is returned when a type tag is not INT, FLOAT or VARCHAR.
	ErrUnsupportedKeyType = errors.New("unsupported key type")

	// ErrMalformedBuffer is returned when a buffer is shorter than a declared length.
	ErrMalformedBuffer = errors.New("malformed buffer")

	// ErrEmptyRecord is returned when inserting a zero-length record.
	// Length 0 is reserved for tombstones.
	ErrEmptyRecord = errors.New("empty record")

	// ErrKeyTypeMismatch is returned when an entry key does not carry the node's key type.
	ErrKeyTypeMismatch = errors.New("key type mismatch")

	// ErrCorruptPage is returned when page metadata violates the layout invariants.
	ErrCorruptPage = errors.New("corrupt page")

	ErrRecordDeleted = errors.New("record deleted")
	ErrPageNotFound  = errors.New("page not found")
)

// IsFatal reports whether err means the stored bytes cannot be trusted.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnsupportedKeyType) || errors.Is(err, ErrCorruptPage)
}
