package dberr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrappedSentinelsMatch(t *testing.T) {
	err := errors.Wrapf(ErrInvalidSlot, "slot %d out of range (count=%d)", 7, 3)
	assert.True(t, errors.Is(err, ErrInvalidSlot))
	assert.False(t, errors.Is(err, ErrInvalidIndex))
	assert.Contains(t, err.Error(), "slot 7 out of range")
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(errors.Wrap(ErrUnsupportedKeyType, "tag 9")))
	assert.True(t, IsFatal(ErrCorruptPage))
	assert.False(t, IsFatal(ErrInsufficientSpace))
	assert.False(t, IsFatal(nil))
}
