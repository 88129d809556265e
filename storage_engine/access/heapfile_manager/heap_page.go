package heapfile

import (
	"io"

	"SlotDB/storage_engine/dberr"
	"SlotDB/storage_engine/page"

	"github.com/pkg/errors"
)

/*
This file contains standalone functions operating on *page.Page for slotted
heap pages. They are pure byte-layout operations: no I/O, no locking, no
logging. The caller owns pg for the duration of the call.

Heap page binary layout (P = len(pg.Data), all values little-endian):

	Offset              Size   Field
	──────────────────────────────────────────────────────────────
	0                   var    record data, contiguous, slot order
	...                        free space
	P-4-4*SlotCount     4/slot slot directory, slot i at P-4-4*(i+1)
	P-4                 2      SlotCount      uint16
	P-2                 2      FreeByteCount  uint16

	[ records → ][ free space ][ ← slot dir ][ footer 4B ]
	0                                                     P

A slot entry is 4 bytes: [ Offset uint16 ][ Length uint16 ]

	Offset  byte offset from start of page to the record data.
	Length  byte length of the record (0 = tombstone / deleted).

Records stay packed in slot-number order, so for every slot i > 0

	offset(i) == offset(i-1) + length(i-1),  offset(0) == 0

tombstones included. Insert and delete shift bytes to keep it that way, and

	FreeByteCount + Σ length + 4*SlotCount + 4 == P

holds after every operation.
*/
const (
	// SlotSize is the byte size of one slot entry: Offset(2) + Length(2).
	SlotSize = 4

	// FooterSize is SlotCount(2) + FreeByteCount(2).
	FooterSize = 4

	footOffSlotCount = 4 // from the end of the page
	footOffFreeBytes = 2
)

// ─────────────────────────────────────────────────────────────────────────────
// Initialisation
// ─────────────────────────────────────────────────────────────────────────────

// InitHeapPage stamps the footer of an empty heap page:
// FreeByteCount = P - FooterSize, SlotCount = 0.
// The data region is not touched; use EraseAndReset to also clear it.
func InitHeapPage(pg *page.Page) {
	setFreeByteCount(pg, uint16(len(pg.Data)-FooterSize))
	setSlotCount(pg, 0)
	pg.IsDirty = true
}

// EraseAndReset zeroes the whole page and reinitialises the footer, so the
// frame can be recycled for a new role.
func EraseAndReset(pg *page.Page) {
	clear(pg.Data)
	InitHeapPage(pg)
}

// ─────────────────────────────────────────────────────────────────────────────
// Record operations
// ─────────────────────────────────────────────────────────────────────────────

// CanInsert reports whether a record of recordLen bytes fits. The slot entry
// is always charged, even when a tombstone would be reused.
func CanInsert(pg *page.Page, recordLen int) bool {
	return int(GetFreeByteCount(pg)) >= recordLen+SlotSize
}

// InsertRecord copies data into the page and returns its slot number.
//
// The first tombstone slot (lowest number) is reused if there is one,
// otherwise a new slot is appended. Reusing slot k shifts the records of
// slots k+1.. right by len(data) to open the gap. Slot numbers are therefore
// not stable across a delete/insert pair.
//
// Returns ErrInsufficientSpace, leaving the page unchanged, when
// len(data)+SlotSize exceeds the free byte count.
func InsertRecord(pg *page.Page, data []byte) (uint16, error) {
	recordLen := len(data)
	if recordLen == 0 {
		return 0, errors.Wrap(dberr.ErrEmptyRecord, "InsertRecord")
	}
	if !CanInsert(pg, recordLen) {
		return 0, errors.Wrapf(dberr.ErrInsufficientSpace,
			"InsertRecord: need %d bytes, only %d free", recordLen+SlotSize, GetFreeByteCount(pg))
	}

	slotCount := GetSlotCount(pg)
	slotIdx := slotForInsertion(pg)
	reused := slotIdx < slotCount
	if reused {
		shiftRecordsRight(pg, slotIdx+1, uint16(recordLen))
	}

	offset := recordOffset(pg, slotIdx)
	copy(pg.Data[offset:], data)
	writeSlot(pg, slotIdx, offset, uint16(recordLen))

	// A reused slot's directory entry was charged when it was first appended
	// and never refunded by DeleteRecord.
	charge := uint16(recordLen)
	if !reused {
		setSlotCount(pg, slotCount+1)
		charge += SlotSize
	}
	setFreeByteCount(pg, GetFreeByteCount(pg)-charge)

	pg.IsDirty = true
	return slotIdx, nil
}

// ReadRecord copies the record at slotIdx into out and returns its length.
// A tombstone reads as 0 bytes and out is left untouched.
func ReadRecord(pg *page.Page, slotIdx uint16, out []byte) (int, error) {
	if err := checkSlot(pg, slotIdx, "ReadRecord"); err != nil {
		return 0, err
	}
	offset, length := readSlot(pg, slotIdx)
	if length == 0 {
		return 0, nil
	}
	if len(out) < int(length) {
		return 0, errors.Wrapf(io.ErrShortBuffer,
			"ReadRecord: slot %d holds %d bytes, buffer has %d", slotIdx, length, len(out))
	}
	return copy(out, pg.Data[offset:offset+length]), nil
}

// GetRecord returns a copy of the record at slotIdx.
func GetRecord(pg *page.Page, slotIdx uint16) ([]byte, error) {
	if err := checkSlot(pg, slotIdx, "GetRecord"); err != nil {
		return nil, err
	}
	offset, length := readSlot(pg, slotIdx)
	if length == 0 {
		return nil, errors.Wrapf(dberr.ErrRecordDeleted, "GetRecord: slot %d is a tombstone", slotIdx)
	}
	out := make([]byte, length)
	copy(out, pg.Data[offset:offset+length])
	return out, nil
}

// DeleteRecord turns slotIdx into a tombstone and closes the gap: records of
// later slots move left by the deleted length and the length is returned to
// the free byte count. The slot entry itself stays in the directory and is
// picked up again by the next InsertRecord. Deleting a tombstone is a no-op.
func DeleteRecord(pg *page.Page, slotIdx uint16) error {
	if err := checkSlot(pg, slotIdx, "DeleteRecord"); err != nil {
		return err
	}
	offset, length := readSlot(pg, slotIdx)
	if length == 0 {
		return nil
	}

	shiftRecordsLeft(pg, slotIdx+1, length)
	setFreeByteCount(pg, GetFreeByteCount(pg)+length)
	writeSlot(pg, slotIdx, offset, 0)

	pg.IsDirty = true
	return nil
}

// UpdateRecord replaces the record at slotIdx with newData, keeping its slot
// number. Later records move by the length difference. Growing needs the
// extra bytes to be free; otherwise ErrInsufficientSpace and no change.
func UpdateRecord(pg *page.Page, slotIdx uint16, newData []byte) error {
	if err := checkSlot(pg, slotIdx, "UpdateRecord"); err != nil {
		return err
	}
	offset, oldLen := readSlot(pg, slotIdx)
	if oldLen == 0 {
		return errors.Wrapf(dberr.ErrRecordDeleted, "UpdateRecord: slot %d is a tombstone", slotIdx)
	}
	if len(newData) == 0 {
		return errors.Wrap(dberr.ErrEmptyRecord, "UpdateRecord")
	}

	free := int(GetFreeByteCount(pg))
	newLen := len(newData)
	switch {
	case newLen > int(oldLen):
		grow := newLen - int(oldLen)
		if grow > free {
			return errors.Wrapf(dberr.ErrInsufficientSpace,
				"UpdateRecord: slot %d grows by %d bytes, only %d free", slotIdx, grow, free)
		}
		shiftRecordsRight(pg, slotIdx+1, uint16(grow))
	case newLen < int(oldLen):
		shiftRecordsLeft(pg, slotIdx+1, oldLen-uint16(newLen))
	}

	copy(pg.Data[offset:], newData)
	writeSlot(pg, slotIdx, offset, uint16(newLen))
	setFreeByteCount(pg, uint16(free+int(oldLen)-newLen))

	pg.IsDirty = true
	return nil
}

// RecordLength returns the length stored in slotIdx; 0 means tombstone.
func RecordLength(pg *page.Page, slotIdx uint16) (uint16, error) {
	if err := checkSlot(pg, slotIdx, "RecordLength"); err != nil {
		return 0, err
	}
	_, length := readSlot(pg, slotIdx)
	return length, nil
}
