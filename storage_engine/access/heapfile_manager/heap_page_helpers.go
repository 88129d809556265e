package heapfile

import (
	"encoding/binary"

	"SlotDB/storage_engine/dberr"
	"SlotDB/storage_engine/page"

	"github.com/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Footer accessors
// ─────────────────────────────────────────────────────────────────────────────

func GetSlotCount(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[len(pg.Data)-footOffSlotCount:])
}
func setSlotCount(pg *page.Page, n uint16) {
	binary.LittleEndian.PutUint16(pg.Data[len(pg.Data)-footOffSlotCount:], n)
}

// GetFreeByteCount is the number of bytes left for new records and their
// slot entries.
func GetFreeByteCount(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[len(pg.Data)-footOffFreeBytes:])
}
func setFreeByteCount(pg *page.Page, n uint16) {
	binary.LittleEndian.PutUint16(pg.Data[len(pg.Data)-footOffFreeBytes:], n)
}

// FreeSpace returns the largest record InsertRecord would accept right now.
//
//	available = FreeByteCount - SlotSize
func FreeSpace(pg *page.Page) int {
	available := int(GetFreeByteCount(pg)) - SlotSize
	if available < 0 {
		return 0
	}
	return available
}

// MaxRecordSize is the largest record an empty page of pageSize bytes holds.
func MaxRecordSize(pageSize int) int {
	return pageSize - FooterSize - SlotSize
}

// ─────────────────────────────────────────────────────────────────────────────
// Slot directory
// ─────────────────────────────────────────────────────────────────────────────

// slotByteOffset returns the byte offset in Data where slot i begins.
// Slot 0 sits right below the footer, slot 1 just below it, and so on.
//
//	slot 0: bytes P-8 … P-5
//	slot 1: bytes P-12 … P-9
//	slot i: P - FooterSize - (i+1)*SlotSize
func slotByteOffset(pg *page.Page, i uint16) int {
	return len(pg.Data) - FooterSize - (int(i)+1)*SlotSize
}

func readSlot(pg *page.Page, i uint16) (offset, length uint16) {
	base := slotByteOffset(pg, i)
	return binary.LittleEndian.Uint16(pg.Data[base:]),
		binary.LittleEndian.Uint16(pg.Data[base+2:])
}

func writeSlot(pg *page.Page, i uint16, offset, length uint16) {
	base := slotByteOffset(pg, i)
	binary.LittleEndian.PutUint16(pg.Data[base:], offset)
	binary.LittleEndian.PutUint16(pg.Data[base+2:], length)
}

func checkSlot(pg *page.Page, i uint16, op string) error {
	if n := GetSlotCount(pg); i >= n {
		return errors.Wrapf(dberr.ErrInvalidSlot, "%s: slot %d out of range (count=%d)", op, i, n)
	}
	return nil
}

func IsSlotLive(pg *page.Page, i uint16) bool {
	if i >= GetSlotCount(pg) {
		return false
	}
	_, length := readSlot(pg, i)
	return length != 0
}

// Slots returns a snapshot of the whole directory, tombstones included.
func Slots(pg *page.Page) []Slot {
	n := GetSlotCount(pg)
	out := make([]Slot, n)
	for i := uint16(0); i < n; i++ {
		out[i].Offset, out[i].Length = readSlot(pg, i)
	}
	return out
}

// slotForInsertion returns the first tombstone slot, or SlotCount when
// there is none.
func slotForInsertion(pg *page.Page) uint16 {
	n := GetSlotCount(pg)
	for i := uint16(0); i < n; i++ {
		if _, l := readSlot(pg, i); l == 0 {
			return i
		}
	}
	return n
}

// recordOffset is where slot i's record starts under the cumulative chain.
func recordOffset(pg *page.Page, i uint16) uint16 {
	if i == 0 {
		return 0
	}
	offset, length := readSlot(pg, i-1)
	return offset + length
}

// dataEnd is the first byte after the last record.
func dataEnd(pg *page.Page) uint16 {
	return recordOffset(pg, GetSlotCount(pg))
}

// ─────────────────────────────────────────────────────────────────────────────
// Compaction
// ─────────────────────────────────────────────────────────────────────────────

// shiftRecordsRight moves the records of slots from.. right by n bytes and
// rewrites their offsets. The caller has checked that n bytes are free.
func shiftRecordsRight(pg *page.Page, from uint16, n uint16) {
	count := GetSlotCount(pg)
	if from >= count {
		return
	}
	start, _ := readSlot(pg, from)
	end := dataEnd(pg)
	copy(pg.Data[start+n:end+n], pg.Data[start:end])
	for i := from; i < count; i++ {
		offset, length := readSlot(pg, i)
		writeSlot(pg, i, offset+n, length)
	}
}

// shiftRecordsLeft moves the records of slots from.. left by n bytes,
// overwriting the n bytes in front of them.
func shiftRecordsLeft(pg *page.Page, from uint16, n uint16) {
	count := GetSlotCount(pg)
	if from >= count {
		return
	}
	start, _ := readSlot(pg, from)
	end := dataEnd(pg)
	copy(pg.Data[start-n:end-n], pg.Data[start:end])
	for i := from; i < count; i++ {
		offset, length := readSlot(pg, i)
		writeSlot(pg, i, offset-n, length)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Verification
// ─────────────────────────────────────────────────────────────────────────────

// VerifyHeapPage checks the footer, the offset chain and the free byte
// accounting. It returns ErrCorruptPage describing the first violation.
func VerifyHeapPage(pg *page.Page) error {
	size := len(pg.Data)
	if size < FooterSize {
		return errors.Wrapf(dberr.ErrCorruptPage, "page of %d bytes has no room for a footer", size)
	}
	count := int(GetSlotCount(pg))
	dirStart := size - FooterSize - count*SlotSize
	if dirStart < 0 {
		return errors.Wrapf(dberr.ErrCorruptPage, "%d slots do not fit in %d bytes", count, size)
	}

	expected := 0
	for i := 0; i < count; i++ {
		offset, length := readSlot(pg, uint16(i))
		if int(offset) != expected {
			return errors.Wrapf(dberr.ErrCorruptPage,
				"slot %d at offset %d, expected %d", i, offset, expected)
		}
		expected += int(length)
	}
	if expected > dirStart {
		return errors.Wrapf(dberr.ErrCorruptPage,
			"records end at %d, past slot directory at %d", expected, dirStart)
	}

	free := int(GetFreeByteCount(pg))
	if free+expected+count*SlotSize+FooterSize != size {
		return errors.Wrapf(dberr.ErrCorruptPage,
			"free %d + live %d + %d slots does not add up to %d", free, expected, count, size)
	}
	return nil
}
