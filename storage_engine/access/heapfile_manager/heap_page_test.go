package heapfile

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"SlotDB/storage_engine/dberr"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeapPage(size int) *page.Page {
	pg := page.NewSized(0, 1, types.PageTypeHeapData, size)
	InitHeapPage(pg)
	return pg
}

func mustInsert(t *testing.T, pg *page.Page, data string) uint16 {
	t.Helper()
	slot, err := InsertRecord(pg, []byte(data))
	require.NoError(t, err)
	return slot
}

func mustGet(t *testing.T, pg *page.Page, slot uint16) string {
	t.Helper()
	rec, err := GetRecord(pg, slot)
	require.NoError(t, err)
	return string(rec)
}

// liveBytes sums the lengths of all live records.
func liveBytes(pg *page.Page) int {
	total := 0
	for _, s := range Slots(pg) {
		total += int(s.Length)
	}
	return total
}

func assertInvariants(t *testing.T, pg *page.Page) {
	t.Helper()
	require.NoError(t, VerifyHeapPage(pg))
	assert.Equal(t, len(pg.Data),
		int(GetFreeByteCount(pg))+liveBytes(pg)+int(GetSlotCount(pg))*SlotSize+FooterSize)
}

func TestInitHeapPage(t *testing.T) {
	pg := newHeapPage(types.PageSize)
	assert.Equal(t, uint16(types.PageSize-FooterSize), GetFreeByteCount(pg))
	assert.Equal(t, uint16(0), GetSlotCount(pg))
	assert.Equal(t, MaxRecordSize(types.PageSize), FreeSpace(pg))
	assert.True(t, pg.IsDirty)
	assertInvariants(t, pg)
}

func TestHeapPageByteLayout(t *testing.T) {
	const size = 32
	pg := newHeapPage(size)

	assert.Equal(t, uint16(0), mustInsert(t, pg, "abc"))
	assert.Equal(t, uint16(1), mustInsert(t, pg, "xy"))

	assert.Equal(t, []byte("abcxy"), pg.Data[:5])

	// slot 0 right below the footer, slot 1 below it
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(pg.Data[size-8:]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(pg.Data[size-6:]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(pg.Data[size-12:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(pg.Data[size-10:]))

	// footer: slot_count at P-4, free_byte_count at P-2
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(pg.Data[size-4:]))
	assert.Equal(t, uint16(size-4-5-8), binary.LittleEndian.Uint16(pg.Data[size-2:]))
}

func TestInsertReadRoundTrip(t *testing.T) {
	pg := newHeapPage(types.PageSize)
	records := []string{"Alice|20|A", "Bob|21|B", "Charlie|22|A", "x"}

	slots := make([]uint16, len(records))
	for i, r := range records {
		slots[i] = mustInsert(t, pg, r)
		assert.Equal(t, uint16(i), slots[i])
	}

	for i, r := range records {
		out := make([]byte, 64)
		n, err := ReadRecord(pg, slots[i], out)
		require.NoError(t, err)
		assert.Equal(t, r, string(out[:n]))

		length, err := RecordLength(pg, slots[i])
		require.NoError(t, err)
		assert.Equal(t, uint16(len(r)), length)
	}
	assertInvariants(t, pg)
}

func TestInsertRejectsEmptyRecord(t *testing.T) {
	pg := newHeapPage(64)
	_, err := InsertRecord(pg, nil)
	assert.True(t, errors.Is(err, dberr.ErrEmptyRecord))
	assert.Equal(t, uint16(0), GetSlotCount(pg))
}

func TestCapacityBoundary(t *testing.T) {
	pg := newHeapPage(64)
	free := int(GetFreeByteCount(pg)) // 60

	assert.False(t, CanInsert(pg, free-SlotSize+1))
	assert.True(t, CanInsert(pg, free-SlotSize))

	before := bytes.Clone(pg.Data)
	_, err := InsertRecord(pg, bytes.Repeat([]byte{'a'}, free-SlotSize+1))
	assert.True(t, errors.Is(err, dberr.ErrInsufficientSpace))
	assert.Equal(t, before, pg.Data, "failed insert must not touch the page")

	mustInsert(t, pg, string(bytes.Repeat([]byte{'a'}, free-SlotSize)))
	assert.Equal(t, uint16(0), GetFreeByteCount(pg))
	assert.Equal(t, 0, FreeSpace(pg))

	_, err = InsertRecord(pg, []byte{'b'})
	assert.True(t, errors.Is(err, dberr.ErrInsufficientSpace))
	assertInvariants(t, pg)
}

func TestDeleteClosesGap(t *testing.T) {
	pg := newHeapPage(128)
	mustInsert(t, pg, "aaaa")
	mustInsert(t, pg, "bb")
	mustInsert(t, pg, "cccccc")
	freeBefore := GetFreeByteCount(pg)

	require.NoError(t, DeleteRecord(pg, 1))

	assert.Equal(t, freeBefore+2, GetFreeByteCount(pg), "only the record bytes come back")
	assert.Equal(t, uint16(3), GetSlotCount(pg), "the slot entry is retained")
	assert.Equal(t, []byte("aaaacccccc"), pg.Data[:10])
	assert.Equal(t, []Slot{{0, 4}, {4, 0}, {4, 6}}, Slots(pg))
	assert.Equal(t, "cccccc", mustGet(t, pg, 2))
	assertInvariants(t, pg)
}

func TestDeleteInvalidSlot(t *testing.T) {
	pg := newHeapPage(64)
	mustInsert(t, pg, "a")

	err := DeleteRecord(pg, 1)
	assert.True(t, errors.Is(err, dberr.ErrInvalidSlot))

	_, err = RecordLength(pg, 5)
	assert.True(t, errors.Is(err, dberr.ErrInvalidSlot))
}

func TestDeleteTombstoneIsNoop(t *testing.T) {
	pg := newHeapPage(64)
	mustInsert(t, pg, "abc")
	require.NoError(t, DeleteRecord(pg, 0))
	snapshot := bytes.Clone(pg.Data)

	require.NoError(t, DeleteRecord(pg, 0))
	assert.Equal(t, snapshot, pg.Data)
}

func TestReadTombstoneLeavesBufferUntouched(t *testing.T) {
	pg := newHeapPage(64)
	mustInsert(t, pg, "abc")
	require.NoError(t, DeleteRecord(pg, 0))

	out := []byte("zzzz")
	n, err := ReadRecord(pg, 0, out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []byte("zzzz"), out)

	length, err := RecordLength(pg, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), length)

	_, err = GetRecord(pg, 0)
	assert.True(t, errors.Is(err, dberr.ErrRecordDeleted))
}

func TestReadRecordShortBuffer(t *testing.T) {
	pg := newHeapPage(64)
	mustInsert(t, pg, "abcdef")
	_, err := ReadRecord(pg, 0, make([]byte, 3))
	assert.Error(t, err)
}

// A deleted slot keeps its directory entry and the next insert takes it
// over: slot numbers are recycled, not retired.
func TestTombstoneReuse(t *testing.T) {
	pg := newHeapPage(256)
	mustInsert(t, pg, "first")
	mustInsert(t, pg, "second-record")
	mustInsert(t, pg, "third")
	mustInsert(t, pg, "fourth")

	require.NoError(t, DeleteRecord(pg, 1))
	require.NoError(t, DeleteRecord(pg, 2))
	slotCount := GetSlotCount(pg)
	freeBefore := GetFreeByteCount(pg)

	slot := mustInsert(t, pg, "new")
	assert.Equal(t, uint16(1), slot, "lowest tombstone is reused")
	assert.Equal(t, slotCount, GetSlotCount(pg), "no new slot appended")
	assert.Equal(t, freeBefore-3, GetFreeByteCount(pg), "reuse charges only the record bytes")

	length, err := RecordLength(pg, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), length)

	assert.Equal(t, "first", mustGet(t, pg, 0))
	assert.Equal(t, "new", mustGet(t, pg, 1))
	assert.False(t, IsSlotLive(pg, 2))
	assert.Equal(t, "fourth", mustGet(t, pg, 3))
	assertInvariants(t, pg)

	slot = mustInsert(t, pg, "again")
	assert.Equal(t, uint16(2), slot)
	slot = mustInsert(t, pg, "tail")
	assert.Equal(t, uint16(4), slot, "no tombstones left, a new slot is appended")
	assertInvariants(t, pg)
}

func TestTombstoneReuseAtSlotZero(t *testing.T) {
	pg := newHeapPage(64)
	mustInsert(t, pg, "aa")
	mustInsert(t, pg, "bbb")
	require.NoError(t, DeleteRecord(pg, 0))

	assert.Equal(t, uint16(0), mustInsert(t, pg, "zzzz"))
	assert.Equal(t, []byte("zzzzbbb"), pg.Data[:7])
	assert.Equal(t, "bbb", mustGet(t, pg, 1))
	assertInvariants(t, pg)
}

func TestUpdateRecord(t *testing.T) {
	pg := newHeapPage(128)
	mustInsert(t, pg, "aaaa")
	mustInsert(t, pg, "bbbb")
	mustInsert(t, pg, "cccc")

	require.NoError(t, UpdateRecord(pg, 1, []byte("BBBBBBBB")))
	assert.Equal(t, "aaaa", mustGet(t, pg, 0))
	assert.Equal(t, "BBBBBBBB", mustGet(t, pg, 1))
	assert.Equal(t, "cccc", mustGet(t, pg, 2))
	assertInvariants(t, pg)

	require.NoError(t, UpdateRecord(pg, 1, []byte("b")))
	assert.Equal(t, "b", mustGet(t, pg, 1))
	assert.Equal(t, "cccc", mustGet(t, pg, 2))
	assert.Equal(t, []byte("aaaabcccc"), pg.Data[:9])
	assertInvariants(t, pg)

	require.NoError(t, UpdateRecord(pg, 2, []byte("last-grows")))
	assert.Equal(t, "last-grows", mustGet(t, pg, 2))
	assertInvariants(t, pg)
}

func TestUpdateRecordErrors(t *testing.T) {
	pg := newHeapPage(32)
	mustInsert(t, pg, "aaaa")
	mustInsert(t, pg, "bbbb")
	require.NoError(t, DeleteRecord(pg, 1))

	before := bytes.Clone(pg.Data)
	err := UpdateRecord(pg, 0, bytes.Repeat([]byte{'x'}, 64))
	assert.True(t, errors.Is(err, dberr.ErrInsufficientSpace))
	assert.Equal(t, before, pg.Data)

	assert.True(t, errors.Is(UpdateRecord(pg, 1, []byte("x")), dberr.ErrRecordDeleted))
	assert.True(t, errors.Is(UpdateRecord(pg, 0, nil), dberr.ErrEmptyRecord))
	assert.True(t, errors.Is(UpdateRecord(pg, 9, []byte("x")), dberr.ErrInvalidSlot))
}

func TestEraseAndReset(t *testing.T) {
	pg := newHeapPage(64)
	mustInsert(t, pg, "abc")
	mustInsert(t, pg, "def")

	EraseAndReset(pg)
	assert.Equal(t, uint16(0), GetSlotCount(pg))
	assert.Equal(t, uint16(60), GetFreeByteCount(pg))
	assert.Equal(t, make([]byte, 60), pg.Data[:60])
	assertInvariants(t, pg)
}

func TestVerifyHeapPageDetectsCorruption(t *testing.T) {
	pg := newHeapPage(64)
	mustInsert(t, pg, "abc")
	mustInsert(t, pg, "de")

	bad := &page.Page{Data: bytes.Clone(pg.Data)}
	writeSlot(bad, 1, 7, 2)
	assert.True(t, dberr.IsFatal(VerifyHeapPage(bad)))

	bad = &page.Page{Data: bytes.Clone(pg.Data)}
	setFreeByteCount(bad, GetFreeByteCount(pg)+1)
	assert.True(t, errors.Is(VerifyHeapPage(bad), dberr.ErrCorruptPage))

	bad = &page.Page{Data: bytes.Clone(pg.Data)}
	setSlotCount(bad, 100)
	assert.True(t, errors.Is(VerifyHeapPage(bad), dberr.ErrCorruptPage))
}

// Random insert/delete/update sequences checked against an in-memory model.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pg := newHeapPage(512)
	model := map[uint16][]byte{}

	for step := 0; step < 3000; step++ {
		switch op := rng.Intn(10); {
		case op < 5:
			rec := make([]byte, 1+rng.Intn(40))
			rng.Read(rec)
			canInsert := CanInsert(pg, len(rec))
			slot, err := InsertRecord(pg, rec)
			if !canInsert {
				require.True(t, errors.Is(err, dberr.ErrInsufficientSpace), "step %d", step)
				break
			}
			require.NoError(t, err, "step %d", step)
			_, taken := model[slot]
			require.False(t, taken, "step %d: slot %d handed out twice", step, slot)
			model[slot] = rec
		case op < 8:
			if GetSlotCount(pg) == 0 {
				break
			}
			slot := uint16(rng.Intn(int(GetSlotCount(pg))))
			require.NoError(t, DeleteRecord(pg, slot), "step %d", step)
			delete(model, slot)
		default:
			if len(model) == 0 {
				break
			}
			slot := uint16(rng.Intn(int(GetSlotCount(pg))))
			if _, live := model[slot]; !live {
				break
			}
			rec := make([]byte, 1+rng.Intn(40))
			rng.Read(rec)
			if err := UpdateRecord(pg, slot, rec); err != nil {
				require.True(t, errors.Is(err, dberr.ErrInsufficientSpace), "step %d", step)
				break
			}
			model[slot] = rec
		}

		require.NoError(t, VerifyHeapPage(pg), "step %d", step)
		require.Equal(t, len(pg.Data),
			int(GetFreeByteCount(pg))+liveBytes(pg)+int(GetSlotCount(pg))*SlotSize+FooterSize,
			"step %d", step)
		for slot, want := range model {
			got, err := GetRecord(pg, slot)
			require.NoError(t, err, "step %d slot %d", step, slot)
			require.Equal(t, want, got, "step %d slot %d", step, slot)
		}
	}
}
