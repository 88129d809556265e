package heapfile

import (
	"fmt"

	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/dberr"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/pkg/errors"
)

/*
HeapFile row operations. Each call fetches the page it needs through the
buffer pool, applies one slotted-page operation and flushes the page before
returning, so a successful call is on disk.

A RID's slot number can be handed out again after its record is deleted:
the slotted page reuses the first tombstone it finds.
*/

func (hf *HeapFile) FileID() uint32 { return hf.fileID }
func (hf *HeapFile) Name() string   { return hf.name }

// NumPages returns how many pages the file has.
func (hf *HeapFile) NumPages() (uint32, error) {
	n, err := hf.diskManager.NumPages(hf.fileID)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// InsertRecord stores data in the first page with room for it, appending a
// new page when none has, and returns the record's RID.
func (hf *HeapFile) InsertRecord(data []byte) (types.RID, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if len(data) == 0 {
		return types.RID{}, errors.Wrap(dberr.ErrEmptyRecord, "InsertRecord")
	}
	if maxLen := MaxRecordSize(page.PageSize); len(data) > maxLen {
		return types.RID{}, errors.Wrapf(dberr.ErrInsufficientSpace,
			"record of %d bytes exceeds page capacity %d", len(data), maxLen)
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return types.RID{}, err
	}

	for pageNum := uint32(0); pageNum < numPages; pageNum++ {
		pg, err := hf.fetch(pageNum)
		if err != nil {
			return types.RID{}, err
		}
		if CanInsert(pg, len(data)) {
			return hf.insertInto(pg, data)
		}
	}

	pg, err := hf.bufferPool.NewPage(hf.fileID, types.PageTypeHeapData)
	if err != nil {
		return types.RID{}, fmt.Errorf("heap %s: %w", hf.name, err)
	}
	InitHeapPage(pg)
	hf.logger.Debug().Str("heap", hf.name).Uint32("page", pg.LocalNum()).Msg("heap file grew")
	return hf.insertInto(pg, data)
}

func (hf *HeapFile) insertInto(pg *page.Page, data []byte) (types.RID, error) {
	slotIdx, err := InsertRecord(pg, data)
	if err != nil {
		return types.RID{}, err
	}
	if err := hf.bufferPool.FlushPage(pg); err != nil {
		return types.RID{}, err
	}
	return types.RID{PageNum: pg.LocalNum(), SlotNum: slotIdx}, nil
}

// GetRecord returns a copy of the record at rid.
func (hf *HeapFile) GetRecord(rid types.RID) ([]byte, error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()

	pg, err := hf.fetch(rid.PageNum)
	if err != nil {
		return nil, err
	}
	return GetRecord(pg, rid.SlotNum)
}

// DeleteRecord tombstones the record at rid.
func (hf *HeapFile) DeleteRecord(rid types.RID) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	pg, err := hf.fetch(rid.PageNum)
	if err != nil {
		return err
	}
	if err := DeleteRecord(pg, rid.SlotNum); err != nil {
		return err
	}
	return hf.bufferPool.FlushPage(pg)
}

// UpdateRecord replaces the record at rid in place. A record that no longer
// fits its page fails with ErrInsufficientSpace; moving it is up to the caller.
func (hf *HeapFile) UpdateRecord(rid types.RID, data []byte) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	pg, err := hf.fetch(rid.PageNum)
	if err != nil {
		return err
	}
	if err := UpdateRecord(pg, rid.SlotNum, data); err != nil {
		return err
	}
	return hf.bufferPool.FlushPage(pg)
}

// Scan calls fn for every live record in page and slot order. A non-nil
// error from fn stops the scan and is returned.
func (hf *HeapFile) Scan(fn func(rid types.RID, data []byte) error) error {
	hf.mu.RLock()
	defer hf.mu.RUnlock()

	numPages, err := hf.NumPages()
	if err != nil {
		return err
	}
	for pageNum := uint32(0); pageNum < numPages; pageNum++ {
		pg, err := hf.fetch(pageNum)
		if err != nil {
			return err
		}
		for slotIdx, slot := range Slots(pg) {
			if slot.Length == 0 {
				continue
			}
			rec := pg.Data[slot.Offset : slot.Offset+slot.Length]
			if err := fn(types.RID{PageNum: pageNum, SlotNum: uint16(slotIdx)}, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (hf *HeapFile) fetch(pageNum uint32) (*page.Page, error) {
	pageID := diskmanager.GlobalPageID(hf.fileID, int64(pageNum))
	pg, err := hf.bufferPool.FetchPage(pageID, types.PageTypeHeapData)
	if err != nil {
		return nil, fmt.Errorf("heap %s page %d: %w", hf.name, pageNum, err)
	}
	return pg, nil
}
