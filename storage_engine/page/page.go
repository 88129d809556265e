package page

import (
	"SlotDB/types"

	"github.com/cespare/xxhash/v2"
)

const PageSize = types.PageSize

/*
Page is the in-memory frame both page kinds are materialised into.
The byte format written into Data differs per kind:
for heap pages: /SlotDB/storage_engine/access/heapfile_manager/heap_page.go
for index pages: /SlotDB/storage_engine/access/indexfile_manager/bplustree/node_to_index_page.go

Neither format stamps the page kind into Data, so PageType is carried here
and by whoever opened the file.

A Page exclusively owns Data while it is materialised; persisting it is the
disk manager's job.
*/
type Page struct {
	ID       int64 // global page id: fileID<<32 | local page number
	FileID   uint32
	Data     []byte
	IsDirty  bool
	PageType types.PageType
}

// New returns a zeroed frame of PageSize bytes.
func New(pageID int64, fileID uint32, pageType types.PageType) *Page {
	return NewSized(pageID, fileID, pageType, PageSize)
}

// NewSized returns a zeroed frame of the given size. Only tests and tools
// use sizes other than PageSize.
func NewSized(pageID int64, fileID uint32, pageType types.PageType, size int) *Page {
	return &Page{
		ID:       pageID,
		FileID:   fileID,
		Data:     make([]byte, size),
		PageType: pageType,
	}
}

// LocalNum is the page number inside its file.
func (p *Page) LocalNum() uint32 {
	return uint32(p.ID & 0xFFFFFFFF)
}

func (p *Page) Size() int {
	return len(p.Data)
}

// Checksum fingerprints the page bytes. It is not stored in the page.
func (p *Page) Checksum() uint64 {
	return xxhash.Sum64(p.Data)
}
