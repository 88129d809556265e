package heapfile

import (
	"sync"

	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"

	"github.com/phuslu/log"
)

// Slot represents an entry in the slot directory at the end of the page
type Slot struct {
	Offset uint16 // Offset from start of page to record data
	Length uint16 // Length of the record data, 0 for a tombstone
}

// HeapFile is a record file: a sequence of slotted heap pages addressed
// by RID (page number, slot number).
type HeapFile struct {
	fileID      uint32
	name        string
	diskManager *diskmanager.DiskManager
	bufferPool  *bufferpool.BufferPool
	logger      *log.Logger
	mu          sync.RWMutex
}

// HeapFileManager manages all heap files of a data directory
type HeapFileManager struct {
	baseDir     string
	files       map[uint32]*HeapFile
	nameIndex   map[string]uint32 // name -> fileID
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager
	logger      *log.Logger
	mu          sync.RWMutex
}
