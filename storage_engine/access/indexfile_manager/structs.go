package indexfile

import (
	"sync"

	bplus "SlotDB/storage_engine/access/indexfile_manager/bplustree"
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"

	"github.com/phuslu/log"
)

type IndexFileManager struct {
	baseDir     string                      // e.g., /data/mydb/indexes
	indexes     map[string]*bplus.IndexFile // index name → open index file
	bufferPool  *bufferpool.BufferPool      // ← shared with heap files
	diskManager *diskmanager.DiskManager    // ← shared with heap files
	logger      *log.Logger
	mu          sync.RWMutex
}
