package bufferpool

import (
	diskmanager "SlotDB/storage_engine/disk_manager"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/phuslu/log"
)

// ############################################# BUFFER POOL #############################################

// BufferPool caches page images in memory in front of the disk manager.
// Works with both heap pages and B+ tree index pages.
//
// It is write-through: FlushPage writes to disk before updating the cache,
// so an evicted entry never holds the only copy of a page. Admission and
// eviction are left to ristretto.
type BufferPool struct {
	cache       *ristretto.Cache[int64, []byte] // pageID -> page image
	diskManager *diskmanager.DiskManager
	logger      *log.Logger
}

// BufferPoolStats reports cache effectiveness.
type BufferPoolStats struct {
	Hits      uint64
	Misses    uint64
	HitRatio  float64
	CostAdded uint64 // bytes admitted since creation
	Evicted   uint64
}
