package bufferpool

import (
	"fmt"

	"SlotDB/logging"
	"SlotDB/storage_engine/config"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
	"github.com/phuslu/log"
)

/*
This file is the main file of the bufferpool
A page miss goes to the disk manager and the image is offered to the cache;
a hit returns a private copy of the cached image.

Pages are identified by globalPageID.
Callers own the *page.Page they get back: mutating it does not touch the
cache until FlushPage.
*/

// NewBufferPool creates a buffer pool sized by cfg.PageCacheBytes.
func NewBufferPool(cfg config.Config, diskManager *diskmanager.DiskManager, logger *log.Logger) (*BufferPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	cache, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
		NumCounters:        cfg.CacheCounters,
		MaxCost:            cfg.PageCacheBytes,
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	logger.Info().
		Str("capacity", humanize.IBytes(uint64(cfg.PageCacheBytes))).
		Int64("pages", cfg.CachedPages()).
		Msg("buffer pool ready")

	return &BufferPool{
		cache:       cache,
		diskManager: diskManager,
		logger:      logger,
	}, nil
}

// FetchPage returns a copy of the page, loading it from disk on a miss.
// pageType is stamped on the returned frame; the bytes do not carry it.
func (bp *BufferPool) FetchPage(pageID int64, pageType types.PageType) (*page.Page, error) {
	fileID, _ := diskmanager.SplitPageID(pageID)

	if data, ok := bp.cache.Get(pageID); ok {
		bp.logger.Debug().Int64("page_id", pageID).Msg("buffer pool hit")
		pg := page.New(pageID, fileID, pageType)
		copy(pg.Data, data)
		return pg, nil
	}

	bp.logger.Debug().Int64("page_id", pageID).Msg("buffer pool miss")
	if bp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pg, err := bp.diskManager.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d from disk: %w", pageID, err)
	}
	pg.PageType = pageType

	bp.admit(pg)
	return pg, nil
}

// NewPage allocates the next page of a file and returns a zeroed, dirty
// frame for it. The page reaches disk and cache on its first FlushPage.
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	if bp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pageID, err := bp.diskManager.AllocatePage(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate page: %w", err)
	}

	pg := page.New(pageID, fileID, pageType)
	pg.IsDirty = true
	return pg, nil
}

// FlushPage writes a dirty page to disk and refreshes its cache entry.
func (bp *BufferPool) FlushPage(pg *page.Page) error {
	if !pg.IsDirty {
		return nil // Nothing to flush
	}

	if err := bp.diskManager.WritePage(pg); err != nil {
		return fmt.Errorf("failed to flush page %d: %w", pg.ID, err)
	}
	bp.logger.Debug().
		Int64("page_id", pg.ID).
		Str("kind", pg.PageType.String()).
		Uint64("checksum", pg.Checksum()).
		Msg("flushed page")

	bp.cache.Del(pg.ID)
	bp.admit(pg)
	return nil
}

// DeletePage drops a page from the cache (used after deletion).
func (bp *BufferPool) DeletePage(pageID int64) {
	bp.cache.Del(pageID)
	bp.cache.Wait()
}

// DropFile evicts the first numPages pages of fileID. Call it when the file
// is closed so a later file opened under the same id does not see them.
func (bp *BufferPool) DropFile(fileID uint32, numPages int64) {
	for n := int64(0); n < numPages; n++ {
		bp.cache.Del(diskmanager.GlobalPageID(fileID, n))
	}
	bp.cache.Wait()
	bp.logger.Debug().Uint32("file_id", fileID).Int64("pages", numPages).Msg("dropped file pages")
}

// Stats returns buffer pool statistics
func (bp *BufferPool) Stats() BufferPoolStats {
	m := bp.cache.Metrics
	return BufferPoolStats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		HitRatio:  m.Ratio(),
		CostAdded: m.CostAdded(),
		Evicted:   m.KeysEvicted(),
	}
}

// Close releases the cache. Pages are already on disk.
func (bp *BufferPool) Close() {
	bp.cache.Close()
}

// admit offers a private copy of pg to the cache. Ristretto may refuse it;
// the next fetch then reads from disk.
func (bp *BufferPool) admit(pg *page.Page) {
	data := make([]byte, len(pg.Data))
	copy(data, pg.Data)
	if !bp.cache.Set(pg.ID, data, int64(len(data))) {
		bp.logger.Debug().Int64("page_id", pg.ID).Msg("page cache dropped set")
	}
	bp.cache.Wait()
}
