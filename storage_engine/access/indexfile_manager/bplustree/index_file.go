package bplus

import (
	"fmt"

	"SlotDB/logging"
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/phuslu/log"
)

// OpenIndexFile registers indexPath with the disk manager under fileID,
// creating the file if it does not exist. Node pages are addressed by their
// local page number, the same number stored in entries and NextPageNum.
func OpenIndexFile(indexPath string, fileID uint32, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool, logger *log.Logger) (*IndexFile, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if _, err := diskManager.OpenFileWithID(indexPath, fileID); err != nil {
		return nil, fmt.Errorf("OpenIndexFile: failed to open index file %s: %w", indexPath, err)
	}

	f := &IndexFile{
		fileID:      fileID,
		name:        indexPath,
		diskManager: diskManager,
		bufferPool:  bufferPool,
		logger:      logger,
	}
	pages, err := f.NumPages()
	if err != nil {
		return nil, fmt.Errorf("OpenIndexFile: %w", err)
	}
	logger.Debug().Str("index", indexPath).Uint32("file_id", fileID).Uint32("pages", pages).Msg("index file open")
	return f, nil
}

func (f *IndexFile) FileID() uint32 { return f.fileID }

func (f *IndexFile) NumPages() (uint32, error) {
	n, err := f.diskManager.NumPages(f.fileID)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// AllocateNode appends a page, writes node into it and returns its page number.
func (f *IndexFile) AllocateNode(node Node) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pg, err := f.bufferPool.NewPage(f.fileID, types.PageTypeBPlusNode)
	if err != nil {
		return 0, fmt.Errorf("AllocateNode: failed to allocate page: %w", err)
	}
	if err := SerializeNode(node, pg.Data); err != nil {
		return 0, fmt.Errorf("AllocateNode: initial serialize failed: %w", err)
	}
	if err := f.bufferPool.FlushPage(pg); err != nil {
		return 0, err
	}
	f.logger.Debug().Uint32("file_id", f.fileID).Uint32("page", pg.LocalNum()).Bool("leaf", node.IsLeaf()).Msg("index node allocated")
	return pg.LocalNum(), nil
}

// WriteNode serializes node over the page at pageNum and flushes it.
// A node that does not fit leaves the page as it was.
func (f *IndexFile) WriteNode(pageNum uint32, node Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	pg, err := f.fetch(pageNum)
	if err != nil {
		return err
	}
	if err := SerializeNode(node, pg.Data); err != nil {
		return fmt.Errorf("WriteNode: serialize failed for page %d: %w", pageNum, err)
	}
	pg.IsDirty = true
	return f.bufferPool.FlushPage(pg)
}

// ReadNode materialises the node stored at pageNum.
func (f *IndexFile) ReadNode(pageNum uint32) (Node, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.readNode(pageNum)
}

func (f *IndexFile) readNode(pageNum uint32) (Node, error) {
	pg, err := f.fetch(pageNum)
	if err != nil {
		return nil, err
	}
	n, err := DeserializeNode(pg.Data)
	if err != nil {
		f.logger.Error().Err(err).Uint32("file_id", f.fileID).Uint32("page", pageNum).Msg("unreadable index node")
		return nil, fmt.Errorf("ReadNode: deserialize failed for page %d: %w", pageNum, err)
	}
	return n, nil
}

// Close drops the file from the disk manager and its pages from the buffer
// pool. Every write is already on disk.
func (f *IndexFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	pages, err := f.diskManager.NumPages(f.fileID)
	if err != nil {
		return err
	}
	err = f.diskManager.CloseFile(f.fileID)
	f.bufferPool.DropFile(f.fileID, pages)
	return err
}

func (f *IndexFile) fetch(pageNum uint32) (*page.Page, error) {
	pageID := diskmanager.GlobalPageID(f.fileID, int64(pageNum))
	pg, err := f.bufferPool.FetchPage(pageID, types.PageTypeBPlusNode)
	if err != nil {
		return nil, fmt.Errorf("index page %d: %w", pageNum, err)
	}
	return pg, nil
}
