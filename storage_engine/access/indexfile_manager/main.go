package indexfile

import (
	"fmt"
	"os"
	"path/filepath"

	"SlotDB/logging"
	bplus "SlotDB/storage_engine/access/indexfile_manager/bplustree"
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"

	"github.com/phuslu/log"
)

/*
This file is the main file for Index File Manager that deals with the Index pages
Similar to HeapFileManager this also have access to disk manager and buffer pool

Every index lives in <baseDir>/<name>.idx, one B+ tree node per page.
*/

func NewIndexFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool, logger *log.Logger) (*IndexFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &IndexFileManager{
		baseDir:     baseDir,
		indexes:     make(map[string]*bplus.IndexFile),
		bufferPool:  bufferPool,
		diskManager: diskManager,
		logger:      logger,
	}, nil
}

// IndexPath is where the index called name is stored.
func (ifm *IndexFileManager) IndexPath(name string) string {
	return filepath.Join(ifm.baseDir, name+".idx")
}

// GetOrCreateIndex returns the open index file called name, opening or
// creating it under indexFileID on first use.
func (ifm *IndexFileManager) GetOrCreateIndex(name string, indexFileID uint32) (*bplus.IndexFile, error) {
	ifm.mu.RLock()
	idx, exists := ifm.indexes[name]
	ifm.mu.RUnlock()

	if exists {
		return idx, nil
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have
	// opened it while we were waiting for the lock).
	if idx, exists := ifm.indexes[name]; exists {
		return idx, nil
	}

	idx, err := bplus.OpenIndexFile(ifm.IndexPath(name), indexFileID, ifm.diskManager, ifm.bufferPool, ifm.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open index '%s': %w", name, err)
	}

	ifm.indexes[name] = idx
	return idx, nil
}

// LoadIndex opens an index that must already exist on disk.
func (ifm *IndexFileManager) LoadIndex(name string, indexFileID uint32) (*bplus.IndexFile, error) {
	if _, err := os.Stat(ifm.IndexPath(name)); os.IsNotExist(err) {
		return nil, fmt.Errorf("index '%s' not found at %s", name, ifm.IndexPath(name))
	}
	return ifm.GetOrCreateIndex(name, indexFileID)
}

// CloseIndex closes the index called name. Closing an index that is not
// open is a no-op.
func (ifm *IndexFileManager) CloseIndex(name string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	idx, exists := ifm.indexes[name]
	if !exists {
		return nil // not open, nothing to do
	}

	delete(ifm.indexes, name)
	if err := idx.Close(); err != nil {
		return fmt.Errorf("failed to close index '%s': %w", name, err)
	}
	return nil
}

// CloseAll closes every open index.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	var lastErr error
	for name, idx := range ifm.indexes {
		if err := idx.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close index '%s': %w", name, err)
		}
		delete(ifm.indexes, name)
	}

	return lastErr
}
