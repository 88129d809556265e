package heapfile

import (
	"fmt"
	"os"
	"path/filepath"

	"SlotDB/logging"
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"

	"github.com/phuslu/log"
)

/*
This file is the start of the heapfile manager
It maps names to heap files inside baseDir. Each file is opened through the
Disk Manager and its pages travel through the Buffer Pool.
*/

// NewHeapFileManager creates a new heap file manager
func NewHeapFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool, logger *log.Logger) *HeapFileManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HeapFileManager{
		baseDir:     baseDir,
		files:       make(map[uint32]*HeapFile),
		nameIndex:   make(map[string]uint32),
		diskManager: diskManager,
		bufferPool:  bufferPool,
		logger:      logger,
	}
}

// OpenHeapfile opens (creating if needed) <baseDir>/<name>.heap under fileID.
func (hfm *HeapFileManager) OpenHeapfile(name string, fileID uint32) (*HeapFile, error) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if id, exists := hfm.nameIndex[name]; exists {
		return hfm.files[id], nil
	}

	if err := os.MkdirAll(hfm.baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create heap directory: %w", err)
	}

	heapPath := filepath.Join(hfm.baseDir, name+".heap")
	if _, err := hfm.diskManager.OpenFileWithID(heapPath, fileID); err != nil {
		return nil, fmt.Errorf("failed to open heapfile %s: %w", name, err)
	}

	hf := &HeapFile{
		fileID:      fileID,
		name:        name,
		diskManager: hfm.diskManager,
		bufferPool:  hfm.bufferPool,
		logger:      hfm.logger,
	}
	hfm.files[fileID] = hf
	hfm.nameIndex[name] = fileID
	hfm.logger.Debug().Str("heap", name).Uint32("file_id", fileID).Msg("heap file open")
	return hf, nil
}

func (hfm *HeapFileManager) GetHeapFileByName(name string) (*HeapFile, error) {
	hfm.mu.RLock()
	defer hfm.mu.RUnlock()

	fileID, exists := hfm.nameIndex[name]
	if !exists {
		return nil, fmt.Errorf("no heap file open for '%s'", name)
	}
	return hfm.files[fileID], nil
}

func (hfm *HeapFileManager) GetHeapFileByID(fileID uint32) (*HeapFile, error) {
	hfm.mu.RLock()
	defer hfm.mu.RUnlock()

	hf, exists := hfm.files[fileID]
	if !exists {
		return nil, fmt.Errorf("heap file %d not found", fileID)
	}
	return hf, nil
}

// CloseHeapfile closes the file behind name and evicts its cached pages;
// the handle must not be used after.
func (hfm *HeapFileManager) CloseHeapfile(name string) error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	fileID, exists := hfm.nameIndex[name]
	if !exists {
		return fmt.Errorf("no heap file open for '%s'", name)
	}
	delete(hfm.nameIndex, name)
	delete(hfm.files, fileID)

	pages, err := hfm.diskManager.NumPages(fileID)
	if err != nil {
		return err
	}
	err = hfm.diskManager.CloseFile(fileID)
	hfm.bufferPool.DropFile(fileID, pages)
	return err
}
