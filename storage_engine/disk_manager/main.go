package diskmanager

import (
	"context"
	"fmt"
	"io"
	"os"

	"SlotDB/logging"
	"SlotDB/storage_engine/dberr"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

/*
This is main file for disk manager
It owns:
File descriptors (os.File)
Reading/writing raw bytes at specific offsets (ReadAt, WriteAt)
Page allocation (tracking NextPageID per file)

Page ID encoding:
globalPageID = int64(fileID) << 32 | localPageNum
This makes global IDs deterministic, same result on every restart regardless
of file open order, so no mapping table is kept.

Neither heap nor index pages carry a page-type stamp, so pages come back as
PageTypeUnknown and the caller sets the kind it expects.
*/

func NewDiskManager(logger *log.Logger) *DiskManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DiskManager{
		files:      make(map[uint32]*FileDescriptor),
		nextFileID: 1,
		logger:     logger,
	}
}

// GlobalPageID combines a file id and a local page number.
func GlobalPageID(fileID uint32, localPageNum int64) int64 {
	return int64(fileID)<<32 | (localPageNum & 0xFFFFFFFF)
}

// SplitPageID is the inverse of GlobalPageID.
func SplitPageID(globalPageID int64) (fileID uint32, localPageNum int64) {
	return uint32(globalPageID >> 32), globalPageID & 0xFFFFFFFF
}

/*
Why two OpenFile variants:
OpenFileWithID: the caller (catalog) decides the id, stable across restarts
OpenFile: the disk manager hands out the next free id
*/
func (dm *DiskManager) OpenFileWithID(filePath string, fileID uint32) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for id, fd := range dm.files {
		if fd.FilePath == filePath {
			return id, nil
		}
	}
	if _, taken := dm.files[fileID]; taken {
		return 0, fmt.Errorf("file id %d already in use", fileID)
	}

	if err := dm.openLocked(filePath, fileID); err != nil {
		return 0, err
	}
	if fileID >= dm.nextFileID {
		dm.nextFileID = fileID + 1
	}
	return fileID, nil
}

// OpenFile opens or creates a file and returns its file ID
func (dm *DiskManager) OpenFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for id, fd := range dm.files {
		if fd.FilePath == filePath {
			return id, nil
		}
	}

	fileID := dm.nextFileID
	for dm.files[fileID] != nil {
		fileID++
	}
	if err := dm.openLocked(filePath, fileID); err != nil {
		return 0, err
	}
	dm.nextFileID = fileID + 1
	return fileID, nil
}

// openLocked assumes dm.mu is held.
func (dm *DiskManager) openLocked(filePath string, fileID uint32) error {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}
	if stat.Size()%int64(page.PageSize) != 0 {
		file.Close()
		return errors.Wrapf(dberr.ErrCorruptPage,
			"file %s is %d bytes, not a multiple of the page size", filePath, stat.Size())
	}

	numPages := stat.Size() / int64(page.PageSize)
	dm.files[fileID] = &FileDescriptor{
		FileID:     fileID,
		FilePath:   filePath,
		File:       file,
		NextPageID: numPages,
	}
	dm.logger.Debug().Str("path", filePath).Uint32("file_id", fileID).Int64("pages", numPages).Msg("opened file")
	return nil
}

func (dm *DiskManager) descriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	fd, exists := dm.files[fileID]
	dm.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("file %d not found", fileID)
	}
	return fd, nil
}

// ReadPage reads a page from disk. Pages allocated but never written read
// back as zeroes.
func (dm *DiskManager) ReadPage(globalPageID int64) (*page.Page, error) {
	fileID, localPageID := SplitPageID(globalPageID)
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return nil, err
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()

	if fd.File == nil {
		return nil, fmt.Errorf("file %d is closed", fileID)
	}
	if localPageID >= fd.NextPageID {
		return nil, errors.Wrapf(dberr.ErrPageNotFound,
			"page %d of file %d (file has %d pages)", localPageID, fileID, fd.NextPageID)
	}

	pg := page.New(globalPageID, fileID, types.PageTypeUnknown)
	offset := localPageID * int64(page.PageSize)
	n, err := fd.File.ReadAt(pg.Data, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read page %d from file %d: %w", localPageID, fileID, err)
	}

	// Pad with zeros if partial read
	clear(pg.Data[n:])
	return pg, nil
}

// WritePage writes a page to disk
func (dm *DiskManager) WritePage(pg *page.Page) error {
	fd, err := dm.descriptor(pg.FileID)
	if err != nil {
		return err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return fmt.Errorf("file %d is closed", pg.FileID)
	}
	if len(pg.Data) != page.PageSize {
		return fmt.Errorf("page data size %d does not match page size %d", len(pg.Data), page.PageSize)
	}

	_, localPageID := SplitPageID(pg.ID)
	offset := localPageID * int64(page.PageSize)

	if _, err := fd.File.WriteAt(pg.Data, offset); err != nil {
		dm.logger.Error().Err(err).Int64("page_id", pg.ID).Msg("page write failed")
		return fmt.Errorf("failed to write page %d to file %d: %w", localPageID, pg.FileID, err)
	}

	if localPageID >= fd.NextPageID {
		fd.NextPageID = localPageID + 1
	}

	pg.IsDirty = false
	return nil
}

// AllocatePage reserves the next page number of a file. Nothing is written;
// the page exists on disk once it is first flushed.
func (dm *DiskManager) AllocatePage(fileID uint32) (int64, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return 0, fmt.Errorf("file %d is closed", fileID)
	}

	localPageNum := fd.NextPageID
	fd.NextPageID++

	dm.logger.Debug().Uint32("file_id", fileID).Int64("page", localPageNum).Msg("allocated page")
	return GlobalPageID(fileID, localPageNum), nil
}

// NumPages returns the number of allocated pages of a file.
func (dm *DiskManager) NumPages(fileID uint32) (int64, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	return fd.NextPageID, nil
}

// Sync flushes all file buffers to disk, one goroutine per file.
func (dm *DiskManager) Sync(ctx context.Context) error {
	dm.mu.RLock()
	fds := make([]*FileDescriptor, 0, len(dm.files))
	for _, fd := range dm.files {
		fds = append(fds, fd)
	}
	dm.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, fd := range fds {
		fd := fd
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fd.mu.Lock()
			defer fd.mu.Unlock()
			if fd.File == nil {
				return nil
			}
			if err := fd.File.Sync(); err != nil {
				return fmt.Errorf("failed to sync file %d: %w", fd.FileID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CloseFile syncs and closes a specific file
func (dm *DiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return fmt.Errorf("file %d not found", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	delete(dm.files, fileID)
	if fd.File == nil {
		return nil // Already closed
	}

	if err := fd.File.Sync(); err != nil {
		return fmt.Errorf("failed to sync before close: %w", err)
	}
	if err := fd.File.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	fd.File = nil
	return nil
}

// CloseAll closes all open files
func (dm *DiskManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var lastErr error
	for fileID, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fd.File.Sync(); err != nil {
				lastErr = err
			}
			if err := fd.File.Close(); err != nil {
				lastErr = err
			}
			fd.File = nil
		}
		fd.mu.Unlock()
		delete(dm.files, fileID)
	}

	return lastErr
}
