package diskmanager

import (
	"os"
	"sync"

	"github.com/phuslu/log"
)

// ############################################# FILE DESCRIPTOR ###########################################

// FileDescriptor represents an open file managed by the disk manager
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageID int64 // Next available local page number within this file
	mu         sync.RWMutex
}

// ############################################# DISK MANAGER #############################################

// DiskManager owns OS file handles and the global page id space.
// It moves whole pages and never looks inside them.
type DiskManager struct {
	files      map[uint32]*FileDescriptor // fileID -> file descriptor
	nextFileID uint32
	logger     *log.Logger
	mu         sync.RWMutex
}
