// Structure of an index node page
/*
Node
 ├── NonLeafNode: (child page, key) entries + one auxiliary page pointer
 └── LeafNode:    (RID, key) entries + sibling leaf pointer

- one key type per node, stored once in the header
- entries are kept in the order the caller put them in
- NextPageNum is NoPage when there is no pointer

Splitting, merging and walking the tree happen above this package; here a
node is only materialised from and persisted to one page.
*/
package bplus

import (
	"sync"

	"SlotDB/storage_engine/bufferpool"
	"SlotDB/storage_engine/codec"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/types"

	"github.com/phuslu/log"
)

// NoPage marks an absent NextPageNum.
const NoPage int32 = -1

// NodeHeader holds the fields shared by both node variants.
type NodeHeader struct {
	KeyType     types.AttrType
	NextPageNum int32
}

// PageKeyEntry is one non-leaf entry: a child page and its separator key.
type PageKeyEntry struct {
	PageNum uint32
	Key     codec.Key
}

// RIDKeyEntry is one leaf entry: a key and the record it points at.
type RIDKeyEntry struct {
	RID types.RID
	Key codec.Key
}

type NonLeafNode struct {
	NodeHeader
	Entries []PageKeyEntry
}

type LeafNode struct {
	NodeHeader
	Entries []RIDKeyEntry
}

// Node is implemented by *NonLeafNode and *LeafNode only.
type Node interface {
	IsLeaf() bool
	NumKeys() int
	Header() NodeHeader

	// pointerSize is the fixed width written in front of every key.
	pointerSize() int
	keyAt(i int) codec.Key
}

// IndexFile is a file of index node pages, one node per page.
type IndexFile struct {
	fileID      uint32
	name        string
	diskManager *diskmanager.DiskManager
	bufferPool  *bufferpool.BufferPool
	logger      *log.Logger
	mu          sync.RWMutex
}
