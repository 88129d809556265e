package indexfile

import (
	"testing"

	"SlotDB/logging"
	bplus "SlotDB/storage_engine/access/indexfile_manager/bplustree"
	"SlotDB/storage_engine/bufferpool"
	"SlotDB/storage_engine/codec"
	"SlotDB/storage_engine/config"
	"SlotDB/storage_engine/dberr"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, dir string) *IndexFileManager {
	t.Helper()
	dm := diskmanager.NewDiskManager(logging.Nop())
	t.Cleanup(func() { dm.CloseAll() })

	cfg := config.Default()
	cfg.DataDir = dir
	bp, err := bufferpool.NewBufferPool(cfg, dm, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(bp.Close)

	ifm, err := NewIndexFileManager(dir, dm, bp, logging.Nop())
	require.NoError(t, err)
	return ifm
}

func TestGetOrCreateIndexCaches(t *testing.T) {
	ifm := newTestManager(t, t.TempDir())

	a, err := ifm.GetOrCreateIndex("users_primary", 10)
	require.NoError(t, err)
	b, err := ifm.GetOrCreateIndex("users_primary", 10)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, uint32(10), a.FileID())
}

func TestLoadIndexRequiresFile(t *testing.T) {
	ifm := newTestManager(t, t.TempDir())
	_, err := ifm.LoadIndex("missing", 4)
	assert.Error(t, err)
}

func TestCloseAndLoadIndex(t *testing.T) {
	dir := t.TempDir()
	ifm := newTestManager(t, dir)

	idx, err := ifm.GetOrCreateIndex("orders_primary", 5)
	require.NoError(t, err)
	leaf := bplus.NewLeafNode(types.TypeInt32)
	require.NoError(t, leaf.Insert(0, bplus.RIDKeyEntry{RID: types.RID{PageNum: 2, SlotNum: 3}, Key: codec.IntKey(42)}))
	pageNum, err := idx.AllocateNode(leaf)
	require.NoError(t, err)

	require.NoError(t, ifm.CloseIndex("orders_primary"))
	require.NoError(t, ifm.CloseIndex("orders_primary"), "closing twice is a no-op")

	idx, err = ifm.LoadIndex("orders_primary", 5)
	require.NoError(t, err)
	node, err := idx.ReadNode(pageNum)
	require.NoError(t, err)
	got := node.(*bplus.LeafNode)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, types.RID{PageNum: 2, SlotNum: 3}, got.Entries[0].RID)

	require.NoError(t, ifm.CloseAll())
}

func TestCloseIndexEvictsCachedPages(t *testing.T) {
	ifm := newTestManager(t, t.TempDir())

	old, err := ifm.GetOrCreateIndex("a", 7)
	require.NoError(t, err)
	leaf := bplus.NewLeafNode(types.TypeInt32)
	require.NoError(t, leaf.Insert(0, bplus.RIDKeyEntry{Key: codec.IntKey(42)}))
	_, err = old.AllocateNode(leaf)
	require.NoError(t, err)
	require.NoError(t, ifm.CloseIndex("a"))

	fresh, err := ifm.GetOrCreateIndex("b", 7)
	require.NoError(t, err)
	n, err := fresh.NumPages()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)

	_, err = fresh.ReadNode(0)
	assert.True(t, errors.Is(err, dberr.ErrPageNotFound), "got %v", err)

	// New pages of b hold b's nodes, not a's.
	other := bplus.NewLeafNode(types.TypeInt32)
	require.NoError(t, other.Insert(0, bplus.RIDKeyEntry{Key: codec.IntKey(7)}))
	pageNum, err := fresh.AllocateNode(other)
	require.NoError(t, err)
	node, err := fresh.ReadNode(pageNum)
	require.NoError(t, err)
	got := node.(*bplus.LeafNode)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, codec.IntKey(7), got.Entries[0].Key)
}
