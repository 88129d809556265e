package diskmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"SlotDB/logging"
	"SlotDB/storage_engine/dberr"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalPageIDRoundTrip(t *testing.T) {
	id := GlobalPageID(7, 42)
	fileID, local := SplitPageID(id)
	assert.Equal(t, uint32(7), fileID)
	assert.Equal(t, int64(42), local)
}

func TestDiskManagerReadWrite(t *testing.T) {
	dm := NewDiskManager(logging.Nop())
	defer dm.CloseAll()

	path := filepath.Join(t.TempDir(), "t.heap")
	fileID, err := dm.OpenFile(path)
	require.NoError(t, err)

	again, err := dm.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, fileID, again, "reopening a path returns the same id")

	pageID, err := dm.AllocatePage(fileID)
	require.NoError(t, err)
	assert.Equal(t, GlobalPageID(fileID, 0), pageID)

	// allocated but never written reads as zeroes
	pg, err := dm.ReadPage(pageID)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, page.PageSize), pg.Data)

	pg.Data[0] = 0xAB
	pg.Data[page.PageSize-1] = 0xCD
	pg.IsDirty = true
	require.NoError(t, dm.WritePage(pg))
	assert.False(t, pg.IsDirty)

	back, err := dm.ReadPage(pageID)
	require.NoError(t, err)
	assert.Equal(t, pg.Data, back.Data)
	assert.Equal(t, types.PageTypeUnknown, back.PageType)

	_, err = dm.ReadPage(GlobalPageID(fileID, 5))
	assert.True(t, errors.Is(err, dberr.ErrPageNotFound))

	require.NoError(t, dm.Sync(context.Background()))
}

func TestDiskManagerReopenCountsPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")

	dm := NewDiskManager(logging.Nop())
	fileID, err := dm.OpenFileWithID(path, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), fileID)

	for i := 0; i < 3; i++ {
		id, err := dm.AllocatePage(fileID)
		require.NoError(t, err)
		require.NoError(t, dm.WritePage(page.New(id, fileID, types.PageTypeBPlusNode)))
	}
	require.NoError(t, dm.CloseFile(fileID))

	dm = NewDiskManager(logging.Nop())
	defer dm.CloseAll()
	fileID, err = dm.OpenFileWithID(path, 3)
	require.NoError(t, err)
	n, err := dm.NumPages(fileID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	next, err := dm.OpenFile(filepath.Join(t.TempDir(), "other.heap"))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), next)
}

func TestDiskManagerRejectsTornFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.heap")
	require.NoError(t, os.WriteFile(path, make([]byte, page.PageSize+10), 0644))

	dm := NewDiskManager(logging.Nop())
	_, err := dm.OpenFile(path)
	assert.True(t, dberr.IsFatal(err))
}

func TestWritePageRejectsWrongSize(t *testing.T) {
	dm := NewDiskManager(logging.Nop())
	defer dm.CloseAll()

	fileID, err := dm.OpenFile(filepath.Join(t.TempDir(), "t.heap"))
	require.NoError(t, err)
	id, err := dm.AllocatePage(fileID)
	require.NoError(t, err)

	assert.Error(t, dm.WritePage(page.NewSized(id, fileID, types.PageTypeHeapData, 128)))
}
