// Seed program: writes a sample "students" heap file and a primary key
// index over it.
// Run: go run ./cmd/seed [-dir databases/demo] [-rows 500]
// Then inspect: go run ./cmd/inspect_page -schema databases/demo/tables/students_schema.json databases/demo/tables/students.heap
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"SlotDB/logging"
	heapfile "SlotDB/storage_engine/access/heapfile_manager"
	indexfile "SlotDB/storage_engine/access/indexfile_manager"
	bplus "SlotDB/storage_engine/access/indexfile_manager/bplustree"
	"SlotDB/storage_engine/bufferpool"
	"SlotDB/storage_engine/codec"
	"SlotDB/storage_engine/config"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/tuple"
	"SlotDB/types"

	"github.com/dustin/go-humanize"
	"github.com/phuslu/log"
)

const (
	studentsFileID = 1
	studentsIdxID  = 2
)

var studentSchema = []types.Attribute{
	{Name: "id", Type: types.TypeInt32, Length: 4},
	{Name: "name", Type: types.TypeVarChar, Length: 32},
	{Name: "gpa", Type: types.TypeFloat32, Length: 4},
}

var names = []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi"}

func main() {
	cfg := config.Default()
	flag.StringVar(&cfg.DataDir, "dir", "databases/demo", "database directory")
	flag.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")
	rows := flag.Int("rows", 500, "number of students to insert")
	flag.Parse()

	logger := logging.CreateLogger(cfg.LogLevel, os.Stderr)
	if err := seed(cfg, *rows, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}
}

func seed(cfg config.Config, rows int, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	dm := diskmanager.NewDiskManager(logger)
	defer dm.CloseAll()

	bp, err := bufferpool.NewBufferPool(cfg, dm, logger)
	if err != nil {
		return err
	}
	defer bp.Close()

	tablesDir := filepath.Join(cfg.DataDir, "tables")
	hfm := heapfile.NewHeapFileManager(tablesDir, dm, bp, logger)
	students, err := hfm.OpenHeapfile("students", studentsFileID)
	if err != nil {
		return err
	}

	schemaJSON, err := json.MarshalIndent(studentSchema, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tablesDir, "students_schema.json"), schemaJSON, 0644); err != nil {
		return err
	}

	// ids are inserted in ascending order, so the leaf entries come out sorted
	entries := make([]bplus.RIDKeyEntry, 0, rows)
	for i := 0; i < rows; i++ {
		values := []types.Value{
			tuple.Int32(int32(1000 + i)),
			tuple.VarChar(fmt.Sprintf("%s-%d", names[i%len(names)], i)),
			tuple.Float32(2.0 + float32(i%20)/10),
		}
		if i%7 == 0 {
			values[2] = tuple.Null(types.TypeFloat32)
		}
		rec, err := tuple.Encode(studentSchema, values)
		if err != nil {
			return err
		}
		rid, err := students.InsertRecord(rec)
		if err != nil {
			return err
		}
		entries = append(entries, bplus.RIDKeyEntry{RID: rid, Key: codec.IntKey(int32(1000 + i))})
	}

	ifm, err := indexfile.NewIndexFileManager(filepath.Join(cfg.DataDir, "indexes"), dm, bp, logger)
	if err != nil {
		return err
	}
	defer ifm.CloseAll()
	idx, err := ifm.GetOrCreateIndex("students_primary", studentsIdxID)
	if err != nil {
		return err
	}
	root, leaves, err := writeIndex(idx, entries)
	if err != nil {
		return err
	}

	if err := dm.Sync(context.Background()); err != nil {
		return err
	}

	heapPages, _ := students.NumPages()
	stats := bp.Stats()
	logger.Info().
		Int("rows", rows).
		Uint32("heap_pages", heapPages).
		Str("heap_size", humanize.IBytes(uint64(heapPages)*uint64(types.PageSize))).
		Int("leaves", leaves).
		Uint32("index_root", root).
		Float64("cache_hit_ratio", stats.HitRatio).
		Msg("seed complete")
	return verify(students, idx, root)
}

// writeIndex packs sorted entries into a chain of full leaves under one
// non-leaf root. Each root entry holds the first key of its leaf.
func writeIndex(idx *bplus.IndexFile, entries []bplus.RIDKeyEntry) (root uint32, leafCount int, err error) {
	var leaves []*bplus.LeafNode
	leaf := bplus.NewLeafNode(types.TypeInt32)
	for _, e := range entries {
		if !bplus.Fits(leaf, e.Key) {
			leaves = append(leaves, leaf)
			leaf = bplus.NewLeafNode(types.TypeInt32)
		}
		if err := leaf.Insert(leaf.NumKeys(), e); err != nil {
			return 0, 0, err
		}
	}
	leaves = append(leaves, leaf)

	pages := make([]uint32, len(leaves))
	for i := range leaves {
		if pages[i], err = idx.AllocateNode(bplus.NewLeafNode(types.TypeInt32)); err != nil {
			return 0, 0, err
		}
	}

	rootNode := bplus.NewNonLeafNode(types.TypeInt32)
	for i, l := range leaves {
		if i+1 < len(leaves) {
			l.NextPageNum = int32(pages[i+1])
		}
		if err := idx.WriteNode(pages[i], l); err != nil {
			return 0, 0, err
		}
		if l.NumKeys() == 0 {
			continue
		}
		if err := rootNode.Insert(rootNode.NumKeys(), bplus.PageKeyEntry{PageNum: pages[i], Key: l.Entries[0].Key}); err != nil {
			return 0, 0, err
		}
	}
	root, err = idx.AllocateNode(rootNode)
	return root, len(leaves), err
}

// verify reads every indexed row back through the leaf chain.
func verify(students *heapfile.HeapFile, idx *bplus.IndexFile, root uint32) error {
	node, err := idx.ReadNode(root)
	if err != nil {
		return err
	}
	rootNode, ok := node.(*bplus.NonLeafNode)
	if !ok || rootNode.NumKeys() == 0 {
		return nil
	}

	it := idx.ScanLeaves(rootNode.Entries[0].PageNum)
	for it.Next() {
		rec, err := students.GetRecord(it.Entry().RID)
		if err != nil {
			return err
		}
		values, err := tuple.Decode(rec, studentSchema)
		if err != nil {
			return err
		}
		id, err := tuple.AsInt32(values[0])
		if err != nil {
			return err
		}
		if id != it.Key().Int() {
			return fmt.Errorf("index key %s points at student %d", it.Key(), id)
		}
	}
	return it.Err()
}
