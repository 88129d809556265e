package bplus

import (
	"fmt"

	"SlotDB/storage_engine/codec"
	"SlotDB/storage_engine/dberr"

	"github.com/pkg/errors"
)

// LeafIterator walks leaf entries in order, following NextPageNum from one
// leaf to its sibling until NoPage.
type LeafIterator struct {
	file  *IndexFile
	leaf  *LeafNode
	index int
	hops  uint32
	err   error
}

// ScanLeaves positions an iterator before the first entry of the leaf at
// pageNum. Call Next before reading Key or RID.
func (f *IndexFile) ScanLeaves(pageNum uint32) *LeafIterator {
	it := &LeafIterator{file: f, index: -1}
	it.load(int32(pageNum))
	return it
}

// SeekGE positions an iterator right before the first entry >= target,
// starting from the leaf at pageNum.
func (f *IndexFile) SeekGE(pageNum uint32, target codec.Key) *LeafIterator {
	it := f.ScanLeaves(pageNum)
	if it.leaf != nil {
		it.index = lowerBound(it.leaf, target) - 1
	}
	return it
}

func (it *LeafIterator) load(pageNum int32) {
	it.file.mu.RLock()
	n, err := it.file.readNode(uint32(pageNum))
	it.file.mu.RUnlock()
	if err != nil {
		it.fail(err)
		return
	}
	leaf, ok := n.(*LeafNode)
	if !ok {
		it.fail(errors.Wrapf(dberr.ErrCorruptPage, "page %d in the leaf chain is not a leaf", pageNum))
		return
	}
	it.leaf = leaf
	it.index = -1
}

func (it *LeafIterator) fail(err error) {
	it.err = err
	it.leaf = nil
}

// Next advances the iterator. Returns false when exhausted or on error.
func (it *LeafIterator) Next() bool {
	for it.leaf != nil {
		it.index++
		if it.index < len(it.leaf.Entries) {
			return true
		}

		next := it.leaf.NextPageNum
		if next == NoPage {
			it.leaf = nil
			return false
		}

		// a chain longer than the file has pages must loop
		pages, err := it.file.NumPages()
		if err != nil {
			it.fail(err)
			return false
		}
		it.hops++
		if it.hops > pages {
			it.fail(errors.Wrapf(dberr.ErrCorruptPage, "leaf chain revisits a page after %d hops", it.hops))
			return false
		}
		it.load(next)
	}
	return false
}

func (it *LeafIterator) Key() codec.Key {
	return it.leaf.Entries[it.index].Key
}

func (it *LeafIterator) Entry() RIDKeyEntry {
	return it.leaf.Entries[it.index]
}

// Err returns the error that stopped the iterator, if any.
func (it *LeafIterator) Err() error {
	if it.err != nil {
		return fmt.Errorf("leaf scan: %w", it.err)
	}
	return nil
}
