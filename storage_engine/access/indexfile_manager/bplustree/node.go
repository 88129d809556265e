package bplus

import (
	"SlotDB/storage_engine/codec"
	"SlotDB/storage_engine/dberr"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/pkg/errors"
)

const (
	// ChildPtrSize is the width of a non-leaf entry's page number.
	ChildPtrSize = 4
	// RIDPtrSize is the width of a leaf entry's RID.
	RIDPtrSize = types.RIDSize
)

func NewNonLeafNode(keyType types.AttrType) *NonLeafNode {
	return &NonLeafNode{NodeHeader: NodeHeader{KeyType: keyType, NextPageNum: NoPage}}
}

func NewLeafNode(keyType types.AttrType) *LeafNode {
	return &LeafNode{NodeHeader: NodeHeader{KeyType: keyType, NextPageNum: NoPage}}
}

func (h NodeHeader) Header() NodeHeader { return h }

func (n *NonLeafNode) IsLeaf() bool          { return false }
func (n *NonLeafNode) NumKeys() int          { return len(n.Entries) }
func (n *NonLeafNode) pointerSize() int      { return ChildPtrSize }
func (n *NonLeafNode) keyAt(i int) codec.Key { return n.Entries[i].Key }

func (n *LeafNode) IsLeaf() bool          { return true }
func (n *LeafNode) NumKeys() int          { return len(n.Entries) }
func (n *LeafNode) pointerSize() int      { return RIDPtrSize }
func (n *LeafNode) keyAt(i int) codec.Key { return n.Entries[i].Key }

func checkIndex(i, n int, op string) error {
	if i < 0 || i >= n {
		return errors.Wrapf(dberr.ErrInvalidIndex, "%s: entry %d out of range (num_keys=%d)", op, i, n)
	}
	return nil
}

// checkEntryKey rejects keys whose tag differs from the node's key type.
func checkEntryKey(h NodeHeader, k codec.Key) error {
	if !h.KeyType.Valid() {
		return errors.Wrapf(dberr.ErrUnsupportedKeyType, "node key type tag %d", int32(h.KeyType))
	}
	if k.Type() != h.KeyType {
		return errors.Wrapf(dberr.ErrKeyTypeMismatch, "key %s is %s, node holds %s", k, k.Type(), h.KeyType)
	}
	return nil
}

// Entry returns the entry at position i.
func (n *NonLeafNode) Entry(i int) (PageKeyEntry, error) {
	if err := checkIndex(i, len(n.Entries), "Entry"); err != nil {
		return PageKeyEntry{}, err
	}
	return n.Entries[i], nil
}

// Insert places e at position i, shifting later entries up. i may equal
// NumKeys to append. Capacity is not checked here; see Fits.
func (n *NonLeafNode) Insert(i int, e PageKeyEntry) error {
	if err := checkIndex(i, len(n.Entries)+1, "Insert"); err != nil {
		return err
	}
	if err := checkEntryKey(n.NodeHeader, e.Key); err != nil {
		return err
	}
	n.Entries = insert(n.Entries, i, e)
	return nil
}

// Remove deletes the entry at position i.
func (n *NonLeafNode) Remove(i int) error {
	if err := checkIndex(i, len(n.Entries), "Remove"); err != nil {
		return err
	}
	n.Entries = remove(n.Entries, i)
	return nil
}

func (n *LeafNode) Entry(i int) (RIDKeyEntry, error) {
	if err := checkIndex(i, len(n.Entries), "Entry"); err != nil {
		return RIDKeyEntry{}, err
	}
	return n.Entries[i], nil
}

func (n *LeafNode) Insert(i int, e RIDKeyEntry) error {
	if err := checkIndex(i, len(n.Entries)+1, "Insert"); err != nil {
		return err
	}
	if err := checkEntryKey(n.NodeHeader, e.Key); err != nil {
		return err
	}
	n.Entries = insert(n.Entries, i, e)
	return nil
}

func (n *LeafNode) Remove(i int) error {
	if err := checkIndex(i, len(n.Entries), "Remove"); err != nil {
		return err
	}
	n.Entries = remove(n.Entries, i)
	return nil
}

// payloadSize is the number of bytes the entries occupy from offset 0.
func payloadSize(n Node) (int, error) {
	h := n.Header()
	if !h.KeyType.Valid() {
		return 0, errors.Wrapf(dberr.ErrUnsupportedKeyType, "node key type tag %d", int32(h.KeyType))
	}
	total := 0
	for i := 0; i < n.NumKeys(); i++ {
		ks, err := codec.KeySize(n.keyAt(i), h.KeyType)
		if err != nil {
			return 0, errors.WithMessagef(err, "entry %d", i)
		}
		total += n.pointerSize() + ks
	}
	return total, nil
}

// PayloadCapacity is the room for entries in a node page of pageSize bytes.
func PayloadCapacity(pageSize int) int {
	return pageSize - HeaderSize
}

// FreeBytes is the free_byte_count the node would have on a PageSize page.
// It is negative when the node no longer fits.
func FreeBytes(n Node) (int, error) {
	size, err := payloadSize(n)
	if err != nil {
		return 0, err
	}
	return PayloadCapacity(page.PageSize) - size, nil
}

// Fits reports whether one more entry with key k still serializes into a
// PageSize page.
func Fits(n Node, k codec.Key) bool {
	free, err := FreeBytes(n)
	if err != nil {
		return false
	}
	ks, err := codec.KeySize(k, n.Header().KeyType)
	if err != nil {
		return false
	}
	return n.pointerSize()+ks <= free
}
