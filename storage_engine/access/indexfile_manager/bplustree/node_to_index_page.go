package bplus

import (
	"encoding/binary"

	"SlotDB/storage_engine/codec"
	"SlotDB/storage_engine/dberr"
	"SlotDB/types"

	"github.com/pkg/errors"
)

/*
SerializeNode writes a Node into a page buffer; DeserializeNode reads it back.

Layout (P = len(data), all values little-endian):

	Offset   Size   Field
	─────────────────────────────────────────────
	0        var    entries, node order, growing forward
	...             free space
	P-17     4      free_byte_count  uint32
	P-13     1      is_leaf          0 or 1
	P-12     4      key_type         int32 (0=INT, 1=FLOAT, 2=VARCHAR)
	P-8      4      next_page_num    int32 (-1 = none)
	P-4      4      num_keys         uint32

	non-leaf entry: [ page_num uint32 ][ key ]
	leaf entry:     [ rid.page_num uint32 | rid.slot_num uint16 ][ key ]

	key: INT, FLOAT  4 raw bytes
	     VARCHAR     length uint32 + bytes

free_byte_count == P - 17 - (bytes of all entries), so the header alone
tells how much room is left without walking the entries.
*/

// HeaderSize is the footer-anchored header block of an index page.
const HeaderSize = 17

const (
	hdrOffFree    = 17 // from the end of the page
	hdrOffIsLeaf  = 13
	hdrOffKeyType = 12
	hdrOffNext    = 8
	hdrOffNumKeys = 4
)

// SerializeNode writes node into data. Nothing is written unless the whole
// node fits: an unsupported key type, a key of the wrong type or a payload
// larger than len(data)-HeaderSize leaves data untouched.
func SerializeNode(node Node, data []byte) error {
	if len(data) < HeaderSize {
		return errors.Wrapf(dberr.ErrInsufficientSpace,
			"serializeNode: %d-byte buffer cannot hold the %d-byte header", len(data), HeaderSize)
	}

	h := node.Header()
	size, err := payloadSize(node)
	if err != nil {
		return errors.WithMessage(err, "serializeNode")
	}
	capacity := PayloadCapacity(len(data))
	if size > capacity {
		return errors.Wrapf(dberr.ErrInsufficientSpace,
			"serializeNode: %d entries need %d bytes, page holds %d", node.NumKeys(), size, capacity)
	}

	// ── Entries ───────────────────────────────────────────────────────────────
	offset := 0
	for i := 0; i < node.NumKeys(); i++ {
		switch n := node.(type) {
		case *NonLeafNode:
			binary.LittleEndian.PutUint32(data[offset:], n.Entries[i].PageNum)
		case *LeafNode:
			binary.LittleEndian.PutUint32(data[offset:], n.Entries[i].RID.PageNum)
			binary.LittleEndian.PutUint16(data[offset+4:], n.Entries[i].RID.SlotNum)
		}
		offset += node.pointerSize()

		written, err := codec.EncodeKey(data[offset:capacity], node.keyAt(i), h.KeyType)
		if err != nil {
			// payloadSize already validated every key
			return errors.WithMessagef(err, "serializeNode: entry %d", i)
		}
		offset += written
	}
	clear(data[offset:capacity])

	// ── Header ────────────────────────────────────────────────────────────────
	end := len(data)
	binary.LittleEndian.PutUint32(data[end-hdrOffFree:], uint32(capacity-size))
	data[end-hdrOffIsLeaf] = 0
	if node.IsLeaf() {
		data[end-hdrOffIsLeaf] = 1
	}
	binary.LittleEndian.PutUint32(data[end-hdrOffKeyType:], uint32(h.KeyType))
	binary.LittleEndian.PutUint32(data[end-hdrOffNext:], uint32(h.NextPageNum))
	binary.LittleEndian.PutUint32(data[end-hdrOffNumKeys:], uint32(node.NumKeys()))
	return nil
}

// ReadHeader decodes the header block without touching the entries.
func ReadHeader(data []byte) (hdr NodeHeader, isLeaf bool, numKeys, free uint32, err error) {
	if len(data) < HeaderSize {
		return NodeHeader{}, false, 0, 0, errors.Wrapf(dberr.ErrMalformedBuffer,
			"deserializeNode: %d-byte buffer has no room for a header", len(data))
	}
	end := len(data)
	switch data[end-hdrOffIsLeaf] {
	case 0:
	case 1:
		isLeaf = true
	default:
		return NodeHeader{}, false, 0, 0, errors.Wrapf(dberr.ErrCorruptPage,
			"deserializeNode: is_leaf byte is %d", data[end-hdrOffIsLeaf])
	}
	hdr.KeyType = types.AttrType(int32(binary.LittleEndian.Uint32(data[end-hdrOffKeyType:])))
	if !hdr.KeyType.Valid() {
		return NodeHeader{}, false, 0, 0, errors.Wrapf(dberr.ErrUnsupportedKeyType,
			"deserializeNode: key type tag %d", int32(hdr.KeyType))
	}
	hdr.NextPageNum = int32(binary.LittleEndian.Uint32(data[end-hdrOffNext:]))
	numKeys = binary.LittleEndian.Uint32(data[end-hdrOffNumKeys:])
	free = binary.LittleEndian.Uint32(data[end-hdrOffFree:])
	return hdr, isLeaf, numKeys, free, nil
}

// DeserializeNode reads the node stored in data. is_leaf picks the variant
// returned: *LeafNode or *NonLeafNode.
func DeserializeNode(data []byte) (Node, error) {
	hdr, isLeaf, numKeys, free, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	capacity := PayloadCapacity(len(data))
	pointerSize := ChildPtrSize
	if isLeaf {
		pointerSize = RIDPtrSize
	}
	// every entry is at least pointer + 4 bytes of key
	if uint64(numKeys)*uint64(pointerSize+codec.FixedSize) > uint64(capacity) {
		return nil, errors.Wrapf(dberr.ErrCorruptPage,
			"deserializeNode: %d keys cannot fit in %d bytes", numKeys, capacity)
	}

	payload := data[:capacity]
	var node Node
	var leaf *LeafNode
	var nonLeaf *NonLeafNode
	if isLeaf {
		leaf = &LeafNode{NodeHeader: hdr, Entries: make([]RIDKeyEntry, 0, numKeys)}
		node = leaf
	} else {
		nonLeaf = &NonLeafNode{NodeHeader: hdr, Entries: make([]PageKeyEntry, 0, numKeys)}
		node = nonLeaf
	}

	// ── Entries ───────────────────────────────────────────────────────────────
	offset := 0
	for i := uint32(0); i < numKeys; i++ {
		if offset+pointerSize > capacity {
			return nil, errors.Wrapf(dberr.ErrCorruptPage,
				"deserializeNode: entry %d pointer runs past the payload", i)
		}
		ptr := payload[offset : offset+pointerSize]
		offset += pointerSize

		key, n, err := codec.DecodeKey(payload[offset:], hdr.KeyType)
		if err != nil {
			return nil, errors.Wrapf(dberr.ErrCorruptPage, "deserializeNode: entry %d key: %v", i, err)
		}
		offset += n

		if isLeaf {
			leaf.Entries = append(leaf.Entries, RIDKeyEntry{
				RID: types.RID{
					PageNum: binary.LittleEndian.Uint32(ptr),
					SlotNum: binary.LittleEndian.Uint16(ptr[4:]),
				},
				Key: key,
			})
		} else {
			nonLeaf.Entries = append(nonLeaf.Entries, PageKeyEntry{
				PageNum: binary.LittleEndian.Uint32(ptr),
				Key:     key,
			})
		}
	}

	if want := uint32(capacity - offset); free != want {
		return nil, errors.Wrapf(dberr.ErrCorruptPage,
			"deserializeNode: free_byte_count is %d, entries leave %d", free, want)
	}
	return node, nil
}
