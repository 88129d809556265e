// Package inspect renders heap and index pages for humans.
package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	heapfile "SlotDB/storage_engine/access/heapfile_manager"
	bplus "SlotDB/storage_engine/access/indexfile_manager/bplustree"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/page"
	"SlotDB/storage_engine/tuple"
	"SlotDB/types"

	"github.com/dustin/go-humanize"
)

// AllPages selects every page of a file.
const AllPages = -1

// ParseKind maps the -kind flag value to a page type.
func ParseKind(kind string) (types.PageType, error) {
	switch strings.ToLower(kind) {
	case "heap":
		return types.PageTypeHeapData, nil
	case "index", "idx":
		return types.PageTypeBPlusNode, nil
	default:
		return types.PageTypeUnknown, fmt.Errorf("unknown page kind %q (want heap or index)", kind)
	}
}

// LoadSchema reads a <table>_schema.json file: a JSON array of attributes.
func LoadSchema(path string) ([]types.Attribute, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	var attrs []types.Attribute
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", path, err)
	}
	return attrs, nil
}

// FileTo dumps one page (or AllPages) of the file at path, decoding each
// page as kind. With a schema, heap records are also decoded as tuples.
// Page errors are printed inline and do not stop the dump.
func FileTo(w io.Writer, dm *diskmanager.DiskManager, path string, kind types.PageType, pageNum int64, schema []types.Attribute) error {
	fileID, err := dm.OpenFile(path)
	if err != nil {
		return err
	}
	defer dm.CloseFile(fileID)

	numPages, err := dm.NumPages(fileID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "File: %s (kind=%s, %s, %d pages)\n",
		path, kind, humanize.IBytes(uint64(numPages)*uint64(page.PageSize)), numPages)

	first, last := int64(0), numPages-1
	if pageNum != AllPages {
		if pageNum < 0 || pageNum >= numPages {
			return fmt.Errorf("page %d out of range, file has %d pages", pageNum, numPages)
		}
		first, last = pageNum, pageNum
	}

	for n := first; n <= last; n++ {
		pg, err := dm.ReadPage(diskmanager.GlobalPageID(fileID, n))
		if err != nil {
			fmt.Fprintf(w, "  [page %d] read error: %v\n", n, err)
			continue
		}
		pg.PageType = kind
		if err := PageTo(w, pg, uint32(n), schema); err != nil {
			fmt.Fprintf(w, "  [page %d] decode error: %v\n", n, err)
		}
	}
	return nil
}

// PageTo dumps pg according to its PageType. schema may be nil.
func PageTo(w io.Writer, pg *page.Page, pageNum uint32, schema []types.Attribute) error {
	switch pg.PageType {
	case types.PageTypeHeapData:
		return HeapPageTo(w, pg, pageNum, schema)
	case types.PageTypeBPlusNode:
		return IndexPageTo(w, pg, pageNum)
	default:
		return fmt.Errorf("cannot decode %s page", pg.PageType)
	}
}

// HeapPageTo prints the footer and slot directory of a heap page, then
// checks the layout invariants.
func HeapPageTo(w io.Writer, pg *page.Page, pageNum uint32, schema []types.Attribute) error {
	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	slots := heapfile.Slots(pg)
	live := 0
	for _, s := range slots {
		if s.Length != 0 {
			live++
		}
	}
	p("  [page %d] HEAP slots=%d live=%d free=%s checksum=%016x\n",
		pageNum, len(slots), live, humanize.IBytes(uint64(heapfile.GetFreeByteCount(pg))), pg.Checksum())
	for i, s := range slots {
		if s.Length == 0 {
			p("    slot %-4d tombstone @%d\n", i, s.Offset)
			continue
		}
		rec := pg.Data[s.Offset : s.Offset+s.Length]
		p("    slot %-4d @%-5d len=%-5d %s\n", i, s.Offset, s.Length, preview(rec))
		if schema != nil {
			p("              %s\n", formatTuple(rec, schema))
		}
	}
	return heapfile.VerifyHeapPage(pg)
}

// IndexPageTo prints the header and entries of an index node page.
func IndexPageTo(w io.Writer, pg *page.Page, pageNum uint32) error {
	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	node, err := bplus.DeserializeNode(pg.Data)
	if err != nil {
		return err
	}
	h := node.Header()
	free, _ := bplus.FreeBytes(node)

	switch n := node.(type) {
	case *bplus.LeafNode:
		p("  [page %d] LEAF keyType=%s numKeys=%d next=%d free=%s checksum=%016x\n",
			pageNum, h.KeyType, n.NumKeys(), h.NextPageNum, humanize.IBytes(uint64(free)), pg.Checksum())
		for _, e := range n.Entries {
			p("      %s -> %s\n", e.Key, e.RID)
		}
	case *bplus.NonLeafNode:
		p("  [page %d] INTERNAL keyType=%s numKeys=%d next=%d free=%s checksum=%016x\n",
			pageNum, h.KeyType, n.NumKeys(), h.NextPageNum, humanize.IBytes(uint64(free)), pg.Checksum())
		for _, e := range n.Entries {
			p("      page %d | %s\n", e.PageNum, e.Key)
		}
	}
	return nil
}

// preview shows printable records as a quoted string and the rest as hex,
// cut at 32 bytes.
func preview(b []byte) string {
	const limit = 32
	cut := b
	if len(cut) > limit {
		cut = cut[:limit]
	}
	suffix := ""
	if len(b) > limit {
		suffix = "…"
	}
	for _, c := range cut {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("% x%s", cut, suffix)
		}
	}
	return fmt.Sprintf("%q%s", string(cut), suffix)
}

// formatTuple renders rec as name=value pairs, or the decode error.
func formatTuple(rec []byte, schema []types.Attribute) string {
	values, err := tuple.Decode(rec, schema)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	parts := make([]string, len(values))
	for i, v := range values {
		if v.IsNull() {
			parts[i] = schema[i].Name + "=NULL"
			continue
		}
		k, err := tuple.AsKey(v)
		if err != nil {
			parts[i] = schema[i].Name + "=?"
			continue
		}
		parts[i] = schema[i].Name + "=" + k.String()
	}
	return strings.Join(parts, " ")
}
