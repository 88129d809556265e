package types

import "fmt"

// RID points to a specific record: a page inside a file plus the slot
// in that page's directory.
type RID struct {
	PageNum uint32 `json:"page_num"`
	SlotNum uint16 `json:"slot_num"`
}

// RIDSize is the on-page width of a RID: page_num(4) + slot_num(2).
const RIDSize = 6

func (r RID) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageNum, r.SlotNum)
}
