package types

const PageSize = 4096 // 4KB page

type PageType uint8

const (
	PageTypeUnknown PageType = iota
	PageTypeHeapData
	PageTypeBPlusNode
)

func (t PageType) String() string {
	switch t {
	case PageTypeHeapData:
		return "heap"
	case PageTypeBPlusNode:
		return "index"
	default:
		return "unknown"
	}
}
