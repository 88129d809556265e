package bplus

import "SlotDB/storage_engine/codec"

// lowerBound returns the first position whose key is >= target, assuming
// the node's keys are sorted ascending.
func lowerBound(n Node, target codec.Key) int {
	lo, hi := 0, n.NumKeys()
	for lo < hi {
		mid := lo + (hi-lo)/2
		if n.keyAt(mid).Compare(target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Search looks target up in a node with ascending keys. It returns the
// position of the first key >= target and whether that key equals target.
// The position is where Insert keeps the node sorted.
func Search(n Node, target codec.Key) (int, bool) {
	i := lowerBound(n, target)
	return i, i < n.NumKeys() && n.keyAt(i).Compare(target) == 0
}

// insert inserts elem at index i in slice.
func insert[T any](slice []T, i int, elem T) []T {
	slice = append(slice, elem) // grow by 1
	copy(slice[i+1:], slice[i:])
	slice[i] = elem
	return slice
}

// remove removes element at index i from slice.
func remove[T any](slice []T, i int) []T {
	return append(slice[:i], slice[i+1:]...)
}
