package shared

import (
	"slices"
)

// LockOrder returns the distinct ids in ascending order. Rows are always locked
// in this order so concurrent postings touching the same ledgers cannot deadlock.
func LockOrder(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
