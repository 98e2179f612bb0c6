// Package reduce holds the per-line reduction: the maximum byte value of a
// line. Every function here is pure and safe to call from any number of
// workers over disjoint ranges.
package reduce

import (
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/partition"
)

// MaxByte returns the largest byte in line as an unsigned value in [0, 255].
// An empty line reduces to 0.
func MaxByte(line []byte) int {
	var m byte
	for _, b := range line {
		if b > m {
			m = b
			if m == 0xff {
				break
			}
		}
	}
	return int(m)
}

// Range reduces every line of r into dst, which must have length r.Len();
// dst[i-r.Start] receives the value for line i.
func Range(store *linestore.Store, r partition.WorkRange, dst []int) {
	for i := r.Start; i < r.End; i++ {
		dst[i-r.Start] = MaxByte(store.Line(i))
	}
}

// All reduces the whole store sequentially. It is the reference result the
// parallel backends are checked against.
func All(store *linestore.Store) []int {
	out := make([]int, store.Len())
	Range(store, partition.WorkRange{Start: 0, End: store.Len()}, out)
	return out
}
