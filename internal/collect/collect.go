// Package collect assembles per-worker partial results into the final result
// vector, one value per input line in input order.
package collect

import (
	"fmt"

	"github.com/agbru/linemax/internal/partition"
)

// Displacements returns the per-worker element counts and the offset of each
// worker's block within the result vector. These are the counts and displs
// arguments of a variable-count gather.
func Displacements(ranges []partition.WorkRange) (counts, displs []int) {
	counts = make([]int, len(ranges))
	displs = make([]int, len(ranges))
	for i, r := range ranges {
		counts[i] = r.Len()
		displs[i] = r.Start
	}
	return counts, displs
}

// Total returns the length of the result vector described by ranges.
func Total(ranges []partition.WorkRange) int {
	n := 0
	for _, r := range ranges {
		n += r.Len()
	}
	return n
}

// Scatter copies one partial into dst at r.Start. The partial length must
// equal the range size.
func Scatter(dst []int, r partition.WorkRange, partial []int) error {
	if len(partial) != r.Len() {
		return fmt.Errorf("collect: worker %d returned %d results for %d lines", r.Worker, len(partial), r.Len())
	}
	if r.Start < 0 || r.End > len(dst) {
		return fmt.Errorf("collect: %v outside result vector of %d", r, len(dst))
	}
	copy(dst[r.Start:r.End], partial)
	return nil
}

// Collect builds the result vector from partials, where partials[i] belongs to
// ranges[i]. The outcome does not depend on the order of the ranges.
func Collect(ranges []partition.WorkRange, partials [][]int) ([]int, error) {
	if len(ranges) != len(partials) {
		return nil, fmt.Errorf("collect: %d partials for %d ranges", len(partials), len(ranges))
	}
	out := make([]int, Total(ranges))
	for i, r := range ranges {
		if err := Scatter(out, r, partials[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
