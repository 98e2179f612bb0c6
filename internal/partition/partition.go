package partition

import (
	"errors"
	"fmt"
	"strings"
)

// Policy selects where the remainder lines go when the total is not evenly
// divisible by the worker count.
type Policy int

const (
	// RemainderSpread gives one extra line to each of the first total%workers
	// workers, keeping every range within one line of total/workers.
	RemainderSpread Policy = iota
	// RemainderToLast gives the whole remainder to the last worker.
	RemainderToLast
)

// String returns the flag spelling of the policy.
func (p Policy) String() string {
	switch p {
	case RemainderSpread:
		return "spread"
	case RemainderToLast:
		return "last"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "spread"/"b" and "last"/"a", case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "spread", "b":
		return RemainderSpread, nil
	case "last", "a":
		return RemainderToLast, nil
	}
	return 0, fmt.Errorf("unknown partition policy %q (want spread or last)", s)
}

var (
	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("partition: workers must be positive")
	// ErrNegativeTotal is returned when the line count is negative.
	ErrNegativeTotal = errors.New("partition: total must be non-negative")
)

// WorkRange is the half-open index range [Start, End) assigned to one worker.
type WorkRange struct {
	Worker int
	Start  int
	End    int
}

// Len returns the number of lines in the range.
func (r WorkRange) Len() int { return r.End - r.Start }

// Empty reports whether the range holds no lines.
func (r WorkRange) Empty() bool { return r.End <= r.Start }

func (r WorkRange) String() string {
	return fmt.Sprintf("worker %d [%d,%d)", r.Worker, r.Start, r.End)
}

// Plan is a partition together with the inputs that produced it.
type Plan struct {
	Total  int
	Policy Policy
	Ranges []WorkRange
}

// Workers returns the number of ranges in the plan.
func (p Plan) Workers() int { return len(p.Ranges) }

// NewPlan partitions total lines over workers.
func NewPlan(total, workers int, policy Policy) (Plan, error) {
	ranges, err := Partition(total, workers, policy)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Total: total, Policy: policy, Ranges: ranges}, nil
}

// Partition splits total lines into exactly workers contiguous, disjoint
// ranges covering [0, total). When workers > total the trailing workers get
// empty ranges positioned at the tail.
func Partition(total, workers int, policy Policy) ([]WorkRange, error) {
	if workers < 1 {
		return nil, ErrInvalidWorkers
	}
	if total < 0 {
		return nil, ErrNegativeTotal
	}

	base, rem := total/workers, total%workers
	ranges := make([]WorkRange, workers)
	start := 0
	for w := range ranges {
		size := base
		switch policy {
		case RemainderToLast:
			if w == workers-1 {
				size += rem
			}
		default:
			if w < rem {
				size++
			}
		}
		ranges[w] = WorkRange{Worker: w, Start: start, End: start + size}
		start += size
	}
	return ranges, nil
}

// Sizes returns the length of each range.
func Sizes(ranges []WorkRange) []int {
	sizes := make([]int, len(ranges))
	for i, r := range ranges {
		sizes[i] = r.Len()
	}
	return sizes
}

// Validate checks the WorkRange invariants against total: ids in order,
// first start 0, last end total, each end equal to the next start, and no
// range with End < Start.
func Validate(ranges []WorkRange, total int) error {
	if len(ranges) == 0 {
		return ErrInvalidWorkers
	}
	next := 0
	for i, r := range ranges {
		if r.Worker != i {
			return fmt.Errorf("partition: range %d has worker id %d", i, r.Worker)
		}
		if r.Start != next {
			return fmt.Errorf("partition: range %d starts at %d, want %d", i, r.Start, next)
		}
		if r.End < r.Start {
			return fmt.Errorf("partition: range %d ends before it starts", i)
		}
		next = r.End
	}
	if next != total {
		return fmt.Errorf("partition: ranges cover %d of %d lines", next, total)
	}
	return nil
}
