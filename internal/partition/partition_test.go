package partition

import (
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPartition_Sizes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		total   int
		workers int
		policy  Policy
		want    []int
	}{
		{"spread 7 over 3", 7, 3, RemainderSpread, []int{3, 2, 2}},
		{"last 7 over 3", 7, 3, RemainderToLast, []int{2, 2, 3}},
		{"spread even split", 8, 4, RemainderSpread, []int{2, 2, 2, 2}},
		{"last even split", 8, 4, RemainderToLast, []int{2, 2, 2, 2}},
		{"spread more workers than lines", 2, 5, RemainderSpread, []int{1, 1, 0, 0, 0}},
		{"last more workers than lines", 2, 5, RemainderToLast, []int{0, 0, 0, 0, 2}},
		{"zero lines", 0, 3, RemainderSpread, []int{0, 0, 0}},
		{"single worker", 9, 1, RemainderToLast, []int{9}},
		{"scenario 4 over 2", 4, 2, RemainderSpread, []int{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ranges, err := Partition(tt.total, tt.workers, tt.policy)
			if err != nil {
				t.Fatalf("Partition returned error: %v", err)
			}
			if got := Sizes(ranges); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("sizes = %v, want %v", got, tt.want)
			}
			if err := Validate(ranges, tt.total); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestPartition_EmptyRangesAtTail(t *testing.T) {
	t.Parallel()
	ranges, err := Partition(2, 4, RemainderSpread)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range ranges[2:] {
		if !r.Empty() || r.Start != 2 || r.End != 2 {
			t.Errorf("trailing range %v should be the empty range at the tail", r)
		}
	}
}

func TestPartition_InvalidInput(t *testing.T) {
	t.Parallel()
	if _, err := Partition(10, 0, RemainderSpread); !errors.Is(err, ErrInvalidWorkers) {
		t.Errorf("workers=0: got %v, want ErrInvalidWorkers", err)
	}
	if _, err := Partition(-1, 2, RemainderSpread); !errors.Is(err, ErrNegativeTotal) {
		t.Errorf("total=-1: got %v, want ErrNegativeTotal", err)
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"spread", RemainderSpread, false},
		{"B", RemainderSpread, false},
		{"", RemainderSpread, false},
		{"last", RemainderToLast, false},
		{"a", RemainderToLast, false},
		{"round-robin", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		ranges []WorkRange
		total  int
	}{
		{"empty", nil, 0},
		{"gap", []WorkRange{{0, 0, 2}, {1, 3, 4}}, 4},
		{"overlap", []WorkRange{{0, 0, 3}, {1, 2, 4}}, 4},
		{"short", []WorkRange{{0, 0, 2}, {1, 2, 3}}, 4},
		{"bad id", []WorkRange{{0, 0, 2}, {5, 2, 4}}, 4},
		{"inverted", []WorkRange{{0, 0, 3}, {1, 3, 2}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := Validate(tt.ranges, tt.total); err == nil {
				t.Error("expected Validate to fail")
			}
		})
	}
}

// TestPartition_PropertyBased verifies the partition invariants for random
// totals and worker counts under both policies.
func TestPartition_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	for _, policy := range []Policy{RemainderSpread, RemainderToLast} {
		properties.Property(policy.String()+": ranges are contiguous and cover the input", prop.ForAll(
			func(total, workers int) bool {
				ranges, err := Partition(total, workers, policy)
				if err != nil || len(ranges) != workers {
					return false
				}
				sum := 0
				for _, s := range Sizes(ranges) {
					sum += s
				}
				return sum == total && Validate(ranges, total) == nil
			},
			gen.IntRange(0, 10000),
			gen.IntRange(1, 300),
		))
	}

	properties.Property("spread: sizes differ by at most one", prop.ForAll(
		func(total, workers int) bool {
			ranges, err := Partition(total, workers, RemainderSpread)
			if err != nil {
				return false
			}
			lo, hi := ranges[0].Len(), ranges[0].Len()
			for _, r := range ranges {
				lo, hi = min(lo, r.Len()), max(hi, r.Len())
			}
			return hi-lo <= 1
		},
		gen.IntRange(0, 10000),
		gen.IntRange(1, 300),
	))

	properties.Property("last: all but the final worker get total/workers", prop.ForAll(
		func(total, workers int) bool {
			ranges, err := Partition(total, workers, RemainderToLast)
			if err != nil {
				return false
			}
			base := total / workers
			for _, r := range ranges[:workers-1] {
				if r.Len() != base {
					return false
				}
			}
			return ranges[workers-1].Len() == base+total%workers
		},
		gen.IntRange(0, 10000),
		gen.IntRange(1, 300),
	))

	properties.TestingRun(t)
}
