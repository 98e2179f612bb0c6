package reduce

import (
	"reflect"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/partition"
)

func TestMaxByte(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []byte
		want int
	}{
		{"abc", []byte("abc"), 99},
		{"Z", []byte("Z"), 90},
		{"empty", nil, 0},
		{"hello", []byte("hello"), 111},
		{"high bytes are unsigned", []byte{0x41, 0xe9, 0x20}, 0xe9},
		{"all 0xff", []byte{0xff, 0xff}, 255},
		{"nul only", []byte{0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MaxByte(tt.in); got != tt.want {
				t.Errorf("MaxByte(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestRange_WritesRelativeOffsets(t *testing.T) {
	t.Parallel()
	store := linestore.FromStrings("abc", "Z", "", "hello")
	dst := make([]int, 2)

	Range(store, partition.WorkRange{Worker: 1, Start: 2, End: 4}, dst)

	if want := []int{0, 111}; !reflect.DeepEqual(dst, want) {
		t.Errorf("dst = %v, want %v", dst, want)
	}
}

func TestAll_Scenario(t *testing.T) {
	t.Parallel()
	store := linestore.FromStrings("abc", "Z", "", "hello")
	if got, want := All(store), []int{99, 90, 0, 111}; !reflect.DeepEqual(got, want) {
		t.Errorf("All = %v, want %v", got, want)
	}
}

// TestRange_ConcurrentDisjoint runs Range from many goroutines over disjoint
// ranges of one shared store; run with -race.
func TestRange_ConcurrentDisjoint(t *testing.T) {
	t.Parallel()
	lines := make([]string, 257)
	for i := range lines {
		lines[i] = string(rune('a' + i%26))
	}
	store := linestore.FromStrings(lines...)
	ranges, err := partition.Partition(store.Len(), 16, partition.RemainderSpread)
	if err != nil {
		t.Fatal(err)
	}

	out := make([]int, store.Len())
	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func(r partition.WorkRange) {
			defer wg.Done()
			Range(store, r, out[r.Start:r.End])
		}(r)
	}
	wg.Wait()

	if !reflect.DeepEqual(out, All(store)) {
		t.Error("concurrent reduction differs from sequential reduction")
	}
}

// TestMaxByte_PropertyBased checks MaxByte against a direct definition.
func TestMaxByte_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("MaxByte is the maximum unsigned byte, 0 when empty", prop.ForAll(
		func(in []uint8) bool {
			want := 0
			for _, b := range in {
				if int(b) > want {
					want = int(b)
				}
			}
			return MaxByte(in) == want
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("MaxByte is bounded by 255 and by every element", prop.ForAll(
		func(in []uint8) bool {
			got := MaxByte(in)
			if got < 0 || got > 255 {
				return false
			}
			for _, b := range in {
				if int(b) > got {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
