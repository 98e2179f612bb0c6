package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestChunkCursor_CoversEachIndexOnce(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		total   int
		chunk   int
		workers int
	}{
		{"uneven", 1003, 7, 8},
		{"chunk larger than total", 5, 64, 3},
		{"empty", 0, 4, 4},
		{"default chunk", 500, 0, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cur := NewChunkCursor(tt.total, tt.chunk)
			hits := make([]atomic.Int32, tt.total)

			var wg sync.WaitGroup
			for w := 0; w < tt.workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						start, end, ok := cur.Next()
						if !ok {
							return
						}
						for i := start; i < end; i++ {
							hits[i].Add(1)
						}
					}
				}()
			}
			wg.Wait()

			for i := range hits {
				if n := hits[i].Load(); n != 1 {
					t.Fatalf("index %d claimed %d times", i, n)
				}
			}
		})
	}
}

func TestChunkFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		total, workers, want int
	}{
		{0, 4, 1},
		{10, 4, 1},
		{1000, 4, 62},
		{1 << 20, 4, DefaultChunk},
		{100, 0, 25},
	}
	for _, tt := range tests {
		if got := ChunkFor(tt.total, tt.workers); got != tt.want {
			t.Errorf("ChunkFor(%d, %d) = %d, want %d", tt.total, tt.workers, got, tt.want)
		}
	}
}
