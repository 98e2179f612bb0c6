package parallel

import "sync/atomic"

// DefaultChunk is the number of indices a worker claims per Next call when no
// chunk size is given.
const DefaultChunk = 64

// ChunkCursor hands out consecutive [start, end) index chunks over [0, total)
// to concurrent callers. Each index is handed out exactly once.
type ChunkCursor struct {
	next  atomic.Int64
	total int64
	chunk int64
}

// NewChunkCursor returns a cursor over total indices. A chunk below 1 selects
// DefaultChunk.
func NewChunkCursor(total, chunk int) *ChunkCursor {
	if chunk < 1 {
		chunk = DefaultChunk
	}
	return &ChunkCursor{total: int64(total), chunk: int64(chunk)}
}

// Next claims the next chunk. ok is false once every index has been claimed.
func (c *ChunkCursor) Next() (start, end int, ok bool) {
	s := c.next.Add(c.chunk) - c.chunk
	if s >= c.total {
		return 0, 0, false
	}
	return int(s), int(min(s+c.chunk, c.total)), true
}

// ChunkFor picks a chunk size that gives each of workers several chunks over
// total indices, bounded to [1, DefaultChunk].
func ChunkFor(total, workers int) int {
	if workers < 1 {
		workers = 1
	}
	c := total / (workers * 4)
	return max(1, min(c, DefaultChunk))
}
