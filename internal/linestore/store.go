package linestore

import (
	"fmt"
)

// Store holds every input line in one contiguous arena. Line i is the view
// data[offs[i]:offs[i+1]]. A Store is immutable once built and may be read
// concurrently without locking.
type Store struct {
	data []byte
	offs []int // len(offs) == Len()+1, offs[0] == 0
}

// New builds a Store from in-memory lines. It copies the bytes.
func New(lines ...[]byte) *Store {
	total := 0
	for _, l := range lines {
		total += len(l)
	}
	s := &Store{
		data: make([]byte, 0, total),
		offs: make([]int, 1, len(lines)+1),
	}
	for _, l := range lines {
		s.data = append(s.data, l...)
		s.offs = append(s.offs, len(s.data))
	}
	return s
}

// FromStrings is a convenience wrapper around New.
func FromStrings(lines ...string) *Store {
	bs := make([][]byte, len(lines))
	for i, l := range lines {
		bs[i] = []byte(l)
	}
	return New(bs...)
}

// Len returns the number of lines.
func (s *Store) Len() int {
	if s == nil || len(s.offs) == 0 {
		return 0
	}
	return len(s.offs) - 1
}

// Line returns line i without its terminator. The returned slice aliases the
// arena and has its capacity clipped; callers must not modify it.
func (s *Store) Line(i int) []byte {
	a, b := s.offs[i], s.offs[i+1]
	return s.data[a:b:b]
}

// Bytes returns the number of content bytes held by the arena.
func (s *Store) Bytes() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// Snapshot is the wire form of a Store, used to broadcast the input to
// cooperating processes.
type Snapshot struct {
	Data    []byte
	Offsets []int
}

// Snapshot returns the arena and offsets. The slices alias the Store.
func (s *Store) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{Offsets: []int{0}}
	}
	return Snapshot{Data: s.data, Offsets: s.offs}
}

// FromSnapshot rebuilds a Store received from a peer. Offsets must start at
// 0, be non-decreasing and end at len(Data).
func FromSnapshot(snap Snapshot) (*Store, error) {
	offs := snap.Offsets
	if len(offs) == 0 {
		offs = []int{0}
	}
	if offs[0] != 0 {
		return nil, fmt.Errorf("linestore: snapshot offsets start at %d", offs[0])
	}
	for i := 1; i < len(offs); i++ {
		if offs[i] < offs[i-1] {
			return nil, fmt.Errorf("linestore: snapshot offset %d decreases", i)
		}
	}
	if offs[len(offs)-1] != len(snap.Data) {
		return nil, fmt.Errorf("linestore: snapshot covers %d of %d bytes", offs[len(offs)-1], len(snap.Data))
	}
	return &Store{data: snap.Data, offs: offs}, nil
}
