package linestore

import (
	"bufio"
	"errors"
	"io"
	"os"

	apperrors "github.com/agbru/linemax/internal/errors"
)

const (
	// DefaultMaxLineLength is the per-line buffer size including the guard
	// byte; a line keeps at most DefaultMaxLineLength-1 content bytes.
	DefaultMaxLineLength = 3000
	// DefaultMaxArenaBytes bounds the total arena size.
	DefaultMaxArenaBytes = 1 << 30

	readBufferSize = 64 * 1024
)

// Limits bounds what Load will accept.
type Limits struct {
	// MaxLines stops reading after this many lines.
	MaxLines int
	// MaxLineLength is the line buffer size including the guard byte.
	// Zero selects DefaultMaxLineLength.
	MaxLineLength int
	// MaxArenaBytes fails the load with an AllocationError once the arena
	// would exceed it. Zero selects DefaultMaxArenaBytes.
	MaxArenaBytes int
}

func (l Limits) contentCap() int {
	n := l.MaxLineLength
	if n <= 0 {
		n = DefaultMaxLineLength
	}
	if n < 2 {
		return 1
	}
	return n - 1
}

func (l Limits) arenaCap() int {
	if l.MaxArenaBytes <= 0 {
		return DefaultMaxArenaBytes
	}
	return l.MaxArenaBytes
}

// LoadFile opens path and loads it with Load. Open and read failures are
// reported as apperrors.IOError.
func LoadFile(path string, lim Limits) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.IOError{Path: path, Cause: err}
	}
	defer f.Close()

	s, err := Load(f, lim)
	var ioErr apperrors.IOError
	if errors.As(err, &ioErr) && ioErr.Path == "" {
		ioErr.Path = path
		return nil, ioErr
	}
	return s, err
}

// Load reads newline-separated lines from r until EOF or lim.MaxLines lines
// have been read. The trailing newline is stripped; content beyond the line
// cap is discarded up to the next newline. A final line without a newline is
// kept. No per-line buffers are allocated beyond the lines actually read.
func Load(r io.Reader, lim Limits) (*Store, error) {
	s := &Store{offs: []int{0}}
	if lim.MaxLines <= 0 {
		return s, nil
	}

	br := bufio.NewReaderSize(r, readBufferSize)
	contentCap := lim.contentCap()
	arenaCap := lim.arenaCap()

	for s.Len() < lim.MaxLines {
		start := len(s.data)
		sawBytes := false
		eof := false

		for {
			frag, err := br.ReadSlice('\n')
			if len(frag) > 0 {
				sawBytes = true
			}
			if err == nil {
				frag = frag[:len(frag)-1]
			}
			if room := contentCap - (len(s.data) - start); room > 0 {
				if len(frag) > room {
					frag = frag[:room]
				}
				if len(s.data)+len(frag) > arenaCap {
					return nil, apperrors.AllocationError{What: "line arena", Size: uint64(len(s.data) + len(frag))}
				}
				s.data = append(s.data, frag...)
			}

			if err == nil {
				break
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			return nil, apperrors.IOError{Cause: err}
		}

		if eof && !sawBytes {
			break
		}
		s.offs = append(s.offs, len(s.data))
		if eof {
			break
		}
	}
	return s, nil
}
