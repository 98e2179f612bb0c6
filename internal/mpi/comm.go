package mpi

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"strings"

	"github.com/agbru/linemax/internal/collect"
	apperrors "github.com/agbru/linemax/internal/errors"
	"github.com/agbru/linemax/internal/partition"
)

// Environment variables read by a child process to find its coordinator.
const (
	EnvTransport = "LINEMAX_MPI_TRANSPORT"
	EnvURL       = "LINEMAX_MPI_URL"
	EnvSubject   = "LINEMAX_MPI_SUBJECT"
)

// Transport names accepted by ParseTransport.
const (
	TransportPipe = "pipe"
	TransportNATS = "nats"
)

// ParseTransport normalizes a transport name. The empty string selects pipe.
func ParseTransport(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", TransportPipe:
		return TransportPipe, nil
	case TransportNATS:
		return TransportNATS, nil
	}
	return "", fmt.Errorf("unknown transport %q (want pipe or nats)", s)
}

// Comm is one rank's view of the process group.
type Comm interface {
	// Rank returns this process's rank, 0 for the coordinator.
	Rank() int
	// Size returns the number of ranks, coordinator included.
	Size() int
	// Bcast sends v from rank 0 to every other rank. On rank 0 v is the value
	// to send; elsewhere it must be a pointer that receives the value.
	Bcast(ctx context.Context, v any) error
	// Gatherv collects counts[r] values from each rank r into recv at
	// displs[r] on rank 0. recv is ignored on the other ranks.
	Gatherv(ctx context.Context, send, recv []int, counts, displs []int) error
	// Close releases the transport.
	Close() error
}

// Hello is the join handshake the coordinator sends to each child.
type Hello struct {
	Rank   int
	Size   int
	Policy string
	RunID  string
}

func (h Hello) validate() error {
	if h.Size < 2 || h.Rank < 1 || h.Rank >= h.Size {
		return fmt.Errorf("invalid rank %d of %d", h.Rank, h.Size)
	}
	return nil
}

// gatherMsg carries one rank's contribution to a Gatherv.
type gatherMsg struct {
	Rank   int
	Values []int
}

// checkGather validates the Gatherv arguments common to every transport. On
// rank 0 the blocks must tile recv in rank order.
func checkGather(c Comm, send, recv []int, counts, displs []int) error {
	if len(counts) != c.Size() || len(displs) != c.Size() {
		return fmt.Errorf("gatherv: %d counts and %d displs for %d ranks", len(counts), len(displs), c.Size())
	}
	if len(send) != counts[c.Rank()] {
		return fmt.Errorf("gatherv: rank %d sends %d values, count is %d", c.Rank(), len(send), counts[c.Rank()])
	}
	if c.Rank() != 0 {
		return nil
	}
	off := 0
	for r := range counts {
		if counts[r] < 0 || displs[r] != off {
			return fmt.Errorf("gatherv: block of rank %d starts at %d, want %d", r, displs[r], off)
		}
		off += counts[r]
	}
	if off != len(recv) {
		return fmt.Errorf("gatherv: blocks cover %d values, receive buffer holds %d", off, len(recv))
	}
	return nil
}

// gatherBuffer holds every rank's contribution on rank 0 until the last one
// has arrived.
type gatherBuffer struct {
	ranges   []partition.WorkRange
	partials [][]int
}

func newGatherBuffer(own []int, counts, displs []int) *gatherBuffer {
	g := &gatherBuffer{
		ranges:   make([]partition.WorkRange, len(counts)),
		partials: make([][]int, len(counts)),
	}
	for r := range counts {
		g.ranges[r] = partition.WorkRange{Worker: r, Start: displs[r], End: displs[r] + counts[r]}
	}
	g.partials[0] = own
	return g
}

// accept records the contribution of rank. Distinct ranks may be accepted
// concurrently.
func (g *gatherBuffer) accept(msg gatherMsg, rank int) error {
	if msg.Rank != rank {
		return fmt.Errorf("expected rank %d, got a message from rank %d", rank, msg.Rank)
	}
	if want := g.ranges[rank].Len(); len(msg.Values) != want {
		return fmt.Errorf("rank %d sent %d values, expected %d", rank, len(msg.Values), want)
	}
	g.partials[rank] = msg.Values
	return nil
}

// assemble builds the result vector from the accepted contributions.
func (g *gatherBuffer) assemble(recv []int) error {
	out, err := collect.Collect(g.ranges, g.partials)
	if err != nil {
		return err
	}
	copy(recv, out)
	return nil
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func collectiveErr(op string, rank int, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.CollectiveError{Op: op, Rank: rank, Cause: err}
}

// Connect joins the process group from a child process, choosing the
// transport from the environment set by the coordinator. The pipe transport
// uses stdin and stdout.
func Connect(ctx context.Context) (Comm, Hello, error) {
	transport, err := ParseTransport(os.Getenv(EnvTransport))
	if err != nil {
		return nil, Hello{}, collectiveErr("join", -1, err)
	}
	if transport == TransportNATS {
		return DialNATSChild(ctx, os.Getenv(EnvURL), os.Getenv(EnvSubject))
	}
	return NewPipeChild(ctx, os.Stdin, os.Stdout)
}
