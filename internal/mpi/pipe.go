package mpi

import (
	"context"
	"encoding/gob"
	"io"

	"golang.org/x/sync/errgroup"
)

// Conn is the pair of streams between the coordinator and one child.
type Conn struct {
	R io.Reader
	W io.Writer
}

type pipePeer struct {
	enc *gob.Encoder
	dec *gob.Decoder
	w   io.Writer
}

func newPipePeer(c Conn) pipePeer {
	return pipePeer{enc: gob.NewEncoder(c.W), dec: gob.NewDecoder(c.R), w: c.W}
}

// PipeComm implements Comm over one gob stream per child. The coordinator
// talks to every child concurrently; a child only ever talks to rank 0.
type PipeComm struct {
	rank  int
	size  int
	peers []pipePeer
}

var _ Comm = (*PipeComm)(nil)

// NewPipeRoot builds the coordinator side from the streams of the started
// children, in rank order, and sends each child its Hello. Size is
// len(conns)+1.
func NewPipeRoot(ctx context.Context, conns []Conn, hello Hello) (*PipeComm, error) {
	c := &PipeComm{rank: 0, size: len(conns) + 1, peers: make([]pipePeer, len(conns))}
	for i, cn := range conns {
		c.peers[i] = newPipePeer(cn)
	}
	err := c.eachChild(ctx, "join", func(rank int, p *pipePeer) error {
		h := hello
		h.Rank, h.Size = rank, c.size
		return p.enc.Encode(h)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewPipeChild builds a child side over r and w and waits for its Hello.
func NewPipeChild(ctx context.Context, r io.Reader, w io.Writer) (*PipeComm, Hello, error) {
	if err := ctx.Err(); err != nil {
		return nil, Hello{}, collectiveErr("join", -1, err)
	}
	p := newPipePeer(Conn{R: r, W: w})
	var h Hello
	if err := p.dec.Decode(&h); err != nil {
		return nil, Hello{}, collectiveErr("join", -1, err)
	}
	if err := h.validate(); err != nil {
		return nil, Hello{}, collectiveErr("join", -1, err)
	}
	return &PipeComm{rank: h.Rank, size: h.Size, peers: []pipePeer{p}}, h, nil
}

func (c *PipeComm) Rank() int { return c.rank }
func (c *PipeComm) Size() int { return c.size }

// eachChild runs fn for every child concurrently and wraps the first failure
// in a CollectiveError naming the rank.
func (c *PipeComm) eachChild(ctx context.Context, op string, fn func(rank int, p *pipePeer) error) error {
	if err := ctx.Err(); err != nil {
		return collectiveErr(op, -1, err)
	}
	var g errgroup.Group
	for i := range c.peers {
		rank, p := i+1, &c.peers[i]
		g.Go(func() error {
			return collectiveErr(op, rank, fn(rank, p))
		})
	}
	return g.Wait()
}

func (c *PipeComm) Bcast(ctx context.Context, v any) error {
	if c.rank == 0 {
		return c.eachChild(ctx, "bcast", func(_ int, p *pipePeer) error {
			return p.enc.Encode(v)
		})
	}
	if err := ctx.Err(); err != nil {
		return collectiveErr("bcast", c.rank, err)
	}
	return collectiveErr("bcast", c.rank, c.peers[0].dec.Decode(v))
}

func (c *PipeComm) Gatherv(ctx context.Context, send, recv []int, counts, displs []int) error {
	if err := checkGather(c, send, recv, counts, displs); err != nil {
		return collectiveErr("gatherv", c.rank, err)
	}
	if c.rank != 0 {
		return collectiveErr("gatherv", c.rank, c.peers[0].enc.Encode(gatherMsg{Rank: c.rank, Values: send}))
	}

	buf := newGatherBuffer(send, counts, displs)
	err := c.eachChild(ctx, "gatherv", func(rank int, p *pipePeer) error {
		var msg gatherMsg
		if err := p.dec.Decode(&msg); err != nil {
			return err
		}
		return buf.accept(msg, rank)
	})
	if err != nil {
		return err
	}
	return collectiveErr("gatherv", -1, buf.assemble(recv))
}

// Close closes the children's stdin on the coordinator. It is a no-op on a
// child.
func (c *PipeComm) Close() error {
	if c.rank != 0 {
		return nil
	}
	var first error
	for _, p := range c.peers {
		if cl, ok := p.w.(io.Closer); ok {
			if err := cl.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
