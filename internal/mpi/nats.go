package mpi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	hdrRank  = "Linemax-Rank"
	hdrFinal = "Linemax-Final"

	// JoinTimeout bounds the ready handshake on both sides.
	JoinTimeout = 30 * time.Second

	chunkSlack = 4 << 10
	minChunk   = 4 << 10
)

// NATSRoot is the coordinator end of the NATS transport before the children
// have joined. When no URL is given it runs an embedded server that lives
// until Close.
type NATSRoot struct {
	srv    *server.Server
	nc     *nats.Conn
	url    string
	prefix string
	ready  *nats.Subscription
	gather *nats.Subscription

	closeOnce sync.Once
}

// StartNATSRoot connects to url, or starts an embedded server on a random
// loopback port when url is empty, and subscribes to the ready and gather
// subjects under "linemax.<runID>". It must be called before any child is
// spawned.
func StartNATSRoot(url, runID string) (*NATSRoot, error) {
	r := &NATSRoot{prefix: "linemax." + runID}
	if url == "" {
		srv, err := startEmbeddedServer()
		if err != nil {
			return nil, collectiveErr("join", -1, err)
		}
		r.srv = srv
		url = srv.ClientURL()
	}
	r.url = url

	nc, err := nats.Connect(url, nats.Name("linemax-coordinator"), nats.Timeout(5*time.Second))
	if err != nil {
		r.Close()
		return nil, collectiveErr("join", -1, err)
	}
	r.nc = nc

	if r.ready, err = subscribeUnbounded(nc, r.prefix+".ready"); err == nil {
		r.gather, err = subscribeUnbounded(nc, r.prefix+".gather")
	}
	if err == nil {
		err = nc.Flush()
	}
	if err != nil {
		r.Close()
		return nil, collectiveErr("join", -1, err)
	}
	return r, nil
}

func startEmbeddedServer() (*server.Server, error) {
	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("embedded nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded nats server not ready within 5s")
	}
	return ns, nil
}

func subscribeUnbounded(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	sub, err := nc.SubscribeSync(subject)
	if err != nil {
		return nil, err
	}
	if err := sub.SetPendingLimits(-1, -1); err != nil {
		return nil, err
	}
	return sub, nil
}

// URL returns the client URL children connect to.
func (r *NATSRoot) URL() string { return r.url }

// Env returns the environment a child needs to join this group.
func (r *NATSRoot) Env() []string {
	return []string{
		EnvTransport + "=" + TransportNATS,
		EnvURL + "=" + r.url,
		EnvSubject + "=" + r.prefix,
	}
}

// Join answers the ready requests of children started children, assigning
// ranks 1..children in arrival order, and returns the coordinator's Comm.
// Each request carries the child's pid; RankOf maps it back to the rank.
func (r *NATSRoot) Join(ctx context.Context, children int, hello Hello) (*NATSComm, error) {
	size := children + 1
	jctx, cancel := context.WithTimeout(ctx, JoinTimeout)
	defer cancel()

	ranks := make(map[int]int, children)
	for rank := 1; rank <= children; rank++ {
		m, err := r.ready.NextMsgWithContext(jctx)
		if err != nil {
			return nil, collectiveErr("join", rank, err)
		}
		if pid, err := strconv.Atoi(string(m.Data)); err == nil {
			ranks[pid] = rank
		}
		h := hello
		h.Rank, h.Size = rank, size
		data, err := encodeGob(h)
		if err == nil {
			err = m.Respond(data)
		}
		if err != nil {
			return nil, collectiveErr("join", rank, err)
		}
	}
	return &NATSComm{rank: 0, size: size, nc: r.nc, prefix: r.prefix, sub: r.gather, ranks: ranks}, nil
}

// Close shuts down the connection and the embedded server, if any.
func (r *NATSRoot) Close() error {
	r.closeOnce.Do(func() {
		if r.nc != nil {
			r.nc.Close()
		}
		if r.srv != nil {
			r.srv.Shutdown()
			r.srv.WaitForShutdown()
		}
	})
	return nil
}

// NATSComm implements Comm over NATS subjects. Bcast publishes on
// "<prefix>.bcast"; Gatherv contributions arrive on "<prefix>.gather" tagged
// with the sender's rank.
type NATSComm struct {
	rank   int
	size   int
	nc     *nats.Conn
	prefix string
	// sub is the gather subscription on rank 0 and the bcast subscription
	// elsewhere.
	sub *nats.Subscription
	// ranks maps child pids to their ranks, on rank 0 only.
	ranks map[int]int
}

var _ Comm = (*NATSComm)(nil)

// DialNATSChild connects a child to the coordinator at url and performs the
// ready handshake. The bcast subscription is in place before the handshake,
// so nothing the coordinator broadcasts afterwards can be missed.
func DialNATSChild(ctx context.Context, url, prefix string) (*NATSComm, Hello, error) {
	if url == "" || prefix == "" {
		return nil, Hello{}, collectiveErr("join", -1, errors.New("missing nats url or subject"))
	}
	nc, err := nats.Connect(url, nats.Name("linemax-worker"), nats.Timeout(5*time.Second), nats.MaxReconnects(0))
	if err != nil {
		return nil, Hello{}, collectiveErr("join", -1, err)
	}

	fail := func(err error) (*NATSComm, Hello, error) {
		nc.Close()
		return nil, Hello{}, collectiveErr("join", -1, err)
	}

	sub, err := subscribeUnbounded(nc, prefix+".bcast")
	if err != nil {
		return fail(err)
	}
	if err := nc.Flush(); err != nil {
		return fail(err)
	}

	jctx, cancel := context.WithTimeout(ctx, JoinTimeout)
	defer cancel()
	reply, err := nc.RequestWithContext(jctx, prefix+".ready", []byte(strconv.Itoa(os.Getpid())))
	if err != nil {
		return fail(err)
	}
	var h Hello
	if err := decodeGob(reply.Data, &h); err != nil {
		return fail(err)
	}
	if err := h.validate(); err != nil {
		return fail(err)
	}
	return &NATSComm{rank: h.Rank, size: h.Size, nc: nc, prefix: prefix, sub: sub}, h, nil
}

// RankOf returns the rank assigned to the child with the given pid during
// Join. It reports false on other ranks or for an unknown pid.
func (c *NATSComm) RankOf(pid int) (int, bool) {
	rank, ok := c.ranks[pid]
	return rank, ok
}

func (c *NATSComm) Rank() int { return c.rank }
func (c *NATSComm) Size() int { return c.size }

func (c *NATSComm) Bcast(ctx context.Context, v any) error {
	if c.rank == 0 {
		data, err := encodeGob(v)
		if err != nil {
			return collectiveErr("bcast", 0, err)
		}
		return collectiveErr("bcast", -1, publishChunked(c.nc, c.prefix+".bcast", 0, data))
	}

	var buf bytes.Buffer
	for {
		m, err := c.sub.NextMsgWithContext(ctx)
		if err != nil {
			return collectiveErr("bcast", c.rank, err)
		}
		buf.Write(m.Data)
		if m.Header.Get(hdrFinal) != "" {
			break
		}
	}
	return collectiveErr("bcast", c.rank, decodeGob(buf.Bytes(), v))
}

func (c *NATSComm) Gatherv(ctx context.Context, send, recv []int, counts, displs []int) error {
	if err := checkGather(c, send, recv, counts, displs); err != nil {
		return collectiveErr("gatherv", c.rank, err)
	}
	if c.rank != 0 {
		data, err := encodeGob(gatherMsg{Rank: c.rank, Values: send})
		if err == nil {
			err = publishChunked(c.nc, c.prefix+".gather", c.rank, data)
		}
		return collectiveErr("gatherv", c.rank, err)
	}

	gathered := newGatherBuffer(send, counts, displs)
	bufs := make(map[int]*bytes.Buffer)
	done := make([]bool, c.size)
	for remaining := c.size - 1; remaining > 0; {
		m, err := c.sub.NextMsgWithContext(ctx)
		if err != nil {
			return collectiveErr("gatherv", -1, err)
		}
		rank, err := strconv.Atoi(m.Header.Get(hdrRank))
		if err != nil || rank < 1 || rank >= c.size || done[rank] {
			return collectiveErr("gatherv", -1, fmt.Errorf("unexpected contribution from rank %q", m.Header.Get(hdrRank)))
		}
		b := bufs[rank]
		if b == nil {
			b = new(bytes.Buffer)
			bufs[rank] = b
		}
		b.Write(m.Data)
		if m.Header.Get(hdrFinal) == "" {
			continue
		}

		var msg gatherMsg
		if err := decodeGob(b.Bytes(), &msg); err != nil {
			return collectiveErr("gatherv", rank, err)
		}
		if err := gathered.accept(msg, rank); err != nil {
			return collectiveErr("gatherv", rank, err)
		}
		delete(bufs, rank)
		done[rank] = true
		remaining--
	}
	return collectiveErr("gatherv", -1, gathered.assemble(recv))
}

// Close drops the connection. On rank 0 the embedded server keeps running
// until NATSRoot.Close, so children still flushing their last publish are not
// cut off.
func (c *NATSComm) Close() error {
	c.nc.Close()
	return nil
}

// publishChunked splits data into messages below the server's max payload.
// The last message carries the final header, and messages from one
// connection arrive in publish order.
func publishChunked(nc *nats.Conn, subject string, rank int, data []byte) error {
	chunk := max(int(nc.MaxPayload())-chunkSlack, minChunk)
	for off := 0; ; {
		end := min(off+chunk, len(data))
		m := nats.NewMsg(subject)
		m.Data = data[off:end]
		m.Header.Set(hdrRank, strconv.Itoa(rank))
		if end == len(data) {
			m.Header.Set(hdrFinal, "1")
		}
		if err := nc.PublishMsg(m); err != nil {
			return err
		}
		if end == len(data) {
			return nc.Flush()
		}
		off = end
	}
}
