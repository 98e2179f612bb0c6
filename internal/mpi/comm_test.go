package mpi

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/linemax/internal/errors"
)

type payload struct {
	Data    []byte
	Offsets []int
}

// exercise runs the same collective sequence on a rank: Bcast a count, Bcast
// a payload, then Gatherv rank-dependent contributions of uneven size.
func exercise(ctx context.Context, c Comm, count int, p payload, recv []int) error {
	if err := c.Bcast(ctx, &count); err != nil {
		return err
	}
	if err := c.Bcast(ctx, &p); err != nil {
		return err
	}
	if count != 5 || string(p.Data) != "abcde" {
		return errors.New("broadcast value not received")
	}

	counts := make([]int, c.Size())
	displs := make([]int, c.Size())
	off := 0
	for r := range counts {
		counts[r] = r + 1
		displs[r] = off
		off += counts[r]
	}
	send := make([]int, counts[c.Rank()])
	for i := range send {
		send[i] = c.Rank()*100 + i
	}
	return c.Gatherv(ctx, send, recv, counts, displs)
}

func expectedGather(size int) []int {
	var out []int
	for r := 0; r < size; r++ {
		for i := 0; i <= r; i++ {
			out = append(out, r*100+i)
		}
	}
	return out
}

func pipeGroup(t *testing.T, children int) (rootConns []Conn, childR []io.Reader, childW []io.WriteCloser) {
	t.Helper()
	for i := 0; i < children; i++ {
		toChildR, toChildW := io.Pipe()
		toRootR, toRootW := io.Pipe()
		rootConns = append(rootConns, Conn{R: toRootR, W: toChildW})
		childR = append(childR, toChildR)
		childW = append(childW, toRootW)
	}
	return rootConns, childR, childW
}

func TestPipeComm_Collectives(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const children = 3
	conns, childR, childW := pipeGroup(t, children)

	var g errgroup.Group
	for i := 0; i < children; i++ {
		g.Go(func() error {
			c, h, err := NewPipeChild(ctx, childR[i], childW[i])
			if err != nil {
				return err
			}
			if h.Policy != "last" || h.RunID != "run-1" {
				return errors.New("hello fields lost")
			}
			return exercise(ctx, c, 0, payload{}, nil)
		})
	}

	root, err := NewPipeRoot(ctx, conns, Hello{Policy: "last", RunID: "run-1"})
	require.NoError(t, err)
	require.Equal(t, 0, root.Rank())
	require.Equal(t, children+1, root.Size())

	recv := make([]int, 10)
	require.NoError(t, exercise(ctx, root, 5, payload{Data: []byte("abcde"), Offsets: []int{0, 5}}, recv))
	require.NoError(t, g.Wait())
	require.Equal(t, expectedGather(children+1), recv)
	require.NoError(t, root.Close())
}

func TestPipeComm_CountMismatchIsCollectiveError(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conns, childR, childW := pipeGroup(t, 1)
	go func() {
		c, _, err := NewPipeChild(ctx, childR[0], childW[0])
		if err != nil {
			return
		}
		// Bypasses Gatherv to send more values than the coordinator expects.
		_ = c.peers[0].enc.Encode(gatherMsg{Rank: 1, Values: []int{1, 2, 3}})
	}()

	root, err := NewPipeRoot(ctx, conns, Hello{})
	require.NoError(t, err)

	recv := make([]int, 3)
	err = root.Gatherv(ctx, []int{9}, recv, []int{1, 2}, []int{0, 1})
	var ce apperrors.CollectiveError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "gatherv", ce.Op)
	require.Equal(t, 1, ce.Rank)
}

func TestPipeComm_ChildSeesClosedCoordinator(t *testing.T) {
	t.Parallel()
	r, w := io.Pipe()
	require.NoError(t, w.Close())

	_, _, err := NewPipeChild(context.Background(), r, io.Discard)
	var ce apperrors.CollectiveError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "join", ce.Op)
}

func TestGatherv_RejectsBadArguments(t *testing.T) {
	t.Parallel()
	root := &PipeComm{rank: 0, size: 2}
	ctx := context.Background()

	require.Error(t, root.Gatherv(ctx, []int{1}, make([]int, 2), []int{1}, []int{0}))
	require.Error(t, root.Gatherv(ctx, []int{1, 2}, make([]int, 2), []int{1, 1}, []int{0, 1}))
	require.Error(t, root.Gatherv(ctx, []int{1}, make([]int, 1), []int{1, 1}, []int{0, 1}))
	require.Error(t, root.Gatherv(ctx, []int{1}, make([]int, 2), []int{1, 1}, []int{1, 0}))
	require.Error(t, root.Gatherv(ctx, []int{1}, make([]int, 3), []int{1, 1}, []int{0, 1}))
}

func TestGatherBuffer_AssemblesInRankOrder(t *testing.T) {
	t.Parallel()
	counts, displs := []int{2, 0, 3}, []int{0, 2, 2}
	buf := newGatherBuffer([]int{7, 8}, counts, displs)

	require.NoError(t, buf.accept(gatherMsg{Rank: 2, Values: []int{4, 5, 6}}, 2))
	require.NoError(t, buf.accept(gatherMsg{Rank: 1}, 1))
	require.Error(t, buf.accept(gatherMsg{Rank: 1, Values: []int{1}}, 1))
	require.Error(t, buf.accept(gatherMsg{Rank: 2, Values: []int{4, 5, 6}}, 1))

	recv := make([]int, 5)
	require.NoError(t, buf.assemble(recv))
	require.Equal(t, []int{7, 8, 4, 5, 6}, recv)
}

func TestParseTransport(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{"": TransportPipe, "PIPE": TransportPipe, "nats": TransportNATS} {
		got, err := ParseTransport(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseTransport("tcp")
	require.Error(t, err)
}

func TestNATSComm_Collectives(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	root, err := StartNATSRoot("", uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	const children = 3
	var g errgroup.Group
	for i := 0; i < children; i++ {
		g.Go(func() error {
			c, _, err := DialNATSChild(ctx, root.URL(), root.prefix)
			if err != nil {
				return err
			}
			defer c.Close()
			return exercise(ctx, c, 0, payload{}, nil)
		})
	}

	comm, err := root.Join(ctx, children, Hello{Policy: "spread"})
	require.NoError(t, err)
	require.Equal(t, children+1, comm.Size())

	recv := make([]int, 10)
	require.NoError(t, exercise(ctx, comm, 5, payload{Data: []byte("abcde"), Offsets: []int{0, 5}}, recv))
	require.NoError(t, g.Wait())
	require.Equal(t, expectedGather(children+1), recv)
}

func TestNATSRoot_JoinMapsPidToRank(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	root, err := StartNATSRoot("", uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	joined := make(chan error, 1)
	go func() {
		c, _, err := DialNATSChild(ctx, root.URL(), root.prefix)
		if err == nil {
			c.Close()
		}
		joined <- err
	}()

	comm, err := root.Join(ctx, 1, Hello{})
	require.NoError(t, err)
	require.NoError(t, <-joined)

	rank, ok := comm.RankOf(os.Getpid())
	require.True(t, ok)
	require.Equal(t, 1, rank)
	_, ok = comm.RankOf(-1)
	require.False(t, ok)
}

func TestNATSComm_CloseKeepsEmbeddedServer(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	root, err := StartNATSRoot("", uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	type result struct {
		c   *NATSComm
		err error
	}
	dialed := make(chan result, 1)
	go func() {
		c, _, err := DialNATSChild(ctx, root.URL(), root.prefix)
		dialed <- result{c, err}
	}()

	comm, err := root.Join(ctx, 1, Hello{})
	require.NoError(t, err)
	child := <-dialed
	require.NoError(t, child.err)
	defer child.c.Close()

	// The coordinator is done with the group, but a child may still be
	// publishing; its connection must stay usable until the root closes.
	require.NoError(t, comm.Close())
	require.NoError(t, child.c.nc.Publish(root.prefix+".gather", []byte("late")))
	require.NoError(t, child.c.nc.FlushTimeout(5*time.Second))
}

func TestNATSComm_LargeBroadcastIsChunked(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root, err := StartNATSRoot("", uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	big := make([]byte, 3*int(root.nc.MaxPayload())+123)
	for i := range big {
		big[i] = byte(i)
	}

	got := make(chan []byte, 1)
	go func() {
		c, _, err := DialNATSChild(ctx, root.URL(), root.prefix)
		if err != nil {
			got <- nil
			return
		}
		defer c.Close()
		var p payload
		if err := c.Bcast(ctx, &p); err != nil {
			got <- nil
			return
		}
		got <- p.Data
	}()

	comm, err := root.Join(ctx, 1, Hello{})
	require.NoError(t, err)
	require.NoError(t, comm.Bcast(ctx, payload{Data: big}))
	require.Equal(t, big, <-got)
}

func TestNATSRoot_EnvNamesSubject(t *testing.T) {
	t.Parallel()
	root, err := StartNATSRoot("", "abc")
	require.NoError(t, err)
	defer root.Close()

	env := root.Env()
	require.Contains(t, env, EnvTransport+"=nats")
	require.Contains(t, env, EnvSubject+"=linemax.abc")
	require.Contains(t, env, EnvURL+"="+root.URL())
}
