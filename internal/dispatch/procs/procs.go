package procs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/agbru/linemax/internal/dispatch"
	apperrors "github.com/agbru/linemax/internal/errors"
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/logging"
	"github.com/agbru/linemax/internal/mpi"
	"github.com/agbru/linemax/internal/parallel"
	"github.com/agbru/linemax/internal/partition"
)

// WorkerCommand is the hidden subcommand a child is started with.
const WorkerCommand = "worker"

// Options configures how children are started and how they talk to the
// coordinator.
type Options struct {
	// Executable is the binary to re-execute. Empty means os.Executable().
	Executable string
	// Args are passed to every child. Nil means []string{WorkerCommand}.
	Args []string
	// Env is appended to the coordinator's environment for every child.
	Env []string
	// Transport is mpi.TransportPipe (default) or mpi.TransportNATS.
	Transport string
	// NATSURL selects an external NATS server. Empty starts an embedded one.
	NATSURL string
	// RunID tags log lines and NATS subjects. Empty generates one.
	RunID string
	// Stderr receives the children's stderr. Nil means os.Stderr.
	Stderr io.Writer
	Logger logging.Logger
}

// Dispatcher is the processes backend.
type Dispatcher struct {
	opts Options
}

var _ dispatch.Dispatcher = (*Dispatcher)(nil)

// New returns a processes dispatcher with defaults filled in.
func New(opts Options) *Dispatcher {
	if opts.Args == nil {
		opts.Args = []string{WorkerCommand}
	}
	if opts.Transport == "" {
		opts.Transport = mpi.TransportPipe
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Dispatcher{opts: opts}
}

func (d *Dispatcher) Name() string { return dispatch.BackendProcesses }

type child struct {
	// rank is the spawn order on the pipe transport. On NATS it is -1 until
	// Join reports the rank the child was assigned on arrival.
	rank   atomic.Int32
	cmd    *exec.Cmd
	stdin  *os.File // coordinator's write end, pipe transport only
	stdout *os.File // coordinator's read end, pipe transport only
}

func (c *child) closePipes() {
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.stdout != nil {
		_ = c.stdout.Close()
	}
}

// Dispatch starts plan.Workers()-1 children and runs rank 0 itself. Children
// that fail to start are skipped and the input is repartitioned over the
// ranks that did start; Outcome.StartErr then holds a WorkerStartError. Any
// collective failure kills the whole child process group.
func (d *Dispatcher) Dispatch(ctx context.Context, store *linestore.Store, plan partition.Plan) (dispatch.Outcome, error) {
	logger := d.opts.Logger
	if err := partition.Validate(plan.Ranges, store.Len()); err != nil {
		return dispatch.Outcome{}, err
	}
	requested := plan.Workers()

	env := append(os.Environ(), d.opts.Env...)
	var natsRoot *mpi.NATSRoot
	if d.opts.Transport == mpi.TransportNATS && requested > 1 {
		root, err := mpi.StartNATSRoot(d.opts.NATSURL, d.opts.RunID)
		if err != nil {
			return dispatch.Outcome{}, err
		}
		defer root.Close()
		natsRoot = root
		env = append(env, root.Env()...)
		logger.Debug("nats transport ready", logging.String("url", root.URL()))
	} else {
		env = append(env, mpi.EnvTransport+"="+mpi.TransportPipe)
	}

	var group procGroup
	children, startErr := d.spawn(env, requested-1, natsRoot == nil, &group)
	defer func() {
		for _, c := range children {
			c.closePipes()
		}
	}()

	size := len(children) + 1
	var outcomeErr error
	if startErr != nil {
		outcomeErr = apperrors.WorkerStartError{Requested: requested, Started: size, Cause: startErr}
		logger.Warn("continuing with the workers that started",
			logging.Int("requested", requested), logging.Int("started", size), logging.Err(startErr))
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(ctx, func() { _ = group.kill() })
	defer stop()
	exited := watch(children, cancel)

	comm, err := d.join(runCtx, children, natsRoot, plan.Policy)
	var ranges []partition.WorkRange
	var results []int
	if err == nil {
		ranges, results, err = exchange(runCtx, comm, plan.Policy, store)
		_ = comm.Close()
	}
	if err != nil {
		if killErr := group.kill(); killErr != nil {
			logger.Error("failed to kill worker group", killErr)
		}
		<-exited
		switch cause := context.Cause(runCtx); {
		case ctx.Err() != nil:
			err = ctx.Err()
		case cause != nil && errors.Is(err, context.Canceled):
			err = cause
		}
		return dispatch.Outcome{}, err
	}
	if err := <-exited; err != nil {
		return dispatch.Outcome{}, err
	}

	logger.Debug("processes dispatch finished", logging.Int("workers", size), logging.String("run_id", d.opts.RunID))
	return dispatch.Outcome{WorkersStarted: size, Ranges: ranges, Results: results, StartErr: outcomeErr}, nil
}

func (d *Dispatcher) executable() (string, error) {
	if d.opts.Executable != "" {
		return d.opts.Executable, nil
	}
	return os.Executable()
}

// spawn tries to start n children and returns those that started, in rank
// order, together with the first start error.
func (d *Dispatcher) spawn(env []string, n int, pipes bool, group *procGroup) ([]*child, error) {
	if n <= 0 {
		return nil, nil
	}
	exe, err := d.executable()
	if err != nil {
		return nil, err
	}

	var children []*child
	var firstErr error
	for i := 0; i < n; i++ {
		c, err := d.start(exe, env, pipes, group)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			d.opts.Logger.Warn("worker failed to start", logging.Int("attempt", i+1), logging.Err(err))
			continue
		}
		if pipes {
			c.rank.Store(int32(len(children) + 1))
		} else {
			c.rank.Store(-1)
		}
		children = append(children, c)
	}
	return children, firstErr
}

func (d *Dispatcher) start(exe string, env []string, pipes bool, group *procGroup) (*child, error) {
	cmd := exec.Command(exe, d.opts.Args...)
	cmd.Env = env
	cmd.Stderr = d.opts.Stderr
	cmd.SysProcAttr = group.sysProcAttr()
	c := &child{cmd: cmd}

	var childIn, childOut *os.File
	if pipes {
		var err error
		if childIn, c.stdin, err = os.Pipe(); err != nil {
			return nil, err
		}
		if c.stdout, childOut, err = os.Pipe(); err != nil {
			childIn.Close()
			c.closePipes()
			return nil, err
		}
		cmd.Stdin, cmd.Stdout = childIn, childOut
	}

	err := cmd.Start()
	if pipes {
		childIn.Close()
		childOut.Close()
	}
	if err != nil {
		c.closePipes()
		return nil, err
	}
	group.add(cmd.Process)
	return c, nil
}

// watch reaps every child. The first child to exit with an error cancels the
// run with that error as the cause. The channel yields the first such error
// once all children have exited.
func watch(children []*child, cancel context.CancelCauseFunc) <-chan error {
	done := make(chan error, 1)
	var ec parallel.ErrorCollector
	var wg sync.WaitGroup
	for _, c := range children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.cmd.Wait(); err != nil {
				werr := apperrors.CollectiveError{
					Op:    "worker",
					Rank:  int(c.rank.Load()),
					Cause: fmt.Errorf("pid %d: %w", c.cmd.Process.Pid, err),
				}
				ec.SetError(werr)
				cancel(werr)
			}
		}()
	}
	go func() {
		wg.Wait()
		done <- ec.Err()
	}()
	return done
}

func (d *Dispatcher) join(ctx context.Context, children []*child, natsRoot *mpi.NATSRoot, policy partition.Policy) (mpi.Comm, error) {
	hello := mpi.Hello{Policy: policy.String(), RunID: d.opts.RunID}
	if natsRoot != nil && len(children) > 0 {
		c, err := natsRoot.Join(ctx, len(children), hello)
		if err != nil {
			return nil, err
		}
		for _, ch := range children {
			if rank, ok := c.RankOf(ch.cmd.Process.Pid); ok {
				ch.rank.Store(int32(rank))
			}
		}
		return c, nil
	}

	conns := make([]mpi.Conn, len(children))
	for i, c := range children {
		conns[i] = mpi.Conn{R: c.stdout, W: c.stdin}
	}
	c, err := mpi.NewPipeRoot(ctx, conns, hello)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ServeWorker runs one child rank: it joins the group, takes part in every
// collective and exits. stdout belongs to the pipe transport, so all logging
// goes through logger.
func ServeWorker(ctx context.Context, logger logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	comm, hello, err := mpi.Connect(ctx)
	if err != nil {
		return err
	}
	defer comm.Close()

	policy, err := partition.ParsePolicy(hello.Policy)
	if err != nil {
		return apperrors.CollectiveError{Op: "join", Rank: hello.Rank, Cause: err}
	}
	logger.Debug("worker joined",
		logging.Int("rank", hello.Rank), logging.Int("size", hello.Size), logging.String("run_id", hello.RunID))

	ranges, _, err := exchange(ctx, comm, policy, nil)
	if err != nil {
		return err
	}
	logger.Debug("worker finished", logging.Int("rank", hello.Rank), logging.Int("lines", ranges[hello.Rank].Len()))
	return nil
}
