package orchestration

import (
	"io"

	"github.com/agbru/linemax/internal/config"
	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/dispatch/loop"
	"github.com/agbru/linemax/internal/dispatch/procs"
	"github.com/agbru/linemax/internal/dispatch/threads"
	"github.com/agbru/linemax/internal/logging"
)

// BackendOptions carries what the backends need beyond the backend name.
type BackendOptions struct {
	Logger logging.Logger
	// Chunk is the loop backend's chunk size. Zero picks one from the plan.
	Chunk int
	// Processes configures the processes backend.
	Processes procs.Options
}

// NewDispatcher returns the backend registered under name. Names are
// normalized by dispatch.ParseBackend.
func NewDispatcher(name string, opts BackendOptions) (dispatch.Dispatcher, error) {
	backend, err := dispatch.ParseBackend(name)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	switch backend {
	case dispatch.BackendLoop:
		return loop.New(opts.Logger, opts.Chunk), nil
	case dispatch.BackendProcesses:
		p := opts.Processes
		if p.Logger == nil {
			p.Logger = opts.Logger
		}
		return procs.New(p), nil
	default:
		return threads.New(opts.Logger), nil
	}
}

// DispatcherForConfig builds the dispatcher selected by cfg. Children of the
// processes backend write their stderr to errOut and tag their subjects with
// runID.
func DispatcherForConfig(cfg config.AppConfig, runID string, logger logging.Logger, errOut io.Writer) (dispatch.Dispatcher, error) {
	return NewDispatcher(cfg.Backend, BackendOptions{
		Logger: logger,
		Processes: procs.Options{
			Env:       []string{config.EnvPrefix + "LOG_LEVEL=" + cfg.LogLevel},
			Transport: cfg.Transport,
			NATSURL:   cfg.NATSURL,
			RunID:     runID,
			Stderr:    errOut,
			Logger:    logger,
		},
	})
}
