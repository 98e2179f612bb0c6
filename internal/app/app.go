package app

import (
	"context"
	"errors"
	"flag"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/agbru/linemax/internal/cli"
	"github.com/agbru/linemax/internal/config"
	"github.com/agbru/linemax/internal/dispatch"
	apperrors "github.com/agbru/linemax/internal/errors"
	"github.com/agbru/linemax/internal/history"
	"github.com/agbru/linemax/internal/logging"
	"github.com/agbru/linemax/internal/metrics"
	"github.com/agbru/linemax/internal/orchestration"
	"github.com/agbru/linemax/internal/ui"
)

// Application represents the linemax application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer
	Logger    logging.Logger
	// Recorder collects run metrics for --metrics-file.
	Recorder *metrics.Recorder
	// Now is the clock used for history timestamps.
	Now func() time.Time
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithLogger replaces the stderr console logger.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// WithClock sets the clock used for history timestamps.
func WithClock(now func() time.Time) AppOption {
	return func(a *Application) { a.Now = now }
}

// New creates a new Application instance by parsing command-line arguments.
// args includes the program name.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	programName := "linemax"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}

	app := &Application{Config: cfg, ErrWriter: errWriter, Now: time.Now}
	for _, opt := range opts {
		opt(app)
	}
	if app.Logger == nil {
		level, _ := logging.ParseLevel(cfg.LogLevel)
		app.Logger = logging.NewConsoleLogger(errWriter, "linemax", level)
	}
	if app.Recorder == nil && cfg.MetricsFile != "" {
		app.Recorder = metrics.NewRecorder()
	}
	return app, nil
}

// Run executes one reduction and returns the process exit code. SIGINT and
// SIGTERM cancel the run.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.ShowVersion {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}
	ui.InitTheme(a.Config.NoColor)

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	runID := uuid.NewString()
	startedAt := a.Now()
	logger := a.Logger

	dispatcher, err := orchestration.DispatcherForConfig(a.Config, runID, logger, a.ErrWriter)
	if err != nil {
		return apperrors.HandleError(apperrors.NewConfigError("%v", err), a.ErrWriter)
	}

	var progress orchestration.ProgressReporter = orchestration.NullProgressReporter{}
	if a.Config.Progress {
		progress = &cli.SpinnerProgressReporter{}
	}
	o := &orchestration.Orchestrator{
		Dispatcher:    dispatcher,
		Presenter:     cli.CLIResultPresenter{},
		PlanPresenter: cli.CLIPlanPresenter{},
		Progress:      progress,
		Logger:        logger,
		RunID:         runID,
	}

	sum, err := o.Run(ctx, a.Config, out, a.ErrWriter)
	a.recordMetrics(sum, err)
	if err != nil {
		return apperrors.HandleError(err, a.ErrWriter)
	}
	a.recordHistory(sum, startedAt)
	return apperrors.ExitSuccess
}

// recordMetrics writes --metrics-file. Failures are logged; the run's own
// outcome decides the exit code.
func (a *Application) recordMetrics(sum orchestration.Summary, runErr error) {
	if a.Config.MetricsFile == "" || a.Recorder == nil {
		return
	}
	a.Recorder.ObserveRun(sum.Backend, sum.Lines, sum.Report, sum.Outcome.StartErr != nil, runErr)
	if err := cli.WriteMetricsFile(a.Config.MetricsFile, a.Recorder); err != nil {
		a.Logger.Error("metrics file not written", err, logging.String("path", a.Config.MetricsFile))
	}
}

// recordHistory appends a successful run to --history.
func (a *Application) recordHistory(sum orchestration.Summary, startedAt time.Time) {
	if a.Config.HistoryFile == "" {
		return
	}
	store, err := history.Open(a.Config.HistoryFile)
	if err != nil {
		a.Logger.Error("history not recorded", err, logging.String("path", a.Config.HistoryFile))
		return
	}
	defer store.Close()

	_, err = store.Append(history.Run{
		ID:               sum.RunID,
		StartedAt:        startedAt,
		Input:            a.Config.InputPath,
		Backend:          sum.Backend,
		Policy:           sum.Plan.Policy.String(),
		Transport:        transportOf(a.Config, sum.Backend),
		WorkersRequested: a.Config.Workers,
		WorkersUsed:      sum.Outcome.WorkersStarted,
		Lines:            sum.Lines,
		Bytes:            sum.Bytes,
		Runtime:          sum.Report.Runtime,
		UserCPU:          sum.Report.CPU.User,
		SystemCPU:        sum.Report.CPU.System,
		VirtualKB:        sum.Report.Memory.VirtualKB,
		PhysicalKB:       sum.Report.Memory.PhysicalKB,
	})
	if err != nil {
		a.Logger.Error("history not recorded", err, logging.String("path", a.Config.HistoryFile))
	}
}

func transportOf(cfg config.AppConfig, backend string) string {
	if backend != dispatch.BackendProcesses {
		return ""
	}
	return cfg.Transport
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
