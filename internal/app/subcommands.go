package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/agbru/linemax/internal/cli"
	"github.com/agbru/linemax/internal/config"
	"github.com/agbru/linemax/internal/dispatch/procs"
	apperrors "github.com/agbru/linemax/internal/errors"
	"github.com/agbru/linemax/internal/history"
	"github.com/agbru/linemax/internal/logging"
	"github.com/agbru/linemax/internal/ui"
)

// HistoryCommand is the subcommand that prints recorded runs.
const HistoryCommand = "history"

// Subcommand returns the subcommand named by args[1], if any. args includes
// the program name.
func Subcommand(args []string) (string, bool) {
	if len(args) < 2 {
		return "", false
	}
	switch args[1] {
	case procs.WorkerCommand, HistoryCommand:
		return args[1], true
	}
	return "", false
}

// RunSubcommand executes a subcommand returned by Subcommand and returns the
// exit code.
func RunSubcommand(ctx context.Context, name string, args []string, out, errOut io.Writer) int {
	switch name {
	case procs.WorkerCommand:
		return RunWorker(ctx, errOut)
	case HistoryCommand:
		return RunHistory(args[0], args[2:], out, errOut)
	}
	return apperrors.HandleError(apperrors.NewConfigError("unknown subcommand %q", name), errOut)
}

// RunWorker serves one rank of the processes backend. The coordinator passes
// the log level through the environment; stdout may carry the pipe
// transport, so nothing else is written there.
func RunWorker(ctx context.Context, errOut io.Writer) int {
	level, err := logging.ParseLevel(os.Getenv(config.EnvPrefix + "LOG_LEVEL"))
	if err != nil {
		level, _ = logging.ParseLevel("")
	}
	logger := logging.NewConsoleLogger(errOut, "linemax-worker", level).
		With(logging.Int("pid", os.Getpid()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	if err := procs.ServeWorker(ctx, logger); err != nil {
		logger.Error("worker failed", err)
		return apperrors.ExitCode(err)
	}
	return apperrors.ExitSuccess
}

// RunHistory prints the runs recorded in a history database:
//
//	linemax history [--limit N] [--no-color] <db>
func RunHistory(programName string, args []string, out, errOut io.Writer) int {
	fset := flag.NewFlagSet(programName+" "+HistoryCommand, flag.ContinueOnError)
	fset.SetOutput(errOut)
	limit := fset.Int("limit", 20, "number of runs to show, 0 for all")
	noColor := fset.Bool("no-color", false, "disable colored output")
	fset.Usage = func() {
		fmt.Fprintf(errOut, "Usage: %s %s [--limit N] <history_db>\n", programName, HistoryCommand)
		fset.PrintDefaults()
	}
	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return apperrors.ExitSuccess
		}
		return apperrors.HandleError(apperrors.NewConfigError("%v", err), errOut)
	}
	if fset.NArg() != 1 {
		fset.Usage()
		return apperrors.HandleError(apperrors.NewConfigError("expected one history database path"), errOut)
	}
	ui.InitTheme(*noColor)

	store, err := history.OpenReadOnly(fset.Arg(0))
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, history.ErrNoHistory) {
		cli.DisplayHistory(out, nil)
		return apperrors.ExitSuccess
	}
	if err != nil {
		return apperrors.HandleError(err, errOut)
	}
	defer store.Close()

	runs, err := store.List(*limit)
	if err != nil {
		return apperrors.HandleError(err, errOut)
	}
	cli.DisplayHistory(out, runs)
	return apperrors.ExitSuccess
}
