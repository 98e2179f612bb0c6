// Package config parses the command line and LINEMAX_* environment variables
// into an AppConfig.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/agbru/linemax/internal/dispatch"
	apperrors "github.com/agbru/linemax/internal/errors"
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/logging"
	"github.com/agbru/linemax/internal/mpi"
	"github.com/agbru/linemax/internal/partition"
)

const (
	// EnvPrefix is prepended to every environment override key.
	EnvPrefix = "LINEMAX_"
	// MaxWorkers bounds the worker count accepted on the command line.
	MaxWorkers = 256
	// MaxLinesLimit is the largest max_lines value accepted before any
	// buffer is sized from it.
	MaxLinesLimit = math.MaxInt32
	// MaxLineLengthLimit bounds --max-line-length.
	MaxLineLengthLimit = 1 << 24
)

// AppConfig is the fully resolved run configuration.
type AppConfig struct {
	InputPath string
	MaxLines  int
	// Workers is the requested worker count; WorkersSet reports whether it
	// came from the command line rather than runtime.NumCPU.
	Workers    int
	WorkersSet bool

	Backend       string
	Policy        string
	MaxLineLength int
	Transport     string
	NATSURL       string
	LogLevel      string

	Quiet       bool
	ShowPlan    bool
	Progress    bool
	NoColor     bool
	MetricsFile string
	HistoryFile string
	ShowVersion bool
}

// PartitionPolicy returns the parsed --policy value. Validate has already
// rejected unknown spellings.
func (c AppConfig) PartitionPolicy() partition.Policy {
	p, _ := partition.ParsePolicy(c.Policy)
	return p
}

// Limits returns the line store limits for this run.
func (c AppConfig) Limits() linestore.Limits {
	return linestore.Limits{MaxLines: c.MaxLines, MaxLineLength: c.MaxLineLength}
}

// Validate checks value ranges and enumerations. Every failure is a
// ConfigError, except oversized buffers which are AllocationErrors.
func (c AppConfig) Validate() error {
	if c.InputPath == "" {
		return apperrors.NewConfigError("input path must not be empty")
	}
	if c.MaxLines < 0 {
		return apperrors.NewConfigError("max_lines must be non-negative, got %d", c.MaxLines)
	}
	if c.MaxLines > MaxLinesLimit {
		return apperrors.AllocationError{What: "line offset table", Size: uint64(c.MaxLines)}
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return apperrors.NewConfigError("worker_count must be in [1, %d], got %d", MaxWorkers, c.Workers)
	}
	if c.MaxLineLength < 2 {
		return apperrors.NewConfigError("--max-line-length must be at least 2, got %d", c.MaxLineLength)
	}
	if c.MaxLineLength > MaxLineLengthLimit {
		return apperrors.AllocationError{What: "line buffer", Size: uint64(c.MaxLineLength)}
	}
	if _, err := dispatch.ParseBackend(c.Backend); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	if _, err := partition.ParsePolicy(c.Policy); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	if _, err := mpi.ParseTransport(c.Transport); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	return nil
}

// Usage returns the one-line synopsis printed on argument errors.
func Usage(programName string) string {
	return fmt.Sprintf("Usage: %s [flags] <input_path> <max_lines> [<worker_count>]", programName)
}

// ParseConfig parses args (without the program name) into an AppConfig.
// Flags may appear before or among the positional arguments. On --help it
// returns flag.ErrHelp after printing the defaults to errorWriter.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)

	cfg := AppConfig{}
	fs.StringVar(&cfg.Backend, "backend", dispatch.BackendThreads, "execution backend: "+strings.Join(dispatch.Backends(), ", "))
	fs.StringVar(&cfg.Policy, "policy", partition.RemainderSpread.String(), "remainder policy: spread or last")
	fs.IntVar(&cfg.MaxLineLength, "max-line-length", linestore.DefaultMaxLineLength, "line buffer size including the guard byte")
	fs.StringVar(&cfg.Transport, "transport", mpi.TransportPipe, "processes backend transport: pipe or nats")
	fs.StringVar(&cfg.NATSURL, "nats-url", "", "external NATS server for --transport nats (default: embedded)")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "log level on stderr: debug, info, warn, error")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "suppress the metrics block")
	fs.BoolVar(&cfg.Quiet, "q", false, "shorthand for --quiet")
	fs.BoolVar(&cfg.ShowPlan, "plan", false, "print the partition table to stderr")
	fs.BoolVar(&cfg.Progress, "progress", false, "show a spinner on stderr while workers run")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "disable colored output")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	fs.StringVar(&cfg.HistoryFile, "history", "", "append the run summary to this history database")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintln(errorWriter, Usage(programName))
		fs.PrintDefaults()
	}

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return AppConfig{}, err
	}
	applyEnvOverrides(&cfg, fs)
	if cfg.ShowVersion {
		return cfg, nil
	}

	if len(positional) < 2 || len(positional) > 3 {
		fmt.Fprintln(errorWriter, Usage(programName))
		return AppConfig{}, apperrors.NewConfigError("expected <input_path> <max_lines> [<worker_count>], got %d arguments", len(positional))
	}
	cfg.InputPath = positional[0]
	if cfg.MaxLines, err = parseCount("max_lines", positional[1]); err != nil {
		return AppConfig{}, err
	}
	cfg.Workers = defaultWorkers(runtime.NumCPU())
	if len(positional) == 3 {
		if cfg.Workers, err = parseCount("worker_count", positional[2]); err != nil {
			return AppConfig{}, err
		}
		cfg.WorkersSet = true
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// defaultWorkers is the worker count used when none is given: one per CPU,
// capped at MaxWorkers.
func defaultWorkers(numCPU int) int {
	return max(1, min(numCPU, MaxWorkers))
}

// parseInterspersed lets flags follow positional arguments, which the
// standard flag package stops at. Everything after a "--" terminator is
// positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, apperrors.NewConfigError("%v", err)
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" && !isFlagValue(fs, args[:consumed-1]) {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// isFlagValue reports whether the argument following parsed is the value of
// a non-boolean flag written as "-name value".
func isFlagValue(fs *flag.FlagSet, parsed []string) bool {
	if len(parsed) == 0 {
		return false
	}
	last := parsed[len(parsed)-1]
	if !strings.HasPrefix(last, "-") || strings.Contains(last, "=") || last == "--" {
		return false
	}
	f := fs.Lookup(strings.TrimLeft(last, "-"))
	if f == nil {
		return false
	}
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return !ok || !b.IsBoolFlag()
}

func parseCount(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.NewConfigError("%s must be an integer, got %q", name, s)
	}
	return n, nil
}
