package orchestration

import (
	"fmt"
	"io"
)

// Phase identifies a stage of the pipeline for progress display.
type Phase int

const (
	PhaseLoad Phase = iota
	PhasePartition
	PhaseDispatch
	PhaseCollect
)

func (p Phase) String() string {
	switch p {
	case PhaseLoad:
		return "loading"
	case PhasePartition:
		return "partitioning"
	case PhaseDispatch:
		return "dispatching"
	case PhaseCollect:
		return "collecting"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ProgressReporter defines the interface for displaying pipeline progress.
// Start is called once before the first Phase and Stop once after the last,
// also on failure. Stop must return only after the display is cleared.
type ProgressReporter interface {
	Start(out io.Writer)
	Phase(p Phase, detail string)
	Stop()
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
// Start and Stop are no-ops.
type ProgressReporterFunc func(p Phase, detail string)

// Start does nothing.
func (ProgressReporterFunc) Start(io.Writer) {}

// Phase calls the underlying function.
func (f ProgressReporterFunc) Phase(p Phase, detail string) { f(p, detail) }

// Stop does nothing.
func (ProgressReporterFunc) Stop() {}

// NullProgressReporter is a no-op implementation of ProgressReporter.
type NullProgressReporter struct{}

func (NullProgressReporter) Start(io.Writer)     {}
func (NullProgressReporter) Phase(Phase, string) {}
func (NullProgressReporter) Stop()               {}
