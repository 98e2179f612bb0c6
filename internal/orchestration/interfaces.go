package orchestration

import (
	"io"

	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/metrics"
	"github.com/agbru/linemax/internal/partition"
)

// ResultPresenter defines how a finished run is written to standard output.
// Implementations must write nothing until PresentResults is called, so a
// failed run leaves stdout empty.
type ResultPresenter interface {
	// PresentResults writes one line per input line, in line order.
	PresentResults(results []int, out io.Writer) error

	// PresentMetrics writes the resource summary of the dispatch.
	PresentMetrics(rep metrics.Report, out io.Writer) error
}

// PlanPresenter displays the partition that was executed.
type PlanPresenter interface {
	PresentPlan(plan partition.Plan, outcome dispatch.Outcome, out io.Writer)
}
