package cli

import (
	"io"

	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/metrics"
	"github.com/agbru/linemax/internal/orchestration"
	"github.com/agbru/linemax/internal/partition"
	"github.com/agbru/linemax/internal/sysmon"
)

// CLIResultPresenter implements orchestration.ResultPresenter for standard
// output. It writes plain text only; stdout never carries colors.
type CLIResultPresenter struct{}

// CLIPlanPresenter implements orchestration.PlanPresenter with the colored
// partition table.
type CLIPlanPresenter struct {
	// Sample returns the host snapshot shown in the table header. Nil uses
	// sysmon.Sample.
	Sample func() sysmon.Stats
}

// Verify interface compliance.
var (
	_ orchestration.ResultPresenter = CLIResultPresenter{}
	_ orchestration.PlanPresenter   = CLIPlanPresenter{}
)

// PresentResults writes the "i: v" lines.
func (CLIResultPresenter) PresentResults(results []int, out io.Writer) error {
	return DisplayResults(out, results)
}

// PresentMetrics writes the metrics block.
func (CLIResultPresenter) PresentMetrics(rep metrics.Report, out io.Writer) error {
	return DisplayMetrics(out, rep)
}

// PresentPlan writes the partition table.
func (p CLIPlanPresenter) PresentPlan(plan partition.Plan, outcome dispatch.Outcome, out io.Writer) {
	sample := p.Sample
	if sample == nil {
		sample = sysmon.Sample
	}
	DisplayPlan(out, plan, outcome, sample())
}
