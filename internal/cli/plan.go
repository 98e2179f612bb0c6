package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/format"
	"github.com/agbru/linemax/internal/partition"
	"github.com/agbru/linemax/internal/sysmon"
	"github.com/agbru/linemax/internal/ui"
)

var planColumns = []column{
	{"Worker", 6, lipgloss.Right},
	{"Start", 10, lipgloss.Right},
	{"End", 10, lipgloss.Right},
	{"Lines", 12, lipgloss.Right},
	{"Share", 7, lipgloss.Right},
}

// FormatPlan renders the executed partition as a table. When the backend
// repartitioned over fewer workers the executed ranges are shown and the
// header says so. Empty ranges are highlighted.
func FormatPlan(plan partition.Plan, outcome dispatch.Outcome, host sysmon.Stats) string {
	ranges := outcome.Ranges
	if len(ranges) == 0 {
		ranges = plan.Ranges
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sPartition plan%s: %s lines over %d workers, policy %s\n",
		ui.ColorBold(), ui.ColorReset(), format.FormatCount(plan.Total), len(ranges), plan.Policy)
	if len(ranges) != plan.Workers() {
		fmt.Fprintf(&b, "%srepartitioned: %d of %d requested workers started%s\n",
			ui.ColorYellow(), len(ranges), plan.Workers(), ui.ColorReset())
	}
	if host.LogicalCPUs > 0 {
		fmt.Fprintf(&b, "%shost: %d logical CPUs, cpu %.1f%%, memory %.1f%% of %s%s\n",
			ui.ColorDim(), host.LogicalCPUs, host.CPUPercent, host.MemPercent,
			format.FormatBytes(host.TotalMemBytes), ui.ColorReset())
		if host.Oversubscribed(len(ranges)) {
			fmt.Fprintf(&b, "%swarning: %d workers exceed %d logical CPUs%s\n",
				ui.ColorYellow(), len(ranges), host.LogicalCPUs, ui.ColorReset())
		}
	}
	b.WriteString("\n")

	rows := make([][]string, len(ranges))
	empty := make(map[int]bool)
	for i, r := range ranges {
		share := "-"
		if plan.Total > 0 {
			share = fmt.Sprintf("%.1f%%", 100*float64(r.Len())/float64(plan.Total))
		}
		rows[i] = []string{
			strconv.Itoa(r.Worker),
			strconv.Itoa(r.Start),
			strconv.Itoa(r.End),
			format.FormatCount(r.Len()),
			share,
		}
		if r.Empty() {
			empty[i] = true
		}
	}
	renderTable(&b, planColumns, rows, empty)
	return b.String()
}

// DisplayPlan writes FormatPlan to out.
func DisplayPlan(out io.Writer, plan partition.Plan, outcome dispatch.Outcome, host sysmon.Stats) {
	fmt.Fprint(out, FormatPlan(plan, outcome, host))
}
