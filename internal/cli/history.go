package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/linemax/internal/format"
	"github.com/agbru/linemax/internal/history"
	"github.com/agbru/linemax/internal/ui"
)

var historyColumns = []column{
	{"When", 16, lipgloss.Left},
	{"Backend", 9, lipgloss.Left},
	{"Policy", 6, lipgloss.Left},
	{"Workers", 7, lipgloss.Right},
	{"Lines", 11, lipgloss.Right},
	{"Size", 10, lipgloss.Right},
	{"Runtime", 10, lipgloss.Right},
	{"RSS", 10, lipgloss.Right},
	{"Input", 28, lipgloss.Left},
}

// FormatHistory renders recorded runs, newest first as returned by
// history.Store.List. Runs that used fewer workers than requested are
// highlighted.
func FormatHistory(runs []history.Run) string {
	var b strings.Builder
	if len(runs) == 0 {
		b.WriteString("No runs recorded.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%s%d recorded runs%s\n\n", ui.ColorBold(), len(runs), ui.ColorReset())

	rows := make([][]string, len(runs))
	short := make(map[int]bool)
	for i, r := range runs {
		workers := strconv.Itoa(r.WorkersUsed)
		if r.WorkersUsed != r.WorkersRequested {
			workers = fmt.Sprintf("%d/%d", r.WorkersUsed, r.WorkersRequested)
			short[i] = true
		}
		rows[i] = []string{
			format.FormatSince(r.StartedAt),
			r.Backend,
			r.Policy,
			workers,
			format.FormatCount(r.Lines),
			format.FormatBytes(uint64(r.Bytes)),
			format.FormatExecutionDuration(r.Runtime),
			format.FormatKB(r.PhysicalKB),
			r.Input,
		}
	}
	renderTable(&b, historyColumns, rows, short)
	return b.String()
}

// DisplayHistory writes FormatHistory to out.
func DisplayHistory(out io.Writer, runs []history.Run) {
	fmt.Fprint(out, FormatHistory(runs))
}
