package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/linemax/internal/ui"
)

// column describes one fixed-width table column shared by header and rows.
type column struct {
	title string
	width int
	align lipgloss.Position
}

// tableWidth returns the total width of a row: a two-space left pad plus one
// space between columns.
func tableWidth(cols []column) int {
	w := 2
	for i, c := range cols {
		if i > 0 {
			w++
		}
		w += c.width
	}
	return w
}

// renderRow joins cells using each column's width and alignment.
func renderRow(cols []column, cells []string, style lipgloss.Style) string {
	parts := make([]string, 0, 2*len(cols)+1)
	parts = append(parts, "  ")
	for i, c := range cols {
		if i > 0 {
			parts = append(parts, " ")
		}
		cell := ""
		if i < len(cells) {
			cell = truncateString(cells[i], c.width)
		}
		parts = append(parts, style.Width(c.width).Align(c.align).Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderTable renders a header, a separator and rows. Rows listed in warn
// are drawn in the theme's warning color.
func renderTable(b *strings.Builder, cols []column, rows [][]string, warn map[int]bool) {
	theme := ui.GetCurrentTableTheme()
	header := lipgloss.NewStyle().Foreground(theme.Header).Bold(true)
	cell := lipgloss.NewStyle().Foreground(theme.Cell)
	warnCell := lipgloss.NewStyle().Foreground(theme.Warn)
	border := lipgloss.NewStyle().Foreground(theme.Border)

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}
	b.WriteString(renderRow(cols, titles, header))
	b.WriteString("\n")
	b.WriteString(border.Render("  " + strings.Repeat("━", tableWidth(cols)-2)))
	b.WriteString("\n")

	for i, row := range rows {
		style := cell
		if warn[i] {
			style = warnCell
		}
		b.WriteString(renderRow(cols, row, style))
		b.WriteString("\n")
	}
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
