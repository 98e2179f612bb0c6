package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a set of ANSI escapes for diagnostic text on stderr.
type Theme struct {
	Name      string
	Primary   string
	Secondary string
	Warning   string
	Bold      string
	Reset     string
}

// TableTheme holds the lipgloss colors used by the plan and history tables.
type TableTheme struct {
	Header lipgloss.TerminalColor
	Border lipgloss.TerminalColor
	Cell   lipgloss.TerminalColor
	Dim    lipgloss.TerminalColor
	Warn   lipgloss.TerminalColor
}

var (
	// DarkTheme is the default palette, tuned for dark terminals.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   "\033[38;5;39m",
		Secondary: "\033[38;5;245m",
		Warning:   "\033[38;5;220m",
		Bold:      "\033[1m",
		Reset:     "\033[0m",
	}

	// NoColorTheme emits no escapes at all.
	NoColorTheme = Theme{Name: "none"}

	DarkTableTheme = TableTheme{
		Header: lipgloss.Color("39"),
		Border: lipgloss.Color("240"),
		Cell:   lipgloss.Color("252"),
		Dim:    lipgloss.Color("245"),
		Warn:   lipgloss.Color("220"),
	}

	NoColorTableTheme = TableTheme{
		Header: lipgloss.NoColor{},
		Border: lipgloss.NoColor{},
		Cell:   lipgloss.NoColor{},
		Dim:    lipgloss.NoColor{},
		Warn:   lipgloss.NoColor{},
	}

	themeMu      sync.RWMutex
	currentTheme = DarkTheme
)

// GetCurrentTheme returns the active theme.
func GetCurrentTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// GetCurrentTableTheme returns the table palette matching the active theme.
func GetCurrentTableTheme() TableTheme {
	if GetCurrentTheme().Name == NoColorTheme.Name {
		return NoColorTableTheme
	}
	return DarkTableTheme
}

// SetCurrentTheme replaces the active theme. Tests use it to restore state.
func SetCurrentTheme(t Theme) {
	themeMu.Lock()
	defer themeMu.Unlock()
	currentTheme = t
}

// InitTheme selects NoColorTheme when noColor is set or the NO_COLOR
// environment variable exists (https://no-color.org/), DarkTheme otherwise.
func InitTheme(noColor bool) {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		noColor = true
	}
	if noColor {
		SetCurrentTheme(NoColorTheme)
		return
	}
	SetCurrentTheme(DarkTheme)
}
