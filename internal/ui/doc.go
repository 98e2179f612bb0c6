// Package ui provides theme and color support for the command-line output.
// It defines the ANSI color schemes used for diagnostics and the lipgloss
// palette used for tables. Colors are only ever written to stderr; the
// result stream on stdout is never colorized.
package ui
