// Package format holds the small value formatters shared by the table and
// diagnostic output.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatExecutionDuration formats a time.Duration for display.
// It shows microseconds for durations less than a millisecond, milliseconds for
// durations less than a second, and the default string representation otherwise.
func FormatExecutionDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

// FormatBytes renders a byte count with IEC units ("1.5 MiB").
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}

// FormatKB renders a kilobyte count with IEC units.
func FormatKB(kb uint64) string {
	return humanize.IBytes(kb * 1024)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatSince renders t relative to now ("3 minutes ago").
func FormatSince(t time.Time) string {
	return humanize.Time(t)
}
