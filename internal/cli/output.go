// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions write formatted output to an [io.Writer].
//     Examples: [DisplayResults], [DisplayMetrics], [DisplayPlan].
//
//   - Format* functions return a formatted string without performing I/O.
//     Examples: [FormatResultLine], [FormatMetricsBlock].
//
//   - Write* functions write data to files on the filesystem.
//     Examples: [WriteMetricsFile].

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agbru/linemax/internal/metrics"
)

// FormatResultLine formats the result of line i as "i: v".
func FormatResultLine(i, v int) string {
	return strconv.Itoa(i) + ": " + strconv.Itoa(v)
}

// DisplayResults writes one "i: v" line per result in index order. Output
// is buffered and flushed once.
func DisplayResults(out io.Writer, results []int) error {
	w := bufio.NewWriterSize(out, 64*1024)
	var buf []byte
	for i, v := range results {
		buf = strconv.AppendInt(buf[:0], int64(i), 10)
		buf = append(buf, ':', ' ')
		buf = strconv.AppendInt(buf, int64(v), 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

// splitTimeval splits d into whole seconds and the remaining microseconds.
// Negative durations are reported as zero.
func splitTimeval(d time.Duration) (sec, usec int64) {
	if d < 0 {
		return 0, 0
	}
	return int64(d / time.Second), (d % time.Second).Microseconds()
}

// FormatMetricsBlock renders the resource summary, framed by a leading and a
// trailing blank line.
func FormatMetricsBlock(rep metrics.Report) string {
	var b strings.Builder
	userSec, userUsec := splitTimeval(rep.CPU.User)
	sysSec, sysUsec := splitTimeval(rep.CPU.System)
	runtime := rep.Runtime.Microseconds()
	if runtime < 0 {
		runtime = 0
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Total runtime: %d microseconds\n", runtime)
	fmt.Fprintf(&b, "User CPU time used: %d seconds, %d microseconds\n", userSec, userUsec)
	fmt.Fprintf(&b, "System CPU time used: %d seconds, %d microseconds\n", sysSec, sysUsec)
	fmt.Fprintf(&b, "Virtual memory used: %d KB\n", rep.Memory.VirtualKB)
	fmt.Fprintf(&b, "Physical memory used: %d KB\n", rep.Memory.PhysicalKB)
	fmt.Fprintf(&b, "Workers used: %d\n", rep.Workers)
	b.WriteString("\n")
	return b.String()
}

// DisplayMetrics writes the metrics block to out.
func DisplayMetrics(out io.Writer, rep metrics.Report) error {
	_, err := io.WriteString(out, FormatMetricsBlock(rep))
	return err
}

// WriteMetricsFile writes the recorder's metrics in Prometheus text format to
// path, creating parent directories as needed. An empty path is a no-op.
func WriteMetricsFile(path string, rec *metrics.Recorder) error {
	if path == "" || rec == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := rec.WriteToTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
