package cli

import (
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/linemax/internal/orchestration"
	"github.com/agbru/linemax/internal/ui"
)

// ProgressRefreshRate defines the refresh frequency of the spinner.
const ProgressRefreshRate = 100 * time.Millisecond

// Spinner is an interface that abstracts the behavior of a terminal spinner,
// so the progress reporter can be tested without a terminal.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation and clears its line.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() {
	rs.s.Start()
}

func (rs *realSpinner) Stop() {
	rs.s.Stop()
}

// UpdateSuffix sets the suffix under the spinner's lock; the animation
// goroutine reads it concurrently.
func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// SpinnerProgressReporter implements orchestration.ProgressReporter with a
// spinner whose suffix names the current pipeline phase. The spinner only
// animates when its writer is a terminal.
type SpinnerProgressReporter struct {
	mu      sync.Mutex
	spinner Spinner
}

var _ orchestration.ProgressReporter = (*SpinnerProgressReporter)(nil)

// Start creates the spinner on out and starts it.
func (r *SpinnerProgressReporter) Start(out io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner != nil {
		return
	}
	r.spinner = newSpinner(spinner.WithWriter(out), spinner.WithHiddenCursor(true))
	r.spinner.Start()
}

// Phase shows p and its detail next to the spinner.
func (r *SpinnerProgressReporter) Phase(p orchestration.Phase, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner == nil {
		return
	}
	r.spinner.UpdateSuffix(FormatPhase(p, detail))
}

// Stop halts the spinner. It is safe to call more than once.
func (r *SpinnerProgressReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner == nil {
		return
	}
	r.spinner.Stop()
	r.spinner = nil
}

// FormatPhase returns the spinner suffix for a phase.
func FormatPhase(p orchestration.Phase, detail string) string {
	s := " " + ui.ColorPrimary() + p.String() + ui.ColorReset()
	if detail != "" {
		s += ui.ColorDim() + " " + detail + ui.ColorReset()
	}
	return s
}
