// Package orchestration runs one reduction end to end: it loads the input,
// partitions it, hands the plan to a dispatch backend and presents the
// assembled results. Presentation and progress display are reached through
// the ResultPresenter, PlanPresenter and ProgressReporter interfaces so the
// pipeline never depends on the CLI.
package orchestration
