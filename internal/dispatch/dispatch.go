//go:generate mockgen -destination=mocks/mock_dispatcher.go -package=mocks github.com/agbru/linemax/internal/dispatch Dispatcher

// Package dispatch defines the contract shared by the concurrency backends
// that reduce every line of a Store over a partition plan.
//
// Three backends implement Dispatcher:
//
//   - threads (package threads): one goroutine per range over shared memory.
//   - loop (package loop): a fixed pool pulling index chunks from a cursor.
//   - processes (package procs): cooperating child processes that exchange
//     the input and results through collective operations.
//
// For the same Store every backend produces the same Results.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/partition"
)

// Backend names as accepted on the command line.
const (
	BackendThreads   = "threads"
	BackendLoop      = "loop"
	BackendProcesses = "processes"
)

// Backends returns the known backend names in display order.
func Backends() []string {
	return []string{BackendThreads, BackendLoop, BackendProcesses}
}

// ParseBackend normalizes a backend name. The empty string selects threads.
func ParseBackend(s string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return BackendThreads, nil
	case BackendThreads, BackendLoop, BackendProcesses:
		return name, nil
	case "procs", "mpi":
		return BackendProcesses, nil
	}
	return "", fmt.Errorf("unknown backend %q (want %s)", s, strings.Join(Backends(), ", "))
}

// Dispatcher runs the reduction of store over plan and returns the assembled
// result vector. Dispatch returns only after every worker it started has
// finished.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, store *linestore.Store, plan partition.Plan) (Outcome, error)
}

// Outcome is what a dispatch actually did.
type Outcome struct {
	// WorkersStarted is the number of workers that ran, which may be below the
	// plan's worker count when some could not be started.
	WorkersStarted int
	// Ranges is the partition that was executed. It differs from the plan
	// when the backend had to repartition over fewer workers.
	Ranges []partition.WorkRange
	// Results holds one value per line, in line order.
	Results []int
	// StartErr is set when fewer workers started than were requested. The run
	// still succeeded over WorkersStarted workers.
	StartErr error
}

// Check verifies the outcome covers total lines.
func (o Outcome) Check(total int) error {
	if len(o.Results) != total {
		return fmt.Errorf("dispatch: %d results for %d lines", len(o.Results), total)
	}
	if o.WorkersStarted < 1 {
		return fmt.Errorf("dispatch: no workers ran")
	}
	return partition.Validate(o.Ranges, total)
}
