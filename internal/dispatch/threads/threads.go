// Package threads implements the shared-memory backend: one goroutine per
// work range, each writing its own slice of the result vector.
package threads

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/logging"
	"github.com/agbru/linemax/internal/partition"
	"github.com/agbru/linemax/internal/reduce"
)

// Dispatcher is the threads backend.
type Dispatcher struct {
	logger logging.Logger
}

var _ dispatch.Dispatcher = (*Dispatcher)(nil)

// New returns a threads dispatcher. A nil logger discards output.
func New(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Name() string { return dispatch.BackendThreads }

// Dispatch starts exactly one goroutine per range in plan and waits for all
// of them. Goroutines write disjoint sub-slices of the result vector, so no
// locking is needed.
func (d *Dispatcher) Dispatch(ctx context.Context, store *linestore.Store, plan partition.Plan) (dispatch.Outcome, error) {
	total := store.Len()
	if err := partition.Validate(plan.Ranges, total); err != nil {
		return dispatch.Outcome{}, err
	}

	results := make([]int, total)
	var g errgroup.Group
	started := 0
	for _, r := range plan.Ranges {
		g.Go(func() error {
			reduce.Range(store, r, results[r.Start:r.End])
			return nil
		})
		started++
	}
	if err := g.Wait(); err != nil {
		return dispatch.Outcome{}, err
	}

	d.logger.Debug("threads dispatch finished", logging.Int("workers", started), logging.Int("lines", total))
	return dispatch.Outcome{WorkersStarted: started, Ranges: plan.Ranges, Results: results}, nil
}
