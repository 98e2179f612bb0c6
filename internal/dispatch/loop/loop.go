// Package loop implements the data-parallel loop backend: a fixed pool of
// goroutines claims chunks of line indices from a shared cursor until every
// line has been reduced.
package loop

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/logging"
	"github.com/agbru/linemax/internal/parallel"
	"github.com/agbru/linemax/internal/partition"
	"github.com/agbru/linemax/internal/reduce"
)

// Dispatcher is the loop backend.
type Dispatcher struct {
	logger logging.Logger
	chunk  int
}

var _ dispatch.Dispatcher = (*Dispatcher)(nil)

// New returns a loop dispatcher. chunk is the number of indices a worker
// claims at a time; 0 picks one from the line and worker counts.
func New(logger logging.Logger, chunk int) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{logger: logger, chunk: chunk}
}

func (d *Dispatcher) Name() string { return dispatch.BackendLoop }

// Dispatch runs plan.Workers() goroutines over the whole index space. The
// plan's ranges do not drive scheduling and are returned for display.
func (d *Dispatcher) Dispatch(ctx context.Context, store *linestore.Store, plan partition.Plan) (dispatch.Outcome, error) {
	total := store.Len()
	if err := partition.Validate(plan.Ranges, total); err != nil {
		return dispatch.Outcome{}, err
	}

	chunk := d.chunk
	if chunk < 1 {
		chunk = parallel.ChunkFor(total, plan.Workers())
	}
	cursor := parallel.NewChunkCursor(total, chunk)
	results := make([]int, total)

	var g errgroup.Group
	for w := 0; w < plan.Workers(); w++ {
		g.Go(func() error {
			for {
				start, end, ok := cursor.Next()
				if !ok {
					return nil
				}
				for i := start; i < end; i++ {
					results[i] = reduce.MaxByte(store.Line(i))
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return dispatch.Outcome{}, err
	}

	d.logger.Debug("loop dispatch finished",
		logging.Int("workers", plan.Workers()), logging.Int("chunk", chunk), logging.Int("lines", total))
	return dispatch.Outcome{WorkersStarted: plan.Workers(), Ranges: plan.Ranges, Results: results}, nil
}
