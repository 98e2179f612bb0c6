package procs

import (
	"context"
	"fmt"

	"github.com/agbru/linemax/internal/collect"
	apperrors "github.com/agbru/linemax/internal/errors"
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/mpi"
	"github.com/agbru/linemax/internal/partition"
	"github.com/agbru/linemax/internal/reduce"
)

// exchange runs the collective sequence for one rank. On rank 0 store is the
// input and the assembled result vector is returned; on other ranks store is
// nil and is received from rank 0.
func exchange(ctx context.Context, comm mpi.Comm, policy partition.Policy, store *linestore.Store) ([]partition.WorkRange, []int, error) {
	rank := comm.Rank()

	count := 0
	var snap linestore.Snapshot
	if rank == 0 {
		count = store.Len()
		snap = store.Snapshot()
	}
	if err := comm.Bcast(ctx, &count); err != nil {
		return nil, nil, err
	}
	if err := comm.Bcast(ctx, &snap); err != nil {
		return nil, nil, err
	}
	if rank != 0 {
		s, err := linestore.FromSnapshot(snap)
		if err != nil {
			return nil, nil, apperrors.CollectiveError{Op: "bcast", Rank: rank, Cause: err}
		}
		if s.Len() != count {
			return nil, nil, apperrors.CollectiveError{
				Op: "bcast", Rank: rank,
				Cause: fmt.Errorf("received %d lines, count was %d", s.Len(), count),
			}
		}
		store = s
	}

	ranges, err := partition.Partition(count, comm.Size(), policy)
	if err != nil {
		return nil, nil, err
	}
	own := ranges[rank]
	local := make([]int, own.Len())
	reduce.Range(store, own, local)

	counts, displs := collect.Displacements(ranges)
	var recv []int
	if rank == 0 {
		recv = make([]int, count)
	}
	if err := comm.Gatherv(ctx, local, recv, counts, displs); err != nil {
		return nil, nil, err
	}
	return ranges, recv, nil
}
