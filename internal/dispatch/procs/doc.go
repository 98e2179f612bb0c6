// Package procs implements the cooperating-processes backend.
//
// The coordinator is rank 0. It re-executes the current binary once per extra
// worker with the hidden "worker" command. Every child joins a single process
// group so that a fatal error can kill them all at once. Only children that
// actually started receive ranks, and the group size is 1 plus that count.
//
// Every rank, the coordinator included, runs the same sequence:
//
//  1. join (rank, size, policy)
//  2. Bcast the line count
//  3. Bcast the line arena
//  4. partition locally and reduce its own range
//  5. Gatherv the partial results to rank 0
package procs
