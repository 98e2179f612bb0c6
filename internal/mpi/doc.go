// Package mpi provides the small set of collective operations the process
// backend needs: a join handshake, Bcast from rank 0 and a variable-count
// Gatherv to rank 0.
//
// Rank 0 is the coordinator; ranks 1..Size-1 are child processes. Two
// transports implement Comm:
//
//   - pipe: gob-encoded messages over each child's stdin and stdout.
//   - nats: subjects on a NATS server, usually one embedded in the
//     coordinator, with payloads chunked below the server's max payload.
//
// Every operation must be called in the same order on every rank.
package mpi
