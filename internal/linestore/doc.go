// Package linestore holds the ordered input lines of a run.
//
// All line bytes live in a single contiguous arena and each line is an
// (offset, length) view into it, so loading performs one growing allocation
// instead of one buffer per line and there is nothing to free individually.
// The store is built once by the orchestrator before any worker starts and is
// shared read-only afterwards.
package linestore
