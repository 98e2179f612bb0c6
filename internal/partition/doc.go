// Package partition decides which contiguous slice of line indices each
// worker processes. Two remainder policies are supported: RemainderSpread
// (the default) and RemainderToLast.
package partition
