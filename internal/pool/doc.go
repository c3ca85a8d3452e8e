// Package pool dispatches solver jobs onto a fixed set of workers.
//
// Each worker owns one solver instance and runs at most one job at a time.
// Jobs that arrive while every worker is busy wait in a FIFO queue and are
// handed to the next worker that becomes idle. Callers receive a Future that
// settles exactly once with the job's outcome.
package pool
