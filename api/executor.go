// Package api
// Author: momentics
//
// Executor contract for parallel task dispatch. The producer hands a
// produced task to an Executor either to run it concurrently with further
// production, or to hand off the produce duty itself (see the execution
// strategy in package selector).

package api

// Executor abstracts the worker pool shared across every selector owned by
// a manager. Submit must reject once the executor is shutting down; a
// rejected task that is also io.Closer-like should be closed by the caller.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of active worker routines.
	NumWorkers() int
}
