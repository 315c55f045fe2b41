// Package api
// Author: momentics
//
// Scheduler contract for high-precision timed job execution, used to drive
// connect timeouts.

package api

import "time"

// Cancelable is a handle to a scheduled callback.
type Cancelable interface {
	// Cancel prevents a not-yet-fired callback from running. It returns
	// true if the callback was still pending at the time of the call.
	Cancel() bool
}

// Scheduler abstracts timer scheduling for async/highload loops.
type Scheduler interface {
	// Schedule arranges for fn to run after delay elapses.
	Schedule(delay time.Duration, fn func()) (Cancelable, error)

	// Now returns the scheduler's notion of the current time.
	Now() time.Time
}
