// File: selector/doc.go
// Author: momentics <momentics@gmail.com>
//
// Package selector implements the non-blocking I/O event dispatch core: a
// Selector wraps one api.Multiplexer, runs a single producer goroutine that
// alternates between processing selected keys, applying queued updates, and
// blocking on the multiplexer, and hands off produced tasks to an
// api.Executor under an eat-what-you-kill execution strategy.
package selector
