// File: api/endpoint.go
// Author: momentics <momentics@gmail.com>
//
// The Endpoint Callback Contract: the minimal surface a channel's
// attachment must offer so the selector can dispatch readiness to it and
// let it adjust its own interest mask afterwards.

package api

// Task is a unit of work a Selectable produces in response to readiness.
// It may block; the execution strategy decides who runs it.
type Task func()

// Channel is the minimal surface the selector needs from a registered
// network channel: a raw descriptor to hand to the multiplexer and a way
// to close it on error paths the selector itself discovers.
type Channel interface {
	Fd() uintptr
	Close() error
}

// Selectable is the callback contract a key's attachment implements when
// it is a live endpoint rather than a connect request or acceptor. Both
// methods are invoked only from the owning selector's producer goroutine.
type Selectable interface {
	// OnSelected is called with the readiness reported for this key.
	// It returns a task to run (possibly blocking) or ok=false to mean
	// "nothing to do"; implementations must not re-enter the selector
	// synchronously.
	OnSelected(ready Ops) (task Task, ok bool)

	// UpdateKey runs once per wait cycle, after all keys selected in that
	// cycle have been processed, letting the endpoint enqueue an update to
	// change its own interest mask.
	UpdateKey()
}

// Connection is an opaque value representing the protocol-level object
// built atop an endpoint; the selector core never inspects it, only
// forwards it to the Manager's lifecycle callbacks.
type Connection any
