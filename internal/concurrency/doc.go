// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free worker pool and timer scheduler shared across every selector
// a manager.SelectorManager owns. Not part of the public API surface —
// package selector depends on it only through api.Executor and
// api.Scheduler; package manager constructs the concrete WorkerPool and
// Scheduler and hands them to each selector.
package concurrency
