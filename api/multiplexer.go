// File: api/multiplexer.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the OS readiness multiplexer
// (epoll/kqueue/IOCP-equivalent) that a selector.Selector wraps. Concrete
// backends live in package reactor.

package api

import "time"

// Ops is a bitset over the interest/readiness operations a registration
// cares about.
type Ops uint8

const (
	OpAccept  Ops = 1 << iota // channel is a passive listener ready to accept
	OpConnect                // non-blocking connect completed (or failed)
	OpRead                   // channel has data ready to read
	OpWrite                  // channel can accept a write without blocking
)

func (o Ops) Has(flag Ops) bool { return o&flag != 0 }

// Event is one readiness notification returned by a Wait call.
type Event struct {
	Fd       uintptr // file descriptor or system handle
	Ops      Ops     // readiness reported by the kernel for this Fd
	UserData uintptr // opaque value supplied at Register, echoed back verbatim
}

// Multiplexer is the common interface over epoll, kqueue, and IOCP-style
// readiness primitives. All methods except Wake are called only from the
// owning selector's producer goroutine; Wake may be called from any
// goroutine to interrupt a concurrent Wait.
type Multiplexer interface {
	// Register associates fd with the multiplexer under the given interest
	// mask, attaching userData for retrieval from returned Events.
	Register(fd uintptr, ops Ops, userData uintptr) error

	// Modify changes the interest mask for an already-registered fd.
	Modify(fd uintptr, ops Ops) error

	// Unregister removes fd from the interest set.
	Unregister(fd uintptr) error

	// Wait blocks up to timeout (negative means indefinitely) and fills
	// events with ready registrations, returning the count written.
	Wait(events []Event, timeout time.Duration) (int, error)

	// Wake interrupts a concurrent Wait with zero events reported, the
	// Go-idiomatic analog of java.nio.channels.Selector.wakeup().
	Wake() error

	// Close releases the underlying kernel object. Not reusable after.
	Close() error
}
