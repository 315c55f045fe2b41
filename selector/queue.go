// File: selector/queue.go
// Author: momentics <momentics@gmail.com>
//
// The update queue: O(1) enqueue safe from any goroutine, double-buffered
// drain so applying updates never holds the enqueuer lock (spec §4.1).
// Backed by github.com/eapache/queue, the ring-buffer FIFO the teacher's
// go.mod already depends on.

package selector

import (
	"sync"

	"github.com/eapache/queue"
)

// Update is the closed sum of deferred multiplexer mutations a producer
// applies between waits: Start, Acceptor, Accept, Connect,
// CloseConnections, StopSelector, DumpKeys, and the key-cancel and
// endpoint-destroy teardown updates. Interest-mask changes do not go
// through this queue; Key.SetInterestOps applies them directly.
type Update interface {
	apply(s *Selector) error
}

type updateQueue struct {
	mu        sync.Mutex
	primary   *queue.Queue
	secondary *queue.Queue
	selecting bool
}

func newUpdateQueue() *updateQueue {
	return &updateQueue{primary: queue.New(), secondary: queue.New()}
}

// enqueue appends update. It reports whether the caller must wake the
// multiplexer: if the producer was blocked in select (selecting==true),
// this flips the flag false and returns true exactly once, collapsing
// any number of concurrent enqueues into a single wakeup (spec §4.1,
// invariant 4).
func (q *updateQueue) enqueue(u Update) (shouldWake bool) {
	q.mu.Lock()
	q.primary.Add(u)
	if q.selecting {
		q.selecting = false
		shouldWake = true
	}
	q.mu.Unlock()
	return shouldWake
}

// enqueueFront inserts update ahead of everything already queued, so the
// next drain sees it first — Dump's "next wake drains it immediately"
// contract (spec §4.7).
func (q *updateQueue) enqueueFront(u Update) (shouldWake bool) {
	q.mu.Lock()
	rest := q.primary
	q.primary = queue.New()
	q.primary.Add(u)
	for rest.Length() > 0 {
		q.primary.Add(rest.Remove())
	}
	if q.selecting {
		q.selecting = false
		shouldWake = true
	}
	q.mu.Unlock()
	return shouldWake
}

// drain swaps the primary (enqueue target) and secondary (apply target)
// queues under the lock, mirroring ManagedSelector.SelectorProducer's
// _updates/_updateable swap. The caller applies everything now in
// secondary, without holding the lock, then calls clear.
func (q *updateQueue) drain() *queue.Queue {
	q.mu.Lock()
	q.primary, q.secondary = q.secondary, q.primary
	q.mu.Unlock()
	return q.secondary
}

func (q *updateQueue) clear() {
	for q.secondary.Length() > 0 {
		q.secondary.Remove()
	}
}

// finishUpdates re-checks the primary queue after a drained batch has
// been applied: if nothing raced in meanwhile, selecting is set true and
// the producer may safely block on the multiplexer.
func (q *updateQueue) finishUpdates() (selecting bool, pending int) {
	q.mu.Lock()
	pending = q.primary.Length()
	q.selecting = pending == 0
	selecting = q.selecting
	q.mu.Unlock()
	return selecting, pending
}

// stopSelecting clears the selecting flag unconditionally, called once
// the multiplexer wait returns with a result to process.
func (q *updateQueue) stopSelecting() {
	q.mu.Lock()
	q.selecting = false
	q.mu.Unlock()
}

// size reports the number of updates currently enqueued (not yet
// drained) — used by Selector.String().
func (q *updateQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.primary.Length()
}

// pending snapshots the updates currently queued, without draining them
// — used by Dump to capture the "updates @ <time>" view coherently with
// the dumping thread's vantage point.
func (q *updateQueue) pending() []Update {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.primary.Length()
	out := make([]Update, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, q.primary.Get(i).(Update))
	}
	return out
}
