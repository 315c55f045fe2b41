// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-precision timer scheduler backed by a binary heap, used to drive
// connect timeouts for selector.Connect updates.

package concurrency

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snail-lb/go-managed-selector/api"
)

// timerTask is one scheduled callback. cancelled is an atomic.Bool, not
// a plain bool guarded by the scheduler's mutex, because Cancel is
// called from arbitrary caller goroutines while the run loop reads it
// both under and outside that lock (run holds it, fireDue doesn't).
type timerTask struct {
	when      time.Time
	fn        func()
	index     int
	cancelled atomic.Bool
}

// Cancel marks the task cancelled; a cancelled task's fn is skipped when
// its turn comes, even if it has already fired into the run loop's queue.
func (t *timerTask) Cancel() bool {
	if t == nil {
		return false
	}
	return !t.cancelled.Swap(true)
}

type taskHeap []*timerTask

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*timerTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler is a single goroutine, mutex-guarded timer wheel.
type Scheduler struct {
	mu     sync.Mutex
	timerQ taskHeap
	notify chan struct{}
	stop   chan struct{}
	once   sync.Once
}

// NewScheduler starts a new Scheduler and its background run loop.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Schedule arranges for fn to run after delay, returning a handle that can
// cancel it before it fires.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) (api.Cancelable, error) {
	task := &timerTask{when: time.Now().Add(delay), fn: fn}
	s.mu.Lock()
	heap.Push(&s.timerQ, task)
	s.mu.Unlock()
	s.wake()
	return task, nil
}

// Now returns the current time; a seam for tests that need fake clocks.
func (s *Scheduler) Now() time.Time {
	return time.Now()
}

// Close stops the run loop; pending tasks never fire.
func (s *Scheduler) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Scheduler) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		s.mu.Lock()
		for s.timerQ.Len() > 0 && s.timerQ[0].cancelled.Load() {
			heap.Pop(&s.timerQ)
		}
		var wait time.Duration
		if s.timerQ.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.timerQ[0].when)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		timer.Reset(wait)
		select {
		case <-s.stop:
			return
		case <-s.notify:
			continue
		case <-timer.C:
			s.fireDue()
		}
	}
}

func (s *Scheduler) fireDue() {
	now := time.Now()
	var due []*timerTask
	s.mu.Lock()
	for s.timerQ.Len() > 0 && !s.timerQ[0].when.After(now) {
		due = append(due, heap.Pop(&s.timerQ).(*timerTask))
	}
	s.mu.Unlock()

	for _, t := range due {
		// Claiming the flag before firing makes a later Cancel report false.
		if t.cancelled.CompareAndSwap(false, true) {
			t.fn()
		}
	}
}
