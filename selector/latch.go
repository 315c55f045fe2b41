// File: selector/latch.go
// Author: momentics <momentics@gmail.com>
//
// One-shot rendezvous between an update's submitter and the producer
// that applies it. Never reused across cycles, per spec §9.

package selector

import "sync"

type latch struct {
	ch   chan struct{}
	once sync.Once
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

// signal fires the latch. Safe to call more than once; only the first
// call has effect.
func (l *latch) signal() {
	l.once.Do(func() { close(l.ch) })
}

// C returns the channel that closes when signal is called.
func (l *latch) C() <-chan struct{} {
	return l.ch
}
