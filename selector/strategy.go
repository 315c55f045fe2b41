// File: selector/strategy.go
// Author: momentics <momentics@gmail.com>
//
// EatWhatYouKill: the producing goroutine runs the task it just
// produced, handing the duty to produce further tasks off to the worker
// pool first — cache-hot, no handoff cost for the task itself, matching
// spec §4.3 and Jetty's org.eclipse.jetty.util.thread.strategy.EatWhatYouKill.
// The teacher has no direct analog for this policy; it is modeled after
// the original using the teacher's own Executor.Submit idiom.

package selector

import "github.com/snail-lb/go-managed-selector/api"

type strategy struct {
	producer *producer
	executor api.Executor
}

func newStrategy(p *producer, executor api.Executor) *strategy {
	return &strategy{producer: p, executor: executor}
}

// run produces exactly one task, hands the produce-next duty to the
// pool, then eats (runs) the task it just killed (produced) on this
// goroutine. If the pool rejects the handoff, the duty is dropped and
// logged rather than retried indefinitely — by then either the selector
// is stopping (mux released, the next produce call exits cleanly) or
// the pool is persistently saturated, an operational condition outside
// this core's scope.
func (st *strategy) run() {
	task, ok := st.producer.produce()
	if !ok {
		return
	}
	if err := st.executor.Submit(st.run); err != nil {
		st.producer.sel.logf("cannot hand off produce duty: %v", err)
	}
	task()
}
