// File: selector/producer.go
// Author: momentics <momentics@gmail.com>
//
// The single-consumer producer state machine (spec §4.2), grounded on
// ManagedSelector.SelectorProducer. Its entire state lives on the struct
// so a call to produce can suspend (return a task) and resume (the next
// call) without any local-variable state surviving in between — the
// property the execution strategy in strategy.go depends on.

package selector

import (
	"fmt"

	"github.com/snail-lb/go-managed-selector/api"
)

type producer struct {
	sel       *Selector
	readyKeys []*Key
	cursor    int
	eventBuf  []api.Event
}

func newProducer(sel *Selector) *producer {
	return &producer{sel: sel, eventBuf: make([]api.Event, 256)}
}

// produce returns one task to run, or (nil, false) once the selector
// should stop producing — either the multiplexer was released by a
// StopSelector update or the wait failed fatally.
func (p *producer) produce() (api.Task, bool) {
	for {
		if task, ok := p.processSelected(); ok {
			return task, true
		}
		p.processUpdates()
		p.updateKeysPostProcess()
		if !p.selectWait() {
			return nil, false
		}
	}
}

// processSelected advances the cursor over the last wait's ready set.
func (p *producer) processSelected() (api.Task, bool) {
	for p.cursor < len(p.readyKeys) {
		key := p.readyKeys[p.cursor]
		p.cursor++

		if !key.valid {
			continue
		}

		switch att := key.attachment.(type) {
		case *endpointAttachment:
			task, hasTask := p.safeOnSelected(att.endpoint, key)
			if hasTask {
				return task, true
			}
		case *connectAttachment:
			if key.readyOps.Has(api.OpConnect) {
				p.sel.processConnect(key, att.connect)
			}
		default:
			p.sel.logf("selected key fd=%d with no attachment", key.fd)
		}
	}
	return nil, false
}

// safeOnSelected isolates a misbehaving endpoint: a panic from
// OnSelected closes the endpoint and is treated like any other per-key
// processing error (spec §7), never escaping to the producer loop.
func (p *producer) safeOnSelected(endpoint api.Selectable, key *Key) (task api.Task, hasTask bool) {
	defer func() {
		if r := recover(); r != nil {
			p.sel.logf("panic processing key fd=%d: %v", key.fd, r)
			cancelAndTeardown(p.sel, key, fmt.Errorf("panic in OnSelected: %v", r))
			task, hasTask = nil, false
		}
	}()
	return endpoint.OnSelected(key.readyOps)
}

// processUpdates swaps the queue and applies every update drained,
// exactly the original's processUpdates. If updates arrived while this
// batch was being applied, it wakes the multiplexer so the imminent
// select() returns immediately instead of blocking, letting produce's
// outer loop revisit processUpdates on the next pass.
func (p *producer) processUpdates() {
	sel := p.sel
	drained := sel.updates.drain()
	n := drained.Length()
	for i := 0; i < n; i++ {
		u, ok := drained.Remove().(Update)
		if !ok || sel.mux == nil {
			continue
		}
		p.applyOne(u)
	}
	sel.updates.clear()

	selecting, _ := sel.updates.finishUpdates()
	if !selecting && sel.mux != nil {
		_ = sel.mux.Wake()
	}
}

// applyOne swallows both returned errors and panics: one bad update must
// not abort the loop (spec §4.2 step 2, §7).
func (p *producer) applyOne(u Update) {
	defer func() {
		if r := recover(); r != nil {
			p.sel.logf("panic applying update: %v", r)
		}
	}()
	if err := u.apply(p.sel); err != nil {
		p.sel.logf("cannot apply update: %v", err)
	}
}

// updateKeysPostProcess invokes each previously-ready key's updateKey
// hook exactly once, then clears the ready set (spec §4.2 step 4).
func (p *producer) updateKeysPostProcess() {
	for _, key := range p.readyKeys {
		if endpoint, ok := key.selectable(); ok {
			p.safeUpdateKey(endpoint, key)
		}
	}
	p.readyKeys = nil
	p.cursor = 0
}

func (p *producer) safeUpdateKey(endpoint api.Selectable, key *Key) {
	defer func() {
		if r := recover(); r != nil {
			p.sel.logf("panic in UpdateKey for fd=%d: %v", key.fd, r)
		}
	}()
	endpoint.UpdateKey()
}

// selectWait blocks on the multiplexer and, on success, snapshots the
// ready set for the next processSelected pass.
func (p *producer) selectWait() bool {
	sel := p.sel
	if sel.mux == nil {
		return false
	}

	n, err := sel.mux.Wait(p.eventBuf, -1)
	if err != nil {
		sel.onMultiplexerFailure(err)
		return false
	}

	if n == 0 && sel.cfg.forcePollAfterZero() {
		n, err = sel.mux.Wait(p.eventBuf, 0)
		if err != nil {
			sel.onMultiplexerFailure(err)
			return false
		}
	}

	sel.updates.stopSelecting()
	p.readyKeys = p.snapshotReady(p.eventBuf[:n])
	p.cursor = 0
	return true
}

func (p *producer) snapshotReady(events []api.Event) []*Key {
	sel := p.sel
	keys := make([]*Key, 0, len(events))
	for _, ev := range events {
		key, ok := sel.keys[ev.Fd]
		if !ok || !key.valid {
			continue
		}
		key.readyOps = ev.Ops
		keys = append(keys, key)
	}
	return keys
}
