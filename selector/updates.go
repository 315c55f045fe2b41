// File: selector/updates.go
// Author: momentics <momentics@gmail.com>
//
// The closed set of update variants (spec §4.4), each a small struct with
// a single apply(*Selector) error method, grounded on ManagedSelector's
// nested Start/Acceptor/Accept/Connect/CloseConnections/StopSelector/
// DumpKeys classes.

package selector

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/snail-lb/go-managed-selector/api"
)

// startUpdate marks the selector running and releases Start's caller.
type startUpdate struct {
	done *latch
}

func (u *startUpdate) apply(s *Selector) error {
	s.started.Store(true)
	u.done.signal()
	return nil
}

// Acceptor is a long-lived passive registration: it registers a server
// channel with accept-interest once, then accepts in a loop on every
// readiness until the kernel reports "would block". It implements
// api.Selectable directly, exactly as the original's Acceptor implements
// Selectable rather than carrying a separate attachment kind.
type Acceptor struct {
	sel     *Selector
	channel api.Channel
	key     *Key
}

// NewAcceptor builds an update that registers channel for accept
// readiness on sel. Submit it to install the acceptor.
func NewAcceptor(sel *Selector, channel api.Channel) *Acceptor {
	return &Acceptor{sel: sel, channel: channel}
}

func (a *Acceptor) apply(s *Selector) error {
	if a.key != nil {
		return nil
	}
	key, err := s.registerKey(a.channel.Fd(), api.OpAccept, nil)
	if err != nil {
		_ = a.channel.Close()
		return api.NewError(api.ErrCodeResourceExhausted, "register acceptor").
			WithContext("fd", a.channel.Fd()).WithContext("cause", err.Error())
	}
	key.attachment = &endpointAttachment{endpoint: a}
	a.key = key
	return nil
}

// OnSelected drains every pending connection on the listening socket.
func (a *Acceptor) OnSelected(ready api.Ops) (api.Task, bool) {
	for {
		channel, err := a.sel.mgr.DoAccept(a.channel)
		if err != nil {
			a.sel.logf("accept failed on fd %d: %v", a.channel.Fd(), err)
			a.sel.mgr.OnAcceptFailed(a.channel, api.NewError(api.ErrCodeInternal, "accept").
				WithContext("fd", a.channel.Fd()).WithContext("cause", err.Error()))
			return nil, false
		}
		if channel == nil {
			return nil, false
		}
		a.sel.mgr.OnAccepting(channel)
		a.sel.Submit(&acceptUpdate{channel: channel})
	}
}

// UpdateKey is a no-op: the acceptor's interest never changes.
func (a *Acceptor) UpdateKey() {}

// Close cancels the acceptor's registration. Safe to call more than once.
func (a *Acceptor) Close() error {
	if a.key != nil {
		a.key.cancel()
		a.sel.forgetKey(a.key.fd)
		a.key = nil
	}
	return nil
}

// acceptUpdate (the original's "active Accept") registers an
// already-accepted channel with zero interest, then schedules endpoint
// creation on a worker.
type acceptUpdate struct {
	channel api.Channel
}

func (u *acceptUpdate) apply(s *Selector) error {
	key, err := s.registerKey(u.channel.Fd(), 0, nil)
	if err != nil {
		_ = u.channel.Close()
		structured := api.NewError(api.ErrCodeResourceExhausted, "register accept").
			WithContext("fd", u.channel.Fd()).WithContext("cause", err.Error())
		s.mgr.OnAcceptFailed(u.channel, structured)
		return fmt.Errorf("register accept: %w", err)
	}

	channel := u.channel
	task := func() {
		if err := s.createEndpoint(channel, key, nil); err != nil {
			s.logf("accept create endpoint failed for fd %d: %v", channel.Fd(), err)
			_ = channel.Close()
			s.mgr.OnAcceptFailed(channel, api.NewError(api.ErrCodeInternal, "create endpoint").
				WithContext("fd", channel.Fd()).WithContext("cause", err.Error()))
			return
		}
		s.mgr.OnAccepted(channel)
	}
	if err := s.executor.Submit(task); err != nil {
		_ = channel.Close()
		s.mgr.OnAcceptFailed(channel, api.NewError(api.ErrCodeResourceExhausted, "submit create endpoint").
			WithContext("fd", channel.Fd()).WithContext("cause", err.Error()))
	}
	return nil
}

// NewConnect builds the update that drives a non-blocking connect on
// channel, scheduling its timeout immediately. Submit the result to
// install it.
func NewConnect(sel *Selector, channel api.Channel, context any) Update {
	return newConnectRequest(sel, channel, context)
}

// connectRequest drives one non-blocking connect: it races a
// scheduler-driven timeout against the connect succeeding, with a
// single-shot flag deciding exactly one winner (spec §4.4/invariant 6).
type connectRequest struct {
	sel     *Selector
	channel api.Channel
	context any
	failed  atomic.Bool
	timeout api.Cancelable
	key     *Key
}

// newConnectRequest schedules the connect timeout before the request is
// ever enqueued, matching the original's Connect constructor.
func newConnectRequest(sel *Selector, channel api.Channel, context any) *connectRequest {
	c := &connectRequest{sel: sel, channel: channel, context: context}
	timeout, err := sel.scheduler.Schedule(sel.mgr.GetConnectTimeout(), c.onTimeout)
	if err != nil {
		sel.logf("cannot schedule connect timeout for fd %d: %v", channel.Fd(), err)
	}
	c.timeout = timeout
	return c
}

func (c *connectRequest) apply(s *Selector) error {
	key, err := s.registerKey(c.channel.Fd(), api.OpConnect, nil)
	if err != nil {
		c.fail(api.NewError(api.ErrCodeResourceExhausted, "register connect").
			WithContext("fd", c.channel.Fd()).WithContext("cause", err.Error()))
		return fmt.Errorf("register connect: %w", err)
	}
	key.attachment = &connectAttachment{connect: c}
	c.key = key
	return nil
}

func (c *connectRequest) onTimeout() {
	if c.sel.mgr.IsConnectionPending(c.channel) {
		c.fail(api.NewError(api.ErrCodeTimeout, "connect timeout").WithContext("fd", c.channel.Fd()))
	}
}

// fail is the single-shot path: exactly one of the success path or the
// timeout path wins the race, closes the channel, and tears down its
// OP_CONNECT registration — unlike Java NIO, closing the channel here
// does not implicitly cancel the key (design note grounding
// cancelAndTeardown).
func (c *connectRequest) fail(cause error) {
	if !c.failed.CompareAndSwap(false, true) {
		return
	}
	if c.timeout != nil {
		c.timeout.Cancel()
	}
	_ = c.channel.Close()
	c.sel.mgr.ConnectionFailed(c.channel, cause, c.context)
	if c.key != nil {
		c.key.Cancel(cause)
	}
}

// closeConnectionsUpdate closes every connection-backed endpoint
// reachable via a key attachment, cancelling and forgetting its key as
// it goes so nothing it closed is seen again by StopSelector's sweep.
// Acceptors are left alone here since they aren't connections; tracks
// what it has already closed so a retried Stop is idempotent.
type closeConnectionsUpdate struct {
	closed      map[api.Selectable]bool
	noEndpoints *latch
	complete    *latch
}

func newCloseConnectionsUpdate() *closeConnectionsUpdate {
	return &closeConnectionsUpdate{
		closed:      make(map[api.Selectable]bool),
		noEndpoints: newLatch(),
		complete:    newLatch(),
	}
}

func (u *closeConnectionsUpdate) apply(s *Selector) error {
	zero := true
	for fd, key := range s.keys {
		if !key.valid {
			continue
		}
		att, ok := key.endpointAttachment()
		if !ok {
			continue
		}
		if _, isAcceptor := att.endpoint.(*Acceptor); isAcceptor {
			// Acceptors are passive listeners, not connections; StopSelector
			// sweeps them separately.
			continue
		}
		zero = false
		if !u.closed[att.endpoint] {
			u.closed[att.endpoint] = true
			if att.conn != nil {
				s.mgr.ConnectionClosed(att.conn, api.ErrSelectorClosed)
			}
			s.mgr.EndpointClosed(att.endpoint)
		}
		key.cancel()
		s.forgetKey(fd)
	}
	if zero {
		u.noEndpoints.signal()
	}
	u.complete.signal()
	return nil
}

// stopSelectorUpdate closes any remaining endpoints and releases the
// multiplexer handle.
type stopSelectorUpdate struct {
	stopped *latch
}

func (u *stopSelectorUpdate) apply(s *Selector) error {
	for _, key := range s.keys {
		if !key.valid {
			continue
		}
		att, ok := key.endpointAttachment()
		if !ok {
			continue
		}
		if acceptor, isAcceptor := att.endpoint.(*Acceptor); isAcceptor {
			_ = acceptor.Close()
			continue
		}
		if att.conn != nil {
			s.mgr.ConnectionClosed(att.conn, api.ErrSelectorClosed)
		}
		s.mgr.EndpointClosed(att.endpoint)
	}
	s.keys = make(map[uintptr]*Key)
	s.keyCount.Store(0)
	if s.mux != nil {
		_ = s.mux.Close()
		s.mux = nil
	}
	u.stopped.signal()
	return nil
}

// cancelKeyUpdate implements Key.Cancel: torn down from inside the
// producer goroutine regardless of which goroutine called Cancel.
type cancelKeyUpdate struct {
	key   *Key
	cause error
}

func (u *cancelKeyUpdate) apply(s *Selector) error {
	cancelAndTeardown(s, u.key, u.cause)
	return nil
}

// destroyEndpointUpdate implements Selector.DestroyEndpoint: the caller
// only has the endpoint, not its key, so this looks the key up by
// attachment identity before tearing it down.
type destroyEndpointUpdate struct {
	endpoint api.Selectable
	cause    error
}

func (u *destroyEndpointUpdate) apply(s *Selector) error {
	for _, key := range s.keys {
		if att, ok := key.attachment.(*endpointAttachment); ok && att.endpoint == u.endpoint {
			cancelAndTeardown(s, key, u.cause)
			return nil
		}
	}
	return nil
}

// cancelAndTeardown unregisters key and, if it carried a live endpoint
// attachment, dispatches ConnectionClosed/EndpointClosed on the executor.
// Called both from applied updates (cancelKeyUpdate, destroyEndpointUpdate)
// and directly by the producer when OnSelected panics — both contexts already run on the producer goroutine, so no further
// synchronization is needed here. Idempotent via Key.cancel.
func cancelAndTeardown(s *Selector, key *Key, cause error) {
	if !key.valid {
		return
	}
	att, hasEndpoint := key.attachment.(*endpointAttachment)
	key.cancel()
	s.forgetKey(key.fd)
	if !hasEndpoint {
		return
	}
	endpoint, conn := att.endpoint, att.conn
	_ = s.executor.Submit(func() {
		if conn != nil {
			s.mgr.ConnectionClosed(conn, cause)
		}
		s.mgr.EndpointClosed(endpoint)
	})
}

// dumpKeysUpdate snapshots the current key set as human-readable strings
// from inside the producer loop, coherent with whatever the pending
// updates snapshot taken by the dumping thread observed.
type dumpKeysUpdate struct {
	done   *latch
	keys   []string
	keysAt time.Time
}

func (u *dumpKeysUpdate) apply(s *Selector) error {
	u.keysAt = time.Now()
	stamp := u.keysAt.Format(time.RFC3339Nano)
	list := make([]string, 0, len(s.keys))
	for fd, key := range s.keys {
		if !key.valid {
			continue
		}
		list = append(list, fmt.Sprintf("Key{fd=%d,interest=%d,attachment=%T} @ %s", fd, key.interestOps, key.attachment, stamp))
	}
	u.keys = list
	u.done.signal()
	return nil
}
