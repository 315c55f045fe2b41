// File: selector/selector.go
// Author: momentics <momentics@gmail.com>
//
// Selector wraps one api.Multiplexer: one producer goroutine, one update
// queue, one host manager. Grounded on ManagedSelector.java end to end —
// every method below has a named counterpart there.

package selector

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/snail-lb/go-managed-selector/api"
)

// Debug gates verbose per-event logging, matching the teacher's
// "if enabled { log... }" idiom (LOG.isDebugEnabled() in the original).
var Debug = false

// Selector is the instance described in spec §3: new -> starting ->
// running -> stopping -> stopped, not reusable once stopped.
type Selector struct {
	id        int
	mgr       api.Manager
	executor  api.Executor
	scheduler api.Scheduler
	cfg       Config

	mux api.Multiplexer

	updates *updateQueue
	keys    map[uintptr]*Key

	keyCount atomic.Int64
	started  atomic.Bool

	producer *producer
	strategy *strategy
}

// New constructs a Selector. id should be unique within its manager, for
// diagnostics only.
func New(id int, mgr api.Manager, executor api.Executor, scheduler api.Scheduler, cfg Config) *Selector {
	return &Selector{
		id:        id,
		mgr:       mgr,
		executor:  executor,
		scheduler: scheduler,
		cfg:       cfg,
		updates:   newUpdateQueue(),
		keys:      make(map[uintptr]*Key),
	}
}

func (s *Selector) logf(format string, args ...any) {
	if !Debug {
		return
	}
	log.Printf("selector[%d] "+format, append([]any{s.id}, args...)...)
}

// Start initialises the multiplexer, hands the producer to the executor,
// and waits for the Start update's latch — the loop is guaranteed
// running before Start returns. Start on a running selector returns nil
// without starting a second producer.
func (s *Selector) Start(ctx context.Context) error {
	if s.started.Load() {
		return nil
	}
	mux, err := s.mgr.NewMultiplexer()
	if err != nil {
		return fmt.Errorf("new multiplexer: %w", err)
	}
	s.mux = mux
	s.producer = newProducer(s)
	s.strategy = newStrategy(s.producer, s.executor)

	if err := s.executor.Submit(s.strategy.run); err != nil {
		_ = mux.Close()
		s.mux = nil
		return fmt.Errorf("submit producer: %w", err)
	}

	start := &startUpdate{done: newLatch()}
	s.Submit(start)

	select {
	case <-start.done.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop implements the two-phase shutdown of spec §4.6, guarded so a
// double-stop is a no-op.
func (s *Selector) Stop(ctx context.Context) error {
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}

	closeConnections := newCloseConnectionsUpdate()
	s.Submit(closeConnections)
	select {
	case <-closeConnections.complete.C():
	case <-ctx.Done():
		return ctx.Err()
	}

	stopSelector := &stopSelectorUpdate{stopped: newLatch()}
	s.Submit(stopSelector)
	select {
	case <-stopSelector.stopped.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues update from any goroutine, waking the producer exactly
// once if it was blocked in the multiplexer wait (spec §4.1).
func (s *Selector) Submit(u Update) {
	s.logf("queued update %T", u)
	if s.updates.enqueue(u) && s.mux != nil {
		_ = s.mux.Wake()
	}
}

// DestroyEndpoint tears down endpoint's registration and dispatches its
// ConnectionClosed/EndpointClosed callbacks. Safe from any goroutine; the
// Go analog of ManagedSelector.destroyEndPoint, used when something
// outside the endpoint's own OnSelected/UpdateKey decides to force it
// closed (e.g. a Handler-level idle timeout).
func (s *Selector) DestroyEndpoint(endpoint api.Selectable, cause error) {
	s.Submit(&destroyEndpointUpdate{endpoint: endpoint, cause: cause})
}

// Size is a best-effort, non-monotonic live snapshot of key count — it
// may under/overcount briefly during shutdown (design note (c)).
func (s *Selector) Size() int {
	return int(s.keyCount.Load())
}

// String is a one-line diagnostic summary, the Go analog of
// ManagedSelector.toString().
func (s *Selector) String() string {
	return fmt.Sprintf("Selector id=%d keys=%d updates=%d", s.id, s.Size(), s.updates.size())
}

// DumpResult is the coherent pending-updates/keys view spec §4.7
// requires. Updates and Keys are each rendered as human-readable
// entries individually labelled with an RFC3339 (ISO-8601) timestamp,
// per spec §8 scenario S6.
type DumpResult struct {
	Updates   []string
	Keys      []string
	UpdatesAt time.Time
	KeysAt    time.Time
}

// Dump synthesises a DumpKeys update at the head of the queue so the
// next wake drains it immediately, then waits up to 5 seconds.
func (s *Selector) Dump(ctx context.Context) (DumpResult, error) {
	if s.mux == nil {
		return DumpResult{}, api.ErrSelectorClosed
	}

	updatesAt := time.Now()
	pending := formatUpdates(s.updates.pending(), updatesAt)

	dump := &dumpKeysUpdate{done: newLatch()}
	if s.updates.enqueueFront(dump) && s.mux != nil {
		_ = s.mux.Wake()
	}

	deadline, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	select {
	case <-dump.done.C():
		return DumpResult{Updates: pending, Keys: dump.keys, UpdatesAt: updatesAt, KeysAt: dump.keysAt}, nil
	case <-deadline.Done():
		return DumpResult{Updates: pending, Keys: []string{"No dump keys retrieved"}, UpdatesAt: updatesAt}, deadline.Err()
	}
}

// formatUpdates renders each pending update as one ISO-8601-stamped
// entry, all sharing at as the snapshot's coherence point.
func formatUpdates(updates []Update, at time.Time) []string {
	stamp := at.Format(time.RFC3339Nano)
	out := make([]string, 0, len(updates))
	for _, u := range updates {
		out = append(out, fmt.Sprintf("%T @ %s", u, stamp))
	}
	return out
}

// registerKey registers fd with the multiplexer and records the key,
// bumping the live-key counter Size() reports.
func (s *Selector) registerKey(fd uintptr, ops api.Ops, att attachment) (*Key, error) {
	if s.mux == nil {
		return nil, api.ErrSelectorClosed
	}
	key := newKey(s, fd, ops, att)
	if err := s.mux.Register(fd, ops, fd); err != nil {
		return nil, err
	}
	s.keys[fd] = key
	s.keyCount.Add(1)
	return key, nil
}

// forgetKey removes fd's bookkeeping entry, called once a key is
// cancelled outside the normal StopSelector sweep (e.g. Acceptor.Close).
func (s *Selector) forgetKey(fd uintptr) {
	if _, ok := s.keys[fd]; ok {
		delete(s.keys, fd)
		s.keyCount.Add(-1)
	}
}

// createEndpoint builds the application-level endpoint and connection
// for a freshly accepted or connected channel and installs the endpoint
// as the key's attachment.
func (s *Selector) createEndpoint(channel api.Channel, key *Key, connContext any) error {
	endpoint, err := s.mgr.NewEndpoint(channel, key)
	if err != nil {
		return fmt.Errorf("new endpoint: %w", err)
	}
	conn, err := s.mgr.NewConnection(channel, endpoint, connContext)
	if err != nil {
		return fmt.Errorf("new connection: %w", err)
	}
	key.attachment = &endpointAttachment{endpoint: endpoint, conn: conn}
	s.mgr.EndpointOpened(endpoint)
	s.mgr.ConnectionOpened(conn, connContext)
	s.logf("created endpoint for fd %d", channel.Fd())
	return nil
}

// processConnect completes a non-blocking connect for a ready key whose
// attachment is a connect request (spec §4.2 step 1, §4.4 Connect).
func (s *Selector) processConnect(key *Key, c *connectRequest) {
	connected, err := s.mgr.DoFinishConnect(c.channel)
	if err != nil {
		c.fail(api.NewError(api.ErrCodeInternal, "finish connect").
			WithContext("fd", c.channel.Fd()).WithContext("cause", err.Error()))
		return
	}
	if !connected {
		c.fail(api.NewError(api.ErrCodeInternal, "connect failed").WithContext("fd", c.channel.Fd()))
		return
	}
	if c.timeout != nil && !c.timeout.Cancel() {
		c.fail(api.NewError(api.ErrCodeTimeout, "concurrent connect timeout").WithContext("fd", c.channel.Fd()))
		return
	}
	key.SetInterestOps(0)

	channel, ctxVal := c.channel, c.context
	task := func() {
		if err := s.createEndpoint(channel, key, ctxVal); err != nil {
			s.logf("connect create endpoint failed for fd %d: %v", channel.Fd(), err)
			c.fail(api.NewError(api.ErrCodeInternal, "create endpoint").
				WithContext("fd", channel.Fd()).WithContext("cause", err.Error()))
		}
	}
	if err := s.executor.Submit(task); err != nil {
		c.fail(api.NewError(api.ErrCodeResourceExhausted, "submit create endpoint").
			WithContext("fd", channel.Fd()).WithContext("cause", err.Error()))
	}
}

// onMultiplexerFailure is fatal to this selector: release the handle,
// null it, and exit the producer loop permanently. Per design note (a),
// recovery is the owning manager's responsibility (replace the
// instance), not a reopen attempt here.
func (s *Selector) onMultiplexerFailure(cause error) {
	s.logf("fatal multiplexer wait failure: %v", cause)
	if s.mux != nil {
		_ = s.mux.Close()
		s.mux = nil
	}
}
