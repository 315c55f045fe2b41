package selector_test

import (
	"context"
	"testing"
	"time"

	"github.com/snail-lb/go-managed-selector/api"
	"github.com/snail-lb/go-managed-selector/internal/concurrency"
	"github.com/snail-lb/go-managed-selector/selector"
)

func newTestSelector(t *testing.T, mgr *fakeManager) *selector.Selector {
	t.Helper()
	exec := concurrency.NewExecutor(2)
	sched := concurrency.NewScheduler()
	t.Cleanup(func() { exec.Close(); sched.Close() })
	return selector.New(1, mgr, exec, sched, selector.Config{})
}

func startSelector(t *testing.T, sel *selector.Selector) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sel.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func stopSelector(t *testing.T, sel *selector.Selector) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sel.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSelectorStartStopIsIdempotent(t *testing.T) {
	mgr := newFakeManager()
	sel := newTestSelector(t, mgr)

	startSelector(t, sel)
	// A second Start while already running must not deadlock or error:
	// it returns without starting a second producer.
	startSelector(t, sel)

	stopSelector(t, sel)
	// Stop on an already-stopped selector is a documented no-op.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sel.Stop(ctx); err != nil {
		t.Fatalf("second stop should be a no-op, got: %v", err)
	}
}

func TestSelectorAcceptInstallsEndpointAndDispatchesCallbacks(t *testing.T) {
	mgr := newFakeManager()
	sel := newTestSelector(t, mgr)
	startSelector(t, sel)
	defer stopSelector(t, sel)

	server := &fakeChannel{fd: 10}
	accepted := &fakeChannel{fd: 11}
	mgr.queueAccept(accepted)

	sel.Submit(selector.NewAcceptor(sel, server))
	mgr.mux.push(api.Event{Fd: server.fd, Ops: api.OpAccept})

	deadline := time.Now().Add(time.Second)
	for mgr.endpointOpenedTotal.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := mgr.endpointOpenedTotal.Load(); got != 1 {
		t.Fatalf("expected 1 endpoint opened, got %d", got)
	}
	if got := mgr.connOpenedTotal.Load(); got != 1 {
		t.Fatalf("expected 1 connection opened, got %d", got)
	}
	if got := mgr.acceptedTotal.Load(); got != 1 {
		t.Fatalf("expected OnAccepted to fire once, got %d", got)
	}
	if got := sel.Size(); got != 2 {
		t.Fatalf("expected 2 live keys (acceptor + accepted), got %d", got)
	}
}

func TestSelectorConnectSucceeds(t *testing.T) {
	mgr := newFakeManager()
	mgr.connectTimeout = time.Second
	sel := newTestSelector(t, mgr)
	startSelector(t, sel)
	defer stopSelector(t, sel)

	ch := &fakeChannel{fd: 20}
	mgr.setConnectResult(ch, true, nil)

	sel.Submit(selector.NewConnect(sel, ch, "ctx"))
	mgr.mux.push(api.Event{Fd: ch.fd, Ops: api.OpConnect})

	deadline := time.Now().Add(time.Second)
	for mgr.connOpenedTotal.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := mgr.connOpenedTotal.Load(); got != 1 {
		t.Fatalf("expected connect to complete and open a connection, got %d opened", got)
	}
	if got := mgr.connFailedTotal.Load(); got != 0 {
		t.Fatalf("connect should not have failed, got %d failures", got)
	}
}

func TestSelectorConnectTimesOut(t *testing.T) {
	mgr := newFakeManager()
	mgr.connectTimeout = 20 * time.Millisecond
	sel := newTestSelector(t, mgr)
	startSelector(t, sel)
	defer stopSelector(t, sel)

	ch := &fakeChannel{fd: 21}
	// Never mark the connect done: IsConnectionPending stays true so the
	// scheduled timeout fires and fails the request.
	sel.Submit(selector.NewConnect(sel, ch, nil))

	deadline := time.Now().Add(time.Second)
	for mgr.connFailedTotal.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := mgr.connFailedTotal.Load(); got != 1 {
		t.Fatalf("expected connect timeout to fail the request once, got %d", got)
	}
	if !ch.isClosed() {
		t.Error("channel should be closed after a failed connect")
	}
}

func TestKeyCancelTearsDownEndpointExactlyOnce(t *testing.T) {
	mgr := newFakeManager()
	sel := newTestSelector(t, mgr)

	startSelector(t, sel)
	defer stopSelector(t, sel)

	server := &fakeChannel{fd: 30}
	accepted := &fakeChannel{fd: 31}
	mgr.queueAccept(accepted)
	sel.Submit(selector.NewAcceptor(sel, server))
	mgr.mux.push(api.Event{Fd: server.fd, Ops: api.OpAccept})

	deadline := time.Now().Add(time.Second)
	for sel.Size() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := sel.Size(); got != 2 {
		t.Fatalf("setup failed: expected 2 live keys before cancel, got %d", got)
	}

	cause := context.DeadlineExceeded
	for mgr.getLastKey() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	// Cancel from an arbitrary goroutine, exactly like an endpoint would
	// from outside OnSelected.
	key, ok := findKeyHandle(mgr)
	if !ok {
		t.Fatal("could not recover the accepted endpoint's key handle")
	}
	key.Cancel(cause)
	key.Cancel(cause) // idempotent: must not double-dispatch

	deadline = time.Now().Add(time.Second)
	for sel.Size() > 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := sel.Size(); got != 1 {
		t.Fatalf("expected cancel to remove exactly one key, got %d live", got)
	}
	if got := mgr.endpointClosedTotal.Load(); got != 1 {
		t.Fatalf("expected EndpointClosed exactly once, got %d", got)
	}
	if got := mgr.connClosedTotal.Load(); got != 1 {
		t.Fatalf("expected ConnectionClosed exactly once, got %d", got)
	}
}

// findKeyHandle recovers the api.KeyHandle the selector handed to
// NewEndpoint for the accepted channel; fakeManager stashes it because
// nothing else in this test has access to the selector's internal key
// table.
func findKeyHandle(mgr *fakeManager) (api.KeyHandle, bool) {
	key := mgr.getLastKey()
	return key, key != nil
}

func TestSelectorDumpReportsLiveKeys(t *testing.T) {
	mgr := newFakeManager()
	sel := newTestSelector(t, mgr)
	startSelector(t, sel)
	defer stopSelector(t, sel)

	server := &fakeChannel{fd: 40}
	sel.Submit(selector.NewAcceptor(sel, server))

	deadline := time.Now().Add(time.Second)
	for sel.Size() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	dump, err := sel.Dump(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(dump.Keys) != 1 {
		t.Fatalf("expected 1 key in dump, got %d: %v", len(dump.Keys), dump.Keys)
	}
}

func TestSelectorStopClosesRemainingEndpoints(t *testing.T) {
	mgr := newFakeManager()
	sel := newTestSelector(t, mgr)
	startSelector(t, sel)

	server := &fakeChannel{fd: 50}
	accepted := &fakeChannel{fd: 51}
	mgr.queueAccept(accepted)
	sel.Submit(selector.NewAcceptor(sel, server))
	mgr.mux.push(api.Event{Fd: server.fd, Ops: api.OpAccept})

	deadline := time.Now().Add(time.Second)
	for sel.Size() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopSelector(t, sel)

	if got := mgr.endpointClosedTotal.Load(); got != 1 {
		t.Fatalf("expected the accepted endpoint to be closed by Stop, got %d", got)
	}
	if got := mgr.connClosedTotal.Load(); got != 1 {
		t.Fatalf("expected its connection to be closed by Stop, got %d", got)
	}
	if got := sel.Size(); got != 0 {
		t.Fatalf("expected no live keys after Stop, got %d", got)
	}
}
