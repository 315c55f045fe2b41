package selector_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snail-lb/go-managed-selector/api"
)

// fakeMultiplexer replaces the epoll/IOCP backend with a test-driven event
// source: push simulates kernel readiness, Wake simulates an interrupted
// Wait the way reactor's real backends do.
type fakeMultiplexer struct {
	mu     sync.Mutex
	ops    map[uintptr]api.Ops
	closed bool
	events chan []api.Event
}

func newFakeMultiplexer() *fakeMultiplexer {
	return &fakeMultiplexer{ops: make(map[uintptr]api.Ops), events: make(chan []api.Event, 16)}
}

func (m *fakeMultiplexer) Register(fd uintptr, ops api.Ops, userData uintptr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[fd] = ops
	return nil
}

func (m *fakeMultiplexer) Modify(fd uintptr, ops api.Ops) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[fd] = ops
	return nil
}

func (m *fakeMultiplexer) Unregister(fd uintptr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ops, fd)
	return nil
}

func (m *fakeMultiplexer) Wait(events []api.Event, timeout time.Duration) (int, error) {
	batch, ok := <-m.events
	if !ok {
		return 0, errors.New("fake multiplexer closed")
	}
	return copy(events, batch), nil
}

func (m *fakeMultiplexer) Wake() error {
	select {
	case m.events <- nil:
	default:
	}
	return nil
}

func (m *fakeMultiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}

// push injects one readiness batch, as if the kernel had just reported it.
func (m *fakeMultiplexer) push(evs ...api.Event) {
	m.events <- evs
}

// fakeChannel is a channel with no real fd behind it; Fd is just an
// identity used to correlate pushed events with the right key.
type fakeChannel struct {
	fd uintptr

	mu     sync.Mutex
	closed bool
}

func (c *fakeChannel) Fd() uintptr { return c.fd }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeSelectable is a minimal api.Selectable a test can drive directly.
type fakeSelectable struct {
	onSelected func(ready api.Ops) (api.Task, bool)
	updateKeys atomic.Int32
}

func (f *fakeSelectable) OnSelected(ready api.Ops) (api.Task, bool) {
	if f.onSelected == nil {
		return nil, false
	}
	return f.onSelected(ready)
}

func (f *fakeSelectable) UpdateKey() {
	f.updateKeys.Add(1)
}

// fakeManager is an api.Manager whose accept/connect primitives and
// endpoint/connection factories are all test-controlled, so selector
// behavior can be exercised without a real kernel.
type fakeManager struct {
	mux *fakeMultiplexer

	mu             sync.Mutex
	acceptQueue    []api.Channel
	connectDone    map[api.Channel]bool
	connectErr     map[api.Channel]error
	newEndpoint    func(channel api.Channel, key api.KeyHandle) (api.Selectable, error)
	lastKey        api.KeyHandle
	connectTimeout time.Duration

	acceptedTotal       atomic.Int32
	acceptFailedTotal   atomic.Int32
	endpointOpenedTotal atomic.Int32
	endpointClosedTotal atomic.Int32
	connOpenedTotal     atomic.Int32
	connClosedTotal     atomic.Int32
	connFailedTotal     atomic.Int32
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		mux:            newFakeMultiplexer(),
		connectDone:    make(map[api.Channel]bool),
		connectErr:     make(map[api.Channel]error),
		connectTimeout: time.Second,
	}
}

func (m *fakeManager) NewMultiplexer() (api.Multiplexer, error) { return m.mux, nil }

func (m *fakeManager) NewEndpoint(channel api.Channel, key api.KeyHandle) (api.Selectable, error) {
	m.mu.Lock()
	m.lastKey = key
	m.mu.Unlock()
	if m.newEndpoint != nil {
		return m.newEndpoint(channel, key)
	}
	return &fakeSelectable{}, nil
}

func (m *fakeManager) NewConnection(channel api.Channel, endpoint api.Selectable, context any) (api.Connection, error) {
	return endpoint, nil
}

func (m *fakeManager) queueAccept(ch api.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptQueue = append(m.acceptQueue, ch)
}

func (m *fakeManager) DoAccept(server api.Channel) (api.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.acceptQueue) == 0 {
		return nil, nil
	}
	ch := m.acceptQueue[0]
	m.acceptQueue = m.acceptQueue[1:]
	return ch, nil
}

func (m *fakeManager) setConnectResult(ch api.Channel, done bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectDone[ch] = done
	m.connectErr[ch] = err
}

func (m *fakeManager) DoFinishConnect(channel api.Channel) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectDone[channel], m.connectErr[channel]
}

func (m *fakeManager) IsConnectionPending(channel api.Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.connectDone[channel] && m.connectErr[channel] == nil
}

func (m *fakeManager) OnAccepting(channel api.Channel) {}
func (m *fakeManager) OnAccepted(channel api.Channel)  { m.acceptedTotal.Add(1) }
func (m *fakeManager) OnAcceptFailed(channel api.Channel, cause error) {
	m.acceptFailedTotal.Add(1)
}

func (m *fakeManager) EndpointOpened(endpoint api.Selectable) { m.endpointOpenedTotal.Add(1) }
func (m *fakeManager) EndpointClosed(endpoint api.Selectable) { m.endpointClosedTotal.Add(1) }

func (m *fakeManager) ConnectionOpened(conn api.Connection, context any) { m.connOpenedTotal.Add(1) }
func (m *fakeManager) ConnectionClosed(conn api.Connection, cause error) { m.connClosedTotal.Add(1) }
func (m *fakeManager) ConnectionFailed(channel api.Channel, cause error, context any) {
	m.connFailedTotal.Add(1)
}

func (m *fakeManager) GetConnectTimeout() time.Duration { return m.connectTimeout }

func (m *fakeManager) getLastKey() api.KeyHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastKey
}
