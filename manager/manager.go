// File: manager/manager.go
// Author: momentics <momentics@gmail.com>
//
// SelectorManager owns N selector.Selector instances, the shared worker
// pool and connect-timeout scheduler, and implements api.Manager for
// them. Endpoint/connection construction is delegated to a Handler the
// caller supplies — the minimal surface the selector core touches, per
// spec's "endpoint and connection object model beyond the minimal
// surface" being out of this core's scope.

package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snail-lb/go-managed-selector/api"
	"github.com/snail-lb/go-managed-selector/internal/concurrency"
	"github.com/snail-lb/go-managed-selector/reactor"
	"github.com/snail-lb/go-managed-selector/selector"
)

// Handler supplies the protocol-level object model the selector core
// does not implement: building an endpoint/connection for a freshly
// accepted or connected channel, and learning when a connection's
// lifecycle events occur.
type Handler interface {
	NewEndpoint(channel api.Channel, key api.KeyHandle) (api.Selectable, error)
	NewConnection(channel api.Channel, endpoint api.Selectable, context any) (api.Connection, error)
	ConnectionOpened(conn api.Connection, context any)
	ConnectionClosed(conn api.Connection, cause error)
	ConnectionFailed(channel api.Channel, cause error, context any)
}

// SelectorManager is a concrete, runnable api.Manager.
type SelectorManager struct {
	cfg       Config
	handler   Handler
	executor  *concurrency.WorkerPool
	scheduler *concurrency.Scheduler
	selectors []*selector.Selector
	next      atomic.Uint64

	metrics *metricsRegistry
	debug   *debugProbes
	config  *configStore

	acceptedTotal      atomic.Int64
	acceptFailedTotal  atomic.Int64
	connectFailedTotal atomic.Int64
	endpointsOpen      atomic.Int64

	connectTimeoutNs atomic.Int64

	mu      sync.Mutex
	started bool
}

var _ api.Manager = (*SelectorManager)(nil)

// New builds a SelectorManager with cfg.NumSelectors selector.Selector
// instances, none of them started yet.
func New(cfg Config, handler Handler) *SelectorManager {
	if cfg.NumSelectors <= 0 {
		cfg.NumSelectors = 1
	}
	m := &SelectorManager{
		cfg:       cfg,
		handler:   handler,
		executor:  concurrency.NewWorkerPool(cfg.NumWorkers),
		scheduler: concurrency.NewScheduler(),
		metrics:   newMetricsRegistry(),
		debug:     newDebugProbes(),
		config:    newConfigStore(),
	}

	if cfg.EnableDebug {
		registerPlatformProbes(m.debug)
		m.debug.register("manager.selectors", func() any { return len(m.selectors) })
		m.debug.register("manager.keys", func() any { return m.Size() })
	}

	m.connectTimeoutNs.Store(int64(cfg.ConnectTimeout))
	m.config.set(map[string]any{"connect_timeout_ms": cfg.ConnectTimeout.Milliseconds()})
	m.config.onReload(m.reloadConnectTimeout)

	m.selectors = make([]*selector.Selector, cfg.NumSelectors)
	for i := range m.selectors {
		m.selectors[i] = selector.New(i, m, m.executor, m.scheduler, selector.Config{
			ForcePollAfterZero: cfg.ForcePollAfterZero,
		})
	}
	return m
}

// Start starts every owned selector. Idempotent.
func (m *SelectorManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	for _, sel := range m.selectors {
		if err := sel.Start(ctx); err != nil {
			return fmt.Errorf("start selector %s: %w", sel, err)
		}
	}
	m.started = true
	return nil
}

// Stop stops every owned selector, then releases the shared executor and
// scheduler. Idempotent.
func (m *SelectorManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	var firstErr error
	for _, sel := range m.selectors {
		if err := sel.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop selector %s: %w", sel, err)
		}
	}
	m.scheduler.Close()
	m.executor.Close()
	m.started = false
	return firstErr
}

// Size sums the live key count across every owned selector.
func (m *SelectorManager) Size() int {
	total := 0
	for _, sel := range m.selectors {
		total += sel.Size()
	}
	return total
}

// MetricsSnapshot returns a point-in-time copy of every recorded
// metric, satisfying spec §4.7's introspection surface.
func (m *SelectorManager) MetricsSnapshot() map[string]any { return m.metrics.snapshot() }

// DebugSnapshot runs every registered debug probe and returns their
// combined output.
func (m *SelectorManager) DebugSnapshot() map[string]any { return m.debug.dump() }

// Configure merges values into the manager's config store and dispatches
// a hot reload. The only key currently observed is "connect_timeout_ms",
// which adjusts the deadline GetConnectTimeout reports to Connect updates
// built afterwards, without a restart. A Connect whose timeout is already
// scheduled keeps its original deadline.
func (m *SelectorManager) Configure(values map[string]any) {
	m.config.set(values)
}

func (m *SelectorManager) reloadConnectTimeout() {
	snapshot := m.config.snapshot()
	ms, ok := snapshot["connect_timeout_ms"]
	if !ok {
		return
	}
	switch v := ms.(type) {
	case int64:
		m.connectTimeoutNs.Store(v * int64(time.Millisecond))
	case int:
		m.connectTimeoutNs.Store(int64(v) * int64(time.Millisecond))
	case float64:
		m.connectTimeoutNs.Store(int64(v * float64(time.Millisecond)))
	}
}

func (m *SelectorManager) chooseSelector() *selector.Selector {
	idx := m.next.Add(1) % uint64(len(m.selectors))
	return m.selectors[idx]
}

// Accept installs a passive Acceptor for server on a round-robin chosen
// selector.
func (m *SelectorManager) Accept(server api.Channel) {
	sel := m.chooseSelector()
	sel.Submit(selector.NewAcceptor(sel, server))
}

// Connect drives a non-blocking connect for channel on a round-robin
// chosen selector.
func (m *SelectorManager) Connect(channel api.Channel, context any) {
	sel := m.chooseSelector()
	sel.Submit(selector.NewConnect(sel, channel, context))
}

// --- api.Manager ---

func (m *SelectorManager) NewMultiplexer() (api.Multiplexer, error) {
	return reactor.New()
}

func (m *SelectorManager) NewEndpoint(channel api.Channel, key api.KeyHandle) (api.Selectable, error) {
	return m.handler.NewEndpoint(channel, key)
}

func (m *SelectorManager) NewConnection(channel api.Channel, endpoint api.Selectable, context any) (api.Connection, error) {
	return m.handler.NewConnection(channel, endpoint, context)
}

func (m *SelectorManager) DoAccept(server api.Channel) (api.Channel, error) {
	return doAccept(server)
}

func (m *SelectorManager) DoFinishConnect(channel api.Channel) (bool, error) {
	return doFinishConnect(channel)
}

func (m *SelectorManager) IsConnectionPending(channel api.Channel) bool {
	return isConnectionPending(channel)
}

func (m *SelectorManager) OnAccepting(channel api.Channel) {}

func (m *SelectorManager) OnAccepted(channel api.Channel) {
	m.recordMetric("accepted_total", m.acceptedTotal.Add(1))
}

func (m *SelectorManager) OnAcceptFailed(channel api.Channel, cause error) {
	m.recordMetric("accept_failed_total", m.acceptFailedTotal.Add(1))
}

func (m *SelectorManager) EndpointOpened(endpoint api.Selectable) {
	m.recordMetric("endpoints_open", m.endpointsOpen.Add(1))
}

func (m *SelectorManager) EndpointClosed(endpoint api.Selectable) {
	m.recordMetric("endpoints_open", m.endpointsOpen.Add(-1))
}

func (m *SelectorManager) ConnectionOpened(conn api.Connection, context any) {
	m.handler.ConnectionOpened(conn, context)
}

func (m *SelectorManager) ConnectionClosed(conn api.Connection, cause error) {
	m.handler.ConnectionClosed(conn, cause)
}

func (m *SelectorManager) ConnectionFailed(channel api.Channel, cause error, context any) {
	m.recordMetric("connect_failed_total", m.connectFailedTotal.Add(1))
	m.handler.ConnectionFailed(channel, cause, context)
}

func (m *SelectorManager) GetConnectTimeout() time.Duration {
	return time.Duration(m.connectTimeoutNs.Load())
}

// recordMetric is a no-op when cfg.EnableMetrics is false, so a caller
// that doesn't want the bookkeeping overhead can skip it entirely.
func (m *SelectorManager) recordMetric(key string, value any) {
	if !m.cfg.EnableMetrics {
		return
	}
	m.metrics.set(key, value)
}
