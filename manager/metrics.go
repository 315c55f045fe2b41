// File: manager/metrics.go
// Author: momentics <momentics@gmail.com>
//
// metricsRegistry records the manager's accept/connect/endpoint
// counters so MetricsSnapshot can report them. Adapted from the
// teacher's control.MetricsRegistry; set is called from
// SelectorManager's api.Manager callbacks, snapshot from
// MetricsSnapshot.

package manager

import (
	"sync"
	"time"
)

type metricsRegistry struct {
	mu      sync.RWMutex
	values  map[string]any
	updated time.Time
}

func newMetricsRegistry() *metricsRegistry {
	return &metricsRegistry{values: make(map[string]any)}
}

func (mr *metricsRegistry) set(key string, value any) {
	mr.mu.Lock()
	mr.values[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

func (mr *metricsRegistry) snapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.values)+1)
	for k, v := range mr.values {
		out[k] = v
	}
	out["updated_at"] = mr.updated
	return out
}
