// File: manager/debug.go
// Author: momentics <momentics@gmail.com>
//
// debugProbes is the manager's introspection registry: named callbacks
// DebugSnapshot fans out to, reporting live selector/key counts and
// whatever registerPlatformProbes adds for the current OS. Adapted
// from the teacher's control.DebugProbes.

package manager

import "sync"

type debugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

func newDebugProbes() *debugProbes {
	return &debugProbes{probes: make(map[string]func() any)}
}

func (dp *debugProbes) register(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

func (dp *debugProbes) dump() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
