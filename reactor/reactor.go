// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral factory for the OS readiness multiplexer a
// selector.Selector wraps. Concrete backends (epoll on Linux, IOCP on
// Windows) live in the platform-tagged files in this package and all
// satisfy api.Multiplexer.

package reactor

import "github.com/snail-lb/go-managed-selector/api"

// New constructs the platform-appropriate api.Multiplexer.
func New() (api.Multiplexer, error) {
	return newPlatformMultiplexer()
}

func opsWantsRead(ops api.Ops) bool {
	return ops.Has(api.OpRead) || ops.Has(api.OpAccept)
}

func opsWantsWrite(ops api.Ops) bool {
	return ops.Has(api.OpWrite) || ops.Has(api.OpConnect)
}
