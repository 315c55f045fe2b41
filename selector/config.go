// File: selector/config.go
// Author: momentics <momentics@gmail.com>
//
// Process-wide toggle for the zero-selection-wake platform quirk: some
// multiplexer implementations can report a woken, zero-key select that
// silently dropped an edge. Forcing an immediate non-blocking poll after
// such a wake recovers the missed readiness. Grounded on
// ManagedSelector.FORCE_SELECT_NOW's static os.name sniff.

package selector

import (
	"runtime"
	"strings"
)

// Config carries the selector's tunables. The zero value is valid: nil
// ForcePollAfterZero means "use the default per-platform heuristic".
type Config struct {
	// ForcePollAfterZero overrides the default per-platform heuristic.
	// nil: default heuristic (true iff the host OS name contains
	// "windows"). non-nil: always/never poll.
	ForcePollAfterZero *bool
}

func (c Config) forcePollAfterZero() bool {
	if c.ForcePollAfterZero != nil {
		return *c.ForcePollAfterZero
	}
	return strings.Contains(strings.ToLower(runtime.GOOS), "windows")
}
