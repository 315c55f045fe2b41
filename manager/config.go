// File: manager/config.go
// Author: momentics <momentics@gmail.com>

package manager

import (
	"runtime"
	"time"
)

// Config holds parameters immutable for the life of a SelectorManager.
type Config struct {
	NumSelectors       int           // number of selector.Selector instances to round-robin across
	NumWorkers         int           // shared executor worker goroutine count
	ConnectTimeout     time.Duration // bound on a pending Connect before it fails
	ForcePollAfterZero *bool         // nil: per-platform default; see selector.Config
	EnableMetrics      bool
	EnableDebug        bool
}

// DefaultConfig returns sane defaults for running on the local machine.
func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	selectors := cpus / 2
	if selectors < 1 {
		selectors = 1
	}
	return Config{
		NumSelectors:   selectors,
		NumWorkers:     cpus,
		ConnectTimeout: 30 * time.Second,
		EnableMetrics:  true,
		EnableDebug:    true,
	}
}
