//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without a dedicated multiplexer backend.

package reactor

import (
	"errors"

	"github.com/snail-lb/go-managed-selector/api"
)

func newPlatformMultiplexer() (api.Multiplexer, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
