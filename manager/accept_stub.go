//go:build !linux
// +build !linux

// File: manager/accept_stub.go
// Author: momentics <momentics@gmail.com>
//
// Raw-socket accept is implemented for Linux only; on other platforms
// SelectorManager.DoAccept returns api.ErrNotSupported.

package manager

import (
	"github.com/snail-lb/go-managed-selector/api"
)

func doAccept(server api.Channel) (api.Channel, error) {
	return nil, api.ErrNotSupported
}
