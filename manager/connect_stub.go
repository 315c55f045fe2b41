//go:build !linux
// +build !linux

// File: manager/connect_stub.go
// Author: momentics <momentics@gmail.com>

package manager

import "github.com/snail-lb/go-managed-selector/api"

func doFinishConnect(channel api.Channel) (bool, error) {
	return false, api.ErrNotSupported
}

func isConnectionPending(channel api.Channel) bool {
	return false
}
