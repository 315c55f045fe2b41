//go:build linux
// +build linux

// File: manager/accept_linux.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking accept(2) on a raw listening socket, the manager's
// concrete realization of api.Manager.DoAccept.

package manager

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/snail-lb/go-managed-selector/api"
)

func doAccept(server api.Channel) (api.Channel, error) {
	nfd, _, err := unix.Accept4(int(server.Fd()), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, nil
		}
		return nil, fmt.Errorf("accept4: %w", err)
	}
	return NewFdChannel(uintptr(nfd)), nil
}
