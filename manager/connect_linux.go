//go:build linux
// +build linux

// File: manager/connect_linux.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking connect completion check via SO_ERROR, the standard
// idiom for finishing a connect(2) issued with O_NONBLOCK.

package manager

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/snail-lb/go-managed-selector/api"
)

func doFinishConnect(channel api.Channel) (bool, error) {
	errno, err := unix.GetsockoptInt(int(channel.Fd()), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false, fmt.Errorf("getsockopt so_error: %w", err)
	}
	switch unix.Errno(errno) {
	case 0:
		return true, nil
	case unix.EINPROGRESS, unix.EALREADY:
		return false, nil
	default:
		return false, fmt.Errorf("connect failed: %w", unix.Errno(errno))
	}
}

func isConnectionPending(channel api.Channel) bool {
	errno, err := unix.GetsockoptInt(int(channel.Fd()), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false
	}
	return unix.Errno(errno) == unix.EINPROGRESS || unix.Errno(errno) == unix.EALREADY
}
