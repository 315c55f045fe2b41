//go:build !linux && !windows
// +build !linux,!windows

// File: manager/channel_stub.go
// Author: momentics <momentics@gmail.com>

package manager

import "errors"

func closeFd(fd uintptr) error {
	return errors.New("manager: unsupported platform")
}
