//go:build linux
// +build linux

// File: manager/channel_linux.go
// Author: momentics <momentics@gmail.com>

package manager

import "golang.org/x/sys/unix"

func closeFd(fd uintptr) error {
	return unix.Close(int(fd))
}
