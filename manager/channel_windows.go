//go:build windows
// +build windows

// File: manager/channel_windows.go
// Author: momentics <momentics@gmail.com>

package manager

import "golang.org/x/sys/windows"

func closeFd(fd uintptr) error {
	return windows.CloseHandle(windows.Handle(fd))
}
