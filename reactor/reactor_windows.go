//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP (I/O Completion Port) multiplexer. IOCP has no notion of
// "interest mask" or "modify" the way epoll does — association is
// permanent for the life of the handle, and readiness is reported as
// completions rather than level-triggered events — so Modify is a no-op
// and Register's ops argument is advisory only, kept for interface
// symmetry with the Linux backend.

package reactor

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/snail-lb/go-managed-selector/api"
)

const wakeCompletionKey = ^uintptr(0)

type windowsMultiplexer struct {
	iocp windows.Handle
}

func newPlatformMultiplexer() (api.Multiplexer, error) {
	iocp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("create io completion port: %w", err)
	}
	return &windowsMultiplexer{iocp: iocp}, nil
}

func (m *windowsMultiplexer) Register(fd uintptr, ops api.Ops, userData uintptr) error {
	_, err := windows.CreateIoCompletionPort(windows.Handle(fd), m.iocp, userData, 0)
	if err != nil {
		return fmt.Errorf("associate handle: %w", err)
	}
	return nil
}

func (m *windowsMultiplexer) Modify(fd uintptr, ops api.Ops) error {
	return nil
}

func (m *windowsMultiplexer) Unregister(fd uintptr) error {
	return nil
}

func (m *windowsMultiplexer) Wait(events []api.Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("reactor: empty event buffer")
	}

	ms := uint32(windows.INFINITE)
	if timeout >= 0 {
		ms = uint32(timeout / time.Millisecond)
	}

	entries := make([]windows.OverlappedEntry, len(events))
	var count uint32
	err := windows.GetQueuedCompletionStatusEx(m.iocp, entries, &count, ms, false)
	if err != nil {
		if err == windows.WAIT_TIMEOUT {
			return 0, nil
		}
		return 0, fmt.Errorf("get queued completion status: %w", err)
	}

	out := 0
	for i := 0; i < int(count); i++ {
		e := entries[i]
		if e.CompletionKey == wakeCompletionKey {
			continue
		}
		events[out] = api.Event{
			Fd:       uintptr(unsafe.Pointer(e.Overlapped)),
			Ops:      api.OpRead | api.OpWrite,
			UserData: e.CompletionKey,
		}
		out++
	}
	return out, nil
}

func (m *windowsMultiplexer) Wake() error {
	return windows.PostQueuedCompletionStatus(m.iocp, 0, wakeCompletionKey, nil)
}

func (m *windowsMultiplexer) Close() error {
	return windows.CloseHandle(m.iocp)
}
