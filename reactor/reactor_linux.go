//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based multiplexer. Wake is implemented with an eventfd
// registered alongside the monitored sockets, the Go-idiomatic analog of
// java.nio.channels.Selector.wakeup() (epoll itself has no native wakeup).
//
// Register/Modify/Unregister/Wait are called only from the owning
// selector's single producer goroutine (see api.Multiplexer), so the
// fd->userData table below needs no locking; Wake is the sole method
// safe to call from any goroutine and it never touches the table.

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/snail-lb/go-managed-selector/api"
)

type linuxMultiplexer struct {
	epfd     int
	wakeFd   int
	userData map[int32]uintptr
}

func newPlatformMultiplexer() (api.Multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		unix.Close(wakeFd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wake fd: %w", err)
	}

	return &linuxMultiplexer{epfd: epfd, wakeFd: wakeFd, userData: make(map[int32]uintptr)}, nil
}

func epollBits(ops api.Ops) uint32 {
	var bits uint32
	if opsWantsRead(ops) {
		bits |= unix.EPOLLIN
	}
	if opsWantsWrite(ops) {
		bits |= unix.EPOLLOUT
	}
	return bits
}

func (m *linuxMultiplexer) Register(fd uintptr, ops api.Ops, userData uintptr) error {
	ev := unix.EpollEvent{Events: epollBits(ops), Fd: int32(fd)}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	m.userData[int32(fd)] = userData
	return nil
}

func (m *linuxMultiplexer) Modify(fd uintptr, ops api.Ops) error {
	ev := unix.EpollEvent{Events: epollBits(ops), Fd: int32(fd)}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

func (m *linuxMultiplexer) Unregister(fd uintptr) error {
	delete(m.userData, int32(fd))
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func (m *linuxMultiplexer) Wait(events []api.Event, timeout time.Duration) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	n, err := unix.EpollWait(m.epfd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := raw[i].Fd
		if fd == int32(m.wakeFd) {
			var buf [8]byte
			unix.Read(m.wakeFd, buf[:])
			continue
		}
		userData, ok := m.userData[fd]
		if !ok {
			continue
		}
		var ops api.Ops
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ops |= api.OpRead | api.OpAccept
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			ops |= api.OpWrite | api.OpConnect
		}
		events[out] = api.Event{Fd: uintptr(fd), Ops: ops, UserData: userData}
		out++
	}
	return out, nil
}

func (m *linuxMultiplexer) Wake() error {
	buf := [8]byte{1, 0, 0, 0, 0, 0, 0, 0}
	_, err := unix.Write(m.wakeFd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("wake: %w", err)
	}
	return nil
}

func (m *linuxMultiplexer) Close() error {
	unix.Close(m.wakeFd)
	return unix.Close(m.epfd)
}
