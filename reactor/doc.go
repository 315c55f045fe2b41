// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the concrete OS readiness multiplexer backends
// (epoll on Linux, IOCP on Windows, a stub elsewhere) behind api.Multiplexer.
package reactor
