// File: api/manager.go
// Author: momentics <momentics@gmail.com>
//
// Manager is the selector's host container: it supplies the multiplexer
// factory, the endpoint/connection object model, and the accept/connect
// lifecycle hooks. Out of scope per the core's design (component
// lifecycle, endpoint internals) — only the contract the selector calls
// through lives here. A manager.SelectorManager is the concrete, runnable
// implementation.

package api

import "time"

// Manager is everything a selector.Selector needs from its host.
type Manager interface {
	// NewMultiplexer creates the OS readiness primitive for a new selector.
	NewMultiplexer() (Multiplexer, error)

	// NewEndpoint builds the application-level endpoint for a freshly
	// accepted or connected channel, given a handle to its key.
	NewEndpoint(channel Channel, key KeyHandle) (Selectable, error)

	// NewConnection builds the protocol-level connection atop endpoint,
	// using whatever context was attached to the originating update.
	NewConnection(channel Channel, endpoint Selectable, context any) (Connection, error)

	// DoAccept performs one non-blocking accept on server, returning
	// (nil, nil) when the kernel reports "would block".
	DoAccept(server Channel) (Channel, error)

	// DoFinishConnect completes a non-blocking connect, reporting whether
	// it has finished successfully.
	DoFinishConnect(channel Channel) (bool, error)

	// IsConnectionPending reports whether channel is still mid-connect.
	IsConnectionPending(channel Channel) bool

	OnAccepting(channel Channel)
	OnAccepted(channel Channel)
	OnAcceptFailed(channel Channel, cause error)

	EndpointOpened(endpoint Selectable)
	EndpointClosed(endpoint Selectable)

	ConnectionOpened(conn Connection, context any)
	ConnectionClosed(conn Connection, cause error)
	ConnectionFailed(channel Channel, cause error, context any)

	// GetConnectTimeout bounds how long a Connect update waits before
	// failing the channel with a timeout.
	GetConnectTimeout() time.Duration
}
