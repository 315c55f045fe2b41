// File: selector/key.go
// Author: momentics <momentics@gmail.com>
//
// Key is the Go realization of a java.nio.channels.SelectionKey: one
// registration record per (multiplexer, channel) pair, carrying an
// interest mask, a ready mask, and a tagged-union attachment. Mutated only
// by the owning selector's producer goroutine.

package selector

import "github.com/snail-lb/go-managed-selector/api"

// attachment is the closed sum of {selectable endpoint, connect request}
// ("reflective instanceof dispatch becomes a tagged variant"); a passive
// acceptor is carried as a selectable endpoint (see below).
type attachment interface {
	isAttachment()
}

type endpointAttachment struct {
	endpoint api.Selectable
	conn     api.Connection
}

func (*endpointAttachment) isAttachment() {}

type connectAttachment struct {
	connect *connectRequest
}

func (*connectAttachment) isAttachment() {}

// Acceptor also implements api.Selectable (see updates.go) and so is
// wrapped in an endpointAttachment like any other endpoint, matching the
// original's "Acceptor implements Selectable" design.

// Key wraps one multiplexer registration. It implements api.KeyHandle so
// endpoints can read/adjust their own interest mask from inside
// Selectable.OnSelected/UpdateKey without depending on this package.
type Key struct {
	sel         *Selector
	fd          uintptr
	interestOps api.Ops
	readyOps    api.Ops
	attachment  attachment
	valid       bool
}

var _ api.KeyHandle = (*Key)(nil)

func newKey(sel *Selector, fd uintptr, interestOps api.Ops, att attachment) *Key {
	return &Key{sel: sel, fd: fd, interestOps: interestOps, attachment: att, valid: true}
}

// Fd returns the file descriptor / handle this key was registered with.
func (k *Key) Fd() uintptr { return k.fd }

// InterestOps returns the mask last requested of the multiplexer.
func (k *Key) InterestOps() api.Ops { return k.interestOps }

// SetInterestOps requests a new interest mask from the multiplexer. A
// no-op on an invalid (cancelled) key.
func (k *Key) SetInterestOps(ops api.Ops) {
	if !k.valid || k.sel == nil || k.sel.mux == nil {
		return
	}
	if err := k.sel.mux.Modify(k.fd, ops); err != nil {
		k.sel.logf("cannot update interest ops for fd %d: %v", k.fd, err)
		return
	}
	k.interestOps = ops
}

// ReadyOps returns the mask reported by the most recent wait.
func (k *Key) ReadyOps() api.Ops { return k.readyOps }

// Valid reports whether the key is still registered.
func (k *Key) Valid() bool { return k.valid }

// cancel marks the key invalid and removes it from the multiplexer.
// Idempotent.
func (k *Key) cancel() {
	if !k.valid {
		return
	}
	k.valid = false
	if k.sel != nil && k.sel.mux != nil {
		_ = k.sel.mux.Unregister(k.fd)
	}
}

// selectable returns the key's endpoint attachment, if any.
func (k *Key) selectable() (api.Selectable, bool) {
	if e, ok := k.attachment.(*endpointAttachment); ok {
		return e.endpoint, true
	}
	return nil, false
}

// endpointAttachment returns the key's full endpoint attachment (endpoint
// plus its connection), if any.
func (k *Key) endpointAttachment() (*endpointAttachment, bool) {
	e, ok := k.attachment.(*endpointAttachment)
	return e, ok
}

// Cancel tears this registration down: the fd is unregistered from the
// multiplexer and ConnectionClosed/EndpointClosed are dispatched on the
// executor. Safe to call from any goroutine, any number of times — the
// Go analog of SelectionKey.cancel() plus ManagedSelector.destroyEndPoint
// composed into one call, since an endpoint here only ever holds a
// KeyHandle, never the owning Selector itself.
func (k *Key) Cancel(cause error) {
	if k.sel == nil {
		return
	}
	k.sel.Submit(&cancelKeyUpdate{key: k, cause: cause})
}
