package transport

import (
	"context"
	"errors"
	"net"
)

// Transport errors.
var (
	ErrNotConnected  = errors.New("transport not connected")
	ErrClosed        = errors.New("transport closed")
	ErrAlreadyOpened = errors.New("transport already opened")
)

// Sender is the outbound half of a datagram transport.
type Sender interface {
	// Send transmits one datagram to the peer, best effort.
	Send(datagram []byte) (int, error)

	// RemoteAddr returns the peer network address.
	RemoteAddr() net.Addr
}

// Transport is an unreliable datagram channel to one fixed peer.
// Implemented by UDP.
type Transport interface {
	Sender

	// Connect resolves the peer and brings the socket up asynchronously.
	// Completion is signalled through the OnConnected callback.
	Connect(ctx context.Context) error

	// Connected reports whether the socket is up.
	Connected() bool

	// OnConnected registers the connect-completion notification.
	OnConnected(fn func())

	// OnDatagram registers the readable notification. The callback receives
	// each inbound datagram in arrival order, including zero-length ones.
	OnDatagram(fn func(datagram []byte))

	// OnError registers the read-failure notification.
	OnError(fn func(err error))

	// Close tears the socket down. Safe to call more than once.
	Close() error
}

// Compile-time interface satisfaction check.
var _ Transport = (*UDP)(nil)
