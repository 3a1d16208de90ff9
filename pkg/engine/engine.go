package engine

import (
	"errors"
	"net"
)

// Engine errors.
var (
	// ErrRemoteClosed indicates the peer sent a closure alert.
	// Check with errors.Is on the error returned by Decrypt.
	ErrRemoteClosed = errors.New("remote peer closed the connection")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("record engine is closed")

	// ErrNotEncrypted indicates an operation that requires an established
	// session was called before the handshake completed.
	ErrNotEncrypted = errors.New("session is not encrypted yet")

	// ErrHandshakeStarted indicates Begin was called twice.
	ErrHandshakeStarted = errors.New("handshake already started")

	// ErrHandshakeNotStarted indicates an operation that requires Begin
	// was called first.
	ErrHandshakeNotStarted = errors.New("handshake not started")
)

// Sender is the outbound datagram channel the engine writes through.
// Satisfied by transport.UDP.
type Sender interface {
	// Send transmits one datagram to the peer, best effort.
	Send(datagram []byte) (int, error)

	// RemoteAddr returns the peer network address.
	RemoteAddr() net.Addr
}

// RecordEngine is a stateful secure-datagram protocol instance bound to one
// peer. Implemented by Pion.
type RecordEngine interface {
	// Begin starts the handshake, sending the first flight through s.
	Begin(s Sender) error

	// Advance feeds one inbound handshake datagram to the engine. A single
	// datagram may carry one flight without completing the handshake; check
	// IsEncrypted afterwards.
	Advance(s Sender, datagram []byte) error

	// IsEncrypted reports whether the session reached encrypted steady state.
	IsEncrypted() bool

	// Decrypt feeds one inbound datagram and returns the contained
	// application plaintext, which may be empty. A nil error with empty
	// plaintext means the datagram carried no application data; an error
	// matching ErrRemoteClosed means the peer shut the session down.
	Decrypt(s Sender, datagram []byte) ([]byte, error)

	// WriteEncrypted protects payload and sends it through s, returning the
	// number of payload bytes written.
	WriteEncrypted(s Sender, payload []byte) (int, error)

	// HandleTimeout reacts to a handshake-retransmission timeout by
	// resending the last flight, where the implementation does not already
	// retransmit on its own.
	HandleTimeout(s Sender) error

	// Shutdown sends a best-effort closure alert and releases the engine.
	Shutdown(s Sender) error
}
