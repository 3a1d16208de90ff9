package engine

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/pion/transport/v3/deadline"
)

// defaultQueueLength is the inbound datagram queue size of a bridge.
// Datagrams pushed while the queue is full are dropped; DTLS retransmission
// recovers handshake flights and application datagrams are best-effort.
const defaultQueueLength = 16

// bridgeConn adapts a Sender into the net.PacketConn the DTLS library
// expects. Inbound datagrams are pushed by the engine's Advance/Decrypt
// calls; outbound records go straight to the Sender.
type bridgeConn struct {
	sender Sender

	inbound      chan []byte
	readDeadline *deadline.Deadline

	closed    chan struct{}
	closeOnce sync.Once
}

func newBridgeConn(sender Sender, queueLength int) *bridgeConn {
	if queueLength <= 0 {
		queueLength = defaultQueueLength
	}
	return &bridgeConn{
		sender:       sender,
		inbound:      make(chan []byte, queueLength),
		readDeadline: deadline.New(),
		closed:       make(chan struct{}),
	}
}

// push queues one inbound datagram for the DTLS library to consume.
// Returns false when the datagram was dropped (queue full or bridge closed).
func (b *bridgeConn) push(dgram []byte) bool {
	d := make([]byte, len(dgram))
	copy(d, dgram)

	select {
	case <-b.closed:
		return false
	default:
	}

	select {
	case b.inbound <- d:
		return true
	default:
		return false
	}
}

// ReadFrom blocks until a pushed datagram, deadline, or close.
func (b *bridgeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {
	case <-b.closed:
		return 0, nil, net.ErrClosed
	default:
	}

	select {
	case dgram := <-b.inbound:
		n := copy(p, dgram)
		return n, b.sender.RemoteAddr(), nil
	case <-b.closed:
		return 0, nil, net.ErrClosed
	case <-b.readDeadline.Done():
		return 0, nil, os.ErrDeadlineExceeded
	}
}

// WriteTo sends one record to the peer through the Sender. The addr is
// ignored; the Sender is bound to exactly one peer.
func (b *bridgeConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	select {
	case <-b.closed:
		return 0, net.ErrClosed
	default:
	}
	return b.sender.Send(p)
}

// Close shuts the bridge down. Safe to call more than once.
func (b *bridgeConn) Close() error {
	b.closeOnce.Do(func() {
		close(b.closed)
	})
	return nil
}

// LocalAddr returns a placeholder address; the transport owns the socket.
func (b *bridgeConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4zero, Port: 0}
}

// SetDeadline sets the read deadline. Writes never block.
func (b *bridgeConn) SetDeadline(t time.Time) error {
	return b.SetReadDeadline(t)
}

// SetReadDeadline bounds ReadFrom.
func (b *bridgeConn) SetReadDeadline(t time.Time) error {
	b.readDeadline.Set(t)
	return nil
}

// SetWriteDeadline is a no-op; WriteTo does not block.
func (b *bridgeConn) SetWriteDeadline(time.Time) error {
	return nil
}

// Compile-time interface satisfaction check.
var _ net.PacketConn = (*bridgeConn)(nil)
