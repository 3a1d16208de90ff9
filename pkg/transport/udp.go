package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	// DefaultMaxDatagramSize is the largest datagram the reader accepts.
	DefaultMaxDatagramSize = 65507

	// DefaultConnectTimeout bounds peer resolution and socket bring-up.
	DefaultConnectTimeout = 30 * time.Second
)

// UDPConfig configures a UDP transport.
type UDPConfig struct {
	// Address is the peer address as host:port.
	Address string

	// MaxDatagramSize is the read buffer size (default: 65507).
	MaxDatagramSize int

	// ConnectTimeout bounds Connect when the context has no deadline
	// (default: 30s).
	ConnectTimeout time.Duration
}

// UDP is a datagram transport bound to a single peer via a connected
// UDP socket.
type UDP struct {
	config UDPConfig

	mu     sync.Mutex
	conn   *net.UDPConn
	opened bool
	closed bool

	onConnected func()
	onDatagram  func([]byte)
	onError     func(error)

	closeOnce sync.Once
}

// NewUDP creates a UDP transport for the given peer address.
// The socket is not opened until Connect.
func NewUDP(config UDPConfig) *UDP {
	if config.MaxDatagramSize == 0 {
		config.MaxDatagramSize = DefaultMaxDatagramSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	return &UDP{config: config}
}

// OnConnected registers the connect-completion notification.
// Must be called before Connect.
func (u *UDP) OnConnected(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onConnected = fn
}

// OnDatagram registers the readable notification.
// Must be called before Connect.
func (u *UDP) OnDatagram(fn func([]byte)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onDatagram = fn
}

// OnError registers the read-failure notification.
// Must be called before Connect.
func (u *UDP) OnError(fn func(error)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onError = fn
}

// Connect resolves the peer address and opens the socket in the background.
// The OnConnected callback fires once the socket is up; resolution or dial
// failure is delivered through OnError.
func (u *UDP) Connect(ctx context.Context) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	if u.opened {
		u.mu.Unlock()
		return ErrAlreadyOpened
	}
	u.opened = true
	u.mu.Unlock()

	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, u.config.ConnectTimeout)
	}

	go func() {
		if cancel != nil {
			defer cancel()
		}
		u.dial(ctx)
	}()
	return nil
}

// dial performs resolution and socket bring-up, then starts the reader.
func (u *UDP) dial(ctx context.Context) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "udp", u.config.Address)
	if err != nil {
		u.notifyError(fmt.Errorf("dial %s: %w", u.config.Address, err))
		return
	}

	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close()
		u.notifyError(fmt.Errorf("dial %s: not a UDP connection", u.config.Address))
		return
	}

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		udpConn.Close()
		return
	}
	u.conn = udpConn
	onConnected := u.onConnected
	u.mu.Unlock()

	go u.readLoop(udpConn)

	if onConnected != nil {
		onConnected()
	}
}

// readLoop delivers inbound datagrams one at a time, in arrival order.
func (u *UDP) readLoop(conn *net.UDPConn) {
	buf := make([]byte, u.config.MaxDatagramSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			u.mu.Lock()
			closed := u.closed
			onError := u.onError
			u.mu.Unlock()
			if !closed && onError != nil {
				onError(fmt.Errorf("read: %w", err))
			}
			return
		}

		u.mu.Lock()
		onDatagram := u.onDatagram
		u.mu.Unlock()
		if onDatagram != nil {
			dgram := make([]byte, n)
			copy(dgram, buf[:n])
			onDatagram(dgram)
		}
	}
}

// Connected reports whether the socket is up.
func (u *UDP) Connected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn != nil && !u.closed
}

// Send transmits one datagram to the peer.
func (u *UDP) Send(datagram []byte) (int, error) {
	u.mu.Lock()
	conn := u.conn
	closed := u.closed
	u.mu.Unlock()

	if closed {
		return 0, ErrClosed
	}
	if conn == nil {
		return 0, ErrNotConnected
	}
	return conn.Write(datagram)
}

// RemoteAddr returns the peer address, or nil before the socket is up.
func (u *UDP) RemoteAddr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.RemoteAddr()
}

// Close tears the socket down. The reader goroutine exits on the resulting
// read error without reporting it.
func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		u.mu.Lock()
		u.closed = true
		conn := u.conn
		u.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// notifyError reports a failure unless the transport has been closed.
func (u *UDP) notifyError(err error) {
	u.mu.Lock()
	closed := u.closed
	onError := u.onError
	u.mu.Unlock()
	if !closed && onError != nil {
		onError(err)
	}
}
