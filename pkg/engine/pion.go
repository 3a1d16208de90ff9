package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/pion/logging"

	"github.com/secdgram/secdgram-go/pkg/psk"
)

// Pion defaults.
const (
	// DefaultMTU is the record-layer MTU.
	DefaultMTU = 1200

	// DefaultFlightInterval is the internal handshake retransmission interval.
	DefaultFlightInterval = 1 * time.Second

	// DefaultSettleTimeout bounds how long Advance waits for a fed datagram
	// to move the handshake forward.
	DefaultSettleTimeout = 100 * time.Millisecond

	// DefaultReadTimeout bounds how long Decrypt waits for a fed datagram to
	// yield application plaintext.
	DefaultReadTimeout = 250 * time.Millisecond
)

// maxPlaintextSize is the read buffer size for decrypted datagrams.
const maxPlaintextSize = 65507

// PionOptions configures a Pion record engine. Every security-relevant
// option is explicit: key exchange is pre-shared-key only, peer
// verification is none (no certificates are exchanged).
type PionOptions struct {
	// Provider supplies the PSK identity and key. Required.
	Provider psk.Provider

	// CipherSuites restricts the offered PSK suites.
	// Default: TLS_PSK_WITH_AES_128_CCM_8.
	CipherSuites []dtls.CipherSuiteID

	// MTU is the record-layer MTU (default: 1200).
	MTU int

	// FlightInterval is the library-internal retransmission interval for
	// handshake flights (default: 1s).
	FlightInterval time.Duration

	// SettleTimeout bounds Advance (default: 100ms).
	SettleTimeout time.Duration

	// ReadTimeout bounds Decrypt (default: 250ms).
	ReadTimeout time.Duration

	// QueueLength is the inbound datagram queue size (default: 16).
	QueueLength int

	// Logger receives record-layer log output. If nil, logging is disabled.
	Logger *slog.Logger
}

// Pion is a RecordEngine backed by pion/dtls in client mode with PSK
// authentication. The library's blocking handshake runs on an internal
// goroutine fed through a bridge conn, so the engine's methods stay
// non-blocking for the event-driven association.
type Pion struct {
	opts PionOptions

	mu       sync.Mutex
	bridge   *bridgeConn
	conn     *dtls.Conn
	hsCancel context.CancelFunc
	hsDone   chan struct{}
	hsErr    error
	started  bool
	closed   bool

	encrypted atomic.Bool
}

// NewPion creates a Pion record engine for a single peer.
func NewPion(opts PionOptions) (*Pion, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("psk provider is required")
	}
	if len(opts.CipherSuites) == 0 {
		opts.CipherSuites = []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_CCM_8}
	}
	if opts.MTU == 0 {
		opts.MTU = DefaultMTU
	}
	if opts.FlightInterval == 0 {
		opts.FlightInterval = DefaultFlightInterval
	}
	if opts.SettleTimeout == 0 {
		opts.SettleTimeout = DefaultSettleTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	return &Pion{
		opts:   opts,
		hsDone: make(chan struct{}),
	}, nil
}

// Begin starts the DTLS handshake. The first flight goes out through s
// before Begin returns control to the caller's event loop.
func (p *Pion) Begin(s Sender) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrEngineClosed
	}
	if p.started {
		return ErrHandshakeStarted
	}

	raddr := s.RemoteAddr()
	if raddr == nil {
		return fmt.Errorf("begin handshake: transport not connected")
	}

	bridge := newBridgeConn(s, p.opts.QueueLength)
	config := &dtls.Config{
		PSK:             p.pskCallback,
		PSKIdentityHint: []byte(p.opts.Provider.Identity()),
		CipherSuites:    p.opts.CipherSuites,
		MTU:             p.opts.MTU,
		FlightInterval:  p.opts.FlightInterval,
		LoggerFactory:   p.loggerFactory(),
	}

	conn, err := dtls.Client(bridge, raddr, config)
	if err != nil {
		bridge.Close()
		return fmt.Errorf("begin handshake: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.bridge = bridge
	p.conn = conn
	p.hsCancel = cancel
	p.started = true

	go func() {
		err := conn.HandshakeContext(ctx)
		p.mu.Lock()
		p.hsErr = err
		p.mu.Unlock()
		if err == nil {
			p.encrypted.Store(true)
		}
		close(p.hsDone)
	}()

	return nil
}

// Advance feeds one inbound handshake datagram. It waits a short settle
// window so completion observed through IsEncrypted is current when a
// datagram finished the handshake.
func (p *Pion) Advance(_ Sender, datagram []byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrEngineClosed
	}
	if !p.started {
		p.mu.Unlock()
		return ErrHandshakeNotStarted
	}
	bridge := p.bridge
	p.mu.Unlock()

	if p.encrypted.Load() {
		// Late flight after completion; the library ignores duplicates.
		bridge.push(datagram)
		return nil
	}

	bridge.push(datagram)

	select {
	case <-p.hsDone:
		p.mu.Lock()
		err := p.hsErr
		p.mu.Unlock()
		if err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
		return nil
	case <-time.After(p.opts.SettleTimeout):
		// Flight consumed, more rounds to go.
		return nil
	}
}

// IsEncrypted reports whether the handshake completed.
func (p *Pion) IsEncrypted() bool {
	return p.encrypted.Load()
}

// Decrypt feeds one inbound datagram and returns its application plaintext.
// A datagram that carries no application data (alerts, retransmits) yields
// an empty plaintext and a nil error. Read failures after establishment are
// reported as remote closure: the record layer is dead either way.
func (p *Pion) Decrypt(_ Sender, datagram []byte) ([]byte, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrEngineClosed
	}
	conn := p.conn
	bridge := p.bridge
	p.mu.Unlock()

	if !p.encrypted.Load() {
		return nil, ErrNotEncrypted
	}

	bridge.push(datagram)

	conn.SetReadDeadline(time.Now().Add(p.opts.ReadTimeout))
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, maxPlaintextSize)
	n, err := conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil
		}
		p.encrypted.Store(false)
		return nil, fmt.Errorf("%w: %w", ErrRemoteClosed, err)
	}
	return buf[:n], nil
}

// WriteEncrypted protects payload and sends it to the peer.
func (p *Pion) WriteEncrypted(_ Sender, payload []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrEngineClosed
	}
	conn := p.conn
	p.mu.Unlock()

	if !p.encrypted.Load() {
		return 0, ErrNotEncrypted
	}
	return conn.Write(payload)
}

// HandleTimeout is a supported no-op: pion/dtls retransmits handshake
// flights on its own FlightInterval timer, so there is no last flight for
// the caller to resend.
func (p *Pion) HandleTimeout(_ Sender) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrEngineClosed
	}
	if !p.started {
		return ErrHandshakeNotStarted
	}
	return nil
}

// Shutdown sends a best-effort closure alert and releases the engine.
// Safe to call more than once.
func (p *Pion) Shutdown(_ Sender) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.encrypted.Store(false)

	var err error
	if p.conn != nil {
		// Close sends the close_notify alert through the bridge.
		err = p.conn.Close()
	}
	if p.hsCancel != nil {
		p.hsCancel()
	}
	if p.bridge != nil {
		p.bridge.Close()
	}
	return err
}

// pskCallback hands the pre-shared key to the record layer when the
// handshake asks for it.
func (p *Pion) pskCallback(hint []byte) ([]byte, error) {
	if p.opts.Logger != nil {
		p.opts.Logger.Debug("providing pre-shared key for the handshake",
			"identity", p.opts.Provider.Identity(),
			"hint", string(hint))
	}
	return p.opts.Provider.Key(hint)
}

// loggerFactory bridges record-layer logging into slog.
func (p *Pion) loggerFactory() logging.LoggerFactory {
	if p.opts.Logger == nil {
		return nil
	}
	return &slogLoggerFactory{base: p.opts.Logger}
}

// Compile-time interface satisfaction check.
var _ RecordEngine = (*Pion)(nil)
