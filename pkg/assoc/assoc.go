package assoc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/secdgram/secdgram-go/pkg/engine"
	"github.com/secdgram/secdgram-go/pkg/log"
)

// DefaultKeepaliveInterval is the application-level ping interval.
const DefaultKeepaliveInterval = 5 * time.Second

// eventQueueLength is the run-loop event queue size.
const eventQueueLength = 32

// Association errors.
var (
	ErrNotStarted     = errors.New("association not started")
	ErrAlreadyStarted = errors.New("association already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Transport is the datagram channel subset the association drives.
// Satisfied by transport.UDP.
type Transport interface {
	engine.Sender

	// Connected reports whether the socket is up.
	Connected() bool

	// OnConnected registers the connect-completion notification.
	OnConnected(fn func())

	// OnDatagram registers the readable notification.
	OnDatagram(fn func(datagram []byte))

	// OnError registers the read-failure notification.
	OnError(fn func(err error))

	// Close tears the socket down.
	Close() error
}

// Config configures an Association.
type Config struct {
	// Name identifies the association in diagnostics and is the PSK
	// identity presented to the peer. Required.
	Name string

	// Transport is the datagram channel to the peer. Required, exclusively
	// owned by this association.
	Transport Transport

	// Engine is the secure record engine. Required, exclusively owned by
	// this association; engines are not reusable across peers.
	Engine engine.RecordEngine

	// KeepaliveInterval is the ping interval (default: 5s).
	KeepaliveInterval time.Duration

	// SchedulerFactory builds the keepalive scheduler.
	// If nil, a TickerScheduler is used.
	SchedulerFactory SchedulerFactory

	// ConnectionID identifies the association in session logs.
	// If empty, a UUID is generated.
	ConnectionID string

	// SessionLogger receives structured session events.
	// If nil, session logging is disabled.
	SessionLogger log.Logger
}

// loopKind identifies a run-loop event source.
type loopKind uint8

const (
	loopStartHandshake loopKind = iota
	loopConnected
	loopDatagram
	loopPingTick
	loopHandshakeTimeout
	loopTransportError
	loopSend
	loopClose
)

type loopEvent struct {
	kind  loopKind
	dgram []byte
	err   error
}

// Association is one client-side secure-session instance bound to one peer.
// It owns its Transport, RecordEngine, and keepalive timer exclusively.
type Association struct {
	name   string
	connID string

	tr        Transport
	eng       engine.RecordEngine
	keepalive Scheduler
	interval  time.Duration
	logger    log.Logger

	mode atomic.Uint32
	ping atomic.Uint64

	onEvent func(Event)

	events  chan loopEvent
	done    chan struct{}
	started atomic.Bool

	closeOnce sync.Once
	wg        sync.WaitGroup

	// awaitingConnect is set when StartHandshake ran before the transport
	// connected. Touched only from the run loop.
	awaitingConnect bool
}

// New creates an Association. The transport notifications are registered
// here; call Start before Connect on the transport.
func New(config Config) (*Association, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if config.Transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidConfig)
	}
	if config.Engine == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrInvalidConfig)
	}
	if config.KeepaliveInterval == 0 {
		config.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if config.ConnectionID == "" {
		config.ConnectionID = uuid.NewString()
	}
	if config.SessionLogger == nil {
		config.SessionLogger = log.NoopLogger{}
	}

	a := &Association{
		name:     config.Name,
		connID:   config.ConnectionID,
		tr:       config.Transport,
		eng:      config.Engine,
		interval: config.KeepaliveInterval,
		logger:   config.SessionLogger,
		events:   make(chan loopEvent, eventQueueLength),
		done:     make(chan struct{}),
	}

	factory := config.SchedulerFactory
	if factory == nil {
		factory = func(onTick func()) Scheduler { return NewTickerScheduler(onTick) }
	}
	a.keepalive = factory(func() { a.enqueue(loopEvent{kind: loopPingTick}) })

	a.tr.OnConnected(func() { a.enqueue(loopEvent{kind: loopConnected}) })
	a.tr.OnDatagram(func(dgram []byte) { a.enqueue(loopEvent{kind: loopDatagram, dgram: dgram}) })
	a.tr.OnError(func(err error) { a.enqueue(loopEvent{kind: loopTransportError, err: err}) })

	return a, nil
}

// OnEvent registers the observer callback. Must be called before Start.
// The callback runs on the association's run loop and must not block or
// call Close.
func (a *Association) OnEvent(fn func(Event)) {
	a.onEvent = fn
}

// Start launches the run loop. Cancelling ctx closes the association.
func (a *Association) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	a.wg.Add(1)
	go a.run()

	go func() {
		select {
		case <-ctx.Done():
			a.Close()
		case <-a.done:
		}
	}()

	return nil
}

// StartHandshake triggers connection bring-up. If the transport is not
// connected yet, the handshake begins automatically once it is.
func (a *Association) StartHandshake() error {
	if !a.started.Load() {
		return ErrNotStarted
	}
	a.enqueue(loopEvent{kind: loopStartHandshake})
	return nil
}

// HandshakeTimeout is the entry point for an engine-driven retransmission
// timer. Engines that retransmit internally never call it.
func (a *Association) HandshakeTimeout() {
	a.enqueue(loopEvent{kind: loopHandshakeTimeout})
}

// Send encrypts and transmits one application payload. Delivery is best
// effort; failures surface as error events.
func (a *Association) Send(payload []byte) error {
	if !a.started.Load() {
		return ErrNotStarted
	}
	d := make([]byte, len(payload))
	copy(d, payload)
	a.enqueue(loopEvent{kind: loopSend, dgram: d})
	return nil
}

// Close disposes the association. If the session is encrypted, a shutdown
// alert is attempted before the transport is released. Safe to call more
// than once; must not be called from the OnEvent callback.
func (a *Association) Close() {
	a.closeOnce.Do(func() {
		if !a.started.Load() {
			// Never started: release resources directly.
			a.keepalive.Stop()
			a.tr.Close()
			a.mode.Store(uint32(ModeClosed))
			close(a.done)
			return
		}
		a.enqueue(loopEvent{kind: loopClose})
		<-a.done
		a.wg.Wait()
	})
}

// Done is closed when the association reaches its terminal state and the
// run loop has exited.
func (a *Association) Done() <-chan struct{} {
	return a.done
}

// Mode returns the current lifecycle mode.
func (a *Association) Mode() Mode {
	return Mode(a.mode.Load())
}

// PingCount returns the number of successfully sent keepalives.
func (a *Association) PingCount() uint64 {
	return a.ping.Load()
}

// Name returns the association name.
func (a *Association) Name() string {
	return a.name
}

// ConnectionID returns the session log identifier.
func (a *Association) ConnectionID() string {
	return a.connID
}

// enqueue delivers a loop event, dropping it once the loop has exited.
func (a *Association) enqueue(ev loopEvent) {
	select {
	case a.events <- ev:
	case <-a.done:
	}
}

// run processes loop events to completion, one at a time.
func (a *Association) run() {
	defer a.wg.Done()
	for ev := range a.events {
		if a.handle(ev) {
			return
		}
	}
}

// handle dispatches one loop event. Returns true when the loop must exit.
func (a *Association) handle(ev loopEvent) bool {
	switch ev.kind {
	case loopStartHandshake:
		a.handleStartHandshake()
	case loopConnected:
		a.handleConnected()
	case loopDatagram:
		return a.handleDatagram(ev.dgram)
	case loopPingTick:
		a.handlePingTick()
	case loopHandshakeTimeout:
		a.handleHandshakeTimeout()
	case loopTransportError:
		a.handleTransportError(ev.err)
	case loopSend:
		a.handleSend(ev.dgram)
	case loopClose:
		a.handleClose()
		return true
	}
	return false
}

func (a *Association) handleStartHandshake() {
	if a.Mode() == ModeClosed {
		return
	}
	if !a.tr.Connected() {
		a.awaitingConnect = true
		a.info(fmt.Sprintf("%s: connecting UDP transport first...", a.name))
		return
	}
	if err := a.eng.Begin(a.tr); err != nil {
		a.error(fmt.Sprintf("%s: failed to start a handshake - %v", a.name, err))
		return
	}
	a.setMode(ModeHandshaking, "handshake started")
	a.info(fmt.Sprintf("%s: starting a handshake", a.name))
}

func (a *Association) handleConnected() {
	if !a.awaitingConnect {
		return
	}
	a.awaitingConnect = false
	a.info(fmt.Sprintf("%s: UDP transport is now in connected state, continue with handshake...", a.name))
	a.handleStartHandshake()
}

// handleDatagram dispatches one inbound datagram. Returns true when a
// remote close ended the association and the loop must exit.
func (a *Association) handleDatagram(dgram []byte) bool {
	if a.Mode() == ModeClosed {
		return false
	}
	if len(dgram) == 0 {
		a.warning(fmt.Sprintf("%s: spurious read notification?", a.name))
		return false
	}

	if a.Mode() == ModeEncrypted {
		return a.handleEncryptedDatagram(dgram)
	}
	a.handleHandshakeDatagram(dgram)
	return false
}

func (a *Association) handleEncryptedDatagram(dgram []byte) bool {
	plaintext, err := a.eng.Decrypt(a.tr, dgram)
	if err != nil {
		if errors.Is(err, engine.ErrRemoteClosed) {
			a.error(fmt.Sprintf("%s: shutdown alert received", a.name))
			a.keepalive.Stop()
			_ = a.eng.Shutdown(a.tr)
			a.tr.Close()
			a.setMode(ModeClosed, "remote close")
			close(a.done)
			return true
		}
		a.error(fmt.Sprintf("%s: decrypt error - %v", a.name, err))
		return false
	}
	if len(plaintext) > 0 {
		a.logDatagram(log.DirectionIn, len(dgram), len(plaintext), false)
		a.emit(Event{
			Type:      EventServerResponse,
			PeerName:  a.name,
			Datagram:  dgram,
			Plaintext: plaintext,
		})
		return false
	}
	a.warning(fmt.Sprintf("%s: zero-length datagram received?", a.name))
	return false
}

func (a *Association) handleHandshakeDatagram(dgram []byte) {
	if err := a.eng.Advance(a.tr, dgram); err != nil {
		// Recoverable: further flights or retransmission may still succeed.
		a.error(fmt.Sprintf("%s: handshake error - %v", a.name, err))
		return
	}
	a.logDatagram(log.DirectionIn, len(dgram), 0, true)
	if a.eng.IsEncrypted() {
		a.setMode(ModeEncrypted, "handshake complete")
		a.info(fmt.Sprintf("%s: encrypted connection established!", a.name))
		a.keepalive.Start(a.interval)
		// The peer should observe liveness right away.
		a.handlePingTick()
		return
	}
	a.info(fmt.Sprintf("%s: continuing with handshake...", a.name))
}

func (a *Association) handlePingTick() {
	if a.Mode() != ModeEncrypted {
		// Stale tick delivered around a stop; ignore.
		return
	}
	seq := a.ping.Load()
	payload := fmt.Sprintf("I am %s, please, accept our ping %d", a.name, seq)
	n, err := a.eng.WriteEncrypted(a.tr, []byte(payload))
	if err != nil || n <= 0 {
		detail := "no bytes written"
		if err != nil {
			detail = err.Error()
		}
		a.error(fmt.Sprintf("%s: failed to send a ping - %s", a.name, detail))
		a.keepalive.Stop()
		return
	}
	a.logKeepalive(seq, n)
	a.ping.Add(1)
}

func (a *Association) handleHandshakeTimeout() {
	if a.Mode() == ModeClosed {
		return
	}
	a.warning(fmt.Sprintf("%s: handshake timeout, trying to re-transmit", a.name))
	if err := a.eng.HandleTimeout(a.tr); err != nil {
		a.error(fmt.Sprintf("%s: failed to re-transmit - %v", a.name, err))
	}
}

func (a *Association) handleTransportError(err error) {
	if a.Mode() == ModeClosed {
		return
	}
	a.error(fmt.Sprintf("%s: transport error - %v", a.name, err))
}

func (a *Association) handleSend(payload []byte) {
	if a.Mode() != ModeEncrypted {
		a.error(fmt.Sprintf("%s: cannot send, connection is not encrypted", a.name))
		return
	}
	n, err := a.eng.WriteEncrypted(a.tr, payload)
	if err != nil || n <= 0 {
		detail := "no bytes written"
		if err != nil {
			detail = err.Error()
		}
		a.error(fmt.Sprintf("%s: failed to send a datagram - %s", a.name, detail))
		return
	}
	a.logDatagram(log.DirectionOut, n, len(payload), false)
}

func (a *Association) handleClose() {
	if a.Mode() != ModeClosed {
		// Sends a best-effort shutdown alert when encrypted; otherwise
		// abandons the handshake and releases engine state.
		_ = a.eng.Shutdown(a.tr)
	}
	a.keepalive.Stop()
	a.tr.Close()
	a.setMode(ModeClosed, "closed by caller")
	close(a.done)
}

// setMode transitions the lifecycle mode and records it in the session log.
func (a *Association) setMode(m Mode, reason string) {
	old := a.Mode()
	if old == m {
		return
	}
	a.mode.Store(uint32(m))

	event := log.NewEvent(a.connID, a.name, log.DirectionNone, log.CategoryState)
	event.StateChange = &log.StateChangeEvent{From: old.String(), To: m.String(), Reason: reason}
	a.setRemoteAddr(&event)
	a.logger.Log(event)
}

func (a *Association) emit(ev Event) {
	if a.onEvent != nil {
		a.onEvent(ev)
	}
}

func (a *Association) info(msg string) {
	a.emit(Event{Type: EventInfo, Message: msg})
}

func (a *Association) warning(msg string) {
	a.emit(Event{Type: EventWarning, Message: msg})
	a.logError(msg, true)
}

func (a *Association) error(msg string) {
	a.emit(Event{Type: EventError, Message: msg})
	a.logError(msg, false)
}

func (a *Association) logError(msg string, warning bool) {
	event := log.NewEvent(a.connID, a.name, log.DirectionNone, log.CategoryError)
	event.Error = &log.ErrorEventData{Message: msg, Warning: warning}
	a.setRemoteAddr(&event)
	a.logger.Log(event)
}

func (a *Association) logDatagram(dir log.Direction, size, plaintextSize int, handshake bool) {
	category := log.CategoryDatagram
	if handshake {
		category = log.CategoryHandshake
	}
	event := log.NewEvent(a.connID, a.name, dir, category)
	event.Datagram = &log.DatagramEvent{Size: size, PlaintextSize: plaintextSize, Handshake: handshake}
	a.setRemoteAddr(&event)
	a.logger.Log(event)
}

func (a *Association) logKeepalive(seq uint64, bytesWritten int) {
	event := log.NewEvent(a.connID, a.name, log.DirectionOut, log.CategoryKeepalive)
	event.Keepalive = &log.KeepaliveEvent{Sequence: seq, BytesWritten: bytesWritten}
	a.setRemoteAddr(&event)
	a.logger.Log(event)
}

func (a *Association) setRemoteAddr(event *log.Event) {
	if addr := a.tr.RemoteAddr(); addr != nil {
		event.RemoteAddr = addr.String()
	}
}
