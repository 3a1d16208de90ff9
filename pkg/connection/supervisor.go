package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Supervisor errors.
var (
	ErrSupervisorClosed  = errors.New("supervisor closed")
	ErrSupervisorRunning = errors.New("supervisor already running")
)

// State represents the supervisor state.
type State uint8

const (
	// StateIdle indicates the supervisor has not been started.
	StateIdle State = iota

	// StateDialing indicates a session dial is in progress.
	StateDialing

	// StateRunning indicates a live session.
	StateRunning

	// StateBackingOff indicates the supervisor is waiting to redial.
	StateBackingOff

	// StateClosed indicates the supervisor has shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDialing:
		return "DIALING"
	case StateRunning:
		return "RUNNING"
	case StateBackingOff:
		return "BACKING_OFF"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session is a live association from the supervisor's point of view.
// Satisfied by assoc.Association.
type Session interface {
	// Done is closed when the session reaches its terminal state.
	Done() <-chan struct{}

	// Close disposes the session.
	Close()
}

// DialFunc builds and starts a fresh session. Each call must construct a
// new transport and record engine; sessions are not reusable.
type DialFunc func(ctx context.Context) (Session, error)

// Supervisor keeps one session alive, rebuilding it with backoff whenever
// it ends. Exactly one session runs at a time.
type Supervisor struct {
	dial    DialFunc
	backoff *Backoff

	mu      sync.Mutex
	state   State
	session Session
	running bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	onStateChange func(oldState, newState State)
	onSession     func(s Session)
	onRetry       func(attempt int, delay time.Duration)
}

// NewSupervisor creates a supervisor around dial.
func NewSupervisor(dial DialFunc) *Supervisor {
	return &Supervisor{
		dial:    dial,
		backoff: NewBackoff(),
		state:   StateIdle,
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the live session, or nil outside StateRunning.
func (s *Supervisor) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// OnStateChange sets a callback for state transitions. Must be set before
// Run.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.onStateChange = fn
}

// OnSession sets a callback invoked with each newly dialed session. Must
// be set before Run.
func (s *Supervisor) OnSession(fn func(sess Session)) {
	s.onSession = fn
}

// OnRetry sets a callback invoked before each backoff wait. Must be set
// before Run.
func (s *Supervisor) OnRetry(fn func(attempt int, delay time.Duration)) {
	s.onRetry = fn
}

// Run starts the dial loop in the background. Cancelling ctx stops it.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSupervisorClosed
	}
	if s.running {
		s.mu.Unlock()
		return ErrSupervisorRunning
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Close stops the loop and disposes the live session, if any.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session != nil {
		session.Close()
	}
	s.setState(StateClosed)
}

func (s *Supervisor) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(StateDialing)
		session, err := s.dial(ctx)
		if err != nil {
			if !s.waitBackoff(ctx) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.session = session
		s.mu.Unlock()
		s.backoff.Reset()
		s.setState(StateRunning)
		if s.onSession != nil {
			s.onSession(session)
		}

		select {
		case <-ctx.Done():
			return
		case <-session.Done():
		}

		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()

		if !s.waitBackoff(ctx) {
			return
		}
	}
}

// waitBackoff sleeps out the next backoff delay. Returns false when the
// loop must exit.
func (s *Supervisor) waitBackoff(ctx context.Context) bool {
	delay := s.backoff.Next()
	if s.onRetry != nil {
		s.onRetry(s.backoff.Attempts(), delay)
	}
	s.setState(StateBackingOff)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func (s *Supervisor) setState(next State) {
	s.mu.Lock()
	old := s.state
	if old == next || old == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	if s.onStateChange != nil {
		s.onStateChange(old, next)
	}
}
