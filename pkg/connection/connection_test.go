package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Jitter: 0})

		// Expected sequence: 1s, 2s, 4s, 8s, 16s, 30s, 30s...
		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			30 * time.Second,
			30 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			got := b.Next()
			if got != exp {
				t.Errorf("Attempt %d: delay = %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		samples := make([]time.Duration, 10)
		for i := range samples {
			b := NewBackoff()
			samples[i] = b.Next()
		}

		// All samples should be between 1s and 1.25s.
		for i, s := range samples {
			if s < 1*time.Second || s > time.Duration(float64(1*time.Second)*1.25)+time.Millisecond {
				t.Errorf("Sample %d: %v out of expected range [1s, 1.25s]", i, s)
			}
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Jitter: 0})

		for i := 0; i < 5; i++ {
			b.Next()
		}
		if b.Attempts() != 5 {
			t.Errorf("Attempts() = %d, want 5", b.Attempts())
		}

		b.Reset()

		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
		if got := b.Next(); got != InitialBackoff {
			t.Errorf("Next() = %v after reset, want %v", got, InitialBackoff)
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0,
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond, // Max
			500 * time.Millisecond,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("Attempt %d: delay = %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("InvalidConfigFallsBackToDefaults", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    -1 * time.Second,
			Max:        -1 * time.Second,
			Multiplier: 0.5,
			Jitter:     -1,
		})
		if got := b.Next(); got != InitialBackoff {
			t.Errorf("Next() = %v, want %v", got, InitialBackoff)
		}
	})
}

// fakeSession is a Session whose lifetime the test controls.
type fakeSession struct {
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{done: make(chan struct{})}
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// end simulates the session terminating on its own.
func (s *fakeSession) end() { s.Close() }

func supervisorBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{
		Initial: 5 * time.Millisecond,
		Max:     20 * time.Millisecond,
		Jitter:  0,
	})
}

func waitForState(t *testing.T, s *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("supervisor state = %v, want %v", s.State(), want)
}

func TestSupervisor(t *testing.T) {
	t.Run("DialsAndRuns", func(t *testing.T) {
		session := newFakeSession()
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return session, nil
		})
		sup.backoff = supervisorBackoff()

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		defer sup.Close()

		waitForState(t, sup, StateRunning)
		if sup.Session() != session {
			t.Error("Session() should return the dialed session")
		}
	})

	t.Run("RedialsAfterSessionEnds", func(t *testing.T) {
		var dials atomic.Int32
		sessions := []*fakeSession{newFakeSession(), newFakeSession()}
		sup := NewSupervisor(func(context.Context) (Session, error) {
			n := dials.Add(1)
			return sessions[n-1], nil
		})
		sup.backoff = supervisorBackoff()

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		defer sup.Close()

		waitForState(t, sup, StateRunning)
		sessions[0].end()

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && dials.Load() < 2 {
			time.Sleep(2 * time.Millisecond)
		}
		if dials.Load() < 2 {
			t.Fatal("supervisor did not redial after the session ended")
		}
		waitForState(t, sup, StateRunning)
	})

	t.Run("BacksOffOnDialFailure", func(t *testing.T) {
		var dials atomic.Int32
		var retries atomic.Int32
		session := newFakeSession()
		sup := NewSupervisor(func(context.Context) (Session, error) {
			if dials.Add(1) < 3 {
				return nil, errors.New("connection refused")
			}
			return session, nil
		})
		sup.backoff = supervisorBackoff()
		sup.OnRetry(func(attempt int, delay time.Duration) { retries.Add(1) })

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		defer sup.Close()

		waitForState(t, sup, StateRunning)
		if got := dials.Load(); got != 3 {
			t.Errorf("dials = %d, want 3", got)
		}
		if got := retries.Load(); got != 2 {
			t.Errorf("retries = %d, want 2", got)
		}
	})

	t.Run("BackoffResetsOnSuccess", func(t *testing.T) {
		var dials atomic.Int32
		sup := NewSupervisor(func(context.Context) (Session, error) {
			if dials.Add(1)%2 == 1 {
				return nil, errors.New("connection refused")
			}
			return newFakeSession(), nil
		})
		sup.backoff = supervisorBackoff()

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		defer sup.Close()

		waitForState(t, sup, StateRunning)
		if got := sup.backoff.Attempts(); got != 0 {
			t.Errorf("backoff attempts = %d after success, want 0", got)
		}
	})

	t.Run("OnSessionCallback", func(t *testing.T) {
		session := newFakeSession()
		got := make(chan Session, 1)
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return session, nil
		})
		sup.backoff = supervisorBackoff()
		sup.OnSession(func(s Session) { got <- s })

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		defer sup.Close()

		select {
		case s := <-got:
			if s != session {
				t.Error("OnSession delivered the wrong session")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("OnSession was not invoked")
		}
	})

	t.Run("StateChanges", func(t *testing.T) {
		var mu sync.Mutex
		var transitions []State
		session := newFakeSession()
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return session, nil
		})
		sup.backoff = supervisorBackoff()
		sup.OnStateChange(func(_, next State) {
			mu.Lock()
			transitions = append(transitions, next)
			mu.Unlock()
		})

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		waitForState(t, sup, StateRunning)
		sup.Close()

		mu.Lock()
		defer mu.Unlock()
		want := []State{StateDialing, StateRunning, StateClosed}
		if len(transitions) != len(want) {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
		for i := range want {
			if transitions[i] != want[i] {
				t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
			}
		}
	})

	t.Run("CloseDisposesSession", func(t *testing.T) {
		session := newFakeSession()
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return session, nil
		})
		sup.backoff = supervisorBackoff()

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		waitForState(t, sup, StateRunning)
		sup.Close()

		select {
		case <-session.Done():
		default:
			t.Error("Close() should dispose the live session")
		}
		if got := sup.State(); got != StateClosed {
			t.Errorf("State() = %v, want %v", got, StateClosed)
		}
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return newFakeSession(), nil
		})
		sup.backoff = supervisorBackoff()

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		sup.Close()
		sup.Close()
	})

	t.Run("RunAfterClose", func(t *testing.T) {
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return newFakeSession(), nil
		})
		sup.Close()
		if err := sup.Run(context.Background()); !errors.Is(err, ErrSupervisorClosed) {
			t.Errorf("Run() error = %v, want ErrSupervisorClosed", err)
		}
	})

	t.Run("DoubleRun", func(t *testing.T) {
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return newFakeSession(), nil
		})
		sup.backoff = supervisorBackoff()

		if err := sup.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		defer sup.Close()
		if err := sup.Run(context.Background()); !errors.Is(err, ErrSupervisorRunning) {
			t.Errorf("second Run() error = %v, want ErrSupervisorRunning", err)
		}
	})

	t.Run("ContextCancelStopsLoop", func(t *testing.T) {
		sup := NewSupervisor(func(context.Context) (Session, error) {
			return nil, errors.New("connection refused")
		})
		sup.backoff = supervisorBackoff()

		ctx, cancel := context.WithCancel(context.Background())
		if err := sup.Run(ctx); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		cancel()
		sup.Close()

		if got := sup.State(); got != StateClosed {
			t.Errorf("State() = %v, want %v", got, StateClosed)
		}
	})
}
