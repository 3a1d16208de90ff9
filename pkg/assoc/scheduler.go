package assoc

import (
	"sync"
	"time"
)

// Scheduler drives a repeating timer. The association starts it when the
// session becomes encrypted and stops it on keepalive failure, remote
// closure, or disposal.
type Scheduler interface {
	// Start begins ticking at the given interval. Starting an active
	// scheduler has no effect.
	Start(interval time.Duration)

	// Stop halts ticking. Stopping an inactive scheduler has no effect.
	Stop()

	// Active reports whether the scheduler is ticking.
	Active() bool
}

// SchedulerFactory builds a Scheduler that invokes onTick per tick.
// Tests inject a factory returning a manually driven scheduler.
type SchedulerFactory func(onTick func()) Scheduler

// TickerScheduler is a Scheduler backed by time.Ticker.
type TickerScheduler struct {
	onTick func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewTickerScheduler creates a scheduler that calls onTick per tick.
func NewTickerScheduler(onTick func()) *TickerScheduler {
	return &TickerScheduler{onTick: onTick}
}

// Start begins the tick loop.
func (s *TickerScheduler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.loop(interval, s.stopCh)
}

// Stop halts the tick loop.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// Active reports whether the tick loop is running.
func (s *TickerScheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *TickerScheduler) loop(interval time.Duration, stopCh chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

// Compile-time interface satisfaction check.
var _ Scheduler = (*TickerScheduler)(nil)
