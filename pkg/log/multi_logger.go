package log

// MultiLogger fans a session event out to several sinks. The client uses
// it to mirror session traffic to the console and to a session log file
// at the same time.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a fan-out over the given sinks. Events are
// delivered in the order the sinks were passed.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log delivers the event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
