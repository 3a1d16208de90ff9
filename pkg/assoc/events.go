package assoc

// EventType classifies an observable association event.
type EventType uint8

const (
	// EventInfo reports lifecycle progress (connecting, handshake started,
	// encrypted established).
	EventInfo EventType = iota

	// EventWarning reports a recoverable anomaly (spurious read,
	// zero-length plaintext).
	EventWarning

	// EventError reports a notable failure; the session may or may not
	// continue.
	EventError

	// EventServerResponse carries one decrypted application datagram.
	EventServerResponse
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventInfo:
		return "INFO"
	case EventWarning:
		return "WARNING"
	case EventError:
		return "ERROR"
	case EventServerResponse:
		return "SERVER_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to the OnEvent callback for every observable
// association event.
type Event struct {
	// Type classifies the event.
	Type EventType

	// Message is the human-readable text for info/warning/error events.
	Message string

	// PeerName is the association name, set on server responses.
	PeerName string

	// Datagram is the raw wire datagram, set on server responses.
	Datagram []byte

	// Plaintext is the decrypted payload, set on server responses.
	Plaintext []byte
}
