package log

import (
	"time"
)

// Event represents a session log event captured by an association.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the association (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Association is the association name (also the PSK identity).
	Association string `cbor:"3,keyasint,omitempty"`

	// Direction indicates datagram flow.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Datagram    *DatagramEvent    `cbor:"7,keyasint,omitempty"`  // Raw datagram traffic
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`  // Mode transitions
	Keepalive   *KeepaliveEvent   `cbor:"9,keyasint,omitempty"`  // Ping sends
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of datagram flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming datagram.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing datagram.
	DirectionOut Direction = 1
	// DirectionNone indicates an event with no associated flow.
	DirectionNone Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryDatagram indicates datagram traffic (encrypted or handshake).
	CategoryDatagram Category = 0
	// CategoryHandshake indicates handshake progress.
	CategoryHandshake Category = 1
	// CategoryState indicates an association mode change.
	CategoryState Category = 2
	// CategoryKeepalive indicates a keepalive ping.
	CategoryKeepalive Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryDatagram:
		return "DATAGRAM"
	case CategoryHandshake:
		return "HANDSHAKE"
	case CategoryState:
		return "STATE"
	case CategoryKeepalive:
		return "KEEPALIVE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DatagramEvent captures datagram traffic.
type DatagramEvent struct {
	// Size is the datagram size in bytes on the wire.
	Size int `cbor:"1,keyasint"`

	// PlaintextSize is the decrypted payload size (incoming, post-handshake).
	PlaintextSize int `cbor:"2,keyasint,omitempty"`

	// Handshake is true when the datagram was consumed by the handshake.
	Handshake bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures an association mode transition.
type StateChangeEvent struct {
	// From is the previous mode name.
	From string `cbor:"1,keyasint"`

	// To is the new mode name.
	To string `cbor:"2,keyasint"`

	// Reason optionally explains the transition.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// KeepaliveEvent captures a keepalive ping send.
type KeepaliveEvent struct {
	// Sequence is the ping counter value carried in the payload.
	Sequence uint64 `cbor:"1,keyasint"`

	// BytesWritten is the number of bytes the record engine reported written.
	BytesWritten int `cbor:"2,keyasint"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Warning is true for recoverable anomalies, false for errors.
	Warning bool `cbor:"2,keyasint,omitempty"`
}

// NewEvent creates an Event with the timestamp set to now.
func NewEvent(connID, association string, direction Direction, category Category) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Association:  association,
		Direction:    direction,
		Category:     category,
	}
}
