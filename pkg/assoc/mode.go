package assoc

// Mode represents the association lifecycle state.
type Mode uint8

const (
	// ModeAwaitingTransport indicates the transport is not connected yet.
	ModeAwaitingTransport Mode = iota

	// ModeHandshaking indicates the handshake is in progress.
	ModeHandshaking

	// ModeEncrypted indicates the session reached encrypted steady state.
	ModeEncrypted

	// ModeClosed indicates the association is terminal.
	ModeClosed
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeAwaitingTransport:
		return "AWAITING_TRANSPORT"
	case ModeHandshaking:
		return "HANDSHAKING"
	case ModeEncrypted:
		return "ENCRYPTED"
	case ModeClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
