package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes session events to an slog.Logger.
// Useful for development when you want to see session events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Association != "" {
		attrs = append(attrs, slog.String("association", event.Association))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	// Add type-specific attributes
	switch {
	case event.Datagram != nil:
		attrs = append(attrs,
			slog.Int("size", event.Datagram.Size),
			slog.Bool("handshake", event.Datagram.Handshake),
		)
		if event.Datagram.PlaintextSize > 0 {
			attrs = append(attrs, slog.Int("plaintext_size", event.Datagram.PlaintextSize))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("from", event.StateChange.From),
			slog.String("to", event.StateChange.To),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Keepalive != nil:
		attrs = append(attrs,
			slog.Uint64("seq", event.Keepalive.Sequence),
			slog.Int("bytes", event.Keepalive.BytesWritten),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error", event.Error.Message),
			slog.Bool("warning", event.Error.Warning),
		)
	}

	level := slog.LevelDebug
	if event.Category == CategoryError && event.Error != nil && !event.Error.Warning {
		level = slog.LevelWarn
	}

	a.logger.LogAttrs(context.Background(), level, "session event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
