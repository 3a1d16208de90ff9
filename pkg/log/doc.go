// Package log provides structured session logging for secdgram.
//
// This package defines the Logger interface and Event types for capturing
// session-level events (handshake progress, datagram traffic, keepalives,
// state changes, errors). It is separate from operational logging (slog) -
// session capture provides a complete machine-readable event trace for
// debugging a secure datagram association.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.SessionLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.SessionLogger, _ = log.NewFileLogger("/var/log/secdgram/client.sdlog")
//
//	// Both: use MultiLogger
//	cfg.SessionLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/secdgram/client.sdlog"),
//	)
//
// # Event Types
//
// Events carry one of several typed payloads:
//   - Datagram: raw datagram traffic (DatagramEvent)
//   - StateChange: association mode transitions (StateChangeEvent)
//   - Keepalive: ping sends (KeepaliveEvent)
//   - Error: failures at any layer (ErrorEventData)
//
// # File Format
//
// Log files use CBOR encoding with .sdlog extension.
package log
