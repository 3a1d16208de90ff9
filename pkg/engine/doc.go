// Package engine provides the secure record layer for secdgram.
//
// A RecordEngine owns the DTLS state for exactly one peer: it drives the
// handshake one datagram at a time, encrypts and decrypts application
// datagrams once the session is established, and signals remote closure.
// Engines are not reusable across peers; one association owns one engine.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│    Application datagrams       │
//	├────────────────────────────────┤
//	│      DTLS 1.2 records          │
//	├────────────────────────────────┤
//	│           UDP                  │
//	└────────────────────────────────┘
//
// # Security Configuration
//
// The production engine (Pion, backed by pion/dtls) authenticates with a
// pre-shared key only:
//   - Key exchange: PSK (TLS_PSK_WITH_AES_128_CCM_8 by default)
//   - Peer verification: none (no certificates are exchanged)
//
// Every option is enumerated explicitly in PionOptions; there are no
// implicit TLS defaults.
//
// # Driving Model
//
// The engine never reads the network itself. The association feeds it one
// inbound datagram per call (Advance during the handshake, Decrypt once
// encrypted) and the engine sends outbound flights and records through the
// Sender it was given at Begin. All methods are non-blocking apart from
// short bounded settle windows.
package engine
