// Package assoc implements the client-side association state machine for
// secdgram: one secure datagram session to one peer.
//
// An Association owns one transport, one record engine, and one keepalive
// timer, and drives them through the session lifecycle:
//
//	AWAITING_TRANSPORT → HANDSHAKING → ENCRYPTED → CLOSED
//
// The mode only advances forward; an error or close forces CLOSED from any
// state. The keepalive timer runs exactly while the session is ENCRYPTED.
//
// # Event Model
//
// All state transitions happen on a single run-loop goroutine. Transport
// readability, transport connect completion, keepalive ticks, and handshake
// retransmission timeouts are delivered as loop events and each handler
// runs to completion before the next; no handler blocks and no locking is
// needed inside them.
//
// Observable progress is surfaced through a single OnEvent callback:
// info messages for lifecycle progress, warnings for recoverable anomalies,
// errors for notable failures, and server responses carrying decrypted
// application payloads.
//
// # Usage
//
//	a, err := assoc.New(assoc.Config{
//	    Name:      "alice",
//	    Transport: tr,
//	    Engine:    eng,
//	})
//	a.OnEvent(func(e assoc.Event) { ... })
//	a.Start(ctx)
//	tr.Connect(ctx)
//	a.StartHandshake()
//	...
//	a.Close()
//
// Close must not be called from inside the OnEvent callback.
package assoc
