// Package transport provides the unreliable datagram transport for secdgram.
//
// The transport layer handles:
//   - UDP socket bring-up against a single fixed peer
//   - Asynchronous connect-completion and readable notifications
//   - Best-effort datagram send
//
// A Transport is exclusively owned by one association. Notifications are
// delivered through callbacks registered before Connect; each callback is
// invoked from a transport-owned goroutine, one datagram at a time, in
// arrival order. Zero-length datagrams are delivered as-is so the consumer
// decides how to treat a spurious read.
//
// The DTLS record layer above this package treats the transport as a plain
// datagram pipe; no framing or reliability is added here.
package transport
