// Package transport defines the narrow byte-stream abstraction the
// endpoint core consumes (§6): a reliable, in-order byte stream,
// regardless of whether it rides on TCP, TLS or WebSocket framing.
package transport

import "context"

// Transport is what the endpoint core requires of its peer connection.
// Implementations must deliver on_message payloads in the order bytes
// were produced and must not invoke callbacks re-entrantly from within
// another callback (§5 Callback reentrancy hazard) — post through a
// queue instead.
type Transport interface {
	// Connect establishes the byte-oriented stream. target is
	// transport-specific (host:port, a URL, ...) and opaque to the core.
	Connect(ctx context.Context, target string) error

	// Send writes bytes to the peer; ordering is preserved across calls.
	Send(b []byte) error

	// Close is idempotent; eventually produces OnClosed.
	Close() error

	// SetCallbacks wires the upward notifications the core uses to learn
	// about connection and data events. Called once, before Connect.
	SetCallbacks(cb Callbacks)
}

// Callbacks are the upward notifications a Transport delivers to the
// core. Implementations must serialize these (never call one while
// another for the same Transport is still executing).
type Callbacks struct {
	OnConnected func()
	OnMessage   func(b []byte)
	OnError     func(err error)
	OnClosed    func()
}
