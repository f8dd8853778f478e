package mqtt

import (
	"bytes"
	"log"
	"sync"

	"github.com/golang-io/mqtt-endpoint/packet"
	"github.com/golang-io/mqtt-endpoint/session"
	"github.com/golang-io/mqtt-endpoint/transport"
)

// Endpoint is the MQTT protocol object: it owns session state and
// drives the wire exchange over an attached Transport (§2, §5). All
// mutation happens on one orchestrator goroutine; callers interact only
// through queue-style request methods (Send, Recv, AcquirePacketID, ...).
type Endpoint struct {
	cfg Config

	transport transport.Transport
	stat      *Stat

	store    *session.Store
	outAlias *session.OutboundAliases
	inAlias  *session.InboundAliases
	timers   *timerSet

	events chan event
	recvCh chan recvResult

	// pendingRecv holds a blocked Recv's completion channel when it was
	// requested before any packet was available; only touched inside
	// run() (no locking needed, §5).
	pendingRecv chan recvResult

	closeOnce sync.Once
	closed    chan struct{}

	// orchestrator-owned state, touched only inside run()
	phase              ConnectionPhase
	sessionPresent     bool
	cleanStart         bool
	requestedKeepAlive uint16
	effectiveKeepAlive uint16
	peerTopicAliasMax  uint16
	peerMaxPacketSize  uint32
	rxbuf              bytes.Buffer
	pendingSends       []pendingSend // queued while send quota == 0 (§4.E suspension points)
	shuttingDown       bool
	hasConnectedOnce   bool // set after the first successful CONNACK, to distinguish a reconnect from the initial connect
}

type pendingSend struct {
	pkt *packet.PUBLISH
}

// New constructs an Endpoint from cfg. No I/O occurs until Attach.
func New(opts ...Option) *Endpoint {
	cfg := newConfig(opts...)
	ep := &Endpoint{
		cfg:      cfg,
		stat:     newStat(cfg.ClientID),
		store:    session.NewStore(),
		outAlias: session.NewOutboundAliases(0),
		inAlias:  session.NewInboundAliases(int(cfg.OurTopicAliasMaximum)),
		timers:   newTimerSet(),
		events:   make(chan event, 256),
		recvCh:   make(chan recvResult, 256),
		closed:   make(chan struct{}),
		phase:    Disconnected,
	}
	return ep
}

// Attach associates transport with the endpoint and starts the
// orchestrator goroutine. Callbacks post events onto the single event
// channel rather than mutating state directly, honoring the
// single-owner concurrency model (§5).
func (e *Endpoint) Attach(t transport.Transport) {
	e.transport = t
	t.SetCallbacks(transport.Callbacks{
		OnConnected: func() { e.postEvent(evTransportConnected{}) },
		OnMessage:   func(b []byte) { e.postEvent(evBytes{b: b}) },
		OnError:     func(err error) { e.postEvent(evTransportClosed{err: err}) },
		OnClosed:    func() { e.postEvent(evTransportClosed{}) },
	})
	go e.run()
}

func (e *Endpoint) postEvent(ev event) {
	select {
	case e.events <- ev:
	case <-e.closed:
	}
}

// IsConnected reports whether the endpoint is in the Connected phase.
func (e *Endpoint) IsConnected() bool {
	done := make(chan ConnectionPhase, 1)
	e.postEvent(evQueryPhase{done: done})
	select {
	case p := <-done:
		return p == Connected
	case <-e.closed:
		return false
	}
}

// Close sends DISCONNECT if connected, then closes the transport and
// stops the orchestrator. It returns as soon as the transport is closed;
// it does not wait for the peer to close the connection or for the
// shutdown timer to fire.
func (e *Endpoint) Close() error {
	done := make(chan error, 1)
	e.postEvent(evClose{done: done})
	select {
	case err := <-done:
		return err
	case <-e.closed:
		return nil
	}
}

func (e *Endpoint) logf(tag, format string, args ...any) {
	log.Printf("[%s] client_id=%s "+format, append([]any{tag, e.cfg.ClientID}, args...)...)
}
