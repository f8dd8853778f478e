package mqtt

import "github.com/golang-io/mqtt-endpoint/packet"

// Send queues pkt for the orchestrator to write, applying whatever
// state-machine rules that packet type carries (§4.B), and blocks until
// it has been handled — written, queued for flow control, or rejected.
// A QoS>0 PUBLISH sent while the send quota is exhausted is queued and
// Send returns nil; it is written once an acknowledgement returns quota.
// A PacketTooLarge result is non-fatal. An error returned here never
// closes the endpoint, whatever its Error.Fatal() reports.
func (e *Endpoint) Send(pkt packet.Packet) error {
	done := make(chan error, 1)
	e.postEvent(evSend{pkt: pkt, done: done})
	select {
	case err := <-done:
		return err
	case <-e.closed:
		return newError(Closed, packet.ReasonCode{})
	}
}

// handleSendRequest is the orchestrator-side half of Send, run
// exclusively inside run() (§5).
func (e *Endpoint) handleSendRequest(pkt packet.Packet) error {
	switch p := pkt.(type) {
	case *packet.CONNECT:
		return e.sendConnect(p)
	case *packet.PUBLISH:
		return e.sendPublish(p)
	case *packet.DISCONNECT:
		return e.sendDisconnect(p)
	default:
		return e.sendPassthrough(pkt)
	}
}

// sendDisconnect implements the Connected->Disconnecting leg of the
// §4.B state table.
func (e *Endpoint) sendDisconnect(d *packet.DISCONNECT) error {
	if e.phase != Connected {
		return newError(NotConnected, packet.ReasonCode{})
	}
	if err := e.writePacket(d); err != nil {
		return err
	}
	e.phase = Disconnecting
	e.timers.Arm(TimerShutdown, e.cfg.ShutdownTimeout)
	return nil
}

// sendPassthrough covers packet types with no state-machine role beyond
// "write it while connected": SUBSCRIBE, UNSUBSCRIBE, PINGREQ, AUTH, and
// manually-driven acks when AutoPubResponse is false.
func (e *Endpoint) sendPassthrough(pkt packet.Packet) error {
	if e.phase != Connected {
		return newError(NotConnected, packet.ReasonCode{})
	}
	return e.writePacket(pkt)
}
