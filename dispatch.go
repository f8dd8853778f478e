package mqtt

import "github.com/golang-io/mqtt-endpoint/packet"

// dispatchInbound routes one fully-decoded packet to its handler,
// mirroring the teacher's single switch-over-packet-type dispatch in
// conn.go's serve loop.
func (e *Endpoint) dispatchInbound(pkt packet.Packet) {
	// Any received packet counts as proof of life and cancels the
	// pending PINGRESP wait (§4.D), not just a PINGRESP itself.
	e.timers.Cancel(TimerPingrespRecv)
	switch p := pkt.(type) {
	case *packet.CONNACK:
		e.onConnack(p)
	case *packet.PUBLISH:
		e.onPublish(p)
	case *packet.PUBACK:
		e.onPuback(p)
	case *packet.PUBREC:
		e.onPubrec(p)
	case *packet.PUBREL:
		e.onPubrelRecv(p)
	case *packet.PUBCOMP:
		e.onPubcomp(p)
	case *packet.SUBACK:
		e.deliver(p, false)
	case *packet.UNSUBACK:
		e.deliver(p, false)
	case *packet.PINGRESP:
		// no further action: the cancel above already covers it
	case *packet.PINGREQ:
		if e.cfg.AutoPingResponse {
			resp := &packet.PINGRESP{FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0xD}}
			_ = e.writePacket(resp)
		} else {
			e.deliver(p, false)
		}
	case *packet.DISCONNECT:
		e.onPeerDisconnect(p)
	case *packet.AUTH:
		e.deliver(p, false)
	}
}

// onPeerDisconnect handles a server-initiated DISCONNECT: the connection
// ends immediately without our side sending one back (§4.B).
func (e *Endpoint) onPeerDisconnect(d *packet.DISCONNECT) {
	e.timers.CancelAll()
	e.phase = Disconnected
	if e.transport != nil {
		_ = e.transport.Close()
	}
	e.deliverErr(newError(Closed, d.ReasonCode))
}
