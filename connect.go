package mqtt

import "github.com/golang-io/mqtt-endpoint/packet"

// sendConnect implements the Disconnected->Connecting transition of the
// §4.B state table: only legal from Disconnected, clears session state
// right away when clean_start is set, and arms the connection
// establishment timer once CONNECT is written.
func (e *Endpoint) sendConnect(conn *packet.CONNECT) error {
	if e.phase != Disconnected {
		return newError(ProtocolError, packet.ReasonCode{})
	}
	e.cleanStart = conn.CleanStart
	e.requestedKeepAlive = conn.KeepAlive
	// Packet ids and topic-alias maps are local-only bookkeeping, never
	// part of persisted session state, so they are cleared on every
	// transport reopen regardless of clean_start/session_present.
	e.store.PacketIDs.Reset()
	e.outAlias.Reset()
	e.inAlias.Reset()
	if conn.CleanStart {
		e.store.ClearSession()
	}
	if e.cfg.Version == V500 {
		// Advertise our own limits to the peer (§3 Configuration); these
		// only exist as CONNECT properties in v5.0.
		if conn.Props == nil {
			conn.Props = &packet.Properties{}
		}
		if e.cfg.OurTopicAliasMaximum > 0 {
			conn.Props.SetTopicAliasMaximum(e.cfg.OurTopicAliasMaximum)
		}
		if e.cfg.OurMaximumPacketSize > 0 {
			conn.Props.SetMaximumPacketSize(e.cfg.OurMaximumPacketSize)
		}
		if e.cfg.OurReceiveMaximum > 0 {
			conn.Props.SetReceiveMaximum(e.cfg.OurReceiveMaximum)
		}
	}
	if err := e.writePacket(conn); err != nil {
		return err
	}
	e.phase = Connecting
	e.timers.Arm(TimerConnectionEstablish, e.cfg.ConnectionEstablishTimeout)
	return nil
}

// onConnack implements the Connecting->{Connected,Disconnected} leg of
// the §4.B state table: on success, compute the effective keep-alive,
// apply session-present semantics, arm the keep-alive timer and drain
// anything stored for retransmission; on failure the connection is torn
// down without ever reaching Connected.
func (e *Endpoint) onConnack(ack *packet.CONNACK) {
	e.timers.Cancel(TimerConnectionEstablish)

	// CONNACK success is always code 0x00 in both dialects; v3.1.1's
	// failure codes (0x01-0x05) sit below the v5.0 convention of >=0x80,
	// so IsError() (written for v5.0 reason codes) doesn't apply here.
	if ack.ReasonCode.Code != 0 {
		e.phase = Disconnected
		if e.transport != nil {
			_ = e.transport.Close()
		}
		e.deliverErr(newError(ConnectionRefused, ack.ReasonCode))
		return
	}

	if e.hasConnectedOnce {
		e.stat.Reconnects.Inc()
	}
	e.hasConnectedOnce = true

	e.phase = Connected
	e.sessionPresent = ack.SessionPresent
	if !ack.SessionPresent {
		// Per §3 Lifecycle: the peer holds no session state for us, so
		// ours must agree — except what the caller is about to send,
		// which starts fresh below.
		e.store.ClearSession()
	}
	e.outAlias.Reset()
	e.inAlias.Reset()

	e.effectiveKeepAlive = e.requestedKeepAlive
	if ack.Props != nil && ack.Props.HasServerKeepAlive() {
		e.effectiveKeepAlive = ack.Props.ServerKeepAlive
	}
	e.peerMaxPacketSize = 0
	e.peerTopicAliasMax = 0
	if ack.Props != nil {
		if ack.Props.HasMaximumPacketSize() {
			e.peerMaxPacketSize = ack.Props.MaximumPacketSize
		}
		if ack.Props.HasTopicAliasMaximum() {
			e.peerTopicAliasMax = ack.Props.TopicAliasMaximum
			e.outAlias.SetCapacity(int(e.peerTopicAliasMax))
		}
		if ack.Props.HasReceiveMaximum() {
			e.store.SetPeerReceiveMaximum(ack.Props.ReceiveMaximum)
		}
	}
	e.stat.SendQuota.Set(float64(e.store.SendQuota()))

	if e.effectiveKeepAlive > 0 {
		e.timers.Arm(TimerPingreqSend, e.pingInterval())
	}

	if ack.SessionPresent {
		e.retransmitStored()
	}

	e.deliver(ack, false)
}
