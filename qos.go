package mqtt

import (
	"github.com/golang-io/mqtt-endpoint/packet"
	"github.com/golang-io/mqtt-endpoint/session"
)

// sendPublish implements the §4.B send-side QoS handshakes. QoS 0 is a
// bare write. QoS 1/2 must have a caller-acquired PacketID, consult the
// send quota before writing (flow control, §4.B), and are stored so they
// can be retransmitted after a reconnect.
func (e *Endpoint) sendPublish(pub *packet.PUBLISH) error {
	if e.phase != Connected {
		return newError(NotConnected, packet.ReasonCode{})
	}

	if pub.QoS == 0 {
		e.applyOutboundAlias(pub)
		return e.writePacket(pub)
	}

	if pub.PacketID == 0 {
		return ErrPacketIDRequired
	}
	if e.store.SendQuota() <= 0 {
		// Queued, not written: a suspension point, not a failure (§4.E).
		// It is written once an ack returns quota (drainPendingSends).
		e.pendingSends = append(e.pendingSends, pendingSend{pkt: pub})
		return nil
	}

	e.store.StorePublish(session.StoredPublish{
		PacketID: pub.PacketID,
		Topic:    pub.Message.TopicName,
		Payload:  pub.Message.Content,
		QoS:      pub.QoS,
		Retain:   pub.Retain != 0,
	})
	e.stat.SendQuota.Set(float64(e.store.SendQuota()))
	// Aliases are applied only after storing, so the stored topic is
	// always the full name.
	e.applyOutboundAlias(pub)
	return e.writePacket(pub)
}

// retransmitStored resends every stored publish/PUBREL in original
// order after a reconnect with session_present=true, with DUP set and
// topic aliases stripped (§4.B, testable property 2) — aliases are
// never part of session state, so every retransmission carries the full
// topic name regardless of what was sent originally.
func (e *Endpoint) retransmitStored() {
	for _, sp := range e.store.Ordered() {
		if sp.Phase == session.PhasePubrel {
			rel := &packet.PUBREL{
				FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0x6, QoS: 1},
				PacketID:    sp.PacketID,
			}
			_ = e.writePacket(rel)
			continue
		}
		pub := &packet.PUBLISH{
			FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0x3, QoS: sp.QoS, Dup: 1, Retain: boolToBit(sp.Retain)},
			Message:     packet.Message{TopicName: sp.Topic, Content: sp.Payload},
			PacketID:    sp.PacketID,
		}
		_ = e.writePacket(pub)
	}
}

func boolToBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (e *Endpoint) onPuback(ack *packet.PUBACK) {
	e.store.CompleteOutbound(ack.PacketID)
	e.stat.SendQuota.Set(float64(e.store.SendQuota()))
	e.drainPendingSends()
	e.deliver(ack, false)
}

func (e *Endpoint) onPubrec(rec *packet.PUBREC) {
	if rec.ReasonCode.IsError() {
		// Terminates the QoS 2 exchange early (§4.B): no PUBREL follows.
		e.store.CompleteOutbound(rec.PacketID)
		e.stat.SendQuota.Set(float64(e.store.SendQuota()))
		e.drainPendingSends()
		e.deliver(rec, false)
		return
	}
	e.store.MarkPubrelPhase(rec.PacketID)
	rel := &packet.PUBREL{
		FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0x6, QoS: 1},
		PacketID:    rec.PacketID,
	}
	_ = e.writePacket(rel)
	e.deliver(rec, false)
}

func (e *Endpoint) onPubcomp(comp *packet.PUBCOMP) {
	e.store.CompleteOutbound(comp.PacketID)
	e.stat.SendQuota.Set(float64(e.store.SendQuota()))
	e.drainPendingSends()
	e.deliver(comp, false)
}

// drainPendingSends writes queued PUBLISHes FIFO as quota is returned by
// an acknowledgement, per the §4.E suspension-point contract for send.
func (e *Endpoint) drainPendingSends() {
	for len(e.pendingSends) > 0 && e.store.SendQuota() > 0 {
		ps := e.pendingSends[0]
		e.pendingSends = e.pendingSends[1:]
		e.store.StorePublish(session.StoredPublish{
			PacketID: ps.pkt.PacketID,
			Topic:    ps.pkt.Message.TopicName,
			Payload:  ps.pkt.Message.Content,
			QoS:      ps.pkt.QoS,
			Retain:   ps.pkt.Retain != 0,
		})
		e.stat.SendQuota.Set(float64(e.store.SendQuota()))
		e.applyOutboundAlias(ps.pkt)
		_ = e.writePacket(ps.pkt)
	}
}

// onPublish implements the §4.B receive-side QoS handshakes: QoS 0 is
// delivered as-is, QoS 1 is delivered then auto-PUBACKed, QoS 2 is
// dedup-checked against the incoming record, delivered on first arrival
// only, then auto-PUBRECed.
func (e *Endpoint) onPublish(pub *packet.PUBLISH) {
	extracted, aliasErr := e.resolveInboundAlias(pub)
	if aliasErr != nil {
		e.sendDisconnectAndClose(packet.ErrTopicAliasInvalid)
		e.deliverErr(aliasErr)
		return
	}

	switch pub.QoS {
	case 0:
		e.deliver(pub, extracted)
	case 1:
		e.deliver(pub, extracted)
		if e.cfg.AutoPubResponse {
			ack := &packet.PUBACK{
				FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0x4},
				PacketID:    pub.PacketID,
				ReasonCode:  packet.CodeSuccess,
			}
			_ = e.writePacket(ack)
		}
	case 2:
		if !e.store.IsIncomingRecorded(pub.PacketID) && e.cfg.OurReceiveMaximum > 0 &&
			e.store.IncomingInFlight() >= int(e.cfg.OurReceiveMaximum) {
			// The peer has more QoS2 exchanges outstanding toward us than
			// our advertised receive_maximum allows (§4.B flow control,
			// inbound direction).
			e.sendDisconnectAndClose(packet.ErrReceiveMaxExceeded)
			e.deliverErr(newError(ProtocolError, packet.ErrReceiveMaxExceeded))
			return
		}
		fresh := e.store.RecordIncoming(pub.PacketID)
		if fresh {
			e.deliver(pub, extracted)
		}
		if e.cfg.AutoPubResponse {
			rec := &packet.PUBREC{
				FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0x5},
				PacketID:    pub.PacketID,
				ReasonCode:  packet.CodeSuccess,
			}
			_ = e.writePacket(rec)
		}
	}
}

// onPubrelRecv completes the receive-side QoS 2 handshake: remove from
// the incoming record and, unless the caller manages acks manually,
// respond with PUBCOMP.
func (e *Endpoint) onPubrelRecv(rel *packet.PUBREL) {
	e.store.ClearIncoming(rel.PacketID)
	if e.cfg.AutoPubResponse {
		comp := &packet.PUBCOMP{
			FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0x7},
			PacketID:    rel.PacketID,
			ReasonCode:  packet.CodeSuccess,
		}
		_ = e.writePacket(comp)
	} else {
		e.deliver(rel, false)
	}
}
