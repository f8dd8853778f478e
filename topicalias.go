package mqtt

import "github.com/golang-io/mqtt-endpoint/packet"

// applyOutboundAlias implements the §4.B outbound topic-alias branch for
// a v5.0 PUBLISH about to be written: replace with a previously-assigned
// alias, auto-map a new one, evict-and-reassign the LRU entry when full,
// or leave the packet untouched. A no-op pre-v5.0 or with both options
// disabled.
func (e *Endpoint) applyOutboundAlias(pub *packet.PUBLISH) {
	if e.cfg.Version != V500 || e.peerTopicAliasMax == 0 {
		return
	}
	topic := pub.Message.TopicName
	if topic == "" {
		return // already alias-only, or a stripped retransmission
	}

	if alias, ok := e.outAlias.Lookup(topic); ok {
		if e.cfg.AutoReplaceTopicAliasSend {
			pub.Message.TopicName = ""
			ensureProps(pub).SetTopicAlias(alias)
		}
		return
	}

	if !e.cfg.AutoMapTopicAliasSend {
		return
	}
	switch {
	case e.outAlias.HasCapacity():
		alias := e.outAlias.Assign(topic)
		ensureProps(pub).SetTopicAlias(alias)
	case e.outAlias.Capacity() > 0:
		alias := e.outAlias.EvictLRUForReuse()
		e.outAlias.AssignAlias(topic, alias)
		ensureProps(pub).SetTopicAlias(alias)
	}
}

// resolveInboundAlias implements the §4.B inbound topic-alias branch for
// a received v5.0 PUBLISH. Returns a protocol error (to be surfaced as
// DISCONNECT 0x94) when the alias is absent, zero, or exceeds our
// declared maximum.
func (e *Endpoint) resolveInboundAlias(pub *packet.PUBLISH) (extracted bool, err *Error) {
	if e.cfg.Version != V500 || pub.Props == nil || !pub.Props.HasTopicAlias() {
		return false, nil
	}
	alias := pub.Props.TopicAlias

	if pub.Message.TopicName != "" {
		if !e.inAlias.Update(alias, pub.Message.TopicName) {
			return false, newError(ProtocolError, packet.ErrTopicAliasInvalid)
		}
		return false, nil
	}

	topic, ok := e.inAlias.Lookup(alias)
	if !ok {
		return false, newError(ProtocolError, packet.ErrTopicAliasInvalid)
	}
	pub.Message.TopicName = topic
	return true, nil
}

func ensureProps(pub *packet.PUBLISH) *packet.Properties {
	if pub.Props == nil {
		pub.Props = &packet.Properties{}
	}
	return pub.Props
}
