package session

// StoredPublish is a QoS>0 PUBLISH the client has sent but not yet seen
// fully acknowledged. Topic is always the fully expanded name — never a
// topic alias — so retransmission after reconnect can strip aliasing
// entirely, per §4.B.
type StoredPublish struct {
	PacketID uint16
	Topic    string
	Payload  []byte
	QoS      uint8
	Retain   bool

	// Phase distinguishes a QoS 2 publish still awaiting PUBREC from one
	// that has moved to the PUBREL stage (see PhasePubrel below); for
	// QoS 1 this is always PhasePublish.
	Phase Phase
}

type Phase uint8

const (
	PhasePublish Phase = iota // awaiting PUBACK (QoS1) or PUBREC (QoS2)
	PhasePubrel                // QoS2 only: PUBREC received, PUBREL stored
)

// entry is one ordinal slot in the stored-publish log: insertion-ordered
// so retransmission preserves relative order, as §4.C requires.
type entry struct {
	id uint16
	sp StoredPublish
}

// Store holds every piece of per-connection state that must survive a
// reconnect (stored publishes/PUBRELs, the incoming QoS-2 record) plus
// the packet-id pool and send quota that govern them. Topic alias maps
// are owned separately (OutboundAliases/InboundAliases) since they are
// explicitly NOT part of session state.
type Store struct {
	PacketIDs *PacketIDPool

	order   []uint16 // insertion order of PacketIDs currently stored
	byID    map[uint16]*entry
	incoming map[uint16]struct{} // QoS2 receive: PUBREC sent, PUBCOMP pending

	sendQuota    int32
	receiveMaxPeer uint16 // peer's receive_maximum; governs our send quota
}

func NewStore() *Store {
	return &Store{
		PacketIDs:      NewPacketIDPool(),
		byID:           make(map[uint16]*entry),
		incoming:       make(map[uint16]struct{}),
		sendQuota:      65535,
		receiveMaxPeer: 65535,
	}
}

// SetPeerReceiveMaximum (re)initializes the send quota from the peer's
// CONNACK receive_maximum, per §3 Send quota.
func (s *Store) SetPeerReceiveMaximum(n uint16) {
	if n == 0 {
		n = 65535
	}
	inFlight := int32(len(s.order))
	s.receiveMaxPeer = n
	s.sendQuota = int32(n) - inFlight
}

func (s *Store) SendQuota() int32 { return s.sendQuota }

// StorePublish records a newly-sent QoS>0 PUBLISH, decrementing send
// quota and appending it to the ordered log.
func (s *Store) StorePublish(sp StoredPublish) {
	s.order = append(s.order, sp.PacketID)
	s.byID[sp.PacketID] = &entry{id: sp.PacketID, sp: sp}
	s.sendQuota--
}

// MarkPubrelPhase transitions a QoS2 stored publish to the PUBREL phase
// on receipt of PUBREC with a success reason code, per §4.B.
func (s *Store) MarkPubrelPhase(id uint16) {
	if e, ok := s.byID[id]; ok {
		e.sp.Phase = PhasePubrel
	}
}

// CompleteOutbound removes a stored entry (terminal ack received),
// releases its packet id and returns send quota, per §4.B.
func (s *Store) CompleteOutbound(id uint16) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.PacketIDs.Release(id)
	s.sendQuota++
}

// Ordered returns every stored entry in original insertion order, for
// retransmission on reconnect (§3 testable property 2).
func (s *Store) Ordered() []StoredPublish {
	out := make([]StoredPublish, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].sp)
	}
	return out
}

func (s *Store) Len() int { return len(s.order) }

// RecordIncoming marks packetID as having had a PUBREC sent for it
// (QoS2 receive side). Returns false if it was already recorded — the
// caller uses that to detect a duplicate delivery per §4.B.
func (s *Store) RecordIncoming(id uint16) bool {
	if _, dup := s.incoming[id]; dup {
		return false
	}
	s.incoming[id] = struct{}{}
	return true
}

// ClearIncoming removes packetID from the incoming QoS-2 record on
// receipt of the matching PUBREL.
func (s *Store) ClearIncoming(id uint16) {
	delete(s.incoming, id)
}

func (s *Store) IsIncomingRecorded(id uint16) bool {
	_, ok := s.incoming[id]
	return ok
}

// IncomingInFlight counts QoS-2 receives that have been PUBRECed but not
// yet PUBRELed, the bookkeeping against which our own receive_maximum
// (bounding what the peer may have outstanding toward us) is enforced.
func (s *Store) IncomingInFlight() int {
	return len(s.incoming)
}

// ClearSession empties every piece of session state except
// configuration, per §3 Lifecycle: called when the caller sends a
// CONNECT with clean_start=true, or a CONNACK with session_present=false
// arrives.
func (s *Store) ClearSession() {
	for _, id := range s.order {
		s.PacketIDs.Release(id)
	}
	s.order = nil
	s.byID = make(map[uint16]*entry)
	s.incoming = make(map[uint16]struct{})
	s.sendQuota = int32(s.receiveMaxPeer)
}
