package mqtt

import "github.com/golang-io/mqtt-endpoint/packet"

// Recv blocks until a packet is available for delivery or the endpoint
// closes (§4.E: recv is a suspension point when nothing is ready).
// extracted reports whether the PUBLISH's topic name was substituted
// from an inbound topic alias rather than carried on the wire (§4.B).
func (e *Endpoint) Recv() (pkt packet.Packet, extracted bool, err error) {
	done := make(chan recvResult, 1)
	e.postEvent(evRecv{done: done})
	select {
	case r := <-done:
		return r.pkt, r.extracted, r.err
	case <-e.closed:
		return nil, false, newError(Closed, packet.ReasonCode{})
	}
}

// AcquirePacketID allocates the next free packet identifier (§6). When
// the pool is exhausted it returns an *Error of Kind PacketIdExhausted
// (non-fatal).
func (e *Endpoint) AcquirePacketID() (id uint16, err error) {
	done := make(chan acquireResult, 1)
	e.postEvent(evAcquire{done: done})
	select {
	case r := <-done:
		if !r.ok {
			return 0, newError(PacketIdExhausted, packet.ReasonCode{})
		}
		return r.id, nil
	case <-e.closed:
		return 0, newError(Closed, packet.ReasonCode{})
	}
}

// RegisterPacketID marks id as in-use for a caller-chosen value (e.g.
// restoring a persisted session), failing if it is already taken.
func (e *Endpoint) RegisterPacketID(id uint16) bool {
	done := make(chan bool, 1)
	e.postEvent(evRegister{id: id, done: done})
	select {
	case ok := <-done:
		return ok
	case <-e.closed:
		return false
	}
}

// ReleasePacketID returns id to the pool. Releasing an id still held by
// a stored (unacknowledged) publish is forbidden: it is a caller misuse
// rather than a protocol fault, so it is reported as the plain
// ErrPacketIDInUse instead of an *Error of some Kind (§9 Open Question:
// release-while-in-use).
func (e *Endpoint) ReleasePacketID(id uint16) error {
	done := make(chan error, 1)
	e.postEvent(evRelease{id: id, done: done})
	select {
	case err := <-done:
		return err
	case <-e.closed:
		return newError(Closed, packet.ReasonCode{})
	}
}
