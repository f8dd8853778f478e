package mqtt

import (
	"time"

	"github.com/golang-io/mqtt-endpoint/packet"
)

// event is the union of everything the orchestrator goroutine reacts
// to: caller requests and transport/timer notifications, all funneled
// through one channel so state needs no locking (§4.E, §5).
type event interface{ isEvent() }

type evSend struct {
	pkt  packet.Packet
	done chan error
}
type evRecv struct {
	done chan recvResult
}
type evAcquire struct {
	done chan acquireResult
}
type evRegister struct {
	id   uint16
	done chan bool
}
type evRelease struct {
	id   uint16
	done chan error
}
type evClose struct {
	done chan error
}
type evQueryPhase struct {
	done chan ConnectionPhase
}
type evBytes struct{ b []byte }
type evTransportConnected struct{}
type evTransportClosed struct{ err error }
type evTimer struct{ f timerFire }

func (evSend) isEvent()               {}
func (evRecv) isEvent()               {}
func (evAcquire) isEvent()            {}
func (evRegister) isEvent()           {}
func (evRelease) isEvent()            {}
func (evClose) isEvent()              {}
func (evQueryPhase) isEvent()         {}
func (evBytes) isEvent()              {}
func (evTransportConnected) isEvent() {}
func (evTransportClosed) isEvent()    {}
func (evTimer) isEvent()              {}

// recvResult is what a Recv call eventually receives: either a delivered
// packet (with extracted noting a v5.0 inbound topic-alias substitution,
// §4.B) or a terminal error.
type recvResult struct {
	pkt       packet.Packet
	extracted bool
	err       error
}

type acquireResult struct {
	id uint16
	ok bool
}

// run is the single orchestrator goroutine. Every field mutation on the
// endpoint happens here, and nowhere else, so no locking is needed
// (§5 Concurrency & Resource Model).
func (e *Endpoint) run() {
	defer e.closeOnce.Do(func() { close(e.closed) })

	go func() {
		for {
			select {
			case f := <-e.timers.fire:
				e.postEvent(evTimer{f: f})
			case <-e.closed:
				return
			}
		}
	}()

	for {
		ev, ok := <-e.events
		if !ok {
			return
		}
		switch v := ev.(type) {
		case evSend:
			v.done <- e.handleSendRequest(v.pkt)
		case evRecv:
			select {
			case r := <-e.recvCh:
				v.done <- r
			default:
				e.pendingRecv = v.done
			}
		case evAcquire:
			id, err := e.store.PacketIDs.Acquire()
			v.done <- acquireResult{id: id, ok: err == nil}
		case evRegister:
			v.done <- e.store.PacketIDs.Register(v.id)
		case evRelease:
			v.done <- e.handleRelease(v.id)
		case evClose:
			v.done <- e.handleClose()
			return
		case evQueryPhase:
			v.done <- e.phase
		case evBytes:
			e.handleBytes(v.b)
		case evTransportConnected:
			// The state machine reacts to CONNACK, not to the raw
			// transport-level connect, so there is nothing to do here.
		case evTransportClosed:
			e.handleTransportClosed(v.err)
			if e.shuttingDown {
				return
			}
		case evTimer:
			e.handleTimer(v.f)
		}
	}
}

// enqueueRecv hands r to a Recv call already blocked waiting for one, or
// buffers it for the next Recv, preserving arrival order (§4.E ordering
// guarantees).
func (e *Endpoint) enqueueRecv(r recvResult) {
	if e.pendingRecv != nil {
		ch := e.pendingRecv
		e.pendingRecv = nil
		ch <- r
		return
	}
	e.recvCh <- r
}

func (e *Endpoint) deliver(pkt packet.Packet, extracted bool) {
	e.enqueueRecv(recvResult{pkt: pkt, extracted: extracted})
}

func (e *Endpoint) deliverErr(err *Error) {
	e.enqueueRecv(recvResult{err: err})
}

func (e *Endpoint) handleRelease(id uint16) error {
	if e.store.PacketIDs.InUse(id) {
		for _, sp := range e.store.Ordered() {
			if sp.PacketID == id {
				return ErrPacketIDInUse
			}
		}
	}
	e.store.PacketIDs.Release(id)
	return nil
}

func (e *Endpoint) handleBytes(b []byte) {
	e.stat.BytesReceived.Add(float64(len(b)))
	e.rxbuf.Write(b)
	limit := e.cfg.OurMaximumPacketSize
	for {
		before := e.rxbuf.Len()
		pkt, err := packet.DecodeFromBuffer(e.cfg.Version.byte(), &e.rxbuf)
		if err == packet.ErrNeedMore {
			if limit > 0 && uint32(e.rxbuf.Len()) > limit {
				// A still-incomplete packet already exceeds our limit; no
				// point buffering further (§4.B maximum packet size, incoming).
				e.onFatalDecodeError(packet.ErrPacketTooLarge)
			}
			return
		}
		if err != nil {
			e.onFatalDecodeError(err)
			return
		}
		if limit > 0 && uint32(before-e.rxbuf.Len()) > limit {
			e.onFatalDecodeError(packet.ErrPacketTooLarge)
			return
		}
		e.stat.PacketsReceived.Inc()
		e.dispatchInbound(pkt)
	}
}

// onFatalDecodeError handles a decode-time failure on the incoming
// stream: always fatal, per §7. An incoming packet exceeding our
// maximum size is itself a protocol error (DISCONNECT 0x95), distinct
// from the non-fatal PacketTooLarge rejection writePacket applies to
// outbound packets exceeding the peer's limit.
func (e *Endpoint) onFatalDecodeError(err error) {
	if rc, ok := err.(packet.ReasonCode); ok && rc.Code == packet.ErrPacketTooLarge.Code {
		e.sendDisconnectAndClose(packet.ErrPacketTooLarge)
		e.deliverErr(newError(ProtocolError, packet.ErrPacketTooLarge))
		return
	}
	epErr := classifyDecodeErr(err)
	reason := packet.ErrMalformedPacket
	if epErr.Kind == ProtocolError {
		reason = packet.ErrProtocolError
	}
	e.sendDisconnectAndClose(reason)
	e.deliverErr(epErr)
}

func (e *Endpoint) sendDisconnectAndClose(reason packet.ReasonCode) {
	if e.cfg.Version == V500 && e.phase != Disconnected && e.transport != nil {
		d := &packet.DISCONNECT{
			FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0xE},
			ReasonCode:  reason,
		}
		_ = e.writePacket(d)
	}
	if e.transport != nil {
		_ = e.transport.Close()
	}
	e.timers.CancelAll()
	e.store.ClearSession()
	e.outAlias.Reset()
	e.inAlias.Reset()
	e.phase = Disconnected
}

func (e *Endpoint) handleTransportClosed(err error) {
	e.timers.CancelAll()
	wasShuttingDown := e.shuttingDown
	e.phase = Disconnected
	if err != nil && !wasShuttingDown {
		e.deliverErr(wrapError(TransportError, err))
	}
}

func (e *Endpoint) handleClose() error {
	if e.phase == Connected {
		e.phase = Disconnecting
		d := &packet.DISCONNECT{
			FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0xE},
			ReasonCode:  packet.CodeDisconnect,
		}
		_ = e.writePacket(d)
		e.timers.Arm(TimerShutdown, e.cfg.ShutdownTimeout)
	}
	e.shuttingDown = true
	if e.transport != nil {
		return e.transport.Close()
	}
	return nil
}

func (e *Endpoint) handleTimer(f timerFire) {
	if !e.timers.valid(f) {
		return // stale fire, already cancelled/rearmed (§4.D)
	}
	switch f.kind {
	case TimerPingreqSend:
		p := &packet.PINGREQ{FixedHeader: &packet.FixedHeader{Version: e.cfg.Version.byte(), Kind: 0xC}}
		_ = e.writePacket(p)
		e.timers.Arm(TimerPingrespRecv, e.cfg.PingrespRecvTimeout)
	case TimerPingrespRecv:
		e.stat.KeepAliveTimeouts.Inc()
		e.deliverErr(newError(KeepAliveTimeout, packet.ErrKeepAliveTimeout))
		e.sendDisconnectAndClose(packet.ErrKeepAliveTimeout)
	case TimerConnectionEstablish:
		e.phase = Disconnected
		e.deliverErr(newError(ConnectTimeout, packet.ReasonCode{}))
		if e.transport != nil {
			_ = e.transport.Close()
		}
	case TimerShutdown:
		if e.transport != nil {
			_ = e.transport.Close()
		}
	}
}

// writePacket serializes pkt and writes it, bumping stats and resetting
// the keep-alive send timer on every successful write (§4.D: "reset on
// any write").
func (e *Endpoint) writePacket(pkt packet.Packet) error {
	buf := packet.GetBuffer()
	defer packet.PutBuffer(buf)
	if err := pkt.Pack(buf); err != nil {
		return err
	}
	if e.peerMaxPacketSize > 0 && uint32(buf.Len()) > e.peerMaxPacketSize {
		// Rejected locally without writing anything, per §4.B maximum
		// packet size (outgoing): non-fatal, the connection stays up.
		return newError(PacketTooLarge, packet.ErrPacketTooLarge)
	}
	if err := e.transport.Send(buf.Bytes()); err != nil {
		e.deliverErr(wrapError(TransportError, err))
		return err
	}
	e.stat.PacketsSent.Inc()
	e.stat.BytesSent.Add(float64(buf.Len()))
	if e.effectiveKeepAlive > 0 && e.phase == Connected {
		e.timers.Arm(TimerPingreqSend, e.pingInterval())
	}
	return nil
}

// pingInterval is the configured PingreqSendInterval, or half of the
// effective keep-alive when unset (§4.D).
func (e *Endpoint) pingInterval() time.Duration {
	if e.cfg.PingreqSendInterval > 0 {
		return e.cfg.PingreqSendInterval
	}
	return time.Duration(e.effectiveKeepAlive) * time.Second / 2
}
