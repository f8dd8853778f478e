package packet

import (
	"bytes"
	"io"
)

// Packet is the common interface implemented by every MQTT control packet.
type Packet interface {
	Kind() byte
	Pack(io.Writer) error
	Unpack(*bytes.Buffer) error
}

// Message is the application payload carried by a PUBLISH packet,
// independent of QoS/packet-id plumbing so the same value can be reused
// across a retransmission (session.StoredPublish keeps one of these).
type Message struct {
	TopicName string
	Content   []byte
}

// Subscription is one entry of a SUBSCRIBE request or the restored state
// of an existing subscription.
type Subscription struct {
	TopicFilter string
	MaximumQoS  uint8

	// v5.0 subscription options, §3.8.3.1.
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    uint8
}

// Unpack reads one complete MQTT control packet from r: the fixed
// header, then exactly RemainingLength further bytes buffered and
// handed to the packet's own Unpack. Role is always Client in this
// module (the endpoint never plays the server role), so Unpack takes no
// role parameter.
func Unpack(version byte, r io.Reader) (Packet, error) {
	fixed := &FixedHeader{Version: version}
	if err := fixed.Unpack(r); err != nil {
		return nil, err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)
	if _, err := io.CopyN(buf, r, int64(fixed.RemainingLength)); err != nil {
		return nil, err
	}

	pkt, err := newPacket(fixed)
	if err != nil {
		return nil, err
	}
	if err := pkt.Unpack(buf); err != nil {
		return nil, err
	}
	return pkt, nil
}

// DecodeFromBuffer implements the streaming half of §4.A decode: it
// consumes a complete packet from buf if one is fully present, leaving
// buf untouched and returning ErrNeedMore otherwise.
func DecodeFromBuffer(version byte, buf *bytes.Buffer) (Packet, error) {
	snapshot := bytes.NewBuffer(buf.Bytes())
	fixed := &FixedHeader{Version: version}
	if err := fixed.Unpack(snapshot); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrNeedMore
		}
		return nil, err
	}
	headerLen := buf.Len() - snapshot.Len()
	total := headerLen + int(fixed.RemainingLength)
	if buf.Len() < total {
		return nil, ErrNeedMore
	}

	buf.Next(headerLen)
	body := bytes.NewBuffer(buf.Next(int(fixed.RemainingLength)))
	pkt, err := newPacket(fixed)
	if err != nil {
		return nil, err
	}
	if err := pkt.Unpack(body); err != nil {
		return nil, err
	}
	return pkt, nil
}

func newPacket(fixed *FixedHeader) (Packet, error) {
	switch fixed.Kind {
	case 0x1:
		return &CONNECT{FixedHeader: fixed}, nil
	case 0x2:
		return &CONNACK{FixedHeader: fixed}, nil
	case 0x3:
		return &PUBLISH{FixedHeader: fixed}, nil
	case 0x4:
		return &PUBACK{FixedHeader: fixed}, nil
	case 0x5:
		return &PUBREC{FixedHeader: fixed}, nil
	case 0x6:
		return &PUBREL{FixedHeader: fixed}, nil
	case 0x7:
		return &PUBCOMP{FixedHeader: fixed}, nil
	case 0x8:
		return &SUBSCRIBE{FixedHeader: fixed}, nil
	case 0x9:
		return &SUBACK{FixedHeader: fixed}, nil
	case 0xA:
		return &UNSUBSCRIBE{FixedHeader: fixed}, nil
	case 0xB:
		return &UNSUBACK{FixedHeader: fixed}, nil
	case 0xC:
		return &PINGREQ{FixedHeader: fixed}, nil
	case 0xD:
		return &PINGRESP{FixedHeader: fixed}, nil
	case 0xE:
		return &DISCONNECT{FixedHeader: fixed}, nil
	case 0xF:
		if fixed.Version != VERSION500 {
			return nil, ErrMalformedPacket
		}
		return &AUTH{FixedHeader: fixed}, nil
	default:
		return nil, ErrMalformedPacket
	}
}

// ErrNeedMore signals that buf does not yet hold a complete packet.
var ErrNeedMore = errNeedMore{}

type errNeedMore struct{}

func (errNeedMore) Error() string { return "mqtt: need more data" }
