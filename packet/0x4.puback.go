package packet

import (
	"bytes"
	"io"
)

// PUBACK acknowledges a QoS 1 PUBLISH (§3.4). ReasonCode and Props are
// omitted entirely when ReasonCode is success and no properties are set
// and Version is v5.0 (MQTT-3.4.2-1 shorthand), and never present at all
// pre-v5.0.
type PUBACK struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *Properties // v5.0 only
}

func (pkt *PUBACK) Kind() byte { return 0x4 }

func (pkt *PUBACK) Pack(w io.Writer) error {
	return packAck(w, pkt.FixedHeader, 0x4, pkt.PacketID, pkt.ReasonCode, pkt.Props)
}

func (pkt *PUBACK) Unpack(buf *bytes.Buffer) error {
	id, rc, props, err := unpackAck(buf, 0x4, pkt.Version)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode, pkt.Props = id, rc, props
	return nil
}

// packAck and unpackAck implement the shared wire shape of PUBACK, PUBREC,
// PUBREL and PUBCOMP (§3.4-3.7): packet id, then an optional reason code
// and properties, both of which may be elided when the reason is success
// and there are no properties (MQTT-3.4.2-1 and siblings).
func packAck(w io.Writer, fh *FixedHeader, kind byte, id uint16, rc ReasonCode, props *Properties) error {
	var buf bytes.Buffer
	buf.Write(i2b(id))

	includeReason := fh.Version == VERSION500 && (rc.Code != 0 || props != nil)
	if includeReason {
		buf.WriteByte(rc.Code)
		p, err := PackProperties(kind, props)
		if err != nil {
			return err
		}
		buf.Write(p)
	}

	fh.RemainingLength = uint32(buf.Len())
	if err := fh.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func unpackAck(buf *bytes.Buffer, kind byte, version byte) (uint16, ReasonCode, *Properties, error) {
	id, err := decodeUint16(buf)
	if err != nil {
		return 0, ReasonCode{}, nil, err
	}
	if id == 0 {
		return 0, ReasonCode{}, nil, ErrMalformedPacketID
	}
	if buf.Len() == 0 {
		return id, CodeSuccess, nil, nil
	}

	code, err := decodeByte(buf)
	if err != nil {
		return 0, ReasonCode{}, nil, err
	}
	rc := ReasonCode{Code: code}

	var props *Properties
	if version == VERSION500 && buf.Len() > 0 {
		props, err = UnpackProperties(kind, buf)
		if err != nil {
			return 0, ReasonCode{}, nil, err
		}
	}
	return id, rc, props, nil
}
