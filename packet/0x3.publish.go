package packet

import (
	"bytes"
	"io"
)

// PUBLISH carries application data from publisher to subscriber (§3.3).
// PacketID is present only when QoS > 0 (FixedHeader.QoS).
type PUBLISH struct {
	*FixedHeader

	Message  Message
	PacketID uint16
	Props    *Properties // v5.0 only
}

func (pkt *PUBLISH) Kind() byte { return 0x3 }

func (pkt *PUBLISH) Pack(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(encodeUTF8(pkt.Message.TopicName))
	if pkt.QoS > 0 {
		buf.Write(i2b(pkt.PacketID))
	}
	if pkt.Version == VERSION500 {
		props, err := PackProperties(0x3, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
	}
	buf.Write(pkt.Message.Content)

	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *PUBLISH) Unpack(buf *bytes.Buffer) error {
	topic, err := decodeUTF8[string](buf)
	if err != nil {
		return err
	}
	pkt.Message.TopicName = topic

	if pkt.QoS > 0 {
		id, err := decodeUint16(buf)
		if err != nil {
			return err
		}
		if id == 0 {
			return ErrMalformedPacketID
		}
		pkt.PacketID = id
	}

	if pkt.Version == VERSION500 {
		props, err := UnpackProperties(0x3, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}

	if topic == "" && !pkt.Props.HasTopicAlias() {
		return ErrProtocolViolationNoTopic
	}

	pkt.Message.Content = append([]byte(nil), buf.Bytes()...)
	return nil
}
