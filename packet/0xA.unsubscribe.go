package packet

import (
	"bytes"
	"io"
)

// UNSUBSCRIBE requests removal of one or more subscriptions (§3.10).
type UNSUBSCRIBE struct {
	*FixedHeader

	PacketID     uint16
	TopicFilters []string
	Props        *Properties // v5.0 only
}

func (pkt *UNSUBSCRIBE) Kind() byte { return 0xA }

func (pkt *UNSUBSCRIBE) Pack(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(i2b(pkt.PacketID))
	if pkt.Version == VERSION500 {
		props, err := PackProperties(0xA, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
	}
	for _, f := range pkt.TopicFilters {
		buf.Write(encodeUTF8(f))
	}

	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *UNSUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	id, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrMalformedPacketID
	}
	pkt.PacketID = id

	if pkt.Version == VERSION500 {
		props, err := UnpackProperties(0xA, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}

	for buf.Len() > 0 {
		f, err := decodeUTF8[string](buf)
		if err != nil {
			return err
		}
		pkt.TopicFilters = append(pkt.TopicFilters, f)
	}
	if len(pkt.TopicFilters) == 0 {
		return ErrProtocolViolationNoFilters
	}
	return nil
}
