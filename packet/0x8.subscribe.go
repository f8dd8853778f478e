package packet

import (
	"bytes"
	"io"
)

// SUBSCRIBE requests one or more topic filter subscriptions (§3.8).
type SUBSCRIBE struct {
	*FixedHeader

	PacketID      uint16
	Subscriptions []Subscription
	Props         *Properties // v5.0 only
}

func (pkt *SUBSCRIBE) Kind() byte { return 0x8 }

func (pkt *SUBSCRIBE) Pack(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(i2b(pkt.PacketID))
	if pkt.Version == VERSION500 {
		props, err := PackProperties(0x8, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
	}
	for _, s := range pkt.Subscriptions {
		buf.Write(encodeUTF8(s.TopicFilter))
		if pkt.Version == VERSION500 {
			var opts byte
			opts |= s.MaximumQoS & 0x3
			if s.NoLocal {
				opts |= 1 << 2
			}
			if s.RetainAsPublished {
				opts |= 1 << 3
			}
			opts |= (s.RetainHandling & 0x3) << 4
			buf.WriteByte(opts)
		} else {
			buf.WriteByte(s.MaximumQoS & 0x3)
		}
	}

	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *SUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	id, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrMalformedPacketID
	}
	pkt.PacketID = id

	if pkt.Version == VERSION500 {
		props, err := UnpackProperties(0x8, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}

	for buf.Len() > 0 {
		filter, err := decodeUTF8[string](buf)
		if err != nil {
			return err
		}
		opts, err := decodeByte(buf)
		if err != nil {
			return err
		}
		sub := Subscription{TopicFilter: filter, MaximumQoS: opts & 0x3}
		if sub.MaximumQoS > 2 {
			return ErrProtocolViolationQosOutOfRange
		}
		if pkt.Version == VERSION500 {
			sub.NoLocal = opts&(1<<2) != 0
			sub.RetainAsPublished = opts&(1<<3) != 0
			sub.RetainHandling = (opts >> 4) & 0x3
			if opts&0xC0 != 0 || sub.RetainHandling > 2 {
				return ErrMalformedFlags
			}
		}
		pkt.Subscriptions = append(pkt.Subscriptions, sub)
	}
	if len(pkt.Subscriptions) == 0 {
		return ErrProtocolViolationNoFilters
	}
	return nil
}
