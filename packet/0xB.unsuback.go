package packet

import (
	"bytes"
	"io"
)

// UNSUBACK acknowledges an UNSUBSCRIBE (§3.11). Pre-v5.0 it carries no
// payload beyond the packet id; v5.0 adds one reason code per filter.
type UNSUBACK struct {
	*FixedHeader

	PacketID    uint16
	ReasonCodes []ReasonCode // v5.0 only
	Props       *Properties  // v5.0 only
}

func (pkt *UNSUBACK) Kind() byte { return 0xB }

func (pkt *UNSUBACK) Pack(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(i2b(pkt.PacketID))
	if pkt.Version == VERSION500 {
		props, err := PackProperties(0xB, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
		for _, rc := range pkt.ReasonCodes {
			buf.WriteByte(rc.Code)
		}
	}

	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *UNSUBACK) Unpack(buf *bytes.Buffer) error {
	id, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrMalformedPacketID
	}
	pkt.PacketID = id

	if pkt.Version != VERSION500 {
		return nil
	}

	props, err := UnpackProperties(0xB, buf)
	if err != nil {
		return err
	}
	pkt.Props = props

	for buf.Len() > 0 {
		code, err := decodeByte(buf)
		if err != nil {
			return err
		}
		pkt.ReasonCodes = append(pkt.ReasonCodes, ReasonCode{Code: code})
	}
	return nil
}
