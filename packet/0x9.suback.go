package packet

import (
	"bytes"
	"io"
)

// SUBACK acknowledges a SUBSCRIBE, one reason code per requested filter
// in the same order (§3.9).
type SUBACK struct {
	*FixedHeader

	PacketID    uint16
	ReasonCodes []ReasonCode
	Props       *Properties // v5.0 only
}

func (pkt *SUBACK) Kind() byte { return 0x9 }

func (pkt *SUBACK) Pack(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(i2b(pkt.PacketID))
	if pkt.Version == VERSION500 {
		props, err := PackProperties(0x9, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
	}
	for _, rc := range pkt.ReasonCodes {
		buf.WriteByte(rc.Code)
	}

	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *SUBACK) Unpack(buf *bytes.Buffer) error {
	id, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrMalformedPacketID
	}
	pkt.PacketID = id

	if pkt.Version == VERSION500 {
		props, err := UnpackProperties(0x9, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}

	for buf.Len() > 0 {
		code, err := decodeByte(buf)
		if err != nil {
			return err
		}
		pkt.ReasonCodes = append(pkt.ReasonCodes, ReasonCode{Code: code})
	}
	if len(pkt.ReasonCodes) == 0 {
		return ErrMalformedPacket
	}
	return nil
}
