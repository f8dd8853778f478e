package packet

import (
	"bytes"
	"io"
)

// AUTH carries extended (e.g. challenge/response) authentication exchange
// data; v5.0 only (§3.15).
type AUTH struct {
	*FixedHeader

	ReasonCode ReasonCode
	Props      *Properties
}

func (pkt *AUTH) Kind() byte { return 0xF }

func (pkt *AUTH) Pack(w io.Writer) error {
	var buf bytes.Buffer
	if pkt.ReasonCode.Code != 0 || pkt.Props != nil {
		buf.WriteByte(pkt.ReasonCode.Code)
		props, err := PackProperties(0xF, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *AUTH) Unpack(buf *bytes.Buffer) error {
	if buf.Len() == 0 {
		pkt.ReasonCode = CodeSuccess
		return nil
	}
	code, err := decodeByte(buf)
	if err != nil {
		return err
	}
	pkt.ReasonCode = ReasonCode{Code: code}

	if buf.Len() > 0 {
		props, err := UnpackProperties(0xF, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}
	return nil
}
